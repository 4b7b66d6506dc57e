package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
)

// saramaProducer implements KafkaProducer on top of a sarama.SyncProducer.
// Every send waits for the acknowledgment of all in-sync replicas.
type saramaProducer struct {
	producer sarama.SyncProducer
}

// newSaramaProducer creates a synchronous producer.
//
// Configuration:
// - RequiredAcks=WaitForAll ensures message is written to all replicas
// - Automatic retries (max 3 attempts) for transient failures
// - Messages keyed by product id land on the same partition, in order
func newSaramaProducer(config ProducerConfig) (KafkaProducer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = config.ClientID
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.BrokerList, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sarama producer: %w", err)
	}

	return &saramaProducer{producer: producer}, nil
}

// Send sends a message to the Kafka topic using the Sarama producer.
// It handles message keys, headers, and context-based operations.
func (p *saramaProducer) Send(ctx context.Context, msg Message) error {
	saramaMsg := toProducerMessage(msg)

	// SendMessage has no context; give up waiting when ctx is done
	done := make(chan error, 1)
	go func() {
		_, _, err := p.producer.SendMessage(saramaMsg)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the Sarama producer, releasing all associated resources.
func (p *saramaProducer) Close() error {
	return p.producer.Close()
}

func toProducerMessage(msg Message) *sarama.ProducerMessage {
	saramaMsg := &sarama.ProducerMessage{
		Topic: msg.Topic,
		Value: sarama.ByteEncoder(msg.Payload),
	}
	if msg.Key != "" {
		saramaMsg.Key = sarama.StringEncoder(msg.Key)
	}
	for k, v := range msg.Headers {
		saramaMsg.Headers = append(saramaMsg.Headers, sarama.RecordHeader{
			Key:   []byte(k),
			Value: []byte(v),
		})
	}
	return saramaMsg
}
