package kafka

import "context"

// MessageSender publishes one payload to a topic.
type MessageSender interface {
	Send(ctx context.Context, topic string, msg []byte) error
}

// PoolController starts and stops a pool of producers.
type PoolController interface {
	Start() error
	Stop() error
}

// KafkaProducer defines the interface for a single producer
type KafkaProducer interface {
	Send(ctx context.Context, msg Message) error
	Close() error
}

// ProducerFactory creates the producers of a pool.
type ProducerFactory func(config ProducerConfig) (KafkaProducer, error)

// Observer is told about the outcome of every publish.
type Observer interface {
	MessageSent(topic string)
	SendFailed(topic string, err error)
}
