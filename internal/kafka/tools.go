package kafka

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// CheckClusterAvailability verifies if the Kafka cluster is available and responsive
func CheckClusterAvailability(brokers []string, timeout time.Duration) error {
	log := logrus.WithField("component", "kafka_tools")

	config := sarama.NewConfig()
	config.Net.DialTimeout = timeout
	config.Net.ReadTimeout = timeout
	config.Net.WriteTimeout = timeout

	log.Tracef("Checking Kafka cluster availability with brokers: %v", brokers)
	client, err := sarama.NewClient(brokers, config)
	if err != nil {
		return fmt.Errorf("failed to create kafka client: %w", err)
	}
	defer client.Close()

	availableBrokers := client.Brokers()
	if len(availableBrokers) == 0 {
		return fmt.Errorf("no brokers available in the cluster")
	}
	log.Tracef("Kafka brokers available: %v", len(availableBrokers))

	for _, broker := range availableBrokers {
		if err := checkBroker(broker, config); err != nil {
			return err
		}
		log.Tracef("Broker %s is connected", broker.Addr())
	}
	return nil
}

func checkBroker(broker *sarama.Broker, config *sarama.Config) error {
	if err := broker.Open(config); err != nil && err != sarama.ErrAlreadyConnected {
		return fmt.Errorf("failed to connect to broker %s: %w", broker.Addr(), err)
	}
	defer broker.Close()

	connected, err := broker.Connected()
	if err != nil {
		return fmt.Errorf("failed to check connection to broker %s: %w", broker.Addr(), err)
	}
	if !connected {
		return fmt.Errorf("broker %s is not connected", broker.Addr())
	}
	return nil
}
