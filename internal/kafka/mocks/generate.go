//go:generate mockgen -destination=mock_kafka.go -package=mocks github.com/alejoacosta74/coinbase-api/internal/kafka KafkaProducer,MessageSender

package mocks
