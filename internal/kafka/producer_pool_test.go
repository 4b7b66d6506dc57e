package kafka_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alejoacosta74/coinbase-api/internal/kafka"
	"github.com/alejoacosta74/coinbase-api/internal/kafka/mocks"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	mu     sync.Mutex
	sent   map[string]int
	failed map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{sent: map[string]int{}, failed: map[string]int{}}
}

func (o *countingObserver) MessageSent(topic string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent[topic]++
}

func (o *countingObserver) SendFailed(topic string, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed[topic]++
}

func factoryOf(producers ...kafka.KafkaProducer) kafka.ProducerFactory {
	i := 0
	return func(kafka.ProducerConfig) (kafka.KafkaProducer, error) {
		if i >= len(producers) {
			return nil, errors.New("no more producers")
		}
		p := producers[i]
		i++
		return p, nil
	}
}

func TestNewProducerPool_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config kafka.ProducerConfig
	}{
		{name: "zero pool size", config: kafka.ProducerConfig{BrokerList: []string{"localhost:9092"}}},
		{name: "no brokers", config: kafka.ProducerConfig{PoolSize: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := kafka.NewProducerPool(tt.config)
			assert.Error(t, err)
		})
	}
}

func TestProducerPool_SendAndStop(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p1 := mocks.NewMockKafkaProducer(ctrl)
	p2 := mocks.NewMockKafkaProducer(ctrl)
	observer := newCountingObserver()

	pool, err := kafka.NewProducerPool(
		kafka.ProducerConfig{BrokerList: []string{"localhost:9092"}, PoolSize: 2},
		kafka.WithProducerFactory(factoryOf(p1, p2)),
		kafka.WithObserver(observer),
	)
	require.NoError(t, err)
	require.NoError(t, pool.Start())
	assert.Error(t, pool.Start(), "second start must fail")

	want := kafka.Message{Topic: "coinbase.ticker", Payload: []byte(`{"channel":"ticker"}`)}
	p1.EXPECT().Send(gomock.Any(), want).Return(nil).AnyTimes()
	p2.EXPECT().Send(gomock.Any(), want).Return(nil).AnyTimes()

	for i := 0; i < 4; i++ {
		require.NoError(t, pool.Send(context.Background(), want.Topic, want.Payload))
	}
	assert.Equal(t, 4, observer.sent["coinbase.ticker"])

	p1.EXPECT().Close().Return(nil)
	p2.EXPECT().Close().Return(nil)
	require.NoError(t, pool.Stop())

	err = pool.Send(context.Background(), want.Topic, want.Payload)
	assert.ErrorIs(t, err, kafka.ErrPoolClosed)
	assert.Equal(t, 1, observer.failed["coinbase.ticker"])
	assert.Error(t, pool.Stop(), "stopping a stopped pool must fail")
}

func TestProducerPool_SendFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	producer := mocks.NewMockKafkaProducer(ctrl)
	observer := newCountingObserver()
	pool, err := kafka.NewProducerPool(
		kafka.ProducerConfig{BrokerList: []string{"localhost:9092"}, PoolSize: 1},
		kafka.WithProducerFactory(factoryOf(producer)),
		kafka.WithObserver(observer),
	)
	require.NoError(t, err)
	require.NoError(t, pool.Start())

	brokerErr := errors.New("leader not available")
	producer.EXPECT().Send(gomock.Any(), gomock.Any()).Return(brokerErr)

	err = pool.SendMessage(context.Background(), kafka.Message{Topic: "coinbase.level2", Key: "BTC-USD"})
	assert.ErrorIs(t, err, brokerErr)
	assert.Equal(t, 1, observer.failed["coinbase.level2"])

	producer.EXPECT().Close().Return(nil)
	require.NoError(t, pool.Stop())
}

func TestProducerPool_StartFailureClosesCreatedProducers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	first := mocks.NewMockKafkaProducer(ctrl)
	first.EXPECT().Close().Return(nil)

	pool, err := kafka.NewProducerPool(
		kafka.ProducerConfig{BrokerList: []string{"localhost:9092"}, PoolSize: 2},
		kafka.WithProducerFactory(factoryOf(first)),
	)
	require.NoError(t, err)

	err = pool.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create producer 1")
}

func TestProducerPool_CancelledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	producer := mocks.NewMockKafkaProducer(ctrl)
	pool, err := kafka.NewProducerPool(
		kafka.ProducerConfig{BrokerList: []string{"localhost:9092"}, PoolSize: 1},
		kafka.WithProducerFactory(factoryOf(producer)),
	)
	require.NoError(t, err)
	require.NoError(t, pool.Start())

	producer.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ kafka.Message) error {
		return ctx.Err()
	}).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = pool.Send(ctx, "coinbase.user", nil)
	assert.ErrorIs(t, err, context.Canceled)

	producer.EXPECT().Close().Return(nil)
	require.NoError(t, pool.Stop())
}

func TestFrameSink_PlainSender(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sent := make(chan struct{})
	sender := mocks.NewMockMessageSender(ctrl)
	sender.EXPECT().
		Send(gomock.Any(), "coinbase.status", []byte(`{"channel":"status"}`)).
		DoAndReturn(func(context.Context, string, []byte) error {
			close(sent)
			return nil
		})

	sink := kafka.NewFrameSink(sender, "coinbase", kafka.WithWorkers(1))
	sink.Start(context.Background())
	sink.Publish([]byte(`{"channel":"status"}`))

	select {
	case <-sent:
	case <-time.After(2 * time.Second):
		t.Fatal("frame not sent")
	}
	sink.Stop()
}
