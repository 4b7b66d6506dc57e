package kafka

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSender captures published messages.
type recordingSender struct {
	mu       sync.Mutex
	messages []Message
	got      chan struct{}
	block    chan struct{} // when set, SendMessage waits on it
}

func newRecordingSender() *recordingSender {
	return &recordingSender{got: make(chan struct{}, 100)}
}

func (s *recordingSender) Send(ctx context.Context, topic string, msg []byte) error {
	return s.SendMessage(ctx, Message{Topic: topic, Payload: msg})
}

func (s *recordingSender) SendMessage(ctx context.Context, msg Message) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.got <- struct{}{}
	return nil
}

type dropCounter struct {
	mu      sync.Mutex
	dropped int
}

func (d *dropCounter) MessageSent(string) {}

func (d *dropCounter) SendFailed(_ string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == ErrQueueFull {
		d.dropped++
	}
}

func TestFrameSink_Topic(t *testing.T) {
	tests := []struct {
		prefix  string
		channel string
		want    string
	}{
		{prefix: "coinbase", channel: "ticker", want: "coinbase.ticker"},
		{prefix: "coinbase.", channel: "l2_data", want: "coinbase.level2"},
		{prefix: "coinbase", channel: "Market_Trades", want: "coinbase.market_trades"},
		{prefix: "coinbase", channel: "subscriptions", want: "coinbase.subscriptions"},
		{prefix: "coinbase", channel: "", want: "coinbase.unknown"},
		{prefix: "", channel: "user", want: "user"},
	}
	for _, tt := range tests {
		t.Run(tt.prefix+"/"+tt.channel, func(t *testing.T) {
			s := NewFrameSink(nil, tt.prefix)
			assert.Equal(t, tt.want, s.Topic(tt.channel))
		})
	}
}

func TestFrameSink_Route(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantTopic string
		wantKey   string
	}{
		{
			name:      "level2 keyed by event product",
			payload:   `{"channel":"l2_data","events":[{"type":"update","product_id":"BTC-USD","updates":[]}]}`,
			wantTopic: "cb.level2",
			wantKey:   "BTC-USD",
		},
		{
			name:      "ticker keyed by first ticker",
			payload:   `{"channel":"ticker","events":[{"type":"update","tickers":[{"product_id":"ETH-USD"}]}]}`,
			wantTopic: "cb.ticker",
			wantKey:   "ETH-USD",
		},
		{
			name:      "heartbeats have no key",
			payload:   `{"channel":"heartbeats","events":[{"current_time":"now","heartbeat_counter":1}]}`,
			wantTopic: "cb.heartbeats",
		},
		{
			name:      "invalid json",
			payload:   `not json`,
			wantTopic: "cb.unknown",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewFrameSink(nil, "cb")
			topic, key := s.route([]byte(tt.payload))
			assert.Equal(t, tt.wantTopic, topic)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestFrameSink_PublishesThroughWorkers(t *testing.T) {
	sender := newRecordingSender()
	sink := NewFrameSink(sender, "coinbase", WithWorkers(1))
	sink.Start(context.Background())
	defer sink.Stop()

	buf := []byte(`{"channel":"ticker","events":[{"tickers":[{"product_id":"BTC-USD"}]}]}`)
	sink.Publish(buf)
	want := string(buf)
	buf[2] = 'X' // the sink keeps its own copy

	select {
	case <-sender.got:
	case <-time.After(2 * time.Second):
		t.Fatal("frame not published")
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Len(t, sender.messages, 1)
	assert.Equal(t, "coinbase.ticker", sender.messages[0].Topic)
	assert.Equal(t, "BTC-USD", sender.messages[0].Key)
	assert.Equal(t, want, string(sender.messages[0].Payload))
}

func TestFrameSink_DropsWhenFull(t *testing.T) {
	sender := newRecordingSender()
	sender.block = make(chan struct{})
	drops := &dropCounter{}

	sink := NewFrameSink(sender, "coinbase", WithQueueSize(1), WithWorkers(1), WithSinkObserver(drops))

	// not started: the queue holds one frame, the rest are dropped
	for i := 0; i < 3; i++ {
		sink.Publish([]byte(`{"channel":"heartbeats"}`))
	}
	drops.mu.Lock()
	assert.Equal(t, 2, drops.dropped)
	drops.mu.Unlock()

	sink.Start(context.Background())
	close(sender.block)
	select {
	case <-sender.got:
	case <-time.After(2 * time.Second):
		t.Fatal("queued frame not published")
	}
	sink.Stop()
	sink.Stop() // idempotent
}

func TestToProducerMessage(t *testing.T) {
	msg := toProducerMessage(Message{
		Topic:   "coinbase.ticker",
		Key:     "BTC-USD",
		Payload: []byte("payload"),
		Headers: map[string]string{"channel": "ticker"},
	})
	assert.Equal(t, "coinbase.ticker", msg.Topic)
	assert.Equal(t, sarama.StringEncoder("BTC-USD"), msg.Key)
	assert.Equal(t, sarama.ByteEncoder("payload"), msg.Value)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "channel", string(msg.Headers[0].Key))

	noKey := toProducerMessage(Message{Topic: "t"})
	assert.Nil(t, noKey.Key)
}
