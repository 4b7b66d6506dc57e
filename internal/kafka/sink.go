package kafka

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/alejoacosta74/coinbase-api/pkg/coinbase"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// ErrQueueFull is reported when a frame is dropped because the sink is
// not keeping up with the stream.
var ErrQueueFull = errors.New("kafka sink queue is full")

const (
	defaultQueueSize = 1024
	defaultWorkers   = 2
)

// FrameSink publishes raw websocket frames to "<prefix>.<channel>" topics.
// Publish never blocks the receive loop: frames are queued and sent by a
// small set of workers, and dropped when the queue is full.
type FrameSink struct {
	sender   MessageSender
	prefix   string
	observer Observer
	workers  int

	queue chan frame
	wg    sync.WaitGroup

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc

	logger *logrus.Entry
}

// SinkOption configures a FrameSink.
type SinkOption func(*FrameSink)

func WithQueueSize(n int) SinkOption {
	return func(s *FrameSink) {
		if n > 0 {
			s.queue = make(chan frame, n)
		}
	}
}

func WithWorkers(n int) SinkOption {
	return func(s *FrameSink) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithSinkObserver reports dropped frames to o.
func WithSinkObserver(o Observer) SinkOption {
	return func(s *FrameSink) {
		s.observer = o
	}
}

// NewFrameSink creates a sink publishing through sender.
func NewFrameSink(sender MessageSender, topicPrefix string, opts ...SinkOption) *FrameSink {
	s := &FrameSink{
		sender:  sender,
		prefix:  strings.TrimSuffix(topicPrefix, "."),
		workers: defaultWorkers,
		queue:   make(chan frame, defaultQueueSize),
		logger:  logrus.WithField("component", "kafka_frame_sink"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the workers. They stop when ctx is done or Stop is called.
func (s *FrameSink) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go newWorker(i, s.sender, s.queue, &s.wg).run(ctx)
	}
	s.started = true
	s.logger.Infof("Frame sink started with %d workers", s.workers)
}

// Stop cancels the workers and waits for them to return.
func (s *FrameSink) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Frame sink stopped")
}

// Publish queues payload for the topic of its channel. The payload is
// copied, so the caller may reuse its buffer.
func (s *FrameSink) Publish(payload []byte) {
	topic, key := s.route(payload)
	f := frame{topic: topic, key: key, payload: append([]byte(nil), payload...)}

	select {
	case s.queue <- f:
	default:
		s.logger.Warnf("Dropping frame for %s: queue full", topic)
		if s.observer != nil {
			s.observer.SendFailed(topic, ErrQueueFull)
		}
	}
}

// Topic returns the topic frames of channel are published to.
func (s *FrameSink) Topic(channel string) string {
	name := strings.ToLower(strings.TrimSpace(channel))
	if ch, ok := coinbase.ParseChannel(name); ok {
		name = ch.String()
	}
	if name == "" {
		name = "unknown"
	}
	if s.prefix == "" {
		return name
	}
	return s.prefix + "." + name
}

// route picks the topic from the frame's channel and keys it by the first
// product id found in its events, so updates of one product stay ordered.
func (s *FrameSink) route(payload []byte) (topic, key string) {
	channel := jsoniter.Get(payload, "channel").ToString()
	topic = s.Topic(channel)

	events := jsoniter.Get(payload, "events", 0)
	if id := events.Get("product_id").ToString(); id != "" {
		return topic, id
	}
	for _, list := range []string{"tickers", "trades", "candles", "orders"} {
		if id := events.Get(list, 0, "product_id").ToString(); id != "" {
			return topic, id
		}
	}
	return topic, ""
}
