package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrPoolClosed is returned by Send once the pool is stopping.
var ErrPoolClosed = errors.New("producer pool is shutting down")

const (
	defaultAcquireTimeout = 3 * time.Second
	defaultSendTimeout    = 5 * time.Second
)

// Message represents a message to be sent to Kafka
type Message struct {
	Topic   string
	Key     string
	Payload []byte
	Headers map[string]string
}

// ProducerConfig holds configuration for the producer pool
type ProducerConfig struct {
	BrokerList  []string      // List of Kafka brokers (i.e. ["localhost:9092"])
	PoolSize    int           // Number of producers in the pool
	ClientID    string        // Kafka client id reported to the brokers
	SendTimeout time.Duration // Upper bound of one send, 5s when zero
}

// ProducerPool manages a pool of KafkaProducers. Send borrows a producer,
// so at most PoolSize sends are in flight.
type ProducerPool struct {
	producers chan KafkaProducer // idle producers
	config    ProducerConfig
	factory   ProducerFactory
	observer  Observer
	logger    *logrus.Entry
	ctx       context.Context    // Controls pool lifecycle
	cancel    context.CancelFunc // For shutting down the pool
	started   bool               // Track if pool has been started
	mu        sync.Mutex         // Protects started flag
}

var (
	_ MessageSender  = (*ProducerPool)(nil)
	_ PoolController = (*ProducerPool)(nil)
)

// PoolOption configures a ProducerPool.
type PoolOption func(*ProducerPool)

// WithProducerFactory replaces the sarama producer constructor.
func WithProducerFactory(f ProducerFactory) PoolOption {
	return func(p *ProducerPool) {
		p.factory = f
	}
}

// WithObserver reports every send outcome to o.
func WithObserver(o Observer) PoolOption {
	return func(p *ProducerPool) {
		p.observer = o
	}
}

// NewProducerPool creates a new pool of Kafka producers
func NewProducerPool(config ProducerConfig, opts ...PoolOption) (*ProducerPool, error) {
	if config.PoolSize <= 0 {
		return nil, fmt.Errorf("pool size must be greater than 0")
	}
	if len(config.BrokerList) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = defaultSendTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	pool := &ProducerPool{
		producers: make(chan KafkaProducer, config.PoolSize),
		config:    config,
		factory:   newSaramaProducer,
		logger:    logrus.WithField("component", "kafka_producer_pool"),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(pool)
	}
	return pool, nil
}

// Start initializes the producer pool and creates all producers
func (p *ProducerPool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("producer pool already started")
	}

	for i := 0; i < p.config.PoolSize; i++ {
		producer, err := p.factory(p.config)
		if err != nil {
			// close the producers created so far
			p.drain()
			return fmt.Errorf("failed to create producer %d: %w", i, err)
		}
		p.producers <- producer
	}

	p.started = true
	p.logger.Infof("Producer pool started with %d producers", p.config.PoolSize)
	return nil
}

// Stop gracefully shuts down the producer pool. Producers borrowed by an
// in-flight Send are closed when that Send returns.
func (p *ProducerPool) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return fmt.Errorf("producer pool not started")
	}
	p.logger.Info("Stopping producer pool...")
	p.cancel()
	p.started = false

	if err := p.drain(); err != nil {
		p.logger.WithError(err).Error("Errors occurred while closing producers")
		return err
	}
	p.logger.Info("Producer pool stopped successfully")
	return nil
}

// drain closes every idle producer and returns the first close error.
func (p *ProducerPool) drain() error {
	var closeErr error
	for {
		select {
		case producer := <-p.producers:
			if err := producer.Close(); err != nil {
				p.logger.WithError(err).Error("Failed to close producer")
				if closeErr == nil {
					closeErr = err
				}
			}
		default:
			return closeErr
		}
	}
}

// Send sends a message to Kafka using an available producer from the pool.
// It implements the MessageSender interface.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - topic: destination topic
//   - rawMsg: message payload
//
// Returns:
//   - error: If context is cancelled, no producer frees up in time, the pool
//     is stopping, or the send fails
func (p *ProducerPool) Send(ctx context.Context, topic string, rawMsg []byte) error {
	return p.SendMessage(ctx, Message{Topic: topic, Payload: rawMsg})
}

// SendMessage is Send for a fully built Message.
func (p *ProducerPool) SendMessage(ctx context.Context, msg Message) error {
	err := p.send(ctx, msg)
	if p.observer != nil {
		if err != nil {
			p.observer.SendFailed(msg.Topic, err)
		} else {
			p.observer.MessageSent(msg.Topic)
		}
	}
	return err
}

func (p *ProducerPool) send(ctx context.Context, msg Message) error {
	acquire := time.NewTimer(defaultAcquireTimeout)
	defer acquire.Stop()

	select {
	case producer := <-p.producers:
		defer func() {
			select {
			case <-p.ctx.Done():
				// Pool is shutting down
				_ = producer.Close()
			default:
				p.producers <- producer
			}
		}()

		sendCtx, cancel := context.WithTimeout(ctx, p.config.SendTimeout)
		defer cancel()

		if err := producer.Send(sendCtx, msg); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
		p.logger.Tracef("Message sent to topic %s", msg.Topic)
		return nil

	case <-acquire.C:
		return fmt.Errorf("no producer available after %s", defaultAcquireTimeout)

	case <-ctx.Done():
		return fmt.Errorf("operation cancelled by caller: %w", ctx.Err())

	case <-p.ctx.Done():
		return ErrPoolClosed
	}
}
