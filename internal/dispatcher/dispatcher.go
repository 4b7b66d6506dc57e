package dispatcher

import (
	"fmt"

	"github.com/alejoacosta74/coinbase-api/internal/events"
	"github.com/alejoacosta74/coinbase-api/pkg/coinbase"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Observer is notified about every text frame that passed through the dispatcher.
type Observer interface {
	// FrameDispatched is called after the events of a recognised frame were delivered.
	FrameDispatched(channel coinbase.Channel, events int)
	// DispatchFailed is called when a frame could not be decoded.
	DispatchFailed(channel string, err error)
}

// Dispatcher routes decoded text frames to the listeners of their channel.
// It keeps no per-frame state, so Dispatch may be called from any goroutine,
// although the connection always calls it from its single receive loop.
type Dispatcher struct {
	heartbeats   *events.Registry[coinbase.HeartbeatEvent]
	candles      *events.Registry[coinbase.CandlesEvent]
	marketTrades *events.Registry[coinbase.MarketTradesEvent]
	status       *events.Registry[coinbase.StatusEvent]
	ticker       *events.Registry[coinbase.TickerEvent]
	tickerBatch  *events.Registry[coinbase.TickerEvent]
	level2       *events.Registry[coinbase.Level2Event]
	user         *events.Registry[coinbase.UserEvent]

	observer Observer
	logger   *logrus.Entry
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithObserver installs an Observer, typically the metrics recorder.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		d.observer = o
	}
}

// NewDispatcher creates a dispatcher with no listeners.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		heartbeats:   events.NewRegistry[coinbase.HeartbeatEvent](coinbase.ChannelHeartbeats.String()),
		candles:      events.NewRegistry[coinbase.CandlesEvent](coinbase.ChannelCandles.String()),
		marketTrades: events.NewRegistry[coinbase.MarketTradesEvent](coinbase.ChannelMarketTrades.String()),
		status:       events.NewRegistry[coinbase.StatusEvent](coinbase.ChannelStatus.String()),
		ticker:       events.NewRegistry[coinbase.TickerEvent](coinbase.ChannelTicker.String()),
		tickerBatch:  events.NewRegistry[coinbase.TickerEvent](coinbase.ChannelTickerBatch.String()),
		level2:       events.NewRegistry[coinbase.Level2Event](coinbase.ChannelLevel2.String()),
		user:         events.NewRegistry[coinbase.UserEvent](coinbase.ChannelUser.String()),
		logger:       logrus.WithField("component", "dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) OnHeartbeats(fn func(coinbase.HeartbeatEvent)) events.Handle {
	return d.heartbeats.Subscribe(fn)
}

func (d *Dispatcher) OnCandles(fn func(coinbase.CandlesEvent)) events.Handle {
	return d.candles.Subscribe(fn)
}

func (d *Dispatcher) OnMarketTrades(fn func(coinbase.MarketTradesEvent)) events.Handle {
	return d.marketTrades.Subscribe(fn)
}

func (d *Dispatcher) OnStatus(fn func(coinbase.StatusEvent)) events.Handle {
	return d.status.Subscribe(fn)
}

func (d *Dispatcher) OnTicker(fn func(coinbase.TickerEvent)) events.Handle {
	return d.ticker.Subscribe(fn)
}

func (d *Dispatcher) OnTickerBatch(fn func(coinbase.TickerEvent)) events.Handle {
	return d.tickerBatch.Subscribe(fn)
}

func (d *Dispatcher) OnLevel2(fn func(coinbase.Level2Event)) events.Handle {
	return d.level2.Subscribe(fn)
}

func (d *Dispatcher) OnUser(fn func(coinbase.UserEvent)) events.Handle {
	return d.user.Subscribe(fn)
}

// Dispatch decodes one text frame and delivers its events, in frame order,
// to the listeners of the frame's channel. Frames for unknown channels are
// ignored. A frame that cannot be decoded is reported as an error and
// nothing from it is delivered.
func (d *Dispatcher) Dispatch(frame []byte) error {
	var head coinbase.GenericMessage
	if err := json.Unmarshal(frame, &head); err != nil {
		d.failed(head.Channel, err)
		return fmt.Errorf("failed to parse message: %w", err)
	}

	channel, ok := coinbase.ParseChannel(head.Channel)
	if !ok {
		if head.Type == "error" {
			d.logger.WithField("message", head.Message).Warn("Venue reported an error")
		} else {
			d.logger.Tracef("Ignoring frame for channel %q", head.Channel)
		}
		return nil
	}

	var (
		n   int
		err error
	)
	switch channel {
	case coinbase.ChannelHeartbeats:
		n, err = deliver(frame, d.heartbeats)
	case coinbase.ChannelCandles:
		n, err = deliver(frame, d.candles)
	case coinbase.ChannelMarketTrades:
		n, err = deliver(frame, d.marketTrades)
	case coinbase.ChannelStatus:
		n, err = deliver(frame, d.status)
	case coinbase.ChannelTicker:
		n, err = deliver(frame, d.ticker)
	case coinbase.ChannelTickerBatch:
		n, err = deliver(frame, d.tickerBatch)
	case coinbase.ChannelLevel2:
		n, err = deliver(frame, d.level2)
	case coinbase.ChannelUser:
		n, err = deliver(frame, d.user)
	}
	if err != nil {
		d.failed(head.Channel, err)
		return fmt.Errorf("failed to decode %s events: %w", channel, err)
	}

	d.logger.WithFields(logrus.Fields{
		"channel":      channel.String(),
		"events":       n,
		"sequence_num": head.SequenceNum,
	}).Trace("Frame dispatched")
	if d.observer != nil {
		d.observer.FrameDispatched(channel, n)
	}
	return nil
}

// Clear removes every registered listener.
func (d *Dispatcher) Clear() {
	d.heartbeats.Clear()
	d.candles.Clear()
	d.marketTrades.Clear()
	d.status.Clear()
	d.ticker.Clear()
	d.tickerBatch.Clear()
	d.level2.Clear()
	d.user.Clear()
}

func (d *Dispatcher) failed(channel string, err error) {
	if d.observer != nil {
		d.observer.DispatchFailed(channel, err)
	}
}

// deliver decodes the whole envelope before publishing anything, so a
// malformed frame delivers no events at all.
func deliver[T any](frame []byte, r *events.Registry[T]) (int, error) {
	var env coinbase.Envelope[T]
	if err := json.Unmarshal(frame, &env); err != nil {
		return 0, err
	}
	for _, e := range env.Events {
		r.Publish(e)
	}
	return len(env.Events), nil
}
