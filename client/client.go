// Package client is the streaming entry point for the Coinbase Advanced Trade
// websocket feed. It wires the connection, the subscription registry and the
// message dispatcher together.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alejoacosta74/coinbase-api/internal/auth"
	"github.com/alejoacosta74/coinbase-api/internal/dispatcher"
	"github.com/alejoacosta74/coinbase-api/internal/events"
	"github.com/alejoacosta74/coinbase-api/internal/subscription"
	"github.com/alejoacosta74/coinbase-api/internal/ws"
	"github.com/alejoacosta74/coinbase-api/pkg/coinbase"
	"github.com/sirupsen/logrus"
)

// DefaultURL is the public market data and user order endpoint.
const DefaultURL = "wss://advanced-trade-ws.coinbase.com"

// RawMessage is one complete websocket frame as read from the socket.
type RawMessage struct {
	Type    int // websocket.TextMessage or websocket.BinaryMessage
	Payload []byte
}

// ConnectionObserver is implemented by observers that also track the
// connection lifecycle and the number of active subscriptions.
type ConnectionObserver interface {
	ConnectionStateChanged(state ws.State)
	SubscriptionsChanged(active int)
}

// Client is a streaming client for one websocket endpoint.
type Client struct {
	conn       *ws.Connection
	subs       *subscription.Registry
	dispatcher *dispatcher.Dispatcher

	raw          *events.Registry[RawMessage]
	disconnected *events.Registry[error]

	observer ConnectionObserver

	// live is the id of the newest session. Subscriptions belong to it, so
	// a late close of an older session must not clear them.
	mu   sync.Mutex
	live uint64

	logger *logrus.Entry
}

type config struct {
	dialer          ws.Dialer
	shutdownTimeout time.Duration
	observer        dispatcher.Observer
}

// Option configures a Client.
type Option func(*config)

// WithDialer replaces the default gorilla dialer.
func WithDialer(d ws.Dialer) Option {
	return func(c *config) {
		c.dialer = d
	}
}

// WithShutdownTimeout bounds how long Disconnect waits for the receive loop.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *config) {
		c.shutdownTimeout = d
	}
}

// WithObserver attaches a metrics observer. When o also implements
// ConnectionObserver it is told about state and subscription changes.
func WithObserver(o dispatcher.Observer) Option {
	return func(c *config) {
		c.observer = o
	}
}

// New creates a disconnected client.
//
// Parameters:
//   - url: websocket endpoint, DefaultURL when empty
//   - signer: signs subscription messages; nil for public channels only
//   - opts: functional options
func New(url string, signer auth.Signer, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}

	cfg := &config{shutdownTimeout: ws.DefaultShutdownTimeout}
	for _, opt := range opts {
		opt(cfg)
	}

	c := &Client{
		raw:          events.NewRegistry[RawMessage]("raw_message"),
		disconnected: events.NewRegistry[error]("disconnected"),
		logger:       logrus.WithField("component", "client"),
	}

	var dispatchOpts []dispatcher.Option
	if cfg.observer != nil {
		dispatchOpts = append(dispatchOpts, dispatcher.WithObserver(cfg.observer))
		if co, ok := cfg.observer.(ConnectionObserver); ok {
			c.observer = co
		}
	}
	c.dispatcher = dispatcher.NewDispatcher(dispatchOpts...)

	connOpts := []ws.Option{
		ws.WithFrameHandler(c.dispatcher.Dispatch),
		ws.WithRawHandler(c.onFrame),
		ws.WithOpenHandler(c.onOpen),
		ws.WithCloseHandler(c.onClose),
		ws.WithShutdownTimeout(cfg.shutdownTimeout),
	}
	if cfg.dialer != nil {
		connOpts = append(connOpts, ws.WithDialer(cfg.dialer))
	}
	c.conn = ws.NewConnection(url, connOpts...)

	var msgSigner subscription.MessageSigner
	if signer != nil {
		msgSigner = signer
	}
	c.subs = subscription.NewRegistry(c.conn, msgSigner)

	return c
}

// Connect opens the websocket. It is a no-op when already connected.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.conn.Connect(ctx); err != nil {
		c.stateChanged()
		return err
	}
	c.stateChanged()
	return nil
}

// Disconnect closes the websocket and forgets every subscription, since the
// venue drops them with the connection. Disconnecting twice is a no-op.
func (c *Client) Disconnect(ctx context.Context) error {
	err := c.conn.Disconnect(ctx)
	c.subs.Clear()
	c.stateChanged()
	c.subscriptionsChanged()
	return err
}

// Close disconnects and drops every registered listener.
func (c *Client) Close(ctx context.Context) error {
	err := c.Disconnect(ctx)
	c.dispatcher.Clear()
	c.raw.Clear()
	c.disconnected.Clear()
	return err
}

// Subscribe subscribes to channel for productIDs. Subscribing to a channel
// that is already active sends nothing, even for a different product list.
//
// Returns:
//   - error: ErrInvalidArgument for an unknown channel, ws.ErrNotConnected
//     (wrapped) when the socket is closed, or the signing error
func (c *Client) Subscribe(ctx context.Context, productIDs []string, channel string) error {
	if err := c.subs.Subscribe(ctx, productIDs, channel); err != nil {
		return err
	}
	c.subscriptionsChanged()
	return nil
}

// Unsubscribe unsubscribes from an active channel. Inactive channels are ignored.
func (c *Client) Unsubscribe(ctx context.Context, productIDs []string, channel string) error {
	if err := c.subs.Unsubscribe(ctx, productIDs, channel); err != nil {
		return err
	}
	c.subscriptionsChanged()
	return nil
}

// IsSubscribed reports whether channel is active.
func (c *Client) IsSubscribed(channel string) bool {
	return c.subs.IsSubscribed(channel)
}

// Subscriptions returns the active channels, sorted.
func (c *Client) Subscriptions() []string {
	return c.subs.Active()
}

// State returns the connection state.
func (c *Client) State() ws.State {
	return c.conn.State()
}

func (c *Client) OnHeartbeats(fn func(coinbase.HeartbeatEvent)) events.Handle {
	return c.dispatcher.OnHeartbeats(fn)
}

func (c *Client) OnCandles(fn func(coinbase.CandlesEvent)) events.Handle {
	return c.dispatcher.OnCandles(fn)
}

func (c *Client) OnMarketTrades(fn func(coinbase.MarketTradesEvent)) events.Handle {
	return c.dispatcher.OnMarketTrades(fn)
}

func (c *Client) OnStatus(fn func(coinbase.StatusEvent)) events.Handle {
	return c.dispatcher.OnStatus(fn)
}

func (c *Client) OnTicker(fn func(coinbase.TickerEvent)) events.Handle {
	return c.dispatcher.OnTicker(fn)
}

func (c *Client) OnTickerBatch(fn func(coinbase.TickerEvent)) events.Handle {
	return c.dispatcher.OnTickerBatch(fn)
}

func (c *Client) OnLevel2(fn func(coinbase.Level2Event)) events.Handle {
	return c.dispatcher.OnLevel2(fn)
}

func (c *Client) OnUser(fn func(coinbase.UserEvent)) events.Handle {
	return c.dispatcher.OnUser(fn)
}

// OnRawMessage registers fn for every complete frame, text or binary, before
// it is decoded. fn runs on the receive goroutine and must not retain the
// payload beyond the call unless it copies it.
func (c *Client) OnRawMessage(fn func(RawMessage)) events.Handle {
	return c.raw.Subscribe(fn)
}

// OnDisconnected registers fn for the end of a session. err is nil when the
// session was closed by Disconnect.
func (c *Client) OnDisconnected(fn func(err error)) events.Handle {
	return c.disconnected.Subscribe(fn)
}

func (c *Client) onFrame(messageType int, payload []byte) {
	c.raw.Publish(RawMessage{Type: messageType, Payload: payload})
}

// onOpen runs before the new session accepts sends. Whatever the registry
// still holds was subscribed on an older socket.
func (c *Client) onOpen(session uint64) {
	c.mu.Lock()
	c.live = session
	c.subs.Clear()
	c.mu.Unlock()
	c.subscriptionsChanged()
}

func (c *Client) onClose(session uint64, err error) {
	c.mu.Lock()
	stale := session != c.live
	if !stale && err != nil {
		// the venue forgot our subscriptions together with the socket
		c.subs.Clear()
	}
	c.mu.Unlock()

	if stale {
		c.logger.WithField("session", session).Debug("Superseded websocket session ended")
		return
	}
	if err != nil {
		c.logger.WithError(err).Warn("Websocket session ended")
		c.subscriptionsChanged()
	} else {
		c.logger.Info("Websocket session closed")
	}
	c.stateChanged()
	c.disconnected.Publish(err)
}

func (c *Client) stateChanged() {
	if c.observer != nil {
		c.observer.ConnectionStateChanged(c.conn.State())
	}
}

func (c *Client) subscriptionsChanged() {
	if c.observer != nil {
		c.observer.SubscriptionsChanged(c.subs.Len())
	}
}

// String implements fmt.Stringer for log output.
func (c *Client) String() string {
	return fmt.Sprintf("Client{state=%s subscriptions=%v}", c.State(), c.Subscriptions())
}
