// Package ws owns the websocket transport: dialing, the receive loop and
// serialized writes.
package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotConnected is returned by Send when there is no open connection.
var ErrNotConnected = errors.New("websocket not connected")

const (
	DefaultShutdownTimeout  = 2 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
)

// State is the lifecycle state of a Connection.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// Conn is the subset of *websocket.Conn used by the connection.
type Conn interface {
	NextReader() (messageType int, r io.Reader, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Dialer opens a Conn.
type Dialer interface {
	DialContext(ctx context.Context, url string, header http.Header) (Conn, error)
}

// GorillaDialer adapts websocket.Dialer to Dialer.
type GorillaDialer struct {
	*websocket.Dialer
}

// DialContext implements Dialer.
func (d GorillaDialer) DialContext(ctx context.Context, url string, header http.Header) (Conn, error) {
	conn, _, err := d.Dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// FrameHandler receives the payload of every complete text frame.
type FrameHandler func(payload []byte) error

// RawHandler receives every complete frame, text or binary.
type RawHandler func(messageType int, payload []byte)

// OpenHandler is called with the id of every newly dialed session, under the
// connect lock and before the session becomes visible to Send.
type OpenHandler func(session uint64)

// CloseHandler is called once when the receive loop of a session exits.
// err is nil when the loop was stopped by Disconnect. A handler may run
// after a newer session has opened; session tells the two apart.
type CloseHandler func(session uint64, err error)

// Connection manages one websocket connection at a time. Connect and
// Disconnect are serialized by connMutex; Send only needs the per-session
// write lock, so it never waits on a pending Connect or Disconnect.
type Connection struct {
	url    string
	header http.Header
	dialer Dialer

	onText  FrameHandler
	onRaw   RawHandler
	onOpen  OpenHandler
	onClose CloseHandler

	shutdownTimeout time.Duration
	writeTimeout    time.Duration

	connMutex sync.Mutex              // serializes Connect / Disconnect
	current   atomic.Pointer[session] // nil when closed
	lastID    uint64                  // guarded by connMutex
	dialing   atomic.Bool

	logger *logrus.Entry
}

// session is one dialed socket plus its receive loop.
type session struct {
	id      uint64
	conn    Conn
	cancel  context.CancelFunc
	done    chan struct{} // closed when the receive loop exits
	writeMu sync.Mutex
	closing bool // guarded by writeMu
}

func (s *session) alive() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Option configures a Connection, following the functional options pattern.
type Option func(*Connection)

func WithDialer(d Dialer) Option {
	return func(c *Connection) {
		c.dialer = d
	}
}

// WithHeader sets HTTP headers sent with the handshake.
func WithHeader(h http.Header) Option {
	return func(c *Connection) {
		c.header = h
	}
}

func WithFrameHandler(h FrameHandler) Option {
	return func(c *Connection) {
		c.onText = h
	}
}

func WithRawHandler(h RawHandler) Option {
	return func(c *Connection) {
		c.onRaw = h
	}
}

func WithOpenHandler(h OpenHandler) Option {
	return func(c *Connection) {
		c.onOpen = h
	}
}

func WithCloseHandler(h CloseHandler) Option {
	return func(c *Connection) {
		c.onClose = h
	}
}

// WithShutdownTimeout bounds how long Disconnect waits for the receive loop.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Connection) {
		if d > 0 {
			c.shutdownTimeout = d
		}
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(c *Connection) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// NewConnection creates a closed connection to url.
func NewConnection(url string, opts ...Option) *Connection {
	c := &Connection{
		url:             url,
		dialer:          GorillaDialer{&websocket.Dialer{HandshakeTimeout: DefaultHandshakeTimeout}},
		shutdownTimeout: DefaultShutdownTimeout,
		writeTimeout:    DefaultWriteTimeout,
		logger:          logrus.WithField("component", "ws_connection"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State reports the current lifecycle state without taking connMutex, so
// the answer may already be stale when the caller acts on it.
func (c *Connection) State() State {
	s := c.current.Load()
	if s == nil {
		if c.dialing.Load() {
			return StateConnecting
		}
		return StateClosed
	}
	if s.alive() {
		return StateOpen
	}
	return StateClosed
}

// IsOpen is shorthand for State() == StateOpen.
func (c *Connection) IsOpen() bool {
	return c.State() == StateOpen
}

// Connect dials the server and starts the receive loop. It returns
// immediately when the connection is already open.
func (c *Connection) Connect(ctx context.Context) error {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if s := c.current.Load(); s != nil {
		if s.alive() {
			c.logger.Debug("Already connected")
			return nil
		}
		// the receive loop ended on its own; release what is left
		c.current.Store(nil)
		c.release(s)
	}

	c.dialing.Store(true)
	defer c.dialing.Store(false)

	c.logger.Debugf("Connecting to %s", c.url)
	conn, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		c.logger.WithError(err).Error("Failed to connect to websocket")
		return fmt.Errorf("connection failed: %w", err)
	}

	c.lastID++
	loopCtx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:     c.lastID,
		conn:   conn,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if c.onOpen != nil {
		c.onOpen(s.id)
	}
	c.current.Store(s)
	go c.receive(loopCtx, s)

	c.logger.Infof("Connected to %s", c.url)
	return nil
}

// Disconnect stops the receive loop and closes the socket. Close errors are
// logged and swallowed. It waits at most the shutdown timeout (or until ctx
// is done) for the loop to exit. Disconnecting a closed connection is a no-op.
func (c *Connection) Disconnect(ctx context.Context) error {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	s := c.current.Load()
	if s == nil {
		return nil
	}
	c.current.Store(nil)

	c.logger.Debug("Shutting down websocket connection")
	c.release(s)

	timer := time.NewTimer(c.shutdownTimeout)
	defer timer.Stop()

	select {
	case <-s.done:
		c.logger.Debug("Receive loop shutdown complete")
	case <-timer.C:
		c.logger.Warnf("Receive loop did not stop within %s", c.shutdownTimeout)
	case <-ctx.Done():
		c.logger.Warn("Context done while waiting for receive loop")
	}
	return nil
}

// release cancels the loop and closes the socket, best effort.
func (c *Connection) release(s *session) {
	s.cancel()

	s.writeMu.Lock()
	s.closing = true
	if s.alive() {
		c.logger.Trace("Sending close message through ws connection")
		_ = s.conn.SetWriteDeadline(time.Now().Add(time.Second))
		if err := s.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		); err != nil {
			c.logger.WithError(err).Debug("Error sending close message")
		}
	}
	s.writeMu.Unlock()

	if err := s.conn.Close(); err != nil {
		c.logger.WithError(err).Debug("Error closing websocket")
	}
}

// Send encodes v as JSON and writes it as one text frame.
func (c *Connection) Send(ctx context.Context, v interface{}) error {
	s := c.current.Load()
	if s == nil || !s.alive() {
		return ErrNotConnected
	}

	payload, err := codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("error marshaling message: %w", err)
	}
	return c.write(ctx, s, payload)
}

func (c *Connection) write(ctx context.Context, s *session, payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// revalidate under the write lock: Disconnect may have won the race
	if s.closing || !s.alive() {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	c.logger.Tracef("Writing %d byte message to websocket", len(payload))
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}
