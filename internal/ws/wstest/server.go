// Package wstest provides an in-process websocket server that speaks the
// subscription protocol closely enough for client tests.
package wstest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MessageHandler processes a received message and returns an optional response.
type MessageHandler func([]byte) interface{}

// Server is a mock websocket server for testing.
type Server struct {
	Server *httptest.Server
	// URL is the ws:// address of the server
	URL string

	connections      []*serverConn
	receivedMessages [][]byte
	messageHandlers  map[string]MessageHandler
	mu               sync.Mutex
	upgrader         websocket.Upgrader
	received         chan struct{}
}

type serverConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *serverConn) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

// Option configures the server.
type Option func(*Server)

// WithWriteBufferSize sets the upgrader write buffer. Messages larger than the
// buffer written through SendFragmented are split into several frames.
func WithWriteBufferSize(n int) Option {
	return func(s *Server) {
		s.upgrader.WriteBufferSize = n
	}
}

// NewServer creates and starts a new mock websocket server.
func NewServer(opts ...Option) *Server {
	s := &Server{
		messageHandlers: make(map[string]MessageHandler),
		received:        make(chan struct{}, 1024),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Server = httptest.NewServer(http.HandlerFunc(s.handleWebSocket))
	s.URL = "ws" + s.Server.URL[len("http"):]
	return s
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sc := &serverConn{conn: conn}
	s.mu.Lock()
	s.connections = append(s.connections, sc)
	s.mu.Unlock()

	go s.readMessages(sc)
}

func (s *Server) readMessages(sc *serverConn) {
	for {
		_, message, err := sc.conn.ReadMessage()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.receivedMessages = append(s.receivedMessages, message)
		handler, ok := s.messageHandlers[messageType(message)]
		s.mu.Unlock()

		select {
		case s.received <- struct{}{}:
		default:
		}

		if ok {
			if response := handler(message); response != nil {
				payload, err := json.Marshal(response)
				if err != nil {
					return
				}
				if err := sc.write(websocket.TextMessage, payload); err != nil {
					return
				}
			}
		}
	}
}

// RegisterHandler registers a handler for a message "type" such as "subscribe".
func (s *Server) RegisterHandler(msgType string, handler MessageHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messageHandlers[msgType] = handler
}

// Send writes a text frame to every connected client.
func (s *Server) Send(message []byte) error {
	for _, sc := range s.conns() {
		if err := sc.write(websocket.TextMessage, message); err != nil {
			return err
		}
	}
	return nil
}

// SendBinary writes a binary frame to every connected client.
func (s *Server) SendBinary(message []byte) error {
	for _, sc := range s.conns() {
		if err := sc.write(websocket.BinaryMessage, message); err != nil {
			return err
		}
	}
	return nil
}

// SendFragmented writes message in chunks of chunkSize through a single
// message writer, producing continuation frames once the write buffer fills.
func (s *Server) SendFragmented(message []byte, chunkSize int) error {
	for _, sc := range s.conns() {
		sc.writeMu.Lock()
		w, err := sc.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			sc.writeMu.Unlock()
			return err
		}
		for start := 0; start < len(message); start += chunkSize {
			end := start + chunkSize
			if end > len(message) {
				end = len(message)
			}
			if _, err := w.Write(message[start:end]); err != nil {
				sc.writeMu.Unlock()
				return err
			}
		}
		err = w.Close()
		sc.writeMu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// CloseClients sends a normal close frame to every client.
func (s *Server) CloseClients() {
	for _, sc := range s.conns() {
		_ = sc.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	}
}

// ReceivedMessages returns a copy of every message received from clients.
func (s *Server) ReceivedMessages() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.receivedMessages))
	copy(out, s.receivedMessages)
	return out
}

// WaitForMessages blocks until at least n messages were received or timeout elapses.
func (s *Server) WaitForMessages(n int, timeout time.Duration) [][]byte {
	deadline := time.After(timeout)
	for {
		msgs := s.ReceivedMessages()
		if len(msgs) >= n {
			return msgs
		}
		select {
		case <-s.received:
		case <-deadline:
			return s.ReceivedMessages()
		}
	}
}

// ConnectionCount returns the number of connections accepted so far.
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connections)
}

// Close shuts down the server and closes all connections.
func (s *Server) Close() {
	for _, sc := range s.conns() {
		sc.conn.Close()
	}
	s.Server.Close()
}

func (s *Server) conns() []*serverConn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*serverConn, len(s.connections))
	copy(out, s.connections)
	return out
}

func messageType(message []byte) string {
	var msg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &msg); err != nil {
		return "error"
	}
	if msg.Type == "" {
		return "unknown"
	}
	return msg.Type
}
