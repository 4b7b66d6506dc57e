package ws

import (
	"bytes"
	"context"
	"fmt"
	"net"

	"github.com/gorilla/websocket"
)

// receive is the single read loop of a session. It assembles each message
// from its fragments into buf, hands complete frames to the handlers and
// exits on the first read error or close frame. It never reconnects.
func (c *Connection) receive(ctx context.Context, s *session) {
	var loopErr error
	defer func() {
		close(s.done)
		if c.onClose != nil {
			c.onClose(s.id, loopErr)
		}
	}()

	var buf bytes.Buffer
	for {
		if ctx.Err() != nil {
			c.logger.Debug("Context done, exiting receive loop")
			return
		}

		messageType, payload, err := c.readFrame(s, &buf)
		if err != nil {
			if ctx.Err() != nil {
				// Disconnect closed the socket under us
				c.logger.Debug("Receive loop stopped by disconnect")
				return
			}
			loopErr = err
			c.logReadError(err)
			return
		}
		if messageType == websocket.CloseMessage {
			c.logger.Warn("Close frame received")
			loopErr = &websocket.CloseError{Code: websocket.CloseNormalClosure}
			return
		}

		c.handleFrame(messageType, payload)
	}
}

// readFrame reads one logical message. NextReader yields a reader spanning
// all of the message's continuation frames; every partial read is appended
// to buf until the reader reports EOF.
func (c *Connection) readFrame(s *session, buf *bytes.Buffer) (int, []byte, error) {
	messageType, r, err := s.conn.NextReader()
	if err != nil {
		return 0, nil, err
	}

	buf.Reset()
	if _, err := buf.ReadFrom(r); err != nil {
		return 0, nil, fmt.Errorf("failed to read message: %w", err)
	}

	payload := make([]byte, buf.Len())
	copy(payload, buf.Bytes())
	return messageType, payload, nil
}

func (c *Connection) handleFrame(messageType int, payload []byte) {
	if c.onRaw != nil {
		c.safely("raw handler", func() error {
			c.onRaw(messageType, payload)
			return nil
		})
	}

	if messageType != websocket.TextMessage || c.onText == nil {
		return
	}
	c.safely("frame handler", func() error {
		return c.onText(payload)
	})
}

// safely runs fn, logging returned errors and recovered panics so one bad
// frame cannot stop the loop.
func (c *Connection) safely(name string, fn func() error) {
	defer func() {
		if p := recover(); p != nil {
			c.logger.Errorf("Recovered panic in %s: %v", name, p)
		}
	}()
	if err := fn(); err != nil {
		c.logger.WithError(err).Errorf("Error in %s", name)
	}
}

func (c *Connection) logReadError(err error) {
	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure):
		c.logger.Warn("Connection closed normally")
	case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure):
		c.logger.WithError(err).Error("Unexpected close error")
	default:
		if nErr, ok := err.(net.Error); ok && nErr.Timeout() {
			c.logger.WithError(err).Error("Read timeout")
			return
		}
		c.logger.WithError(err).Error("Read error")
	}
}
