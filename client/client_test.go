package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alejoacosta74/coinbase-api/internal/auth"
	"github.com/alejoacosta74/coinbase-api/internal/ws"
	"github.com/alejoacosta74/coinbase-api/internal/ws/wstest"
	"github.com/alejoacosta74/coinbase-api/pkg/coinbase"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tickerFrame = `{
	"channel": "ticker",
	"client_id": "",
	"timestamp": "2023-02-09T20:30:37.167359596Z",
	"sequence_num": 0,
	"events": [{
		"type": "snapshot",
		"tickers": [{
			"type": "ticker",
			"product_id": "BTC-USD",
			"price": "21932.98",
			"volume_24_h": "16038.28770938",
			"low_24_h": "21835.29",
			"high_24_h": "23011.18",
			"low_52_w": "15460",
			"high_52_w": "48240",
			"price_percent_chg_24_h": "-4.15775596190603",
			"best_bid": "21931.98",
			"best_bid_quantity": "0.5",
			"best_ask": "21932.98",
			"best_ask_quantity": "1.2"
		}]
	}]
}`

var fixedClock = func() time.Time { return time.Unix(1700000000, 0) }

// recordingObserver captures lifecycle notifications.
type recordingObserver struct {
	mu     sync.Mutex
	states []ws.State
	active []int
	frames map[coinbase.Channel]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{frames: make(map[coinbase.Channel]int)}
}

func (o *recordingObserver) FrameDispatched(channel coinbase.Channel, events int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.frames[channel] += events
}

func (o *recordingObserver) DispatchFailed(string, error) {}

func (o *recordingObserver) ConnectionStateChanged(state ws.State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, state)
}

func (o *recordingObserver) SubscriptionsChanged(active int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active = append(o.active, active)
}

func (o *recordingObserver) snapshot() ([]ws.State, []int, map[coinbase.Channel]int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	frames := make(map[coinbase.Channel]int, len(o.frames))
	for k, v := range o.frames {
		frames[k] = v
	}
	return append([]ws.State(nil), o.states...), append([]int(nil), o.active...), frames
}

func TestClient_FullScenario(t *testing.T) {
	server := wstest.NewServer()
	defer server.Close()

	signer, err := auth.NewSigner(auth.Credentials{KeyName: "key", Secret: "secret", Legacy: true}, auth.WithClock(fixedClock))
	require.NoError(t, err)

	observer := newRecordingObserver()
	c := New(server.URL, signer, WithObserver(observer))
	ctx := context.Background()

	tickers := make(chan coinbase.TickerEvent, 4)
	c.OnTicker(func(e coinbase.TickerEvent) { tickers <- e })
	var batchCalls int
	c.OnTickerBatch(func(coinbase.TickerEvent) { batchCalls++ })
	var rawFrames int
	c.OnRawMessage(func(RawMessage) { rawFrames++ })
	disconnected := make(chan error, 1)
	c.OnDisconnected(func(err error) { disconnected <- err })

	// Connect
	require.NoError(t, c.Connect(ctx))
	assert.Equal(t, ws.StateOpen, c.State())

	// Subscribe
	require.NoError(t, c.Subscribe(ctx, []string{"BTC-USD"}, "ticker"))
	assert.True(t, c.IsSubscribed("ticker"))
	assert.Equal(t, []string{"ticker"}, c.Subscriptions())

	msgs := server.WaitForMessages(1, 2*time.Second)
	require.Len(t, msgs, 1)
	var sub coinbase.SubscribeMessage
	require.NoError(t, json.Unmarshal(msgs[0], &sub))
	assert.Equal(t, "subscribe", sub.Type)
	assert.Equal(t, "ticker", sub.Channel)
	assert.Equal(t, []string{"BTC-USD"}, sub.ProductIDs)
	assert.Equal(t, "key", sub.APIKey)
	assert.Equal(t, "1700000000", sub.Timestamp)
	wantSig, err := auth.GenerateSignature("secret", "1700000000", "ticker", []string{"BTC-USD"})
	require.NoError(t, err)
	assert.Equal(t, wantSig, sub.Signature)

	// ticker frame reaches ticker listeners only
	require.NoError(t, server.Send([]byte(tickerFrame)))
	select {
	case e := <-tickers:
		require.Len(t, e.Tickers, 1)
		assert.Equal(t, "BTC-USD", e.Tickers[0].ProductID)
		assert.True(t, decimal.RequireFromString("21932.98").Equal(e.Tickers[0].Price.Decimal))
	case <-time.After(2 * time.Second):
		t.Fatal("ticker event not delivered")
	}

	// Unsubscribe
	require.NoError(t, c.Unsubscribe(ctx, []string{"BTC-USD"}, "ticker"))
	assert.False(t, c.IsSubscribed("ticker"))
	msgs = server.WaitForMessages(2, 2*time.Second)
	require.Len(t, msgs, 2)
	require.NoError(t, json.Unmarshal(msgs[1], &sub))
	assert.Equal(t, "unsubscribe", sub.Type)

	// Disconnect within the shutdown window
	start := time.Now()
	require.NoError(t, c.Disconnect(ctx))
	assert.Less(t, time.Since(start), ws.DefaultShutdownTimeout)
	assert.Equal(t, ws.StateClosed, c.State())

	select {
	case err := <-disconnected:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect not notified")
	}

	// listeners ran on the receive goroutine, which has exited
	assert.Equal(t, 0, batchCalls)
	assert.Equal(t, 1, rawFrames)
	assert.Empty(t, tickers)

	states, active, frames := observer.snapshot()
	assert.Equal(t, ws.StateOpen, states[0])
	assert.Equal(t, ws.StateClosed, states[len(states)-1])
	assert.Equal(t, []int{0, 1, 0, 0}, active)
	assert.Equal(t, 1, frames[coinbase.ChannelTicker])
}

func TestClient_SubscribeWhileDisconnected(t *testing.T) {
	c := New("ws://127.0.0.1:1", nil)

	err := c.Subscribe(context.Background(), []string{"BTC-USD"}, "ticker")
	require.Error(t, err)
	assert.ErrorIs(t, err, ws.ErrNotConnected)
	assert.Empty(t, c.Subscriptions())

	// disconnect while disconnected is a no-op
	assert.NoError(t, c.Disconnect(context.Background()))
	assert.NoError(t, c.Disconnect(context.Background()))
	assert.Equal(t, ws.StateClosed, c.State())
}

func TestClient_DoubleSubscribeSendsOnce(t *testing.T) {
	server := wstest.NewServer()
	defer server.Close()

	c := New(server.URL, nil)
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))
	defer c.Close(ctx)

	require.NoError(t, c.Subscribe(ctx, []string{"BTC-USD"}, "heartbeats"))
	require.NoError(t, c.Subscribe(ctx, []string{"BTC-USD"}, "heartbeats"))
	require.NoError(t, c.Unsubscribe(ctx, []string{"BTC-USD"}, "level2"))

	// give any stray message time to arrive
	msgs := server.WaitForMessages(2, 200*time.Millisecond)
	assert.Len(t, msgs, 1)
}

func TestClient_ServerCloseClearsSubscriptions(t *testing.T) {
	server := wstest.NewServer()
	defer server.Close()

	c := New(server.URL, nil)
	ctx := context.Background()
	disconnected := make(chan error, 1)
	c.OnDisconnected(func(err error) { disconnected <- err })

	require.NoError(t, c.Connect(ctx))
	require.NoError(t, c.Subscribe(ctx, nil, "status"))
	require.Eventually(t, func() bool { return server.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	server.CloseClients()

	select {
	case err := <-disconnected:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect not notified")
	}
	assert.Equal(t, ws.StateClosed, c.State())
	assert.Empty(t, c.Subscriptions())
}

func TestClient_LateCloseKeepsNewSessionSubscriptions(t *testing.T) {
	server := wstest.NewServer()
	defer server.Close()

	c := New(server.URL, nil)
	ctx := context.Background()
	defer c.Close(ctx)
	disconnected := make(chan error, 4)
	c.OnDisconnected(func(err error) { disconnected <- err })

	require.NoError(t, c.Connect(ctx))
	require.NoError(t, c.Subscribe(ctx, nil, "status"))
	require.Eventually(t, func() bool { return server.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	// reconnect as soon as the socket is gone, without waiting for the
	// close notification of the old session
	server.CloseClients()
	require.Eventually(t, func() bool { return c.State() == ws.StateClosed }, 2*time.Second, time.Millisecond)
	require.NoError(t, c.Connect(ctx))
	assert.False(t, c.IsSubscribed("status"), "subscription of the old socket survived the reconnect")

	require.NoError(t, c.Subscribe(ctx, []string{"BTC-USD"}, "heartbeats"))
	assert.Never(t, func() bool { return !c.IsSubscribed("heartbeats") }, 200*time.Millisecond, 5*time.Millisecond)

	// a close of the first session delivered now changes nothing
	for len(disconnected) > 0 {
		<-disconnected
	}
	c.onClose(1, errors.New("read failed"))
	assert.True(t, c.IsSubscribed("heartbeats"))
	assert.Equal(t, []string{"heartbeats"}, c.Subscriptions())
	assert.Empty(t, disconnected)
	assert.Equal(t, ws.StateOpen, c.State())

	// the live session still clears on failure
	server.CloseClients()
	select {
	case err := <-disconnected:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect not notified")
	}
	assert.Empty(t, c.Subscriptions())
}

func TestClient_UnknownChannel(t *testing.T) {
	c := New("", nil)
	err := c.Subscribe(context.Background(), []string{"BTC-USD"}, "orders")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown channel")
}
