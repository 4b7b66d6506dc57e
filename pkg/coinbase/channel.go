package coinbase

import (
	"fmt"
	"strings"
)

// Channel names one websocket stream of the Advanced Trade API.
type Channel int

// Channels known to the streaming client. The zero value is not a valid channel.
const (
	ChannelHeartbeats Channel = iota + 1
	ChannelCandles
	ChannelMarketTrades
	ChannelStatus
	ChannelTicker
	ChannelTickerBatch
	ChannelLevel2
	ChannelUser
)

var channelNames = map[Channel]string{
	ChannelHeartbeats:   "heartbeats",
	ChannelCandles:      "candles",
	ChannelMarketTrades: "market_trades",
	ChannelStatus:       "status",
	ChannelTicker:       "ticker",
	ChannelTickerBatch:  "ticker_batch",
	ChannelLevel2:       "level2",
	ChannelUser:         "user",
}

// inbound level2 frames are tagged "l2_data" by the venue
const level2DataAlias = "l2_data"

// Channels returns every known channel in declaration order.
func Channels() []Channel {
	return []Channel{
		ChannelHeartbeats,
		ChannelCandles,
		ChannelMarketTrades,
		ChannelStatus,
		ChannelTicker,
		ChannelTickerBatch,
		ChannelLevel2,
		ChannelUser,
	}
}

// String returns the wire-protocol name of the channel.
func (c Channel) String() string {
	if name, ok := channelNames[c]; ok {
		return name
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// Valid reports whether c is one of the known channels.
func (c Channel) Valid() bool {
	_, ok := channelNames[c]
	return ok
}

// ParseChannel resolves a wire name to a Channel. The lookup is
// case-insensitive and also accepts "l2_data" for level2.
func ParseChannel(name string) (Channel, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == level2DataAlias {
		return ChannelLevel2, true
	}
	for c, n := range channelNames {
		if n == name {
			return c, true
		}
	}
	return 0, false
}

// MarshalText implements encoding.TextMarshaler.
func (c Channel) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("unknown channel %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Channel) UnmarshalText(text []byte) error {
	parsed, ok := ParseChannel(string(text))
	if !ok {
		return fmt.Errorf("unknown channel %q", string(text))
	}
	*c = parsed
	return nil
}
