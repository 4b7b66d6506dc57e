package coinbase

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChannel(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   Channel
		wantOK bool
	}{
		{name: "lower case", input: "ticker", want: ChannelTicker, wantOK: true},
		{name: "mixed case", input: "Market_Trades", want: ChannelMarketTrades, wantOK: true},
		{name: "upper case batch", input: "TICKER_BATCH", want: ChannelTickerBatch, wantOK: true},
		{name: "level2 alias", input: "l2_data", want: ChannelLevel2, wantOK: true},
		{name: "surrounding spaces", input: " user ", want: ChannelUser, wantOK: true},
		{name: "unknown", input: "subscriptions", wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseChannel(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestChannelWireNamesAreUnique(t *testing.T) {
	seen := make(map[string]Channel)
	for _, c := range Channels() {
		name := c.String()
		prev, dup := seen[name]
		assert.False(t, dup, "%s shares wire name with %d", name, prev)
		seen[name] = c

		parsed, ok := ParseChannel(name)
		require.True(t, ok)
		assert.Equal(t, c, parsed)
	}
	assert.Len(t, seen, 8)
}

func TestChannelText(t *testing.T) {
	out, err := json.Marshal(struct {
		C Channel `json:"c"`
	}{C: ChannelLevel2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"c":"level2"}`, string(out))

	var in struct {
		C Channel `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"c":"Heartbeats"}`), &in))
	assert.Equal(t, ChannelHeartbeats, in.C)

	assert.Error(t, json.Unmarshal([]byte(`{"c":"nope"}`), &in))
	_, err = Channel(0).MarshalText()
	assert.Error(t, err)
	assert.False(t, Channel(42).Valid())
}
