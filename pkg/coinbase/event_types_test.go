package coinbase

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeDecodesTickers(t *testing.T) {
	frame := []byte(`{
		"channel": "ticker",
		"client_id": "",
		"timestamp": "2023-02-09T20:30:37.167359596Z",
		"sequence_num": 7,
		"unexpected": true,
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
				"best_bid_quantity": "8000.21",
				"best_ask": "21933.98",
				"best_ask_quantity": "8038.07770938"
			}]
		}]
	}`)

	var env Envelope[TickerEvent]
	require.NoError(t, json.Unmarshal(frame, &env))

	assert.Equal(t, "ticker", env.Channel)
	assert.Equal(t, int64(7), env.SequenceNum)
	require.Len(t, env.Events, 1)
	require.Len(t, env.Events[0].Tickers, 1)

	tk := env.Events[0].Tickers[0]
	assert.Equal(t, "BTC-USD", tk.ProductID)
	assert.True(t, decimal.RequireFromString("21932.98").Equal(tk.Price.Decimal))
	assert.True(t, decimal.RequireFromString("21933.98").Equal(tk.BestAsk.Decimal))

	table := env.Events[0].PrettyPrint()
	assert.Contains(t, table, "BTC-USD")
	assert.Contains(t, table, "-4.16")
}

func TestEnvelopeDecodesLevel2(t *testing.T) {
	frame := []byte(`{
		"channel": "l2_data",
		"events": [{
			"type": "update",
			"product_id": "ETH-USD",
			"updates": [
				{"side": "bid", "event_time": "1970-01-01T00:00:00Z", "price_level": "1500.01", "new_quantity": "0"},
				{"side": "offer", "event_time": "1970-01-01T00:00:00Z", "price_level": "1500.05", "new_quantity": "2.5"}
			]
		}]
	}`)

	var env Envelope[Level2Event]
	require.NoError(t, json.Unmarshal(frame, &env))
	require.Len(t, env.Events, 1)
	require.Len(t, env.Events[0].Updates, 2)
	assert.True(t, env.Events[0].Updates[0].NewQuantity.IsZero())
	assert.Equal(t, "offer", env.Events[0].Updates[1].Side)
}

func TestNewSubscribeMessageCopiesProducts(t *testing.T) {
	products := []string{"BTC-USD"}
	msg := NewSubscribeMessage(TypeSubscribe, ChannelMarketTrades, products)
	products[0] = "changed"

	assert.Equal(t, []string{"BTC-USD"}, msg.ProductIDs)
	assert.Equal(t, "market_trades", msg.Channel)

	out, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"subscribe","product_ids":["BTC-USD"],"channel":"market_trades"}`, string(out))
}

func TestEmptyTickerPrettyPrint(t *testing.T) {
	e := TickerEvent{}
	assert.Equal(t, "No tickers", e.PrettyPrint())
}
