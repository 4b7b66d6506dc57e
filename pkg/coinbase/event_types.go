package coinbase

import (
	"bytes"
	"fmt"
	"text/tabwriter"
)

// HeartbeatEvent is emitted once per second on the heartbeats channel.
type HeartbeatEvent struct {
	CurrentTime      string `json:"current_time"`
	HeartbeatCounter int64  `json:"heartbeat_counter"`
}

// CandlesEvent carries five minute candle updates.
type CandlesEvent struct {
	Type    string   `json:"type"` // "snapshot" or "update"
	Candles []Candle `json:"candles"`
}

type Candle struct {
	Start     string `json:"start"` // unix seconds
	High      Amount `json:"high"`
	Low       Amount `json:"low"`
	Open      Amount `json:"open"`
	Close     Amount `json:"close"`
	Volume    Amount `json:"volume"`
	ProductID string `json:"product_id"`
}

// MarketTradesEvent carries trades executed on the venue.
type MarketTradesEvent struct {
	Type   string  `json:"type"`
	Trades []Trade `json:"trades"`
}

type Trade struct {
	TradeID   string `json:"trade_id"`
	ProductID string `json:"product_id"`
	Price     Amount `json:"price"`
	Size      Amount `json:"size"`
	Side      string `json:"side"` // "BUY" or "SELL"
	Time      string `json:"time"`
}

// StatusEvent carries product status changes.
type StatusEvent struct {
	Type     string          `json:"type"`
	Products []ProductStatus `json:"products"`
}

type ProductStatus struct {
	ProductType    string `json:"product_type"`
	ID             string `json:"id"`
	BaseCurrency   string `json:"base_currency"`
	QuoteCurrency  string `json:"quote_currency"`
	BaseIncrement  string `json:"base_increment"`
	QuoteIncrement string `json:"quote_increment"`
	DisplayName    string `json:"display_name"`
	Status         string `json:"status"`
	StatusMessage  string `json:"status_message"`
	MinMarketFunds string `json:"min_market_funds"`
}

// TickerEvent is delivered on both the ticker and ticker_batch channels.
type TickerEvent struct {
	Type    string   `json:"type"`
	Tickers []Ticker `json:"tickers"`
}

type Ticker struct {
	Type               string `json:"type"`
	ProductID          string `json:"product_id"`
	Price              Amount `json:"price"`
	Volume24H          Amount `json:"volume_24_h"`
	Low24H             Amount `json:"low_24_h"`
	High24H            Amount `json:"high_24_h"`
	Low52W             Amount `json:"low_52_w"`
	High52W            Amount `json:"high_52_w"`
	PricePercentChg24H Amount `json:"price_percent_chg_24_h"`
	BestBid            Amount `json:"best_bid"`
	BestBidQuantity    Amount `json:"best_bid_quantity"`
	BestAsk            Amount `json:"best_ask"`
	BestAskQuantity    Amount `json:"best_ask_quantity"`
}

// Level2Event carries raw order book deltas. Book reconstruction is left to
// the consumer.
type Level2Event struct {
	Type      string        `json:"type"` // "snapshot" or "update"
	ProductID string        `json:"product_id"`
	Updates   []Level2Entry `json:"updates"`
}

type Level2Entry struct {
	Side        string `json:"side"` // "bid" or "offer"
	EventTime   string `json:"event_time"`
	PriceLevel  Amount `json:"price_level"`
	NewQuantity Amount `json:"new_quantity"` // zero removes the level
}

// UserEvent carries order updates for the authenticated user.
type UserEvent struct {
	Type   string      `json:"type"`
	Orders []UserOrder `json:"orders"`
}

type UserOrder struct {
	OrderID            string `json:"order_id"`
	ClientOrderID      string `json:"client_order_id"`
	CumulativeQuantity string `json:"cumulative_quantity"`
	LeavesQuantity     string `json:"leaves_quantity"`
	AvgPrice           string `json:"avg_price"`
	TotalFees          string `json:"total_fees"`
	Status             string `json:"status"`
	ProductID          string `json:"product_id"`
	CreationTime       string `json:"creation_time"`
	OrderSide          string `json:"order_side"`
	OrderType          string `json:"order_type"`
}

// PrettyPrint renders the tickers of the event as an aligned table.
func (e *TickerEvent) PrettyPrint() string {
	if len(e.Tickers) == 0 {
		return "No tickers"
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 3, ' ', tabwriter.TabIndent)

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", "Product", "Price", "Best bid", "Best ask", "24h %")
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", "-------", "-----", "--------", "--------", "-----")
	for _, t := range e.Tickers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			t.ProductID,
			t.Price.String(),
			t.BestBid.String(),
			t.BestAsk.String(),
			t.PricePercentChg24H.StringFixed(2),
		)
	}

	w.Flush()
	return buf.String()
}
