package ui

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/alejoacosta74/coinbase-api/internal/events"
	"github.com/alejoacosta74/coinbase-api/pkg/coinbase"
	"github.com/shopspring/decimal"
)

// Stream is the part of the streaming client the printer listens to.
type Stream interface {
	OnTicker(fn func(coinbase.TickerEvent)) events.Handle
	OnTickerBatch(fn func(coinbase.TickerEvent)) events.Handle
	OnMarketTrades(fn func(coinbase.MarketTradesEvent)) events.Handle
	OnLevel2(fn func(coinbase.Level2Event)) events.Handle
	OnCandles(fn func(coinbase.CandlesEvent)) events.Handle
	OnStatus(fn func(coinbase.StatusEvent)) events.Handle
	OnUser(fn func(coinbase.UserEvent)) events.Handle
}

// Printer renders stream events as text. It remembers the last price of
// every product so ticker lines can show the move since the previous one.
type Printer struct {
	out       io.Writer
	mutex     sync.Mutex
	lastPrice map[string]decimal.Decimal
}

// NewPrinter creates a printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{
		out:       out,
		lastPrice: make(map[string]decimal.Decimal),
	}
}

// Attach registers the printer on every channel of s. Unsubscribe the
// returned handles to detach it.
func (p *Printer) Attach(s Stream) []events.Handle {
	return []events.Handle{
		s.OnTicker(p.Ticker),
		s.OnTickerBatch(p.Ticker),
		s.OnMarketTrades(p.Trades),
		s.OnLevel2(p.Level2),
		s.OnCandles(p.Candles),
		s.OnStatus(p.Status),
		s.OnUser(p.User),
	}
}

// Ticker prints the ticker table followed by the change of each price.
func (p *Printer) Ticker(ev coinbase.TickerEvent) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	fmt.Fprint(p.out, ev.PrettyPrint())
	for _, t := range ev.Tickers {
		if !t.Price.Valid {
			continue
		}
		if prev, ok := p.lastPrice[t.ProductID]; ok && !prev.Equal(t.Price.Decimal) {
			fmt.Fprintf(p.out, "%s moved %s\n", t.ProductID, t.Price.Sub(prev).String())
		}
		p.lastPrice[t.ProductID] = t.Price.Decimal
	}
}

func (p *Printer) Trades(ev coinbase.MarketTradesEvent) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, t := range ev.Trades {
		fmt.Fprintf(p.out, "trade %s %s %s @ %s\n", t.ProductID, t.Side, t.Size.String(), t.Price.String())
	}
}

// Level2 prints the deltas of one product. A snapshot is summarised by
// its size only.
func (p *Printer) Level2(ev coinbase.Level2Event) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if ev.Type == "snapshot" {
		fmt.Fprintf(p.out, "level2 %s snapshot with %d levels\n", ev.ProductID, len(ev.Updates))
		return
	}
	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	for _, u := range ev.Updates {
		fmt.Fprintf(w, "level2\t%s\t%s\t%s\t%s\n", ev.ProductID, u.Side, u.PriceLevel.String(), u.NewQuantity.String())
	}
	w.Flush()
}

func (p *Printer) Candles(ev coinbase.CandlesEvent) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, c := range ev.Candles {
		fmt.Fprintf(p.out, "candle %s start=%s o=%s h=%s l=%s c=%s v=%s\n",
			c.ProductID, c.Start, c.Open.String(), c.High.String(), c.Low.String(), c.Close.String(), c.Volume.String())
	}
}

func (p *Printer) Status(ev coinbase.StatusEvent) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, s := range ev.Products {
		fmt.Fprintf(p.out, "status %s %s\n", s.ID, s.Status)
	}
}

func (p *Printer) User(ev coinbase.UserEvent) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, o := range ev.Orders {
		fmt.Fprintf(p.out, "order %s %s %s %s filled=%s\n", o.OrderID, o.ProductID, o.OrderSide, o.Status, o.CumulativeQuantity)
	}
}
