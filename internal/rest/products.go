package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alejoacosta74/coinbase-api/pkg/coinbase"
	"github.com/shopspring/decimal"
)

// Product describes one tradable pair.
type Product struct {
	ProductID                string          `json:"product_id"`
	Price                    decimal.Decimal `json:"price"`
	PricePercentageChange24h decimal.Decimal `json:"price_percentage_change_24h"`
	Volume24h                decimal.Decimal `json:"volume_24h"`
	BaseIncrement            decimal.Decimal `json:"base_increment"`
	QuoteIncrement           decimal.Decimal `json:"quote_increment"`
	BaseMinSize              decimal.Decimal `json:"base_min_size"`
	BaseMaxSize              decimal.Decimal `json:"base_max_size"`
	QuoteMinSize             decimal.Decimal `json:"quote_min_size"`
	QuoteMaxSize             decimal.Decimal `json:"quote_max_size"`
	BaseName                 string          `json:"base_name"`
	QuoteName                string          `json:"quote_name"`
	BaseCurrencyID           string          `json:"base_currency_id"`
	QuoteCurrencyID          string          `json:"quote_currency_id"`
	Status                   string          `json:"status"`
	TradingDisabled          bool            `json:"trading_disabled"`
	ProductType              string          `json:"product_type"`
}

// ListProductsParams filters a product listing. Zero values are omitted.
type ListProductsParams struct {
	ProductType string
	ProductIDs  []string
	Limit       int
	Offset      int
}

// PriceLevel is one price and size of an order book side.
type PriceLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// PriceBook holds the best bids and asks of one product.
type PriceBook struct {
	ProductID string       `json:"product_id"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Time      time.Time    `json:"time"`
}

// Candle granularities accepted by Candles.
const (
	GranularityOneMinute     = "ONE_MINUTE"
	GranularityFiveMinute    = "FIVE_MINUTE"
	GranularityFifteenMinute = "FIFTEEN_MINUTE"
	GranularityOneHour       = "ONE_HOUR"
	GranularitySixHour       = "SIX_HOUR"
	GranularityOneDay        = "ONE_DAY"
)

// ProductsManager queries market data.
type ProductsManager struct {
	exec Requester
}

// List returns the products matching params.
func (m *ProductsManager) List(ctx context.Context, params ListProductsParams) ([]Product, error) {
	q := url.Values{}
	if params.ProductType != "" {
		q.Set("product_type", params.ProductType)
	}
	for _, id := range params.ProductIDs {
		q.Add("product_ids", id)
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Offset > 0 {
		q.Set("offset", strconv.Itoa(params.Offset))
	}

	resp, err := m.exec.Do(ctx, http.MethodGet, apiPrefix+"/products", q, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	var products []Product
	if err := field(resp, "products", &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Get returns one product.
func (m *ProductsManager) Get(ctx context.Context, productID string) (*Product, error) {
	if productID == "" {
		return nil, fmt.Errorf("product id is required: %w", ErrInvalidArgument)
	}
	resp, err := m.exec.Do(ctx, http.MethodGet, apiPrefix+"/products/"+url.PathEscape(productID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", productID, err)
	}
	var product Product
	if err := decode(resp, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Candles returns the candles of productID between start and end.
func (m *ProductsManager) Candles(ctx context.Context, productID string, start, end time.Time, granularity string) ([]coinbase.Candle, error) {
	if productID == "" || granularity == "" {
		return nil, fmt.Errorf("product id and granularity are required: %w", ErrInvalidArgument)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("end must be after start: %w", ErrInvalidArgument)
	}
	q := url.Values{}
	q.Set("start", strconv.FormatInt(start.Unix(), 10))
	q.Set("end", strconv.FormatInt(end.Unix(), 10))
	q.Set("granularity", granularity)

	path := apiPrefix + "/products/" + url.PathEscape(productID) + "/candles"
	resp, err := m.exec.Do(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get candles for %s: %w", productID, err)
	}
	var candles []coinbase.Candle
	if err := field(resp, "candles", &candles); err != nil {
		return nil, err
	}
	for i := range candles {
		if candles[i].ProductID == "" {
			candles[i].ProductID = productID
		}
	}
	return candles, nil
}

// BestBidAsk returns the top of book for each product.
func (m *ProductsManager) BestBidAsk(ctx context.Context, productIDs ...string) ([]PriceBook, error) {
	q := url.Values{}
	for _, id := range productIDs {
		q.Add("product_ids", id)
	}
	resp, err := m.exec.Do(ctx, http.MethodGet, apiPrefix+"/best_bid_ask", q, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get best bid/ask: %w", err)
	}
	var books []PriceBook
	if err := field(resp, "pricebooks", &books); err != nil {
		return nil, err
	}
	return books, nil
}
