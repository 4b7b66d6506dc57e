package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrOrderRejected is returned, wrapped with the venue's reason, when an
// order was received but not accepted.
var ErrOrderRejected = errors.New("order rejected")

const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// OrderConfiguration holds exactly one order type.
type OrderConfiguration struct {
	MarketIOC *MarketIOC `json:"market_market_ioc,omitempty"`
	LimitGTC  *LimitGTC  `json:"limit_limit_gtc,omitempty"`
	LimitGTD  *LimitGTD  `json:"limit_limit_gtd,omitempty"`
}

func (c OrderConfiguration) count() int {
	n := 0
	if c.MarketIOC != nil {
		n++
	}
	if c.LimitGTC != nil {
		n++
	}
	if c.LimitGTD != nil {
		n++
	}
	return n
}

// MarketIOC is a market order; set QuoteSize or BaseSize.
type MarketIOC struct {
	QuoteSize *decimal.Decimal `json:"quote_size,omitempty"`
	BaseSize  *decimal.Decimal `json:"base_size,omitempty"`
}

// LimitGTC is a good-till-cancelled limit order.
type LimitGTC struct {
	BaseSize   decimal.Decimal `json:"base_size"`
	LimitPrice decimal.Decimal `json:"limit_price"`
	PostOnly   bool            `json:"post_only"`
}

// LimitGTD is a limit order that expires at EndTime.
type LimitGTD struct {
	BaseSize   decimal.Decimal `json:"base_size"`
	LimitPrice decimal.Decimal `json:"limit_price"`
	EndTime    time.Time       `json:"end_time"`
	PostOnly   bool            `json:"post_only"`
}

// CreateOrderRequest is the body of an order placement.
type CreateOrderRequest struct {
	ClientOrderID      string             `json:"client_order_id"` // generated when empty
	ProductID          string             `json:"product_id"`
	Side               string             `json:"side"`
	OrderConfiguration OrderConfiguration `json:"order_configuration"`
}

// OrderSummary identifies an accepted order.
type OrderSummary struct {
	OrderID       string `json:"order_id"`
	ProductID     string `json:"product_id"`
	Side          string `json:"side"`
	ClientOrderID string `json:"client_order_id"`
}

// OrderFailure describes why an order was not accepted.
type OrderFailure struct {
	Error                 string `json:"error"`
	Message               string `json:"message"`
	ErrorDetails          string `json:"error_details"`
	PreviewFailureReason  string `json:"preview_failure_reason"`
	NewOrderFailureReason string `json:"new_order_failure_reason"`
}

// CreateOrderResponse is the venue's answer to an order placement.
type CreateOrderResponse struct {
	Success         bool          `json:"success"`
	FailureReason   string        `json:"failure_reason"`
	OrderID         string        `json:"order_id"`
	SuccessResponse *OrderSummary `json:"success_response"`
	ErrorResponse   *OrderFailure `json:"error_response"`
}

// CancelResult is the outcome of cancelling one order.
type CancelResult struct {
	Success       bool   `json:"success"`
	FailureReason string `json:"failure_reason"`
	OrderID       string `json:"order_id"`
}

// Order is a historical order.
type Order struct {
	OrderID              string          `json:"order_id"`
	ProductID            string          `json:"product_id"`
	UserID               string          `json:"user_id"`
	ClientOrderID        string          `json:"client_order_id"`
	Side                 string          `json:"side"`
	Status               string          `json:"status"`
	TimeInForce          string          `json:"time_in_force"`
	OrderType            string          `json:"order_type"`
	CreatedTime          time.Time       `json:"created_time"`
	CompletionPercentage decimal.Decimal `json:"completion_percentage"`
	FilledSize           decimal.Decimal `json:"filled_size"`
	AverageFilledPrice   decimal.Decimal `json:"average_filled_price"`
	FilledValue          decimal.Decimal `json:"filled_value"`
	TotalFees            decimal.Decimal `json:"total_fees"`
	NumberOfFills        int             `json:"number_of_fills"`
}

// OrdersPage is one page of a historical order listing.
type OrdersPage struct {
	Orders  []Order `json:"orders"`
	HasNext bool    `json:"has_next"`
	Cursor  string  `json:"cursor"`
}

// ListOrdersParams filters a historical order listing. Zero values are omitted.
type ListOrdersParams struct {
	ProductID   string
	OrderStatus []string
	Limit       int
	Cursor      string
}

// OrdersManager places, cancels and queries orders.
type OrdersManager struct {
	exec  Requester
	newID func() string
}

func newClientOrderID() string {
	return uuid.NewString()
}

// Create places an order. A client order id is generated when the request
// has none. A rejected order returns the decoded response together with an
// error wrapping ErrOrderRejected.
func (m *OrdersManager) Create(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error) {
	if req.ProductID == "" {
		return nil, fmt.Errorf("product id is required: %w", ErrInvalidArgument)
	}
	if req.Side != SideBuy && req.Side != SideSell {
		return nil, fmt.Errorf("side must be %s or %s, got %q: %w", SideBuy, SideSell, req.Side, ErrInvalidArgument)
	}
	if req.OrderConfiguration.count() != 1 {
		return nil, fmt.Errorf("exactly one order configuration is required: %w", ErrInvalidArgument)
	}
	if req.ClientOrderID == "" {
		req.ClientOrderID = m.newID()
	}

	resp, err := m.exec.Do(ctx, http.MethodPost, apiPrefix+"/orders", nil, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	var out CreateOrderResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		reason := out.FailureReason
		if out.ErrorResponse != nil && out.ErrorResponse.Message != "" {
			reason = out.ErrorResponse.Message
		}
		return &out, fmt.Errorf("%w: %s", ErrOrderRejected, reason)
	}
	return &out, nil
}

// Cancel requests the cancellation of every listed order.
func (m *OrdersManager) Cancel(ctx context.Context, orderIDs ...string) ([]CancelResult, error) {
	if len(orderIDs) == 0 {
		return nil, fmt.Errorf("at least one order id is required: %w", ErrInvalidArgument)
	}
	body := map[string][]string{"order_ids": orderIDs}
	resp, err := m.exec.Do(ctx, http.MethodPost, apiPrefix+"/orders/batch_cancel", nil, body)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel orders: %w", err)
	}
	var results []CancelResult
	if err := field(resp, "results", &results); err != nil {
		return nil, err
	}
	return results, nil
}

// List returns one page of historical orders.
func (m *OrdersManager) List(ctx context.Context, params ListOrdersParams) (*OrdersPage, error) {
	q := url.Values{}
	if params.ProductID != "" {
		q.Set("product_id", params.ProductID)
	}
	for _, s := range params.OrderStatus {
		q.Add("order_status", s)
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Cursor != "" {
		q.Set("cursor", params.Cursor)
	}

	resp, err := m.exec.Do(ctx, http.MethodGet, apiPrefix+"/orders/historical/batch", q, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	var page OrdersPage
	if err := decode(resp, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get returns one historical order.
func (m *OrdersManager) Get(ctx context.Context, orderID string) (*Order, error) {
	if orderID == "" {
		return nil, fmt.Errorf("order id is required: %w", ErrInvalidArgument)
	}
	resp, err := m.exec.Do(ctx, http.MethodGet, apiPrefix+"/orders/historical/"+url.PathEscape(orderID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}
	var order Order
	if err := field(resp, "order", &order); err != nil {
		return nil, err
	}
	return &order, nil
}
