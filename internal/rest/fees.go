package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
)

// FeeTier is the pricing tier the account currently falls in.
type FeeTier struct {
	PricingTier  string          `json:"pricing_tier"`
	USDFrom      decimal.Decimal `json:"usd_from"`
	USDTo        decimal.Decimal `json:"usd_to"`
	TakerFeeRate decimal.Decimal `json:"taker_fee_rate"`
	MakerFeeRate decimal.Decimal `json:"maker_fee_rate"`
}

// TransactionSummary sums the account's trading volume and fees.
type TransactionSummary struct {
	TotalVolume decimal.Decimal `json:"total_volume"`
	TotalFees   decimal.Decimal `json:"total_fees"`
	FeeTier     FeeTier         `json:"fee_tier"`
}

// FeesManager queries fee information.
type FeesManager struct {
	exec Requester
}

// TransactionSummary returns the summary, optionally for one product type
// ("SPOT" or "FUTURE").
func (m *FeesManager) TransactionSummary(ctx context.Context, productType string) (*TransactionSummary, error) {
	q := url.Values{}
	if productType != "" {
		q.Set("product_type", productType)
	}
	resp, err := m.exec.Do(ctx, http.MethodGet, apiPrefix+"/transaction_summary", q, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction summary: %w", err)
	}
	var summary TransactionSummary
	if err := decode(resp, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
