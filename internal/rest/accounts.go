package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Balance is an amount in one currency.
type Balance struct {
	Value    decimal.Decimal `json:"value"`
	Currency string          `json:"currency"`
}

// Account is one brokerage account (wallet).
type Account struct {
	UUID             string    `json:"uuid"`
	Name             string    `json:"name"`
	Currency         string    `json:"currency"`
	AvailableBalance Balance   `json:"available_balance"`
	Hold             Balance   `json:"hold"`
	Default          bool      `json:"default"`
	Active           bool      `json:"active"`
	Ready            bool      `json:"ready"`
	Type             string    `json:"type"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AccountsPage is one page of a paginated account listing.
type AccountsPage struct {
	Accounts []Account `json:"accounts"`
	HasNext  bool      `json:"has_next"`
	Cursor   string    `json:"cursor"`
	Size     int       `json:"size"`
}

// ListAccountsParams filters an account listing. Zero values are omitted.
type ListAccountsParams struct {
	Limit  int
	Cursor string
}

// AccountsManager queries brokerage accounts.
type AccountsManager struct {
	exec Requester
}

// List returns one page of accounts.
func (m *AccountsManager) List(ctx context.Context, params ListAccountsParams) (*AccountsPage, error) {
	q := url.Values{}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Cursor != "" {
		q.Set("cursor", params.Cursor)
	}

	resp, err := m.exec.Do(ctx, http.MethodGet, apiPrefix+"/accounts", q, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	var page AccountsPage
	if err := decode(resp, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get returns the account with the given uuid.
func (m *AccountsManager) Get(ctx context.Context, accountUUID string) (*Account, error) {
	if accountUUID == "" {
		return nil, fmt.Errorf("account uuid is required: %w", ErrInvalidArgument)
	}
	resp, err := m.exec.Do(ctx, http.MethodGet, apiPrefix+"/accounts/"+url.PathEscape(accountUUID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", accountUUID, err)
	}
	var account Account
	if err := field(resp, "account", &account); err != nil {
		return nil, err
	}
	return &account, nil
}
