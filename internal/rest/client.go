package rest

import (
	"context"
	"net/url"

	"github.com/alejoacosta74/coinbase-api/internal/auth"
)

// ErrInvalidArgument is returned, wrapped, for missing request parameters.
var ErrInvalidArgument = auth.ErrInvalidArgument

// Requester is the signed request primitive the managers are built on.
// *Executor implements it.
type Requester interface {
	Do(ctx context.Context, method, path string, query url.Values, body interface{}) (map[string]interface{}, error)
}

// Client groups the REST managers around one Requester.
type Client struct {
	Accounts *AccountsManager
	Orders   *OrdersManager
	Products *ProductsManager
	Fees     *FeesManager
}

// NewClient builds every manager on top of exec.
func NewClient(exec Requester) *Client {
	return &Client{
		Accounts: &AccountsManager{exec: exec},
		Orders:   &OrdersManager{exec: exec, newID: newClientOrderID},
		Products: &ProductsManager{exec: exec},
		Fees:     &FeesManager{exec: exec},
	}
}
