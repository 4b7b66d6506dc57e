package coinbase

import (
	"bytes"

	"github.com/shopspring/decimal"
)

// Amount is a price or size from the feed. Values the venue does not know
// yet arrive as "" (or null) and decode to an invalid zero Amount instead of
// failing the whole frame.
type Amount struct {
	decimal.Decimal
	Valid bool
}

// NewAmount returns a valid Amount holding d.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d, Valid: true}
}

// UnmarshalJSON accepts quoted or bare numbers, "" and null.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`""`)) {
		*a = Amount{}
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	*a = NewAmount(d)
	return nil
}

// MarshalJSON writes invalid amounts as null.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return a.Decimal.MarshalJSON()
}

// String is empty for an invalid amount.
func (a Amount) String() string {
	if !a.Valid {
		return ""
	}
	return a.Decimal.String()
}

// StringFixed is empty for an invalid amount.
func (a Amount) StringFixed(places int32) string {
	if !a.Valid {
		return ""
	}
	return a.Decimal.StringFixed(places)
}
