package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxQuantity caps a single line; merges that would pass it are rejected.
const MaxQuantity = 999

// priceScale is the number of decimal places a price may carry, matching the
// DECIMAL(12,2) columns orders are stored in.
const priceScale = 2

var (
	ErrInvalidItem     = errors.New("invalid cart item")
	ErrInvalidPrice    = errors.New("price must be non-negative with at most 2 decimal places")
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 999")
)

// CartItem is one line of a cart, priced at the moment it was added.
type CartItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"image_url,omitempty"`
}

func (i CartItem) Validate() error {
	if strings.TrimSpace(i.ID) == "" || strings.TrimSpace(i.Name) == "" {
		return ErrInvalidItem
	}
	if i.UnitPrice.IsNegative() || !i.UnitPrice.Equal(i.UnitPrice.Round(priceScale)) {
		return ErrInvalidPrice
	}
	if i.Quantity < 1 || i.Quantity > MaxQuantity {
		return ErrInvalidQuantity
	}
	return nil
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func CartTotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// CartCount is the number of units across all lines.
func CartCount(items []CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
