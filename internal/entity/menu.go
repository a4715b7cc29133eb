package domain

import "github.com/shopspring/decimal"

// MenuItem is a read-only view of the menu owned by the catalogue service.
type MenuItem struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}
