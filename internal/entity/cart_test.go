package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCartItemValidate(t *testing.T) {
	ok := CartItem{ID: "a", Name: "Pizza", UnitPrice: decimal.NewFromInt(10), Quantity: 1}
	assert.NoError(t, ok.Validate())

	free := ok
	free.UnitPrice = decimal.Zero
	assert.NoError(t, free.Validate())

	neg := ok
	neg.UnitPrice = decimal.NewFromInt(-1)
	assert.ErrorIs(t, neg.Validate(), ErrInvalidPrice)

	zero := ok
	zero.Quantity = 0
	assert.ErrorIs(t, zero.Validate(), ErrInvalidQuantity)

	bulk := ok
	bulk.Quantity = MaxQuantity
	assert.NoError(t, bulk.Validate())
	bulk.Quantity = MaxQuantity + 1
	assert.ErrorIs(t, bulk.Validate(), ErrInvalidQuantity)

	noID := ok
	noID.ID = "  "
	assert.ErrorIs(t, noID.Validate(), ErrInvalidItem)
}

func TestCartItemValidate_PriceScale(t *testing.T) {
	it := CartItem{ID: "a", Name: "Tea", Quantity: 3}
	for _, p := range []string{"0.33", "0.330", "12", "5.5"} {
		it.UnitPrice = decimal.RequireFromString(p)
		assert.NoError(t, it.Validate(), p)
	}
	for _, p := range []string{"0.333", "10.001"} {
		it.UnitPrice = decimal.RequireFromString(p)
		assert.ErrorIs(t, it.Validate(), ErrInvalidPrice, p)
	}
}

func TestCartTotalAndCount(t *testing.T) {
	items := []CartItem{
		{ID: "a", Name: "A", UnitPrice: decimal.RequireFromString("10.00"), Quantity: 2},
		{ID: "b", Name: "B", UnitPrice: decimal.RequireFromString("5.50"), Quantity: 1},
	}
	assert.Equal(t, "25.5", CartTotal(items).String())
	assert.Equal(t, 3, CartCount(items))
	assert.True(t, CartTotal(nil).IsZero())
}
