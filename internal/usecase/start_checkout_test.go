package usecase

import (
	"context"
	"errors"
	"testing"

	domain "github.com/BotCoder254/projects254/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCart(t *testing.T, carts *memCarts, sid string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, carts.Add(ctx, sid, domain.CartItem{ID: "a", Name: "Pizza", UnitPrice: decimal.RequireFromString("10.00"), Quantity: 2}))
	require.NoError(t, carts.Add(ctx, sid, domain.CartItem{ID: "b", Name: "Soda", UnitPrice: decimal.RequireFromString("5.50"), Quantity: 1}))
}

func TestStartCheckout_SavesPending(t *testing.T) {
	carts, checkout := newMemCarts(), newMemCheckout()
	seedCart(t, carts, "s1")
	gw := &scriptedGateway{accepted: PushAccepted{CheckoutRequestID: "ws_CO_1", MerchantRequestID: "m-1"}}
	uc := NewStartCheckout(carts, gw, checkout, nil)

	out, err := uc.Execute(context.Background(), StartCheckoutInput{
		SessionID: "s1", UserRef: "u-9", Phone: "254712345678", Amount: decimal.RequireFromString("25.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_1", out.CheckoutRequestID)

	p, err := checkout.GetPending(context.Background(), "ws_CO_1")
	require.NoError(t, err)
	assert.Equal(t, "s1", p.SessionID)
	assert.Equal(t, "u-9", p.UserRef)
	assert.True(t, p.Amount.Equal(decimal.RequireFromString("25.5")))
}

func TestStartCheckout_Rejections(t *testing.T) {
	carts := newMemCarts()
	seedCart(t, carts, "s1")
	gw := &scriptedGateway{accepted: PushAccepted{CheckoutRequestID: "ws_CO_1"}}
	uc := NewStartCheckout(carts, gw, newMemCheckout(), nil)
	ctx := context.Background()

	_, err := uc.Execute(ctx, StartCheckoutInput{SessionID: "s1", Phone: "254712345678", Amount: decimal.NewFromInt(20)})
	assert.ErrorIs(t, err, ErrValidation, "amount must match the cart")

	_, err = uc.Execute(ctx, StartCheckoutInput{SessionID: "empty", Phone: "254712345678", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrValidation, "empty cart")

	_, err = uc.Execute(ctx, StartCheckoutInput{SessionID: "s1", Phone: "254712345678", Amount: decimal.Zero})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = uc.Execute(ctx, StartCheckoutInput{SessionID: "s1", Amount: decimal.RequireFromString("25.50")})
	assert.ErrorIs(t, err, ErrValidation, "phone missing")
}

func TestStartCheckout_GatewayRefusal(t *testing.T) {
	carts := newMemCarts()
	seedCart(t, carts, "s1")
	refusal := &PaymentInitiationError{Description: "Invalid PhoneNumber"}
	gw := &scriptedGateway{initErr: refusal}
	checkout := newMemCheckout()
	uc := NewStartCheckout(carts, gw, checkout, nil)

	_, err := uc.Execute(context.Background(), StartCheckoutInput{
		SessionID: "s1", Phone: "254712345678", Amount: decimal.RequireFromString("25.50"),
	})
	var pie *PaymentInitiationError
	require.True(t, errors.As(err, &pie))
	assert.Equal(t, "Invalid PhoneNumber", pie.Description)
	assert.Empty(t, checkout.pending)
}
