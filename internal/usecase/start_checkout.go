package usecase

import (
	"context"
	"errors"
	"time"

	domain "github.com/BotCoder254/projects254/internal/entity"
	"github.com/BotCoder254/projects254/internal/logging"
	"github.com/shopspring/decimal"
)

type StartCheckoutInput struct {
	SessionID string
	UserRef   string
	Phone     string
	Amount    decimal.Decimal
}

type StartCheckoutOutput struct {
	CheckoutRequestID string
	MerchantRequestID string
	CustomerMessage   string
}

// StartCheckout sends the push prompt for the session's cart.
type StartCheckout struct {
	carts    CartStore
	gw       PaymentGateway
	checkout CheckoutStore
	rec      Recorder
	now      func() time.Time
}

func NewStartCheckout(carts CartStore, gw PaymentGateway, checkout CheckoutStore, rec Recorder) *StartCheckout {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &StartCheckout{carts: carts, gw: gw, checkout: checkout, rec: rec, now: time.Now}
}

func (uc *StartCheckout) Execute(ctx context.Context, in StartCheckoutInput) (StartCheckoutOutput, error) {
	if err := requireSession(in.SessionID); err != nil {
		return StartCheckoutOutput{}, err
	}
	if in.Phone == "" {
		return StartCheckoutOutput{}, validationf("phone required")
	}
	if !in.Amount.IsPositive() {
		return StartCheckoutOutput{}, errors.Join(ErrValidation, domain.ErrInvalidAmount)
	}

	items, err := uc.carts.Get(ctx, in.SessionID)
	if err != nil {
		return StartCheckoutOutput{}, err
	}
	if len(items) == 0 {
		return StartCheckoutOutput{}, validationf("cart is empty")
	}
	total := domain.CartTotal(items)
	if !total.Round(2).Equal(in.Amount.Round(2)) {
		return StartCheckoutOutput{}, validationf("amount %s does not match cart total %s", in.Amount.StringFixed(2), total.StringFixed(2))
	}

	accepted, err := uc.gw.InitiatePayment(ctx, in.Phone, total, in.SessionID)
	if err != nil {
		uc.rec.PaymentInitiated("rejected")
		return StartCheckoutOutput{}, err
	}
	uc.rec.PaymentInitiated("accepted")

	pending := PendingCheckout{
		CheckoutReference: accepted.CheckoutRequestID,
		MerchantRequestID: accepted.MerchantRequestID,
		SessionID:         in.SessionID,
		UserRef:           in.UserRef,
		Phone:             accepted.Phone,
		Amount:            total,
		CreatedAt:         uc.now().UTC(),
	}
	if err := uc.checkout.SavePending(ctx, pending); err != nil {
		// The prompt is already on the payer's phone; without this record the
		// poll cannot be tied back to the cart.
		logging.FromCtx(ctx).Error("save pending checkout failed",
			"checkout_ref", accepted.CheckoutRequestID, "err", err)
		return StartCheckoutOutput{}, errors.Join(ErrPersistence, err)
	}

	logging.FromCtx(ctx).Info("payment initiated",
		"checkout_ref", accepted.CheckoutRequestID, "amount", total.StringFixed(2))
	return StartCheckoutOutput{
		CheckoutRequestID: accepted.CheckoutRequestID,
		MerchantRequestID: accepted.MerchantRequestID,
		CustomerMessage:   accepted.CustomerMessage,
	}, nil
}
