package usecase

import (
	"context"
	"strings"

	"github.com/BotCoder254/projects254/internal/logging"
)

// RecordCallback stores what the provider pushed so a later poll can read the
// receipt number. It never creates orders.
type RecordCallback struct {
	checkout CheckoutStore
}

func NewRecordCallback(checkout CheckoutStore) *RecordCallback {
	return &RecordCallback{checkout: checkout}
}

func (uc *RecordCallback) Execute(ctx context.Context, cb CallbackResult) error {
	if strings.TrimSpace(cb.CheckoutReference) == "" {
		return validationf("callback without CheckoutRequestID")
	}
	if err := uc.checkout.SaveCallback(ctx, cb); err != nil {
		return err
	}
	logging.FromCtx(ctx).Info("stk callback recorded",
		"checkout_ref", cb.CheckoutReference, "result_code", cb.ResultCode, "receipt", cb.ReceiptNumber)
	return nil
}
