package mpesa

import (
	"encoding/json"
	"fmt"

	"github.com/BotCoder254/projects254/internal/usecase"
)

// ParseCallback decodes the body the provider posts to CallBackURL.
func ParseCallback(body []byte) (usecase.CallbackResult, error) {
	var env callbackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return usecase.CallbackResult{}, fmt.Errorf("%w: malformed stk callback: %v", usecase.ErrValidation, err)
	}
	cb := env.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return usecase.CallbackResult{}, fmt.Errorf("%w: stk callback without CheckoutRequestID", usecase.ErrValidation)
	}

	out := usecase.CallbackResult{
		CheckoutReference: cb.CheckoutRequestID,
		MerchantRequestID: cb.MerchantRequestID,
		ResultCode:        rawString(cb.ResultCode),
		ResultDesc:        cb.ResultDesc,
	}
	for _, it := range cb.CallbackMetadata.Item {
		switch it.Name {
		case "MpesaReceiptNumber":
			out.ReceiptNumber = rawString(it.Value)
		case "PhoneNumber":
			out.Phone = rawString(it.Value)
		case "Amount":
			out.Amount = rawString(it.Value)
		}
	}
	return out, nil
}
