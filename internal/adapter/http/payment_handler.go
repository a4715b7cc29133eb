package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/BotCoder254/projects254/internal/adapter/http/middleware"
	"github.com/BotCoder254/projects254/internal/adapter/mpesa"
	domain "github.com/BotCoder254/projects254/internal/entity"
	"github.com/BotCoder254/projects254/internal/logging"
	"github.com/BotCoder254/projects254/internal/usecase"
)

// gatewayTimeout bounds a request that talks to the payment provider. The
// provider client has its own, shorter, HTTP timeout.
const gatewayTimeout = 40 * time.Second

type PaymentHandler struct {
	start    *usecase.StartCheckout
	confirm  *usecase.ConfirmPayment
	callback *usecase.RecordCallback
}

func NewPaymentHandler(start *usecase.StartCheckout, confirm *usecase.ConfirmPayment, callback *usecase.RecordCallback) *PaymentHandler {
	return &PaymentHandler{start: start, confirm: confirm, callback: callback}
}

type processPaymentReq struct {
	Phone  string          `json:"phone" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
}

type checkStatusReq struct {
	CheckoutRequestID string `json:"checkoutRequestId" binding:"required"`
}

// ProcessPayment sends the push prompt to the customer's phone.
func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
	var req processPaymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": bindError(c, err)})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), gatewayTimeout)
	defer cancel()

	out, err := h.start.Execute(ctx, usecase.StartCheckoutInput{
		SessionID: middleware.SessionID(c),
		Phone:     req.Phone,
		Amount:    req.Amount,
	})
	if err != nil {
		status, msg := fail(c, err)
		c.JSON(status, gin.H{"success": false, "message": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"checkoutRequestId": out.CheckoutRequestID,
		"merchantRequestId": out.MerchantRequestID,
		"customerMessage":   out.CustomerMessage,
	})
}

// CheckPaymentStatus answers one client poll. The first poll that observes a
// completed payment also creates the order.
func (h *PaymentHandler) CheckPaymentStatus(c *gin.Context) {
	var req checkStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ResponseCode": "1", "status": "error", "message": bindError(c, err)})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), gatewayTimeout)
	defer cancel()

	out, err := h.confirm.Execute(ctx, usecase.ConfirmPaymentInput{
		SessionID:         middleware.SessionID(c),
		CheckoutReference: req.CheckoutRequestID,
	})
	res := out.Result
	switch {
	case errors.Is(err, usecase.ErrPersistence) && res.State == domain.PaymentCompleted:
		// paid but not recorded; the payment is in the reconciliation queue
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"ResponseCode": "1",
			"ResultCode":   res.ResultCode,
			"ResultDesc":   "Payment received but the order could not be recorded. Support will contact you.",
			"status":       string(res.State),
		})
		return
	case err != nil:
		status, msg := fail(c, err)
		c.JSON(status, gin.H{"ResponseCode": "1", "status": "error", "message": msg})
		return
	}

	body := gin.H{
		"ResponseCode": "0",
		"ResultCode":   res.ResultCode,
		"ResultDesc":   res.ResultDesc,
		"status":       string(res.State),
	}
	if out.OrderNumber != "" {
		body["orderNumber"] = out.OrderNumber
		body["transactionId"] = out.TransactionID
	}
	if res.State == domain.PaymentFailed && res.Reason != "" {
		body["message"] = res.Reason
	}
	c.JSON(http.StatusOK, body)
}

var callbackAck = gin.H{"ResultCode": 0, "ResultDesc": "Accepted"}

// Callback records the provider's asynchronous result and always acknowledges.
func (h *PaymentHandler) Callback(c *gin.Context) {
	l := logging.From(c)
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 64<<10))
	if err != nil {
		l.Warn("stk callback unreadable", "err", err)
		c.JSON(http.StatusOK, callbackAck)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	cb, err := mpesa.ParseCallback(body)
	if err == nil {
		err = h.callback.Execute(ctx, cb)
	}
	if err != nil {
		l.Warn("stk callback not recorded", "err", err)
	}
	c.JSON(http.StatusOK, callbackAck)
}
