package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domain "github.com/BotCoder254/projects254/internal/entity"
	"github.com/BotCoder254/projects254/internal/usecase"
)

type ReceiptRenderer interface {
	Render(o *domain.Order) ([]byte, error)
}

type OrderHandler struct {
	track    *usecase.TrackOrder
	receipts ReceiptRenderer
}

func NewOrderHandler(track *usecase.TrackOrder, receipts ReceiptRenderer) *OrderHandler {
	return &OrderHandler{track: track, receipts: receipts}
}

func (h *OrderHandler) Track(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	t, err := h.track.Get(ctx, c.Param("number"))
	if err != nil {
		status, msg := fail(c, err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":                   t.Order,
		"progress":                t.Progress,
		"estimated_time":          t.EstimatedTime,
		"estimated_delivery_time": t.EstimatedDeliveryTime.UTC().Format(time.RFC3339),
	})
}

func (h *OrderHandler) Receipt(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	t, err := h.track.Get(ctx, c.Param("number"))
	if err != nil {
		status, msg := fail(c, err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	pdf, err := h.receipts.Render(t.Order)
	if err != nil {
		status, msg := fail(c, err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="receipt-`+t.Order.OrderNumber+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
