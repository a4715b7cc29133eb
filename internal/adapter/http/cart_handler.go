package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BotCoder254/projects254/internal/adapter/http/middleware"
	domain "github.com/BotCoder254/projects254/internal/entity"
	"github.com/BotCoder254/projects254/internal/usecase"
)

const storeTimeout = 3 * time.Second

type CartHandler struct {
	cart *usecase.Cart
}

func NewCartHandler(cart *usecase.Cart) *CartHandler {
	return &CartHandler{cart: cart}
}

type removeItemReq struct {
	ItemID string `json:"item_id" binding:"required"`
}

type updateQuantityReq struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity int    `json:"quantity"`
}

func (h *CartHandler) Get(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	view, err := h.cart.View(ctx, middleware.SessionID(c))
	if err != nil {
		cartError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"items":  view.Items,
		"total":  view.Total,
		"count":  view.Count,
	})
}

func (h *CartHandler) Add(c *gin.Context) {
	var item domain.CartItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": bindError(c, err)})
		return
	}
	h.mutate(c, func(ctx context.Context, sid string) error {
		return h.cart.Add(ctx, sid, item)
	})
}

func (h *CartHandler) Remove(c *gin.Context) {
	var req removeItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": bindError(c, err)})
		return
	}
	h.mutate(c, func(ctx context.Context, sid string) error {
		return h.cart.Remove(ctx, sid, req.ItemID)
	})
}

func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	var req updateQuantityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": bindError(c, err)})
		return
	}
	h.mutate(c, func(ctx context.Context, sid string) error {
		return h.cart.SetQuantity(ctx, sid, req.ItemID, req.Quantity)
	})
}

// Sync replaces the whole cart with the posted JSON array of lines.
func (h *CartHandler) Sync(c *gin.Context) {
	var items []domain.CartItem
	if err := c.ShouldBindJSON(&items); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": bindError(c, err)})
		return
	}
	h.mutate(c, func(ctx context.Context, sid string) error {
		return h.cart.Sync(ctx, sid, items)
	})
}

// mutate runs op and answers with the updated cart.
func (h *CartHandler) mutate(c *gin.Context, op func(ctx context.Context, sid string) error) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	sid := middleware.SessionID(c)
	if err := op(ctx, sid); err != nil {
		cartError(c, err)
		return
	}
	view, err := h.cart.View(ctx, sid)
	if err != nil {
		cartError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "total": view.Total, "count": view.Count})
}

func cartError(c *gin.Context, err error) {
	status, msg := fail(c, err)
	c.JSON(status, gin.H{"status": "error", "message": msg})
}
