package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/BotCoder254/projects254/internal/adapter/http/middleware"
	"github.com/BotCoder254/projects254/internal/logging"
	"github.com/BotCoder254/projects254/internal/usecase"
)

type AdminHandler struct {
	status *usecase.UpdateOrderStatus
	track  *usecase.TrackOrder
	stats  *usecase.Stats
	menu   *usecase.Menu
}

func NewAdminHandler(status *usecase.UpdateOrderStatus, track *usecase.TrackOrder, stats *usecase.Stats, menu *usecase.Menu) *AdminHandler {
	return &AdminHandler{status: status, track: track, stats: stats, menu: menu}
}

type updateStatusReq struct {
	OrderID string `json:"order_id" binding:"required"`
	Status  string `json:"status" binding:"required"`
}

func (h *AdminHandler) UpdateOrderStatus(c *gin.Context) {
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	o, err := h.status.Execute(ctx, usecase.UpdateOrderStatusInput{OrderNumber: req.OrderID, Status: req.Status})
	if err != nil {
		status, msg := fail(c, err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	logging.From(c).Info("admin status change", "by", middleware.Subject(c), "order_number", o.OrderNumber, "status", o.Status)
	c.JSON(http.StatusOK, gin.H{"success": true, "order": o})
}

func (h *AdminHandler) Orders(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	orders, err := h.track.Recent(ctx, limit)
	if err != nil {
		status, msg := fail(c, err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

func (h *AdminHandler) Stats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	st, err := h.stats.Compute(ctx)
	if err != nil {
		status, msg := fail(c, err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *AdminHandler) Menu(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	items, err := h.menu.List(ctx)
	if err != nil {
		status, msg := fail(c, err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, items)
}
