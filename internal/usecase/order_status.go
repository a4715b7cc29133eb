package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/BotCoder254/projects254/internal/entity"
	"github.com/BotCoder254/projects254/internal/logging"
)

type UpdateOrderStatusInput struct {
	OrderNumber string
	Status      string
}

// UpdateOrderStatus moves an order one step along its lifecycle.
type UpdateOrderStatus struct {
	orders   OrderRepo
	stats    *Stats
	notifier Notifier
}

func NewUpdateOrderStatus(orders OrderRepo, stats *Stats, notifier Notifier) *UpdateOrderStatus {
	return &UpdateOrderStatus{orders: orders, stats: stats, notifier: notifier}
}

func (uc *UpdateOrderStatus) Execute(ctx context.Context, in UpdateOrderStatusInput) (*domain.Order, error) {
	number := strings.TrimSpace(in.OrderNumber)
	if number == "" {
		return nil, validationf("order_id required")
	}
	to, err := domain.ParseStatus(in.Status)
	if err != nil {
		return nil, errors.Join(ErrValidation, err)
	}

	o, err := uc.orders.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	from := o.Status
	if !from.CanTransitionTo(to) {
		return nil, errors.Join(ErrValidation, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to))
	}

	ok, err := uc.orders.UpdateStatusIf(ctx, number, from, to)
	if err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: order %s is no longer %s", ErrConflict, number, from)
	}
	o.Status = to

	logging.FromCtx(ctx).Info("order status updated", "order_number", number, "from", from, "to", to)
	notify(ctx, uc.notifier, EventOrderStatusUpdate, OrderStatusMsg{
		OrderNumber: number,
		Status:      string(to),
		Previous:    string(from),
	})
	if uc.stats != nil {
		uc.stats.Broadcast(ctx)
	}
	return o, nil
}
