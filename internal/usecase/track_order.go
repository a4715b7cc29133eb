package usecase

import (
	"context"
	"strings"
	"time"

	domain "github.com/BotCoder254/projects254/internal/entity"
)

type OrderTracking struct {
	Order                 *domain.Order
	Progress              int
	EstimatedTime         string
	EstimatedDeliveryTime time.Time
}

// TrackOrder loads orders for the public tracking page and the admin list.
type TrackOrder struct {
	orders OrderRepo
}

func NewTrackOrder(orders OrderRepo) *TrackOrder {
	return &TrackOrder{orders: orders}
}

func (uc *TrackOrder) Get(ctx context.Context, number string) (OrderTracking, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return OrderTracking{}, validationf("order number required")
	}
	o, err := uc.orders.GetByNumber(ctx, number)
	if err != nil {
		return OrderTracking{}, err
	}
	label, after := o.Status.Estimate()
	return OrderTracking{
		Order:                 o,
		Progress:              o.Status.Progress(),
		EstimatedTime:         label,
		EstimatedDeliveryTime: o.CreatedAt.Add(after),
	}, nil
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func (uc *TrackOrder) Recent(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return uc.orders.ListRecent(ctx, limit)
}
