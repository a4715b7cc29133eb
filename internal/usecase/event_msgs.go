package usecase

import (
	"context"
	"time"

	"github.com/BotCoder254/projects254/internal/logging"
)

// Admin channel event types. The routing key on the broker equals the type.
// menu_update and user_stats_update are published by the menu and user
// services; this module only consumes them.
const (
	EventNewOrder          = "new_order"
	EventOrderStatusUpdate = "order_status_update"
	EventStatsUpdate       = "stats_update"
	EventMenuUpdate        = "menu_update"
	EventUserStatsUpdate   = "user_stats_update"
)

type Event struct {
	Type       string    `json:"type"`
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
}

type NewOrderMsg struct {
	OrderNumber string    `json:"order_id"`
	Total       string    `json:"total"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type OrderStatusMsg struct {
	OrderNumber string `json:"order_id"`
	Status      string `json:"status"`
	Previous    string `json:"previous_status"`
}

// notify is fire-and-forget: a broken sink must not fail the request.
func notify(ctx context.Context, n Notifier, typ string, payload any) {
	if n == nil {
		return
	}
	ev := Event{Type: typ, Payload: payload, OccurredAt: time.Now().UTC()}
	if err := n.Publish(ctx, ev); err != nil {
		logging.FromCtx(ctx).Warn("notify failed", "event", typ, "err", err)
	}
}
