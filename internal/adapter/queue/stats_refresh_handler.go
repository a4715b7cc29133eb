package queue

import (
	"context"

	"github.com/BotCoder254/projects254/internal/logging"
	"github.com/BotCoder254/projects254/internal/usecase"
)

// StatsRefreshKeys are the events after which the dashboard aggregate is
// stale. Menu and user changes move the menu_items and active_users counts.
var StatsRefreshKeys = []string{
	usecase.EventNewOrder,
	usecase.EventOrderStatusUpdate,
	usecase.EventMenuUpdate,
	usecase.EventUserStatsUpdate,
}

// AdminEvent is the envelope of a message on the admin exchange. Only the
// type matters to the stats worker.
type AdminEvent struct {
	Type string `json:"type"`
}

type statsBroadcaster interface {
	Broadcast(ctx context.Context)
}

// StatsRefreshHandler recomputes the dashboard aggregate and publishes
// stats_update.
type StatsRefreshHandler struct {
	stats statsBroadcaster
}

func NewStatsRefreshHandler(stats statsBroadcaster) *StatsRefreshHandler {
	return &StatsRefreshHandler{stats: stats}
}

// HandleEvent is intended to be used with queue.JSONHandler[AdminEvent].
func (h *StatsRefreshHandler) HandleEvent(ctx context.Context, ev AdminEvent) error {
	logging.FromCtx(ctx).Debug("refreshing dashboard stats", "after", ev.Type)
	h.stats.Broadcast(ctx)
	return nil
}
