package usecase

import (
	"context"

	domain "github.com/BotCoder254/projects254/internal/entity"
	"github.com/BotCoder254/projects254/internal/logging"
)

// Stats computes the admin dashboard aggregate.
type Stats struct {
	repo     StatsRepo
	notifier Notifier
}

func NewStats(repo StatsRepo, notifier Notifier) *Stats {
	return &Stats{repo: repo, notifier: notifier}
}

func (uc *Stats) Compute(ctx context.Context) (domain.DashboardStats, error) {
	return uc.repo.DashboardStats(ctx)
}

// Broadcast recomputes the aggregate and publishes stats_update. Failures are
// logged only.
func (uc *Stats) Broadcast(ctx context.Context) {
	st, err := uc.Compute(ctx)
	if err != nil {
		logging.FromCtx(ctx).Warn("stats recompute failed", "err", err)
		return
	}
	notify(ctx, uc.notifier, EventStatsUpdate, st)
}
