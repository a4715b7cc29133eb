package repo

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/BotCoder254/projects254/internal/entity"
	"github.com/BotCoder254/projects254/internal/usecase"
)

const activeUserWindow = 30 * 24 * time.Hour

type MySQLStatsRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewMySQLStatsRepo(db *sql.DB) *MySQLStatsRepo {
	return &MySQLStatsRepo{db: db, now: time.Now}
}

// DashboardStats counts every order, the ones not yet delivered or cancelled,
// revenue over all orders, users seen in the last 30 days and menu size.
func (r *MySQLStatsRepo) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	var st domain.DashboardStats
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*),
       COALESCE(SUM(status NOT IN ('delivered','cancelled')), 0),
       COALESCE(SUM(total), 0)
FROM orders`).Scan(&st.TotalOrders, &st.ActiveOrders, &st.TotalRevenue)
	if err != nil {
		return st, err
	}

	since := r.now().UTC().Add(-activeUserWindow)
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE last_login >= ?`, since).Scan(&st.ActiveUsers); err != nil {
		return st, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM menu_items`).Scan(&st.MenuItems); err != nil {
		return st, err
	}
	return st, nil
}

var _ usecase.StatsRepo = (*MySQLStatsRepo)(nil)
