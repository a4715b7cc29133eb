package repo

import (
	"context"
	"database/sql"

	domain "github.com/BotCoder254/projects254/internal/entity"
	"github.com/BotCoder254/projects254/internal/usecase"
)

type MySQLMenuRepo struct{ db *sql.DB }

func NewMySQLMenuRepo(db *sql.DB) *MySQLMenuRepo { return &MySQLMenuRepo{db: db} }

func (r *MySQLMenuRepo) ListMenu(ctx context.Context) ([]domain.MenuItem, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id,name,price FROM menu_items ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MenuItem
	for rows.Next() {
		var m domain.MenuItem
		if err := rows.Scan(&m.ID, &m.Name, &m.Price); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

var _ usecase.MenuRepo = (*MySQLMenuRepo)(nil)
