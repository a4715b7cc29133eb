package repo

import (
	"context"
	"database/sql"

	"github.com/BotCoder254/projects254/internal/usecase"
)

// MySQLReconciliationRepo queues payments that have no order for manual
// follow-up.
type MySQLReconciliationRepo struct{ db *sql.DB }

func NewMySQLReconciliationRepo(db *sql.DB) *MySQLReconciliationRepo {
	return &MySQLReconciliationRepo{db: db}
}

// InsertUnmatchedPayment queues p once per checkout reference. A repeat hits
// uq_unmatched_checkout_reference, leaves the first row untouched and
// reports false.
func (r *MySQLReconciliationRepo) InsertUnmatchedPayment(ctx context.Context, p usecase.UnmatchedPayment) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO unmatched_payments (checkout_reference,transaction_id,phone,amount,reason,status,created_at)
VALUES (?, ?, ?, ?, ?, 'OPEN', NOW(3))
ON DUPLICATE KEY UPDATE checkout_reference = checkout_reference
`, p.CheckoutReference, p.TransactionID, p.Phone, p.Amount.StringFixed(2), truncateReason(p.Reason))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func truncateReason(s string) string {
	if len(s) > 255 {
		return s[:255]
	}
	return s
}

var _ usecase.ReconciliationRepo = (*MySQLReconciliationRepo)(nil)
