package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	domain "github.com/BotCoder254/projects254/internal/entity"
	"github.com/BotCoder254/projects254/internal/usecase"
	"github.com/go-sql-driver/mysql"
)

const (
	errDupEntry        = 1062
	checkoutRefKeyName = "uq_orders_checkout_reference"
)

const orderColumns = `order_number,checkout_reference,user_ref,items_json,total,payment_method,transaction_id,payment_status,payer_phone,status,created_at,updated_at`

type MySQLOrderRepo struct{ db *sql.DB }

func NewMySQLOrderRepo(db *sql.DB) *MySQLOrderRepo { return &MySQLOrderRepo{db: db} }

// Create inserts the order. A duplicate checkout reference yields
// usecase.ErrDuplicate, a duplicate order number usecase.ErrDuplicateNumber.
func (r *MySQLOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO orders (`+orderColumns+`)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
`, o.OrderNumber, o.CheckoutReference, nullable(o.UserRef), items, o.Total.StringFixed(2),
		o.Payment.Method, o.Payment.TransactionID, o.Payment.Status, nullable(o.Payment.PayerPhone),
		string(o.Status), o.CreatedAt, o.UpdatedAt)
	return mapInsertErr(err)
}

func mapInsertErr(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != errDupEntry {
		return err
	}
	if strings.Contains(me.Message, checkoutRefKeyName) {
		return usecase.ErrDuplicate
	}
	return usecase.ErrDuplicateNumber
}

func (r *MySQLOrderRepo) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number=?`, number)
	return scanOrder(row)
}

func (r *MySQLOrderRepo) GetByCheckoutReference(ctx context.Context, ref string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE checkout_reference=?`, ref)
	return scanOrder(row)
}

func (r *MySQLOrderRepo) UpdateStatusIf(ctx context.Context, number string, from, to domain.Status) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
        UPDATE orders
        SET status = ?, updated_at = NOW(3)
        WHERE order_number = ? AND status = ?`,
		string(to), number, string(from),
	)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	// rows == 0 → nothing matched (either not found or status moved on)
	return rows > 0, nil
}

func (r *MySQLOrderRepo) ListRecent(ctx context.Context, limit int) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*domain.Order, error) {
	var (
		o              domain.Order
		userRef, payer sql.NullString
		items          []byte
		status         string
	)
	err := s.Scan(&o.OrderNumber, &o.CheckoutReference, &userRef, &items, &o.Total,
		&o.Payment.Method, &o.Payment.TransactionID, &o.Payment.Status, &payer,
		&status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, usecase.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items of %s: %w", o.OrderNumber, err)
	}
	o.UserRef = userRef.String
	o.Payment.PayerPhone = payer.String
	o.Status = domain.Status(status)
	return &o, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ usecase.OrderRepo = (*MySQLOrderRepo)(nil)
