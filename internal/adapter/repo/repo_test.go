package repo

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/BotCoder254/projects254/internal/entity"
	"github.com/BotCoder254/projects254/internal/usecase"
)

var created = time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func sampleOrder(t *testing.T) *domain.Order {
	t.Helper()
	o, err := domain.NewOrder("ORD-20240309-0A1B2C3D", "ws_CO_1", "", []domain.CartItem{
		{ID: "a", Name: "Pizza", UnitPrice: decimal.RequireFromString("10.00"), Quantity: 2},
		{ID: "b", Name: "Soda", UnitPrice: decimal.RequireFromString("5.50"), Quantity: 1},
	}, domain.Payment{Method: "mpesa", TransactionID: "ABC123", Status: "completed", PayerPhone: "254712345678"}, created)
	require.NoError(t, err)
	return o
}

func TestCreate(t *testing.T) {
	db, mock := newMock(t)
	o := sampleOrder(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders (")).
		WithArgs(o.OrderNumber, "ws_CO_1", nil, sqlmock.AnyArg(), "25.50",
			"mpesa", "ABC123", "completed", "254712345678", "confirmed", created, created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewMySQLOrderRepo(db).Create(context.Background(), o))
}

func TestCreate_DuplicateKeys(t *testing.T) {
	tests := []struct {
		msg  string
		want error
	}{
		{"Duplicate entry 'ws_CO_1' for key 'orders.uq_orders_checkout_reference'", usecase.ErrDuplicate},
		{"Duplicate entry 'ORD-1' for key 'orders.PRIMARY'", usecase.ErrDuplicateNumber},
	}
	for _, tt := range tests {
		db, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders (")).
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: tt.msg})

		err := NewMySQLOrderRepo(db).Create(context.Background(), sampleOrder(t))
		assert.ErrorIs(t, err, tt.want)
	}
}

var cols = []string{"order_number", "checkout_reference", "user_ref", "items_json", "total", "payment_method",
	"transaction_id", "payment_status", "payer_phone", "status", "created_at", "updated_at"}

func TestGetByNumber(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE order_number=?")).
		WithArgs("ORD-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"ORD-1", "ws_CO_1", nil, []byte(`[{"id":"a","name":"Pizza","price":"10.00","quantity":2},{"id":"b","name":"Soda","price":"5.50","quantity":1}]`),
			"25.50", "mpesa", "ABC123", "completed", "254712345678", "preparing", created, created))

	o, err := NewMySQLOrderRepo(db).GetByNumber(context.Background(), "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPreparing, o.Status)
	assert.Empty(t, o.UserRef)
	require.Len(t, o.Items, 2)
	assert.True(t, o.Total.Equal(domain.CartTotal(o.Items)))
	assert.Equal(t, "254712345678", o.Payment.PayerPhone)
}

func TestGetByCheckoutReference_NotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE checkout_reference=?")).
		WithArgs("ws_CO_9").
		WillReturnRows(sqlmock.NewRows(cols))

	_, err := NewMySQLOrderRepo(db).GetByCheckoutReference(context.Background(), "ws_CO_9")
	assert.ErrorIs(t, err, usecase.ErrNotFound)
}

func TestUpdateStatusIf(t *testing.T) {
	db, mock := newMock(t)
	r := NewMySQLOrderRepo(db)
	q := regexp.QuoteMeta("WHERE order_number = ? AND status = ?")

	mock.ExpectExec(q).WithArgs("preparing", "ORD-1", "confirmed").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("preparing", "ORD-1", "confirmed").WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := r.UpdateStatusIf(context.Background(), "ORD-1", domain.StatusConfirmed, domain.StatusPreparing)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.UpdateStatusIf(context.Background(), "ORD-1", domain.StatusConfirmed, domain.StatusPreparing)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListRecent(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT ?")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("ORD-2", "ws_2", "u-1", []byte(`[{"id":"a","name":"A","price":"1","quantity":1}]`), "1.00", "mpesa", "T2", "completed", nil, "confirmed", created, created).
			AddRow("ORD-1", "ws_1", nil, []byte(`[{"id":"a","name":"A","price":"1","quantity":2}]`), "2.00", "mpesa", "T1", "completed", nil, "delivered", created, created))

	list, err := NewMySQLOrderRepo(db).ListRecent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "u-1", list[0].UserRef)
	assert.Equal(t, domain.StatusDelivered, list[1].Status)
}

func TestDashboardStats(t *testing.T) {
	db, mock := newMock(t)
	r := NewMySQLStatsRepo(db)
	r.now = func() time.Time { return created }

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders")).
		WillReturnRows(sqlmock.NewRows([]string{"n", "active", "revenue"}).AddRow(7, "3", "412.50"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE last_login >= ?")).
		WithArgs(created.Add(-30 * 24 * time.Hour)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(4))
	mock.ExpectQuery(regexp.QuoteMeta("FROM menu_items")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(12))

	st, err := r.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), st.TotalOrders)
	assert.Equal(t, int64(3), st.ActiveOrders)
	assert.Equal(t, "412.5", st.TotalRevenue.String())
	assert.Equal(t, int64(4), st.ActiveUsers)
	assert.Equal(t, int64(12), st.MenuItems)
}

func TestInsertUnmatchedPayment(t *testing.T) {
	db, mock := newMock(t)
	insert := regexp.QuoteMeta("INSERT INTO unmatched_payments") + "(?s).*" +
		regexp.QuoteMeta("ON DUPLICATE KEY UPDATE checkout_reference = checkout_reference")
	mock.ExpectExec(insert).
		WithArgs("ws_CO_1", "ABC123", "254712345678", "25.50", "order insert failed").
		WillReturnResult(sqlmock.NewResult(1, 1))
	// second attempt for the same reference hits the unique key
	mock.ExpectExec(insert).
		WithArgs("ws_CO_1", "ABC123", "254712345678", "25.50", "cart empty at completion").
		WillReturnResult(sqlmock.NewResult(0, 0))

	r := NewMySQLReconciliationRepo(db)
	p := usecase.UnmatchedPayment{
		CheckoutReference: "ws_CO_1",
		TransactionID:     "ABC123",
		Phone:             "254712345678",
		Amount:            decimal.RequireFromString("25.5"),
		Reason:            "order insert failed",
	}
	inserted, err := r.InsertUnmatchedPayment(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, inserted)

	p.Reason = "cart empty at completion"
	inserted, err = r.InsertUnmatchedPayment(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestInsertUnmatchedPayment_ExecError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO unmatched_payments")).
		WillReturnError(errors.New("connection reset"))

	inserted, err := NewMySQLReconciliationRepo(db).InsertUnmatchedPayment(context.Background(), usecase.UnmatchedPayment{
		CheckoutReference: "ws_CO_1",
		Amount:            decimal.RequireFromString("1"),
	})
	require.Error(t, err)
	assert.False(t, inserted)
}

func TestEnsureSchema(t *testing.T) {
	db, mock := newMock(t)
	for _, table := range []string{"orders", "unmatched_payments", "users", "menu_items"} {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS " + table + " (")).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, EnsureSchema(context.Background(), db))
}

func TestListMenu(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id,name,price FROM menu_items")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price"}).
			AddRow("m1", "Pilau", "350.00").
			AddRow("m2", "Samosa", "50.00"))

	items, err := NewMySQLMenuRepo(db).ListMenu(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Pilau", items[0].Name)
	assert.Equal(t, "350", items[0].Price.String())
}
