package usecase

import (
	"context"
	"time"

	domain "github.com/BotCoder254/projects254/internal/entity"
	"github.com/shopspring/decimal"
)

// CartStore holds the lines of one session's cart.
type CartStore interface {
	Add(ctx context.Context, sessionID string, item domain.CartItem) error
	Remove(ctx context.Context, sessionID, itemID string) error
	SetQuantity(ctx context.Context, sessionID, itemID string, qty int) error
	Get(ctx context.Context, sessionID string) ([]domain.CartItem, error)
	Replace(ctx context.Context, sessionID string, items []domain.CartItem) error
	Clear(ctx context.Context, sessionID string) error
}

type PushAccepted struct {
	CheckoutRequestID string
	MerchantRequestID string
	CustomerMessage   string
	Phone             string
}

// PaymentGateway is the push-payment provider. QueryStatus must be a pure read.
type PaymentGateway interface {
	InitiatePayment(ctx context.Context, phone string, amount decimal.Decimal, accountRef string) (PushAccepted, error)
	QueryStatus(ctx context.Context, checkoutRef string) (domain.PaymentResult, error)
}

type OrderRepo interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	GetByCheckoutReference(ctx context.Context, ref string) (*domain.Order, error)
	UpdateStatusIf(ctx context.Context, number string, from, to domain.Status) (bool, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Order, error)
}

type StatsRepo interface {
	DashboardStats(ctx context.Context) (domain.DashboardStats, error)
}

type MenuRepo interface {
	ListMenu(ctx context.Context) ([]domain.MenuItem, error)
}

// UnmatchedPayment is a confirmed payment with no order behind it.
type UnmatchedPayment struct {
	CheckoutReference string
	TransactionID     string
	Phone             string
	Amount            decimal.Decimal
	Reason            string
}

// ReconciliationRepo keeps at most one record per checkout reference.
// InsertUnmatchedPayment reports false when the reference was already queued.
type ReconciliationRepo interface {
	InsertUnmatchedPayment(ctx context.Context, p UnmatchedPayment) (bool, error)
}

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

// PendingCheckout binds a checkout reference to the session that started it.
type PendingCheckout struct {
	CheckoutReference string          `json:"checkout_reference"`
	MerchantRequestID string          `json:"merchant_request_id"`
	SessionID         string          `json:"session_id"`
	UserRef           string          `json:"user_ref,omitempty"`
	Phone             string          `json:"phone"`
	Amount            decimal.Decimal `json:"amount"`
	CreatedAt         time.Time       `json:"created_at"`
}

// CallbackResult is what the provider pushed to our callback URL.
type CallbackResult struct {
	CheckoutReference string `json:"checkout_reference"`
	MerchantRequestID string `json:"merchant_request_id"`
	ResultCode        string `json:"result_code"`
	ResultDesc        string `json:"result_desc"`
	ReceiptNumber     string `json:"receipt_number,omitempty"`
	Phone             string `json:"phone,omitempty"`
	Amount            string `json:"amount,omitempty"`
}

type CheckoutStore interface {
	SavePending(ctx context.Context, p PendingCheckout) error
	GetPending(ctx context.Context, ref string) (*PendingCheckout, error)
	SaveCallback(ctx context.Context, cb CallbackResult) error
	GetCallback(ctx context.Context, ref string) (*CallbackResult, error)
}

// Notifier delivers admin events. Callers never fail on its errors.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
}

// Recorder receives domain counters.
type Recorder interface {
	PaymentInitiated(outcome string)
	PaymentQueried(state domain.PaymentState)
	OrderCreated()
	MaterializationFailed()
}

type nopRecorder struct{}

func (nopRecorder) PaymentInitiated(string)            {}
func (nopRecorder) PaymentQueried(domain.PaymentState) {}
func (nopRecorder) OrderCreated()                      {}
func (nopRecorder) MaterializationFailed()             {}
