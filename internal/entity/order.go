package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrUnknownStatus     = errors.New("unknown order status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTotalMismatch     = errors.New("order total does not match line items")
	ErrEmptyOrder        = errors.New("order has no line items")
)

// lifecycle is the forward path every order walks.
var lifecycle = []Status{StatusConfirmed, StatusPreparing, StatusOutForDelivery, StatusDelivered}

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusConfirmed, StatusPreparing, StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", ErrUnknownStatus
}

// Next returns the state that follows s on the delivery path.
func (s Status) Next() (Status, bool) {
	for i, st := range lifecycle {
		if st == s && i+1 < len(lifecycle) {
			return lifecycle[i+1], true
		}
	}
	return "", false
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo allows exactly one step forward, or cancellation before
// the order has left the kitchen.
func (s Status) CanTransitionTo(to Status) bool {
	if to == StatusCancelled {
		return s == StatusConfirmed || s == StatusPreparing
	}
	next, ok := s.Next()
	return ok && next == to
}

// Progress is the percentage shown on the tracking page.
func (s Status) Progress() int {
	switch s {
	case StatusConfirmed:
		return 25
	case StatusPreparing:
		return 50
	case StatusOutForDelivery:
		return 75
	case StatusDelivered:
		return 100
	}
	return 0
}

// Estimate returns the customer-facing delivery window and the offset from
// order creation used for the estimated delivery time.
func (s Status) Estimate() (string, time.Duration) {
	switch s {
	case StatusConfirmed:
		return "45-60 minutes", 60 * time.Minute
	case StatusPreparing:
		return "30-45 minutes", 45 * time.Minute
	case StatusOutForDelivery:
		return "15-20 minutes", 20 * time.Minute
	case StatusCancelled:
		return "Cancelled", 0
	}
	return "Delivered", 0
}

const PaymentMethodMpesa = "mpesa"

type Payment struct {
	Method        string `json:"method"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	PayerPhone    string `json:"payer_phone,omitempty"`
}

type Order struct {
	OrderNumber       string          `json:"order_number"`
	CheckoutReference string          `json:"checkout_reference"`
	UserRef           string          `json:"user_reference,omitempty"`
	Items             []CartItem      `json:"items"`
	Total             decimal.Decimal `json:"total"`
	Payment           Payment         `json:"payment"`
	Status            Status          `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// NewOrder captures a copy of the cart lines and prices the order from them.
func NewOrder(number, checkoutRef, userRef string, items []CartItem, payment Payment, now time.Time) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	lines := make([]CartItem, len(items))
	copy(lines, items)
	o := &Order{
		OrderNumber:       number,
		CheckoutReference: checkoutRef,
		UserRef:           userRef,
		Items:             lines,
		Total:             CartTotal(lines),
		Payment:           payment,
		Status:            StatusConfirmed,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	return o, o.Validate()
}

func (o *Order) Validate() error {
	if len(o.Items) == 0 {
		return ErrEmptyOrder
	}
	for _, it := range o.Items {
		if err := it.Validate(); err != nil {
			return err
		}
	}
	if !o.Total.Equal(CartTotal(o.Items)) {
		return ErrTotalMismatch
	}
	if _, err := ParseStatus(string(o.Status)); err != nil {
		return err
	}
	return nil
}

// DashboardStats is the aggregate pushed to admin sessions.
type DashboardStats struct {
	TotalOrders  int64           `json:"total_orders"`
	ActiveOrders int64           `json:"active_orders"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	ActiveUsers  int64           `json:"active_users"`
	MenuItems    int64           `json:"menu_items"`
}
