package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrPersistence = errors.New("persistence failure")

	// ErrDuplicate is returned by OrderRepo.Create when an order already
	// exists for the checkout reference.
	ErrDuplicate = errors.New("order already recorded for checkout reference")
	// ErrDuplicateNumber is returned by OrderRepo.Create on an order number
	// collision; the caller retries with a fresh number.
	ErrDuplicateNumber = errors.New("order number already taken")
	// ErrInFlight means another poll is materializing the same reference.
	ErrInFlight = errors.New("order creation in progress")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// AuthError is returned when the gateway rejects our client credentials.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("gateway auth failed (status %d): %s", e.StatusCode, e.Message)
}

// PaymentInitiationError carries the provider's reason for refusing a push.
type PaymentInitiationError struct {
	Description string
	Err         error
}

func (e *PaymentInitiationError) Error() string {
	if e.Err != nil {
		return "payment initiation failed: " + e.Description + ": " + e.Err.Error()
	}
	return "payment initiation failed: " + e.Description
}

func (e *PaymentInitiationError) Unwrap() error { return e.Err }
