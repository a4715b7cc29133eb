package domain

type PaymentState string

const (
	PaymentPending   PaymentState = "pending"
	PaymentCompleted PaymentState = "completed"
	PaymentCancelled PaymentState = "cancelled"
	PaymentFailed    PaymentState = "failed"
)

// PaymentResult is the classified outcome of one status query.
// TransactionID and PayerPhone are set only for PaymentCompleted, Reason only
// for PaymentFailed. ResultCode and ResultDesc echo the provider.
type PaymentResult struct {
	State         PaymentState
	TransactionID string
	PayerPhone    string
	Reason        string
	ResultCode    string
	ResultDesc    string
}

func (r PaymentResult) Terminal() bool {
	return r.State != PaymentPending
}
