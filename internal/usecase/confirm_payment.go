package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/BotCoder254/projects254/internal/entity"
	"github.com/BotCoder254/projects254/internal/logging"
)

const (
	idemScope         = "checkout"
	reconciledScope   = "checkout-reconciled"
	maxNumberAttempts = 3
)

// errPaidWithoutOrder is joined with ErrPersistence for every poll of a
// payment that went to manual reconciliation.
var errPaidWithoutOrder = errors.New("payment queued for manual reconciliation")

type ConfirmPaymentInput struct {
	SessionID         string
	CheckoutReference string
}

type ConfirmPaymentOutput struct {
	Result        domain.PaymentResult
	OrderNumber   string
	TransactionID string
}

// ConfirmPayment answers one client poll. The first Completed observation for
// a checkout reference turns the session cart into an order; every later poll
// for the same reference returns that order.
type ConfirmPayment struct {
	gw       PaymentGateway
	checkout CheckoutStore
	carts    CartStore
	orders   OrderRepo
	recon    ReconciliationRepo
	idem     IdempotencyStore
	notifier Notifier
	rec      Recorder

	now       func() time.Time
	newNumber func(time.Time) string
}

func NewConfirmPayment(
	gw PaymentGateway,
	checkout CheckoutStore,
	carts CartStore,
	orders OrderRepo,
	recon ReconciliationRepo,
	idem IdempotencyStore,
	notifier Notifier,
	rec Recorder,
) *ConfirmPayment {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &ConfirmPayment{
		gw:        gw,
		checkout:  checkout,
		carts:     carts,
		orders:    orders,
		recon:     recon,
		idem:      idem,
		notifier:  notifier,
		rec:       rec,
		now:       time.Now,
		newNumber: NewOrderNumber,
	}
}

func (uc *ConfirmPayment) Execute(ctx context.Context, in ConfirmPaymentInput) (ConfirmPaymentOutput, error) {
	ref := strings.TrimSpace(in.CheckoutReference)
	if ref == "" {
		return ConfirmPaymentOutput{}, validationf("checkoutRequestId required")
	}
	if err := requireSession(in.SessionID); err != nil {
		return ConfirmPaymentOutput{}, err
	}

	pending, err := uc.checkout.GetPending(ctx, ref)
	if err != nil {
		return ConfirmPaymentOutput{}, err
	}
	// A reference started by another session is indistinguishable from an
	// unknown one.
	if pending.SessionID != in.SessionID {
		return ConfirmPaymentOutput{}, ErrNotFound
	}

	if o, ok := uc.recalled(ctx, ref); ok {
		return completedFor(o), nil
	}
	if uc.reconciled(ctx, ref) {
		return ConfirmPaymentOutput{Result: domain.PaymentResult{
			State:      domain.PaymentCompleted,
			ResultCode: "0",
		}}, errors.Join(ErrPersistence, errPaidWithoutOrder)
	}

	res, err := uc.gw.QueryStatus(ctx, ref)
	if err != nil {
		res = domain.PaymentResult{State: domain.PaymentFailed, Reason: err.Error()}
	}
	uc.rec.PaymentQueried(res.State)
	if res.State != domain.PaymentCompleted {
		return ConfirmPaymentOutput{Result: res}, nil
	}

	o, err := uc.materialize(ctx, pending, res)
	switch {
	case errors.Is(err, ErrInFlight):
		return ConfirmPaymentOutput{Result: domain.PaymentResult{
			State:      domain.PaymentPending,
			ResultDesc: "Order creation in progress",
		}}, nil
	case err != nil:
		return ConfirmPaymentOutput{Result: res}, err
	}
	out := completedFor(o)
	out.Result.ResultCode = res.ResultCode
	out.Result.ResultDesc = res.ResultDesc
	return out, nil
}

func (uc *ConfirmPayment) recalled(ctx context.Context, ref string) (*domain.Order, bool) {
	number, ok, err := uc.idem.Recall(ctx, idemScope, ref)
	if err != nil {
		logging.FromCtx(ctx).Warn("idempotency recall failed", "checkout_ref", ref, "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	o, err := uc.orders.GetByNumber(ctx, number)
	if err != nil {
		logging.FromCtx(ctx).Warn("recalled order not loadable", "checkout_ref", ref, "order_number", number, "err", err)
		return nil, false
	}
	return o, true
}

// reconciled reports whether ref already went to manual reconciliation.
func (uc *ConfirmPayment) reconciled(ctx context.Context, ref string) bool {
	_, ok, err := uc.idem.Recall(ctx, reconciledScope, ref)
	if err != nil {
		logging.FromCtx(ctx).Warn("reconciliation marker unavailable", "checkout_ref", ref, "err", err)
		return false
	}
	return ok
}

func (uc *ConfirmPayment) materialize(ctx context.Context, p *PendingCheckout, res domain.PaymentResult) (*domain.Order, error) {
	log := logging.FromCtx(ctx).With("checkout_ref", p.CheckoutReference)

	locked, err := uc.idem.TryLock(ctx, idemScope, p.CheckoutReference)
	if err != nil {
		// The unique key on checkout_reference still holds without the lock.
		log.Warn("idempotency lock unavailable", "err", err)
	} else if !locked {
		return nil, ErrInFlight
	}
	if locked {
		defer func() {
			if err := uc.idem.Release(context.WithoutCancel(ctx), idemScope, p.CheckoutReference); err != nil {
				log.Warn("idempotency release failed", "err", err)
			}
		}()
	}

	existing, err := uc.orders.GetByCheckoutReference(ctx, p.CheckoutReference)
	switch {
	case err == nil:
		uc.remember(ctx, p.CheckoutReference, existing.OrderNumber)
		return existing, nil
	case !errors.Is(err, ErrNotFound):
		log.Warn("existing order lookup failed", "err", err)
	}

	txnID := uc.transactionID(ctx, p.CheckoutReference, res)
	phone := res.PayerPhone
	if phone == "" {
		phone = p.Phone
	}

	items, err := uc.carts.Get(ctx, p.SessionID)
	if err != nil {
		return nil, uc.reconcile(ctx, p, txnID, phone, "cart read failed: "+err.Error())
	}
	if len(items) == 0 {
		return nil, uc.reconcile(ctx, p, txnID, phone, "cart empty at completion")
	}
	if total := domain.CartTotal(items); !total.Round(2).Equal(p.Amount.Round(2)) {
		log.Warn("cart changed after payment was initiated",
			"paid", p.Amount.StringFixed(2), "cart_total", total.StringFixed(2))
	}

	payment := domain.Payment{
		Method:        domain.PaymentMethodMpesa,
		TransactionID: txnID,
		Status:        string(domain.PaymentCompleted),
		PayerPhone:    phone,
	}

	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		now := uc.now().UTC()
		o, err := domain.NewOrder(uc.newNumber(now), p.CheckoutReference, p.UserRef, items, payment, now)
		if err != nil {
			return nil, uc.reconcile(ctx, p, txnID, phone, "order invalid: "+err.Error())
		}
		err = uc.orders.Create(ctx, o)
		switch {
		case err == nil:
			uc.remember(ctx, p.CheckoutReference, o.OrderNumber)
			if err := uc.carts.Clear(ctx, p.SessionID); err != nil {
				log.Warn("cart clear failed", "order_number", o.OrderNumber, "err", err)
			}
			uc.rec.OrderCreated()
			log.Info("order created", "order_number", o.OrderNumber, "total", o.Total.StringFixed(2))
			notify(ctx, uc.notifier, EventNewOrder, NewOrderMsg{
				OrderNumber: o.OrderNumber,
				Total:       o.Total.StringFixed(2),
				Status:      string(o.Status),
				CreatedAt:   o.CreatedAt,
			})
			return o, nil
		case errors.Is(err, ErrDuplicateNumber):
			log.Warn("order number collision", "order_number", o.OrderNumber, "attempt", attempt)
			continue
		case errors.Is(err, ErrDuplicate):
			prior, gerr := uc.orders.GetByCheckoutReference(ctx, p.CheckoutReference)
			if gerr != nil {
				return nil, errors.Join(ErrPersistence, gerr)
			}
			uc.remember(ctx, p.CheckoutReference, prior.OrderNumber)
			return prior, nil
		default:
			return nil, uc.reconcile(ctx, p, txnID, phone, "order insert failed: "+err.Error())
		}
	}
	return nil, uc.reconcile(ctx, p, txnID, phone, "order number attempts exhausted")
}

// transactionID prefers the query response, then the recorded callback, then
// the checkout reference itself.
func (uc *ConfirmPayment) transactionID(ctx context.Context, ref string, res domain.PaymentResult) string {
	if res.TransactionID != "" {
		return res.TransactionID
	}
	cb, err := uc.checkout.GetCallback(ctx, ref)
	if err == nil && cb.ReceiptNumber != "" {
		return cb.ReceiptNumber
	}
	return ref
}

func (uc *ConfirmPayment) remember(ctx context.Context, ref, number string) {
	if err := uc.idem.Remember(ctx, idemScope, ref, number); err != nil {
		logging.FromCtx(ctx).Warn("idempotency remember failed", "checkout_ref", ref, "err", err)
	}
}

// reconcile records a payment the customer completed but no order backs. The
// ERROR line and the reconciliation row are written once per reference; later
// polls are answered from the marker without asking the gateway again.
func (uc *ConfirmPayment) reconcile(ctx context.Context, p *PendingCheckout, txnID, phone, reason string) error {
	log := logging.FromCtx(ctx).With("checkout_ref", p.CheckoutReference)

	queued := true
	if uc.recon != nil {
		inserted, err := uc.recon.InsertUnmatchedPayment(context.WithoutCancel(ctx), UnmatchedPayment{
			CheckoutReference: p.CheckoutReference,
			TransactionID:     txnID,
			Phone:             phone,
			Amount:            p.Amount,
			Reason:            reason,
		})
		switch {
		case err != nil:
			// no durable record: keep the marker unset so the next poll retries
			queued = false
			log.Error("reconciliation insert failed", "err", err)
		case !inserted:
			log.Warn("payment already queued for reconciliation", "reason", reason)
			uc.markReconciled(ctx, p.CheckoutReference, reason)
			return errors.Join(ErrPersistence, errPaidWithoutOrder)
		}
	}

	uc.rec.MaterializationFailed()
	log.Error("paid_without_order",
		"transaction_id", txnID,
		"phone", phone,
		"amount", p.Amount.StringFixed(2),
		"reason", reason,
	)
	if queued {
		uc.markReconciled(ctx, p.CheckoutReference, reason)
	}
	return errors.Join(ErrPersistence, errors.New(reason))
}

func (uc *ConfirmPayment) markReconciled(ctx context.Context, ref, reason string) {
	if err := uc.idem.Remember(context.WithoutCancel(ctx), reconciledScope, ref, reason); err != nil {
		logging.FromCtx(ctx).Warn("reconciliation marker not stored", "checkout_ref", ref, "err", err)
	}
}

func completedFor(o *domain.Order) ConfirmPaymentOutput {
	return ConfirmPaymentOutput{
		Result: domain.PaymentResult{
			State:         domain.PaymentCompleted,
			TransactionID: o.Payment.TransactionID,
			PayerPhone:    o.Payment.PayerPhone,
			ResultCode:    "0",
		},
		OrderNumber:   o.OrderNumber,
		TransactionID: o.Payment.TransactionID,
	}
}
