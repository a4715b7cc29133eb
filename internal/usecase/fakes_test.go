package usecase

import (
	"context"
	"sort"
	"sync"

	domain "github.com/BotCoder254/projects254/internal/entity"
	"github.com/shopspring/decimal"
)

type memCarts struct {
	mu    sync.Mutex
	lines map[string][]domain.CartItem
}

func newMemCarts() *memCarts { return &memCarts{lines: map[string][]domain.CartItem{}} }

func (m *memCarts) Add(_ context.Context, sid string, item domain.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.lines[sid] {
		if l.ID == item.ID {
			m.lines[sid][i].Quantity += item.Quantity
			return nil
		}
	}
	m.lines[sid] = append(m.lines[sid], item)
	return nil
}

func (m *memCarts) Remove(_ context.Context, sid, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.lines[sid][:0]
	for _, l := range m.lines[sid] {
		if l.ID != id {
			out = append(out, l)
		}
	}
	m.lines[sid] = out
	return nil
}

func (m *memCarts) SetQuantity(_ context.Context, sid, id string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.lines[sid] {
		if l.ID == id {
			m.lines[sid][i].Quantity = qty
			return nil
		}
	}
	return ErrNotFound
}

func (m *memCarts) Get(_ context.Context, sid string) ([]domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CartItem(nil), m.lines[sid]...), nil
}

func (m *memCarts) Replace(_ context.Context, sid string, items []domain.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines[sid] = append([]domain.CartItem(nil), items...)
	return nil
}

func (m *memCarts) Clear(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lines, sid)
	return nil
}

// scriptedGateway replays query results in order and repeats the last one.
type scriptedGateway struct {
	mu       sync.Mutex
	results  []domain.PaymentResult
	queries  int
	initErr  error
	accepted PushAccepted
}

func (g *scriptedGateway) InitiatePayment(_ context.Context, phone string, _ decimal.Decimal, _ string) (PushAccepted, error) {
	if g.initErr != nil {
		return PushAccepted{}, g.initErr
	}
	a := g.accepted
	a.Phone = phone
	return a, nil
}

func (g *scriptedGateway) QueryStatus(context.Context, string) (domain.PaymentResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.queries
	if i >= len(g.results) {
		i = len(g.results) - 1
	}
	g.queries++
	return g.results[i], nil
}

type memCheckout struct {
	mu        sync.Mutex
	pending   map[string]PendingCheckout
	callbacks map[string]CallbackResult
}

func newMemCheckout() *memCheckout {
	return &memCheckout{pending: map[string]PendingCheckout{}, callbacks: map[string]CallbackResult{}}
}

func (m *memCheckout) SavePending(_ context.Context, p PendingCheckout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[p.CheckoutReference] = p
	return nil
}

func (m *memCheckout) GetPending(_ context.Context, ref string) (*PendingCheckout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[ref]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *memCheckout) SaveCallback(_ context.Context, cb CallbackResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks[cb.CheckoutReference] = cb
	return nil
}

func (m *memCheckout) GetCallback(_ context.Context, ref string) (*CallbackResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cb, ok := m.callbacks[ref]
	if !ok {
		return nil, ErrNotFound
	}
	return &cb, nil
}

// memOrders enforces the same two unique keys as the orders table.
type memOrders struct {
	mu        sync.Mutex
	byNumber  map[string]domain.Order
	createErr error
	creates   int
}

func newMemOrders() *memOrders { return &memOrders{byNumber: map[string]domain.Order{}} }

func (m *memOrders) Create(_ context.Context, o *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.byNumber[o.OrderNumber]; ok {
		return ErrDuplicateNumber
	}
	for _, x := range m.byNumber {
		if x.CheckoutReference == o.CheckoutReference {
			return ErrDuplicate
		}
	}
	m.byNumber[o.OrderNumber] = *o
	return nil
}

func (m *memOrders) GetByNumber(_ context.Context, number string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byNumber[number]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (m *memOrders) GetByCheckoutReference(_ context.Context, ref string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.byNumber {
		if o.CheckoutReference == ref {
			return &o, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memOrders) UpdateStatusIf(_ context.Context, number string, from, to domain.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byNumber[number]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	m.byNumber[number] = o
	return true, nil
}

func (m *memOrders) ListRecent(_ context.Context, limit int) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Order, 0, len(m.byNumber))
	for _, o := range m.byNumber {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber < out[j].OrderNumber })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byNumber)
}

type memIdem struct {
	mu     sync.Mutex
	locks  map[string]bool
	values map[string]string
}

func newMemIdem() *memIdem { return &memIdem{locks: map[string]bool{}, values: map[string]string{}} }

func (m *memIdem) TryLock(_ context.Context, scope, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[scope+key] {
		return false, nil
	}
	m.locks[scope+key] = true
	return true, nil
}

func (m *memIdem) Release(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, scope+key)
	return nil
}

func (m *memIdem) Remember(_ context.Context, scope, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[scope+key] = value
	return nil
}

func (m *memIdem) Recall(_ context.Context, scope, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[scope+key]
	return v, ok, nil
}

type captureNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *captureNotifier) Publish(_ context.Context, ev Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *captureNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Type)
	}
	return out
}

type memRecon struct {
	mu        sync.Mutex
	rows      []UnmatchedPayment
	insertErr error
	attempts  int
}

// InsertUnmatchedPayment keeps one row per checkout reference, like the
// unique key on unmatched_payments.
func (m *memRecon) InsertUnmatchedPayment(_ context.Context, p UnmatchedPayment) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.insertErr != nil {
		return false, m.insertErr
	}
	for _, r := range m.rows {
		if r.CheckoutReference == p.CheckoutReference {
			return false, nil
		}
	}
	m.rows = append(m.rows, p)
	return true, nil
}

type fixedStats struct {
	st domain.DashboardStats
}

func (f fixedStats) DashboardStats(context.Context) (domain.DashboardStats, error) { return f.st, nil }
