package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"foodorder/internal/domain/model"
	"foodorder/internal/event"
	"foodorder/internal/payment"
	repo "foodorder/internal/repository"

	"github.com/stretchr/testify/mock"
)

// =====================
// in-memory store（WithinTx はコピーに対して実行し、成功時だけ反映する）
// =====================

type memState struct {
	orders map[string]model.Order
	carts  map[string]model.CartData
	audits []model.AuditLog
}

func (s memState) clone() memState {
	out := memState{
		orders: make(map[string]model.Order, len(s.orders)),
		carts:  make(map[string]model.CartData, len(s.carts)),
		audits: append([]model.AuditLog(nil), s.audits...),
	}
	for k, v := range s.orders {
		out.orders[k] = v
	}
	for k, v := range s.carts {
		out.carts[k] = v.Clone()
	}
	return out
}

type memStore struct {
	mu    sync.Mutex
	state memState

	// 設定するとその操作が失敗する
	failCreate       error
	failClear        error
	failMarkPaid     error
	failSetSession   error
	failAudit        error
	failDelete error
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		orders: map[string]model.Order{},
		carts:  map[string]model.CartData{},
	}}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&memRepos{store: s, st: &work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *memStore) order(id string) (model.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.state.orders[id]
	return o, ok
}

func (s *memStore) cart(userID string) model.CartData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.carts[userID].Clone()
}

func (s *memStore) audits() []model.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AuditLog(nil), s.state.audits...)
}

func (s *memStore) put(o model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.orders[o.ID] = o
}

func (s *memStore) putCart(userID string, c model.CartData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.carts[userID] = c.Clone()
}

type memRepos struct {
	store *memStore
	st    *memState
}

func (r *memRepos) Orders() repo.OrderRepository       { return memOrders{r} }
func (r *memRepos) Carts() repo.CartRepository         { return memCarts{r} }
func (r *memRepos) AuditLogs() repo.AuditLogRepository { return memAudits{r} }

type memOrders struct{ r *memRepos }

func (m memOrders) Create(_ context.Context, o model.Order) error {
	if m.r.store.failCreate != nil {
		return m.r.store.failCreate
	}
	if _, ok := m.r.st.orders[o.ID]; ok {
		return errors.New("duplicate key")
	}
	m.r.st.orders[o.ID] = o
	return nil
}

func (m memOrders) FindByID(_ context.Context, id string) (model.Order, error) {
	o, ok := m.r.st.orders[id]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (m memOrders) list(match func(model.Order) bool) []model.Order {
	out := []model.Order{}
	for _, o := range m.r.st.orders {
		if match(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m memOrders) ListByUserID(_ context.Context, userID string) ([]model.Order, error) {
	return m.list(func(o model.Order) bool { return o.UserID == userID }), nil
}

func (m memOrders) ListAll(context.Context) ([]model.Order, error) {
	return m.list(func(model.Order) bool { return true }), nil
}

func (m memOrders) MarkPaid(_ context.Context, id string) (bool, error) {
	if m.r.store.failMarkPaid != nil {
		return false, m.r.store.failMarkPaid
	}
	o, ok := m.r.st.orders[id]
	if !ok || o.Payment {
		return false, nil
	}
	o.Payment = true
	m.r.st.orders[id] = o
	return true, nil
}

func (m memOrders) UpdateStatus(_ context.Context, id string, status model.OrderStatus) error {
	o, ok := m.r.st.orders[id]
	if !ok {
		return repo.ErrNotFound
	}
	o.Status = status
	m.r.st.orders[id] = o
	return nil
}

func (m memOrders) SetSessionID(_ context.Context, id, sessionID string) error {
	if m.r.store.failSetSession != nil {
		return m.r.store.failSetSession
	}
	o, ok := m.r.st.orders[id]
	if !ok {
		return repo.ErrNotFound
	}
	o.SessionID = sessionID
	m.r.st.orders[id] = o
	return nil
}

func (m memOrders) DeleteUnpaid(_ context.Context, id string) (bool, error) {
	if m.r.store.failDelete != nil {
		return false, m.r.store.failDelete
	}
	o, ok := m.r.st.orders[id]
	if !ok || o.Payment {
		return false, nil
	}
	delete(m.r.st.orders, id)
	return true, nil
}

func (m memOrders) Delete(_ context.Context, id string) (bool, error) {
	if m.r.store.failDelete != nil {
		return false, m.r.store.failDelete
	}
	if _, ok := m.r.st.orders[id]; !ok {
		return false, nil
	}
	delete(m.r.st.orders, id)
	return true, nil
}

type memCarts struct{ r *memRepos }

func (m memCarts) FindByUserID(_ context.Context, userID string) (model.CartData, error) {
	c, ok := m.r.st.carts[userID]
	if !ok {
		return model.CartData{}, nil
	}
	return c.Clone(), nil
}

func (m memCarts) FindByUserIDForUpdate(ctx context.Context, userID string) (model.CartData, error) {
	return m.FindByUserID(ctx, userID)
}

func (m memCarts) Save(_ context.Context, userID string, c model.CartData) error {
	m.r.st.carts[userID] = c.Clone()
	return nil
}

func (m memCarts) Clear(_ context.Context, userID string) error {
	if m.r.store.failClear != nil {
		return m.r.store.failClear
	}
	if _, ok := m.r.st.carts[userID]; ok {
		m.r.st.carts[userID] = model.CartData{}
	}
	return nil
}

type memAudits struct{ r *memRepos }

func (m memAudits) Create(_ context.Context, l model.AuditLog) error {
	if m.r.store.failAudit != nil {
		return m.r.store.failAudit
	}
	m.r.st.audits = append(m.r.st.audits, l)
	return nil
}

// =====================
// Gateway / Publisher / Metrics
// =====================

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) CreateCheckoutSession(ctx context.Context, req payment.SessionRequest) (payment.Session, error) {
	args := m.Called(ctx, req)
	s, _ := args.Get(0).(payment.Session)
	return s, args.Error(1)
}

func (m *GatewayMock) GetCheckoutSession(ctx context.Context, sessionID string) (payment.Session, error) {
	args := m.Called(ctx, sessionID)
	s, _ := args.Get(0).(payment.Session)
	return s, args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt event.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type countingMetrics struct {
	placed    int
	confirmed map[string]int
	removed   map[string]int
	gateway   map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{confirmed: map[string]int{}, removed: map[string]int{}, gateway: map[string]int{}}
}

func (m *countingMetrics) OrderPlaced()                { m.placed++ }
func (m *countingMetrics) PaymentConfirmed(src string) { m.confirmed[src]++ }
func (m *countingMetrics) OrderRemoved(reason string)  { m.removed[reason]++ }

func (m *countingMetrics) GatewayCall(op string, _ time.Duration, err error) {
	if err != nil {
		op += ":error"
	}
	m.gateway[op]++
}
