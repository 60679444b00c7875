package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/goldshop/checkout/internal/domain/discount"
	domainErrors "github.com/goldshop/checkout/internal/domain/errors"
	"github.com/goldshop/checkout/internal/domain/order"
	"github.com/goldshop/checkout/internal/domain/outbox"
	"github.com/goldshop/checkout/internal/geo"
)

// --- Order Repository Mock ---

// MockOrderRepository is a mock implementation of order.Repository.
type MockOrderRepository struct {
	mu       sync.Mutex
	orders   map[uuid.UUID]*order.Order
	byNumber map[string]*order.Order
	history  map[uuid.UUID][]*order.StatusHistory

	CreateFunc           func(ctx context.Context, o *order.Order) error
	GetByIDFunc          func(ctx context.Context, id uuid.UUID) (*order.Order, error)
	GetByNumberFunc      func(ctx context.Context, number string) (*order.Order, error)
	UpdateFunc           func(ctx context.Context, o *order.Order) error
	AddStatusHistoryFunc func(ctx context.Context, h *order.StatusHistory) error
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders:   make(map[uuid.UUID]*order.Order),
		byNumber: make(map[string]*order.Order),
		history:  make(map[uuid.UUID][]*order.StatusHistory),
	}
}

// AddOrder pre-populates the mock with an order.
func (m *MockOrderRepository) AddOrder(o *order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	m.byNumber[o.Number] = o
}

func (m *MockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	m.byNumber[o.Number] = o
	return nil
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domainErrors.ErrOrderNotFound
	}
	return o, nil
}

func (m *MockOrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	if m.GetByNumberFunc != nil {
		return m.GetByNumberFunc(ctx, number)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byNumber[number]
	if !ok {
		return nil, domainErrors.ErrOrderNotFound
	}
	return o, nil
}

func (m *MockOrderRepository) Update(ctx context.Context, o *order.Order) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	return nil
}

func (m *MockOrderRepository) AddStatusHistory(ctx context.Context, h *order.StatusHistory) error {
	if m.AddStatusHistoryFunc != nil {
		return m.AddStatusHistoryFunc(ctx, h)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[h.OrderID] = append(m.history[h.OrderID], h)
	return nil
}

// StatusHistory returns the recorded audit rows (test helper).
func (m *MockOrderRepository) StatusHistory(orderID uuid.UUID) []*order.StatusHistory {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history[orderID]
}

// GetOrderByID returns the stored order (test helper, no context needed).
func (m *MockOrderRepository) GetOrderByID(id uuid.UUID) *order.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id]
}

// --- Discount Repository Mock ---

// MockDiscountRepository is a mock implementation of discount.Repository.
type MockDiscountRepository struct {
	mu    sync.Mutex
	codes map[string]*discount.Code
	links map[string]struct{}

	GetByCodeFunc   func(ctx context.Context, code string) (*discount.Code, error)
	LinkToOrderFunc func(ctx context.Context, discountID, orderID uuid.UUID) error
}

func NewMockDiscountRepository() *MockDiscountRepository {
	return &MockDiscountRepository{
		codes: make(map[string]*discount.Code),
		links: make(map[string]struct{}),
	}
}

// AddCode pre-populates the mock with a discount code.
func (m *MockDiscountRepository) AddCode(c *discount.Code) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[c.Code] = c
}

func (m *MockDiscountRepository) GetByCode(ctx context.Context, code string) (*discount.Code, error) {
	if m.GetByCodeFunc != nil {
		return m.GetByCodeFunc(ctx, code)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[code]
	if !ok {
		return nil, domainErrors.ErrDiscountNotFound
	}
	return c, nil
}

func (m *MockDiscountRepository) LinkToOrder(ctx context.Context, discountID, orderID uuid.UUID) error {
	if m.LinkToOrderFunc != nil {
		return m.LinkToOrderFunc(ctx, discountID, orderID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[discountID.String()+":"+orderID.String()] = struct{}{}
	return nil
}

// LinkCount returns the number of distinct link rows (test helper).
func (m *MockDiscountRepository) LinkCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.links)
}

// --- Blacklist Mock ---

// MockBlacklist is a mock implementation of service.BlacklistRepository.
type MockBlacklist struct {
	mu      sync.Mutex
	entries []uuid.UUID

	AddOrderFunc func(ctx context.Context, o *order.Order, reason string) error
}

func (m *MockBlacklist) AddOrder(ctx context.Context, o *order.Order, reason string) error {
	if m.AddOrderFunc != nil {
		return m.AddOrderFunc(ctx, o, reason)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, o.ID)
	return nil
}

// Entries returns the blacklisted order ids (test helper).
func (m *MockBlacklist) Entries() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries
}

// --- Transaction Manager Mock ---

// MockTransactionManager is a mock implementation of service.TransactionManager.
type MockTransactionManager struct {
	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// --- Locker Mock ---

// MockLocker is a mock implementation of service.Locker. The default
// behavior runs fn under a process-local mutex per key.
type MockLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex

	WithLockFunc func(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

func NewMockLocker() *MockLocker {
	return &MockLocker{locks: make(map[string]*sync.Mutex)}
}

func (m *MockLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if m.WithLockFunc != nil {
		return m.WithLockFunc(ctx, key, fn)
	}
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	m.mu.Unlock()
	l.Lock()
	defer l.Unlock()
	return fn(ctx)
}

// --- Geo Resolver Mock ---

// MockGeoResolver is a mock implementation of geo.Resolver.
type MockGeoResolver struct {
	Location *geo.Location
	Err      error
}

func (m *MockGeoResolver) Resolve(ctx context.Context, ip string) (*geo.Location, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Location != nil {
		return m.Location, nil
	}
	return &geo.Location{}, nil
}

// --- Number Source Mock ---

// FixedNumberSource issues deterministic order numbers.
type FixedNumberSource struct {
	mu      sync.Mutex
	counter int

	Err error
}

func (s *FixedNumberSource) Next() (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	return fmt.Sprintf("ORD%04d", s.counter), nil
}

// --- Outbox Repository Mock ---

// MockOutboxRepository is a mock implementation of outbox.Repository.
type MockOutboxRepository struct {
	mu      sync.Mutex
	entries []*outbox.Entry

	InsertFunc        func(ctx context.Context, entry *outbox.Entry) error
	GetPendingFunc    func(ctx context.Context, limit int) ([]*outbox.Entry, error)
	MarkPublishedFunc func(ctx context.Context, id uuid.UUID) error
	MarkFailedFunc    func(ctx context.Context, id uuid.UUID) error
}

func (m *MockOutboxRepository) Insert(ctx context.Context, entry *outbox.Entry) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Entry, error) {
	if m.GetPendingFunc != nil {
		return m.GetPendingFunc(ctx, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	if m.MarkPublishedFunc != nil {
		return m.MarkPublishedFunc(ctx, id)
	}
	return nil
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, id)
	}
	return nil
}

// Entries returns the inserted outbox entries (test helper).
func (m *MockOutboxRepository) Entries() []*outbox.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries
}
