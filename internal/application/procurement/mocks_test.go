package procurement

import (
	"context"
	"sync"
	"time"

	"github.com/erp/purchasing/internal/domain/procurement"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockPurchaseOrderRepository is a mock implementation of PurchaseOrderRepository
type MockPurchaseOrderRepository struct {
	mock.Mock
}

func (m *MockPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*procurement.PurchaseOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*procurement.PurchaseOrder, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) FindAll(ctx context.Context, filter procurement.OrderFilter) ([]procurement.PurchaseOrder, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]procurement.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) Count(ctx context.Context, filter procurement.OrderFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPurchaseOrderRepository) Save(ctx context.Context, order *procurement.PurchaseOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockPurchaseOrderRepository) SaveWithEvents(ctx context.Context, order *procurement.PurchaseOrder, events []shared.DomainEvent) error {
	args := m.Called(ctx, order, events)
	return args.Error(0)
}

func (m *MockPurchaseOrderRepository) SaveWithLock(ctx context.Context, order *procurement.PurchaseOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockPurchaseOrderRepository) SaveWithLockAndEvents(ctx context.Context, order *procurement.PurchaseOrder, events []shared.DomainEvent) error {
	args := m.Called(ctx, order, events)
	if args.Error(0) == nil {
		// mirror the repository: version bump and adjustments handed to the ledger
		order.IncrementVersion()
		order.ClearPendingAdjustments()
	}
	return args.Error(0)
}

func (m *MockPurchaseOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPurchaseOrderRepository) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	args := m.Called(ctx, orderNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockPurchaseOrderRepository) GenerateOrderNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockStockAdjustmentRepository is a mock implementation of StockAdjustmentRepository
type MockStockAdjustmentRepository struct {
	mock.Mock
}

func (m *MockStockAdjustmentRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]procurement.StockAdjustment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]procurement.StockAdjustment), args.Error(1)
}

func (m *MockStockAdjustmentRepository) FindRetryable(ctx context.Context, before time.Time, limit int) ([]procurement.StockAdjustment, error) {
	args := m.Called(ctx, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]procurement.StockAdjustment), args.Error(1)
}

func (m *MockStockAdjustmentRepository) Update(ctx context.Context, adjustment *procurement.StockAdjustment) error {
	args := m.Called(ctx, adjustment)
	return args.Error(0)
}

func (m *MockStockAdjustmentRepository) CountByStatus(ctx context.Context) (map[procurement.AdjustmentStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[procurement.AdjustmentStatus]int64), args.Error(1)
}

// MockInventoryStore is a mock implementation of inventory.Store
type MockInventoryStore struct {
	mock.Mock
}

func (m *MockInventoryStore) GetStock(ctx context.Context, productID uuid.UUID) (int64, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInventoryStore) AdjustStock(ctx context.Context, productID uuid.UUID, delta int64, reference string) (int64, error) {
	args := m.Called(ctx, productID, delta, reference)
	return args.Get(0).(int64), args.Error(1)
}

// MockNotificationSender is a mock implementation of NotificationSender
type MockNotificationSender struct {
	mock.Mock
}

func (m *MockNotificationSender) SendPurchaseOrder(ctx context.Context, n Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationSender) SendStatusChange(ctx context.Context, n Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockDocumentRenderer is a mock implementation of DocumentRenderer
type MockDocumentRenderer struct {
	mock.Mock
}

func (m *MockDocumentRenderer) Render(ctx context.Context, order *procurement.PurchaseOrder) (*RenderedDocument, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RenderedDocument), args.Error(1)
}

// MockDocumentStore is a mock implementation of DocumentStore
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) Put(ctx context.Context, key string, doc *RenderedDocument) (string, error) {
	args := m.Called(ctx, key, doc)
	return args.String(0), args.Error(1)
}

// memoryIdempotencyStore is a map-backed shared.IdempotencyStore
type memoryIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{keys: make(map[string]bool)}
}

func (s *memoryIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *memoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *memoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

func (s *memoryIdempotencyStore) Close() error { return nil }

var _ shared.IdempotencyStore = (*memoryIdempotencyStore)(nil)
