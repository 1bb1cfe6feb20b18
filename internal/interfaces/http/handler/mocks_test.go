package handler

import (
	"context"

	"github.com/erp/purchasing/internal/application/event"
	inventoryapp "github.com/erp/purchasing/internal/application/inventory"
	appprocurement "github.com/erp/purchasing/internal/application/procurement"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockPurchaseOrderService struct {
	mock.Mock
}

func (m *MockPurchaseOrderService) order(args mock.Arguments) (*appprocurement.PurchaseOrderResponse, error) {
	if v := args.Get(0); v != nil {
		return v.(*appprocurement.PurchaseOrderResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPurchaseOrderService) result(args mock.Arguments) (*appprocurement.FulfillmentResultResponse, error) {
	if v := args.Get(0); v != nil {
		return v.(*appprocurement.FulfillmentResultResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPurchaseOrderService) CreateOrder(ctx context.Context, req appprocurement.CreatePurchaseOrderRequest) (*appprocurement.PurchaseOrderResponse, error) {
	return m.order(m.Called(ctx, req))
}

func (m *MockPurchaseOrderService) UpdateDraftLines(ctx context.Context, orderID uuid.UUID, req appprocurement.UpdateLinesRequest) (*appprocurement.PurchaseOrderResponse, error) {
	return m.order(m.Called(ctx, orderID, req))
}

func (m *MockPurchaseOrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*appprocurement.PurchaseOrderResponse, error) {
	return m.order(m.Called(ctx, orderID))
}

func (m *MockPurchaseOrderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*appprocurement.PurchaseOrderResponse, error) {
	return m.order(m.Called(ctx, orderNumber))
}

func (m *MockPurchaseOrderService) ListOrders(ctx context.Context, filter appprocurement.PurchaseOrderListFilter) (*shared.Paginated[appprocurement.PurchaseOrderListItemResponse], error) {
	args := m.Called(ctx, filter)
	if v := args.Get(0); v != nil {
		return v.(*shared.Paginated[appprocurement.PurchaseOrderListItemResponse]), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPurchaseOrderService) SubmitOrder(ctx context.Context, orderID uuid.UUID) (*appprocurement.PurchaseOrderResponse, error) {
	return m.order(m.Called(ctx, orderID))
}

func (m *MockPurchaseOrderService) SendOrder(ctx context.Context, orderID uuid.UUID) (*appprocurement.PurchaseOrderResponse, error) {
	return m.order(m.Called(ctx, orderID))
}

func (m *MockPurchaseOrderService) CancelOrder(ctx context.Context, orderID uuid.UUID, req appprocurement.CancelPurchaseOrderRequest) (*appprocurement.PurchaseOrderResponse, error) {
	return m.order(m.Called(ctx, orderID, req))
}

func (m *MockPurchaseOrderService) ConfirmOrder(ctx context.Context, orderID uuid.UUID, req appprocurement.ConfirmPurchaseOrderRequest) (*appprocurement.FulfillmentResultResponse, error) {
	return m.result(m.Called(ctx, orderID, req))
}

func (m *MockPurchaseOrderService) ReceiveItems(ctx context.Context, orderID uuid.UUID, req appprocurement.ReceiveItemsRequest) (*appprocurement.FulfillmentResultResponse, error) {
	return m.result(m.Called(ctx, orderID, req))
}

func (m *MockPurchaseOrderService) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *MockPurchaseOrderService) ListAdjustments(ctx context.Context, orderID uuid.UUID) ([]appprocurement.StockAdjustmentResponse, error) {
	args := m.Called(ctx, orderID)
	if v := args.Get(0); v != nil {
		return v.([]appprocurement.StockAdjustmentResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPurchaseOrderService) RetryAdjustments(ctx context.Context, orderID uuid.UUID) (*appprocurement.AdjustmentRetryResponse, error) {
	args := m.Called(ctx, orderID)
	if v := args.Get(0); v != nil {
		return v.(*appprocurement.AdjustmentRetryResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) RenderOrderPDF(ctx context.Context, orderID uuid.UUID) (*appprocurement.RenderedDocument, error) {
	args := m.Called(ctx, orderID)
	if v := args.Get(0); v != nil {
		return v.(*appprocurement.RenderedDocument), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentService) ExportOrder(ctx context.Context, orderID uuid.UUID) (*appprocurement.RenderedDocument, error) {
	args := m.Called(ctx, orderID)
	if v := args.Get(0); v != nil {
		return v.(*appprocurement.RenderedDocument), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockStockQuery struct {
	mock.Mock
}

func (m *MockStockQuery) GetStockLevel(ctx context.Context, productID uuid.UUID, limit int) (*inventoryapp.StockLevelResponse, error) {
	args := m.Called(ctx, productID, limit)
	if v := args.Get(0); v != nil {
		return v.(*inventoryapp.StockLevelResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockOutboxAdmin struct {
	mock.Mock
}

func (m *MockOutboxAdmin) ListDeadLetters(ctx context.Context, page, pageSize int) (shared.Paginated[event.OutboxEntryDTO], error) {
	args := m.Called(ctx, page, pageSize)
	return args.Get(0).(shared.Paginated[event.OutboxEntryDTO]), args.Error(1)
}

func (m *MockOutboxAdmin) RetryDeadLetter(ctx context.Context, id uuid.UUID) (*event.OutboxEntryDTO, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*event.OutboxEntryDTO), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOutboxAdmin) RetryAllDeadLetters(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOutboxAdmin) GetStats(ctx context.Context) (*event.OutboxStatsDTO, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*event.OutboxStatsDTO), args.Error(1)
	}
	return nil, args.Error(1)
}
