package procurement

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/purchasing/internal/domain/procurement"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	orderRepo      *MockPurchaseOrderRepository
	adjustmentRepo *MockStockAdjustmentRepository
	store          *MockInventoryStore
	idempotency    *memoryIdempotencyStore
	service        *FulfillmentService
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		orderRepo:      new(MockPurchaseOrderRepository),
		adjustmentRepo: new(MockStockAdjustmentRepository),
		store:          new(MockInventoryStore),
		idempotency:    newMemoryIdempotencyStore(),
	}
	adjuster := NewInventoryAdjuster(f.store, f.adjustmentRepo, f.idempotency, nil)
	scope := NewNoOpTransactionScope(f.orderRepo, f.adjustmentRepo)
	f.service = NewFulfillmentService(f.orderRepo, f.adjustmentRepo, scope, adjuster, nil)
	return f
}

// pendingOrder is a pending order with a 10-unit and a 5-unit line
func pendingOrder(t *testing.T) *procurement.PurchaseOrder {
	t.Helper()
	order, err := procurement.NewPurchaseOrder("PO-20240301-0001", uuid.New(), "Acme Supplies", "orders@acme.test")
	require.NoError(t, err)
	require.NoError(t, order.ReplaceLines([]procurement.LineInput{
		{ProductID: uuid.New(), ProductName: "Bolt", Quantity: 10, UnitPrice: decimal.RequireFromString("2.50")},
		{ProductID: uuid.New(), ProductName: "Nut", Quantity: 5, UnitPrice: decimal.RequireFromString("4.00")},
	}))
	require.NoError(t, order.Submit())
	order.ClearDomainEvents()
	return order
}

func (f *serviceFixture) expectLoadAndSave(order *procurement.PurchaseOrder) {
	f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.orderRepo.On("SaveWithLockAndEvents", mock.Anything, order, mock.Anything).Return(nil)
}

func TestFulfillmentService_CreateOrder(t *testing.T) {
	f := newServiceFixture()
	f.orderRepo.On("GenerateOrderNumber", mock.Anything).Return("PO-20240301-0007", nil)
	f.orderRepo.On("SaveWithEvents", mock.Anything, mock.AnythingOfType("*procurement.PurchaseOrder"), mock.MatchedBy(func(events []shared.DomainEvent) bool {
		return len(events) == 1 && events[0].EventType() == procurement.EventTypePurchaseOrderCreated
	})).Return(nil)

	resp, err := f.service.CreateOrder(context.Background(), CreatePurchaseOrderRequest{
		SupplierID:   uuid.New(),
		SupplierName: "Acme",
		Lines: []OrderLineRequest{
			{ProductID: uuid.New(), ProductName: "Bolt", Quantity: 4, UnitPrice: decimal.NewFromInt(3)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "PO-20240301-0007", resp.OrderNumber)
	assert.Equal(t, "draft", resp.Status)
	assert.True(t, decimal.NewFromInt(12).Equal(resp.TotalAmount))
	assert.Equal(t, []string{"submit", "cancel"}, resp.AllowedEvents)
	f.orderRepo.AssertExpectations(t)
}

func TestFulfillmentService_CreateOrderRejectsNegativeQuantity(t *testing.T) {
	f := newServiceFixture()
	f.orderRepo.On("GenerateOrderNumber", mock.Anything).Return("PO-20240301-0008", nil)

	_, err := f.service.CreateOrder(context.Background(), CreatePurchaseOrderRequest{
		SupplierID:   uuid.New(),
		SupplierName: "Acme",
		Lines:        []OrderLineRequest{{ProductID: uuid.New(), ProductName: "Bolt", Quantity: -1}},
	})
	assert.True(t, shared.IsDomainError(err, procurement.CodeInvalidQuantity))
	f.orderRepo.AssertNotCalled(t, "SaveWithEvents", mock.Anything, mock.Anything, mock.Anything)
}

func TestFulfillmentService_SubmitOrder(t *testing.T) {
	f := newServiceFixture()
	order, err := procurement.NewPurchaseOrder("PO-1", uuid.New(), "Acme", "")
	require.NoError(t, err)
	_, err = order.AddLine(procurement.LineInput{ProductID: uuid.New(), ProductName: "Bolt", Quantity: 10, UnitPrice: decimal.NewFromInt(1)})
	require.NoError(t, err)
	_, err = order.AddLine(procurement.LineInput{ProductID: uuid.New(), ProductName: "Nut", Quantity: 5, UnitPrice: decimal.NewFromInt(1)})
	require.NoError(t, err)
	order.ClearDomainEvents()
	f.expectLoadAndSave(order)

	resp, err := f.service.SubmitOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", resp.Status)
	f.store.AssertNotCalled(t, "AdjustStock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// Without partial fulfillment every line is received in full.
func TestFulfillmentService_ConfirmFull(t *testing.T) {
	f := newServiceFixture()
	order := pendingOrder(t)
	f.expectLoadAndSave(order)
	f.store.On("AdjustStock", mock.Anything, order.Lines[0].ProductID, int64(10), mock.Anything).Return(int64(10), nil).Once()
	f.store.On("AdjustStock", mock.Anything, order.Lines[1].ProductID, int64(5), mock.Anything).Return(int64(5), nil).Once()
	f.adjustmentRepo.On("Update", mock.Anything, mock.MatchedBy(func(a *procurement.StockAdjustment) bool {
		return a.Status == procurement.AdjustmentApplied
	})).Return(nil).Twice()

	result, err := f.service.ConfirmOrder(context.Background(), order.ID, ConfirmPurchaseOrderRequest{PaymentTerms: "Net 30"})
	require.NoError(t, err)

	assert.Equal(t, "confirmed", result.Order.Status)
	assert.NotNil(t, result.Order.ConfirmedAt)
	assert.Empty(t, result.Failures)
	assert.Empty(t, result.Warnings)
	require.Len(t, result.Adjustments, 2)
	assert.Equal(t, "full", result.Adjustments[0].Mode)
	assert.Equal(t, "applied", result.Adjustments[0].Status)
	assert.True(t, decimal.RequireFromString("45").Equal(result.Order.TotalAmount))
	f.store.AssertExpectations(t)
	f.adjustmentRepo.AssertExpectations(t)
}

func TestFulfillmentService_ConfirmPartial(t *testing.T) {
	f := newServiceFixture()
	order := pendingOrder(t)
	f.expectLoadAndSave(order)
	f.store.On("AdjustStock", mock.Anything, order.Lines[0].ProductID, int64(7), mock.Anything).Return(int64(7), nil).Once()
	f.store.On("AdjustStock", mock.Anything, order.Lines[1].ProductID, int64(5), mock.Anything).Return(int64(5), nil).Once()
	f.adjustmentRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.ConfirmOrder(context.Background(), order.ID, ConfirmPurchaseOrderRequest{
		PaymentTerms:       "Net 30",
		PartialFulfillment: true,
		ReceivedLines: []ReceivedLineInput{
			{LineID: order.Lines[0].ID, ReceivedQuantity: 7},
			{LineID: order.Lines[1].ID, ReceivedQuantity: 5},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "partially_fulfilled", result.Order.Status)
	assert.Equal(t, "partial", result.Order.Lines[0].Outcome)
	assert.Equal(t, "complete", result.Order.Lines[1].Outcome)
	assert.Equal(t, int64(3), result.Order.Lines[0].RemainingQuantity)
	assert.Equal(t, "partial", result.Adjustments[0].Mode)
	f.store.AssertExpectations(t)
}

func TestFulfillmentService_ConfirmWithoutPaymentTerms(t *testing.T) {
	f := newServiceFixture()
	order := pendingOrder(t)

	_, err := f.service.ConfirmOrder(context.Background(), order.ID, ConfirmPurchaseOrderRequest{})
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, shared.CodeValidation, de.Code)
	assert.Equal(t, "payment_terms", de.Details["field"])
	assert.Equal(t, procurement.StatusPending, order.Status)
	f.orderRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestFulfillmentService_CancelConfirmed(t *testing.T) {
	f := newServiceFixture()
	order := pendingOrder(t)
	_, err := order.Confirm(procurement.ConfirmParams{PaymentTerms: "Net 30"})
	require.NoError(t, err)
	f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

	_, err = f.service.CancelOrder(context.Background(), order.ID, CancelPurchaseOrderRequest{Reason: "duplicate"})
	assert.True(t, shared.IsDomainError(err, procurement.CodeIllegalTransition))
	f.orderRepo.AssertNotCalled(t, "SaveWithLockAndEvents", mock.Anything, mock.Anything, mock.Anything)
}

// Quantities above the ordered amount are capped unless excess is allowed.
func TestFulfillmentService_ReceiveClampsExcess(t *testing.T) {
	f := newServiceFixture()
	order := pendingOrder(t)
	require.NoError(t, order.Send())
	order.ClearDomainEvents()
	f.expectLoadAndSave(order)
	f.store.On("AdjustStock", mock.Anything, order.Lines[0].ProductID, int64(10), mock.Anything).Return(int64(10), nil).Once()
	f.adjustmentRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.ReceiveItems(context.Background(), order.ID, ReceiveItemsRequest{
		Lines: []ReceivedLineInput{{LineID: order.Lines[0].ID, ReceivedQuantity: 12}},
	})
	require.NoError(t, err)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, procurement.CodeQuantityClamped, result.Warnings[0].Code)
	assert.Equal(t, int64(10), result.Order.Lines[0].ReceivedQuantity)
	assert.True(t, result.Receipts[0].Clamped)
	assert.Equal(t, int64(10), result.Receipts[0].InventoryDelta)
	f.store.AssertExpectations(t)
}

func TestFulfillmentService_ReceiveTwiceCreditsOnce(t *testing.T) {
	f := newServiceFixture()
	order := pendingOrder(t)
	require.NoError(t, order.Send())
	order.ClearDomainEvents()
	f.expectLoadAndSave(order)
	f.store.On("AdjustStock", mock.Anything, order.Lines[0].ProductID, int64(6), mock.Anything).Return(int64(6), nil).Once()
	f.adjustmentRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	req := ReceiveItemsRequest{Lines: []ReceivedLineInput{{LineID: order.Lines[0].ID, ReceivedQuantity: 6}}}
	first, err := f.service.ReceiveItems(context.Background(), order.ID, req)
	require.NoError(t, err)
	assert.Len(t, first.Adjustments, 1)

	second, err := f.service.ReceiveItems(context.Background(), order.ID, req)
	require.NoError(t, err)
	assert.Empty(t, second.Adjustments)
	assert.Zero(t, second.Receipts[0].InventoryDelta)
	assert.Equal(t, "partially_fulfilled", second.Order.Status)

	f.store.AssertNumberOfCalls(t, "AdjustStock", 1)
}

func TestFulfillmentService_PartialApply(t *testing.T) {
	f := newServiceFixture()
	order := pendingOrder(t)
	f.expectLoadAndSave(order)
	f.store.On("AdjustStock", mock.Anything, order.Lines[0].ProductID, int64(10), mock.Anything).Return(int64(10), nil).Once()
	f.store.On("AdjustStock", mock.Anything, order.Lines[1].ProductID, int64(5), mock.Anything).
		Return(int64(0), errors.New("connection reset")).Once()
	f.adjustmentRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.ConfirmOrder(context.Background(), order.ID, ConfirmPurchaseOrderRequest{PaymentTerms: "Net 30"})

	require.Error(t, err)
	assert.True(t, shared.IsDomainError(err, procurement.CodePartialApply))
	var adjErr *procurement.AdjustmentError
	require.ErrorAs(t, err, &adjErr)
	require.Len(t, adjErr.Failures, 1)
	assert.Equal(t, order.Lines[1].ID, adjErr.Failures[0].LineID)

	require.NotNil(t, result)
	assert.Equal(t, "confirmed", result.Order.Status)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "applied", result.Adjustments[0].Status)
	assert.Equal(t, "failed", result.Adjustments[1].Status)
	f.orderRepo.AssertCalled(t, "SaveWithLockAndEvents", mock.Anything, order, mock.Anything)

	// the failed claim was released so a retry reaches the store again
	processed, _ := f.idempotency.IsProcessed(context.Background(), "inventory:adjustment:"+result.Adjustments[1].ID.String())
	assert.False(t, processed)
}

func TestFulfillmentService_AllAdjustmentsFail(t *testing.T) {
	f := newServiceFixture()
	order := pendingOrder(t)
	f.expectLoadAndSave(order)
	f.store.On("AdjustStock", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(int64(0), errors.New("store down"))
	f.adjustmentRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.ConfirmOrder(context.Background(), order.ID, ConfirmPurchaseOrderRequest{PaymentTerms: "Net 30"})
	assert.True(t, shared.IsDomainError(err, shared.CodeStore))
	require.NotNil(t, result)
	assert.Len(t, result.Failures, 2)
	assert.Equal(t, "confirmed", result.Order.Status)
}

func TestFulfillmentService_ConcurrentModification(t *testing.T) {
	f := newServiceFixture()
	order := pendingOrder(t)
	f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.orderRepo.On("SaveWithLockAndEvents", mock.Anything, order, mock.Anything).Return(shared.ErrConcurrentModification)

	result, err := f.service.ConfirmOrder(context.Background(), order.ID, ConfirmPurchaseOrderRequest{PaymentTerms: "Net 30"})
	assert.Nil(t, result)
	assert.True(t, shared.IsDomainError(err, shared.CodeConcurrentModification))
	f.store.AssertNotCalled(t, "AdjustStock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFulfillmentService_NotFound(t *testing.T) {
	f := newServiceFixture()
	id := uuid.New()
	f.orderRepo.On("FindByID", mock.Anything, id).Return(nil, procurement.ErrOrderNotFound)

	_, err := f.service.SubmitOrder(context.Background(), id)
	assert.True(t, shared.IsDomainError(err, shared.CodeNotFound))
}

func TestFulfillmentService_DeleteOrder(t *testing.T) {
	f := newServiceFixture()
	pending := pendingOrder(t)
	f.orderRepo.On("FindByID", mock.Anything, pending.ID).Return(pending, nil)

	err := f.service.DeleteOrder(context.Background(), pending.ID)
	assert.True(t, shared.IsDomainError(err, procurement.CodeIllegalTransition))

	require.NoError(t, pending.Cancel("wrong supplier"))
	f.orderRepo.On("Delete", mock.Anything, pending.ID).Return(nil)
	require.NoError(t, f.service.DeleteOrder(context.Background(), pending.ID))
	f.orderRepo.AssertCalled(t, "Delete", mock.Anything, pending.ID)
}

func TestFulfillmentService_RetryAdjustments(t *testing.T) {
	f := newServiceFixture()
	order := pendingOrder(t)
	line := &order.Lines[1]

	failed := procurement.NewStockAdjustment(order.ID, line, 2, 5, procurement.AdjustmentModeFull)
	failed.MarkFailed("timeout")
	applied := procurement.NewStockAdjustment(order.ID, &order.Lines[0], 2, 10, procurement.AdjustmentModeFull)
	applied.MarkApplied()

	f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.adjustmentRepo.On("FindByOrder", mock.Anything, order.ID).Return([]procurement.StockAdjustment{applied, failed}, nil)
	f.adjustmentRepo.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.store.On("AdjustStock", mock.Anything, line.ProductID, int64(5), mock.Anything).Return(int64(5), nil).Once()

	resp, err := f.service.RetryAdjustments(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Attempted)
	assert.Equal(t, 1, resp.Applied)
	f.store.AssertExpectations(t)
}

func TestFulfillmentService_ListOrders(t *testing.T) {
	f := newServiceFixture()
	order := pendingOrder(t)
	f.orderRepo.On("FindAll", mock.Anything, mock.MatchedBy(func(filter procurement.OrderFilter) bool {
		return filter.Page == 1 && filter.PageSize == 20 && filter.Status == procurement.StatusPending && filter.OrderBy == "created_at"
	})).Return([]procurement.PurchaseOrder{*order}, nil)
	f.orderRepo.On("Count", mock.Anything, mock.Anything).Return(int64(1), nil)

	page, err := f.service.ListOrders(context.Background(), PurchaseOrderListFilter{Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 1, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Items[0].LineCount)
}
