package procurement

import (
	"context"
	"strings"
	"time"

	"github.com/erp/purchasing/internal/domain/procurement"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/erp/purchasing/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FulfillmentService drives purchase orders through their lifecycle.
//
// Every state change loads the order, applies the domain event and saves the
// order with its lines, stock adjustments and domain events in one
// transaction guarded by the order version. Stock adjustments are credited to
// the inventory store after the commit; when some of them fail the order
// change stays committed and the failures are returned with the result.
type FulfillmentService struct {
	orderRepo      procurement.PurchaseOrderRepository
	adjustmentRepo procurement.StockAdjustmentRepository
	scope          TransactionScope
	adjuster       *InventoryAdjuster
	logger         *zap.Logger
	metrics        *telemetry.ProcurementMetrics
}

// NewFulfillmentService creates a new FulfillmentService
func NewFulfillmentService(
	orderRepo procurement.PurchaseOrderRepository,
	adjustmentRepo procurement.StockAdjustmentRepository,
	scope TransactionScope,
	adjuster *InventoryAdjuster,
	logger *zap.Logger,
) *FulfillmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FulfillmentService{
		orderRepo:      orderRepo,
		adjustmentRepo: adjustmentRepo,
		scope:          scope,
		adjuster:       adjuster,
		logger:         logger,
	}
}

// SetMetrics sets the procurement metrics collector
func (s *FulfillmentService) SetMetrics(m *telemetry.ProcurementMetrics) {
	s.metrics = m
}

// CreateOrder creates a draft purchase order with a generated order number
func (s *FulfillmentService) CreateOrder(ctx context.Context, req CreatePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	orderNumber, err := s.orderRepo.GenerateOrderNumber(ctx)
	if err != nil {
		return nil, err
	}

	order, err := procurement.NewPurchaseOrder(orderNumber, req.SupplierID, req.SupplierName, req.SupplierEmail)
	if err != nil {
		return nil, err
	}
	order.Notes = req.Notes
	if len(req.Lines) > 0 {
		if err := order.ReplaceLines(toLineInputs(req.Lines)); err != nil {
			return nil, err
		}
	}

	events := order.PopDomainEvents()
	if err := s.orderRepo.SaveWithEvents(ctx, order, events); err != nil {
		return nil, err
	}

	s.logger.Info("purchase order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Int("lines", len(order.Lines)),
	)
	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// UpdateDraftLines replaces the lines of a draft order
func (s *FulfillmentService) UpdateDraftLines(ctx context.Context, orderID uuid.UUID, req UpdateLinesRequest) (*PurchaseOrderResponse, error) {
	order, err := s.mutate(ctx, orderID, func(order *procurement.PurchaseOrder) error {
		return order.ReplaceLines(toLineInputs(req.Lines))
	})
	if err != nil {
		return nil, err
	}
	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// GetOrder retrieves a purchase order by ID
func (s *FulfillmentService) GetOrder(ctx context.Context, orderID uuid.UUID) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// GetOrderByNumber retrieves a purchase order by order number
func (s *FulfillmentService) GetOrderByNumber(ctx context.Context, orderNumber string) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// ListOrders retrieves purchase orders with filtering and pagination
func (s *FulfillmentService) ListOrders(ctx context.Context, filter PurchaseOrderListFilter) (*shared.Paginated[PurchaseOrderListItemResponse], error) {
	domainFilter := procurement.OrderFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   strings.TrimSpace(filter.Search),
		}.Normalize(),
		Status:     procurement.Status(filter.Status),
		SupplierID: filter.SupplierID,
	}
	if domainFilter.OrderBy == "" {
		domainFilter.OrderBy = "created_at"
	}

	orders, err := s.orderRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.orderRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, err
	}

	page := shared.NewPaginated(ToPurchaseOrderListItemResponses(orders), total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// SubmitOrder moves a draft order to pending
func (s *FulfillmentService) SubmitOrder(ctx context.Context, orderID uuid.UUID) (*PurchaseOrderResponse, error) {
	order, err := s.transition(ctx, orderID, procurement.EventSubmit, func(order *procurement.PurchaseOrder) error {
		return order.Submit()
	})
	if err != nil {
		return nil, err
	}
	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// SendOrder marks a pending order as sent to the supplier
func (s *FulfillmentService) SendOrder(ctx context.Context, orderID uuid.UUID) (*PurchaseOrderResponse, error) {
	order, err := s.transition(ctx, orderID, procurement.EventSend, func(order *procurement.PurchaseOrder) error {
		return order.Send()
	})
	if err != nil {
		return nil, err
	}
	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// CancelOrder cancels an order. Stock already received is not reversed.
func (s *FulfillmentService) CancelOrder(ctx context.Context, orderID uuid.UUID, req CancelPurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	order, err := s.transition(ctx, orderID, procurement.EventCancel, func(order *procurement.PurchaseOrder) error {
		return order.Cancel(req.Reason)
	})
	if err != nil {
		return nil, err
	}
	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// ConfirmOrder confirms a pending or sent order and credits the received
// quantities to inventory. When some inventory adjustments fail the result is
// returned together with a PARTIAL_APPLY error (STORE_ERROR if all failed).
func (s *FulfillmentService) ConfirmOrder(ctx context.Context, orderID uuid.UUID, req ConfirmPurchaseOrderRequest) (*FulfillmentResultResponse, error) {
	if strings.TrimSpace(req.PaymentTerms) == "" {
		return nil, procurement.NewValidationError("payment_terms", "payment terms are required to confirm a purchase order")
	}

	params := procurement.ConfirmParams{
		PaymentTerms:        req.PaymentTerms,
		Notes:               req.Notes,
		PartialFulfillment:  req.PartialFulfillment,
		ReceivedLines:       toLineQuantities(req.ReceivedLines),
		AllowExcessQuantity: req.AllowExcessQuantity,
	}
	return s.fulfill(ctx, orderID, procurement.EventConfirm, func(order *procurement.PurchaseOrder) (*procurement.FulfillmentOutcome, error) {
		return order.Confirm(params)
	})
}

// ReceiveItems records cumulative received quantities against a sent,
// partially fulfilled or confirmed order. Only the increase over the recorded
// quantity is credited, so repeating a request credits nothing.
func (s *FulfillmentService) ReceiveItems(ctx context.Context, orderID uuid.UUID, req ReceiveItemsRequest) (*FulfillmentResultResponse, error) {
	params := procurement.ReceiveParams{
		Lines:               toLineQuantities(req.Lines),
		AllowExcessQuantity: req.AllowExcessQuantity,
	}
	return s.fulfill(ctx, orderID, procurement.EventReceiveItems, func(order *procurement.PurchaseOrder) (*procurement.FulfillmentOutcome, error) {
		return order.ReceiveItems(params)
	})
}

// DeleteOrder deletes a draft or canceled order
func (s *FulfillmentService) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		order, err := repos.OrderRepo().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.EnsureDeletable(); err != nil {
			return err
		}
		return repos.OrderRepo().Delete(ctx, orderID)
	})
}

// ListAdjustments returns the stock adjustment ledger of an order
func (s *FulfillmentService) ListAdjustments(ctx context.Context, orderID uuid.UUID) ([]StockAdjustmentResponse, error) {
	if _, err := s.orderRepo.FindByID(ctx, orderID); err != nil {
		return nil, err
	}
	adjustments, err := s.adjustmentRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToStockAdjustmentResponses(adjustments), nil
}

// RetryAdjustments re-applies the outstanding and dead stock adjustments of an order
func (s *FulfillmentService) RetryAdjustments(ctx context.Context, orderID uuid.UUID) (*AdjustmentRetryResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	adjustments, err := s.adjustmentRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var pending []procurement.StockAdjustment
	for _, adj := range adjustments {
		adj.Revive()
		if adj.IsOutstanding() {
			pending = append(pending, adj)
		}
	}

	result := s.adjuster.Apply(ctx, pending)
	response := &AdjustmentRetryResponse{
		Attempted:   result.Attempted,
		Applied:     result.Applied,
		Failures:    result.Failures,
		Adjustments: ToStockAdjustmentResponses(result.Adjustments),
	}
	if result.HasFailures() {
		return response, procurement.NewAdjustmentError(order.OrderNumber, result.Attempted, result.Failures)
	}
	return response, nil
}

// mutate runs fn on the order inside a transaction and saves it with its events
func (s *FulfillmentService) mutate(ctx context.Context, orderID uuid.UUID, fn func(order *procurement.PurchaseOrder) error) (*procurement.PurchaseOrder, error) {
	var saved *procurement.PurchaseOrder
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		order, err := repos.OrderRepo().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := fn(order); err != nil {
			return err
		}
		events := order.PopDomainEvents()
		if err := repos.OrderRepo().SaveWithLockAndEvents(ctx, order, events); err != nil {
			return err
		}
		saved = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *FulfillmentService) transition(ctx context.Context, orderID uuid.UUID, event procurement.Event, fn func(order *procurement.PurchaseOrder) error) (*procurement.PurchaseOrder, error) {
	var from procurement.Status
	order, err := s.mutate(ctx, orderID, func(order *procurement.PurchaseOrder) error {
		from = order.Status
		return fn(order)
	})
	if err != nil {
		s.logRejected(orderID, event, err)
		return nil, err
	}

	s.logger.Info("purchase order transitioned",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("event", event.String()),
		zap.String("from", from.String()),
		zap.String("to", order.Status.String()),
	)
	if s.metrics != nil {
		s.metrics.RecordTransition(ctx, event.String(), from.String(), order.Status.String())
	}
	return order, nil
}

// fulfill runs a confirm or receive event and applies the resulting stock
// adjustments after the transaction has committed
func (s *FulfillmentService) fulfill(
	ctx context.Context,
	orderID uuid.UUID,
	event procurement.Event,
	fn func(order *procurement.PurchaseOrder) (*procurement.FulfillmentOutcome, error),
) (*FulfillmentResultResponse, error) {
	start := time.Now()
	var outcome *procurement.FulfillmentOutcome
	order, err := s.transition(ctx, orderID, event, func(order *procurement.PurchaseOrder) error {
		var ferr error
		outcome, ferr = fn(order)
		return ferr
	})
	if s.metrics != nil {
		s.metrics.RecordFulfillmentDuration(ctx, event.String(), time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	for _, w := range outcome.Warnings {
		s.logger.Warn("received quantity clamped to ordered quantity",
			zap.String("order_number", order.OrderNumber),
			zap.String("line_id", w.LineID.String()),
			zap.Int64("requested", w.Requested),
			zap.Int64("applied", w.Applied),
		)
	}
	if s.metrics != nil && len(outcome.Warnings) > 0 {
		s.metrics.RecordQuantityClamped(ctx, int64(len(outcome.Warnings)))
	}

	result := s.adjuster.Apply(ctx, outcome.Adjustments)
	response := &FulfillmentResultResponse{
		Order:       ToPurchaseOrderResponse(order),
		Receipts:    ToLineReceiptResponses(outcome.Receipts),
		Warnings:    outcome.Warnings,
		Failures:    result.Failures,
		Adjustments: ToStockAdjustmentResponses(result.Adjustments),
	}
	if response.Warnings == nil {
		response.Warnings = []procurement.Warning{}
	}
	if response.Failures == nil {
		response.Failures = []procurement.AdjustmentFailure{}
	}

	if result.HasFailures() {
		s.logger.Error("inventory adjustments failed after purchase order commit",
			zap.String("order_number", order.OrderNumber),
			zap.String("status", order.Status.String()),
			zap.Int("attempted", result.Attempted),
			zap.Int("failed", len(result.Failures)),
		)
		return response, procurement.NewAdjustmentError(order.OrderNumber, result.Attempted, result.Failures)
	}
	return response, nil
}

func (s *FulfillmentService) logRejected(orderID uuid.UUID, event procurement.Event, err error) {
	fields := []zap.Field{
		zap.String("order_id", orderID.String()),
		zap.String("event", event.String()),
		zap.Error(err),
	}
	switch {
	case shared.IsDomainError(err, shared.CodeConcurrentModification):
		s.logger.Warn("purchase order changed concurrently", fields...)
	case shared.IsDomainError(err, procurement.CodeIllegalTransition),
		shared.IsDomainError(err, shared.CodeValidation),
		shared.IsDomainError(err, procurement.CodeInvalidQuantity),
		shared.IsDomainError(err, shared.CodeNotFound):
		s.logger.Debug("purchase order event rejected", fields...)
	default:
		s.logger.Error("purchase order event failed", fields...)
	}
}
