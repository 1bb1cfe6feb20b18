package procurement

import (
	"time"

	"github.com/erp/purchasing/internal/domain/procurement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Requests ====================

// CreatePurchaseOrderRequest represents a request to create a draft purchase order
type CreatePurchaseOrderRequest struct {
	SupplierID    uuid.UUID          `json:"supplier_id" binding:"required"`
	SupplierName  string             `json:"supplier_name" binding:"required,min=1,max=200"`
	SupplierEmail string             `json:"supplier_email" binding:"omitempty,email,max=200"`
	Notes         string             `json:"notes" binding:"max=2000"`
	Lines         []OrderLineRequest `json:"lines" binding:"dive"`
}

// OrderLineRequest represents one line in create and update requests
type OrderLineRequest struct {
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	ProductCode string          `json:"product_code" binding:"max=50"`
	ProductName string          `json:"product_name" binding:"required,min=1,max=200"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"money"`
}

// UpdateLinesRequest replaces the lines of a draft order
type UpdateLinesRequest struct {
	Lines []OrderLineRequest `json:"lines" binding:"required,dive"`
}

// ReceivedLineInput is an absolute cumulative received quantity for one line
type ReceivedLineInput struct {
	LineID           uuid.UUID `json:"line_id" binding:"required"`
	ReceivedQuantity int64     `json:"received_quantity"`
}

// ConfirmPurchaseOrderRequest represents a request to confirm a purchase order.
// Without partial_fulfillment every line is received in full.
type ConfirmPurchaseOrderRequest struct {
	PaymentTerms        string              `json:"payment_terms" binding:"max=200"`
	Notes               string              `json:"notes" binding:"max=2000"`
	PartialFulfillment  bool                `json:"partial_fulfillment"`
	ReceivedLines       []ReceivedLineInput `json:"received_lines" binding:"dive"`
	AllowExcessQuantity bool                `json:"allow_excess_quantity"`
}

// ReceiveItemsRequest represents a goods receipt against a purchase order
type ReceiveItemsRequest struct {
	Lines               []ReceivedLineInput `json:"lines" binding:"required,min=1,dive"`
	AllowExcessQuantity bool                `json:"allow_excess_quantity"`
}

// CancelPurchaseOrderRequest represents a request to cancel a purchase order
type CancelPurchaseOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// PurchaseOrderListFilter represents filter options for the purchase order list
type PurchaseOrderListFilter struct {
	Search     string     `form:"search"`
	Status     string     `form:"status" binding:"omitempty,oneof=draft pending sent confirmed partially_fulfilled canceled"`
	SupplierID *uuid.UUID `form:"supplier_id"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string     `form:"order_by" binding:"omitempty,oneof=created_at updated_at order_number total_amount status"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ==================== Responses ====================

// PurchaseOrderResponse represents a purchase order in API responses
type PurchaseOrderResponse struct {
	ID                    uuid.UUID           `json:"id"`
	OrderNumber           string              `json:"order_number"`
	Status                string              `json:"status"`
	SupplierID            uuid.UUID           `json:"supplier_id"`
	SupplierName          string              `json:"supplier_name"`
	SupplierEmail         string              `json:"supplier_email,omitempty"`
	Lines                 []OrderLineResponse `json:"lines"`
	TotalOrderedQuantity  int64               `json:"total_ordered_quantity"`
	TotalReceivedQuantity int64               `json:"total_received_quantity"`
	TotalAmount           decimal.Decimal     `json:"total_amount"`
	ReceivedAmount        decimal.Decimal     `json:"received_amount"`
	PaymentTerms          string              `json:"payment_terms,omitempty"`
	Notes                 string              `json:"notes,omitempty"`
	CancellationReason    string              `json:"cancellation_reason,omitempty"`
	AllowedEvents         []string            `json:"allowed_events"`
	SentAt                *time.Time          `json:"sent_at,omitempty"`
	ConfirmedAt           *time.Time          `json:"confirmed_at,omitempty"`
	CanceledAt            *time.Time          `json:"canceled_at,omitempty"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
	Version               int                 `json:"version"`
}

// OrderLineResponse represents a purchase order line in API responses
type OrderLineResponse struct {
	ID                uuid.UUID       `json:"id"`
	LineNo            int             `json:"line_no"`
	ProductID         uuid.UUID       `json:"product_id"`
	ProductCode       string          `json:"product_code"`
	ProductName       string          `json:"product_name"`
	OrderedQuantity   int64           `json:"ordered_quantity"`
	ReceivedQuantity  int64           `json:"received_quantity"`
	RemainingQuantity int64           `json:"remaining_quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	Amount            decimal.Decimal `json:"amount"`
	Outcome           string          `json:"outcome"`
}

// PurchaseOrderListItemResponse is the short form used in list responses
type PurchaseOrderListItemResponse struct {
	ID           uuid.UUID       `json:"id"`
	OrderNumber  string          `json:"order_number"`
	Status       string          `json:"status"`
	SupplierID   uuid.UUID       `json:"supplier_id"`
	SupplierName string          `json:"supplier_name"`
	LineCount    int             `json:"line_count"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// LineReceiptResponse is the reconciliation result of one line
type LineReceiptResponse struct {
	LineID            uuid.UUID `json:"line_id"`
	Outcome           string    `json:"outcome"`
	OrderedQuantity   int64     `json:"ordered_quantity"`
	RequestedQuantity int64     `json:"requested_quantity"`
	PreviousQuantity  int64     `json:"previous_quantity"`
	ReceivedQuantity  int64     `json:"received_quantity"`
	InventoryDelta    int64     `json:"inventory_delta"`
	Clamped           bool      `json:"clamped"`
}

// StockAdjustmentResponse represents a stock adjustment in API responses
type StockAdjustmentResponse struct {
	ID              uuid.UUID  `json:"id"`
	PurchaseOrderID uuid.UUID  `json:"purchase_order_id"`
	LineID          uuid.UUID  `json:"line_id"`
	ProductID       uuid.UUID  `json:"product_id"`
	Sequence        int        `json:"sequence"`
	Delta           int64      `json:"delta"`
	OrderedQuantity int64      `json:"ordered_quantity"`
	ReceivedTotal   int64      `json:"received_total"`
	Mode            string     `json:"mode"`
	Status          string     `json:"status"`
	Attempts        int        `json:"attempts"`
	LastError       string     `json:"last_error,omitempty"`
	NextAttemptAt   *time.Time `json:"next_attempt_at,omitempty"`
	AppliedAt       *time.Time `json:"applied_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// FulfillmentResultResponse is returned by confirm and receive
type FulfillmentResultResponse struct {
	Order       PurchaseOrderResponse           `json:"order"`
	Receipts    []LineReceiptResponse           `json:"receipts"`
	Warnings    []procurement.Warning           `json:"warnings"`
	Failures    []procurement.AdjustmentFailure `json:"failures"`
	Adjustments []StockAdjustmentResponse       `json:"adjustments"`
}

// AdjustmentRetryResponse is returned when outstanding adjustments are retried
type AdjustmentRetryResponse struct {
	Attempted   int                             `json:"attempted"`
	Applied     int                             `json:"applied"`
	Failures    []procurement.AdjustmentFailure `json:"failures"`
	Adjustments []StockAdjustmentResponse       `json:"adjustments"`
}

// ==================== Converters ====================

// ToPurchaseOrderResponse converts a domain PurchaseOrder to a response DTO
func ToPurchaseOrderResponse(order *procurement.PurchaseOrder) PurchaseOrderResponse {
	lines := make([]OrderLineResponse, len(order.Lines))
	for i := range order.Lines {
		lines[i] = ToOrderLineResponse(&order.Lines[i])
	}

	allowed := procurement.AllowedEvents(order.Status)
	events := make([]string, len(allowed))
	for i, e := range allowed {
		events[i] = e.String()
	}

	return PurchaseOrderResponse{
		ID:                    order.ID,
		OrderNumber:           order.OrderNumber,
		Status:                order.Status.String(),
		SupplierID:            order.SupplierID,
		SupplierName:          order.SupplierName,
		SupplierEmail:         order.SupplierEmail,
		Lines:                 lines,
		TotalOrderedQuantity:  order.TotalOrderedQuantity(),
		TotalReceivedQuantity: order.TotalReceivedQuantity(),
		TotalAmount:           order.TotalAmount,
		ReceivedAmount:        order.ReceivedAmount(),
		PaymentTerms:          order.PaymentTerms,
		Notes:                 order.Notes,
		CancellationReason:    order.CancellationReason,
		AllowedEvents:         events,
		SentAt:                order.SentAt,
		ConfirmedAt:           order.ConfirmedAt,
		CanceledAt:            order.CanceledAt,
		CreatedAt:             order.CreatedAt,
		UpdatedAt:             order.UpdatedAt,
		Version:               order.Version,
	}
}

// ToOrderLineResponse converts a domain line to a response DTO
func ToOrderLineResponse(line *procurement.PurchaseOrderLine) OrderLineResponse {
	return OrderLineResponse{
		ID:                line.ID,
		LineNo:            line.LineNo,
		ProductID:         line.ProductID,
		ProductCode:       line.ProductCode,
		ProductName:       line.ProductName,
		OrderedQuantity:   line.OrderedQuantity,
		ReceivedQuantity:  line.ReceivedQuantity,
		RemainingQuantity: line.Remaining(),
		UnitPrice:         line.UnitPrice,
		Amount:            line.Amount(),
		Outcome:           string(line.Outcome().Status),
	}
}

// ToPurchaseOrderListItemResponses converts orders to list response DTOs
func ToPurchaseOrderListItemResponses(orders []procurement.PurchaseOrder) []PurchaseOrderListItemResponse {
	items := make([]PurchaseOrderListItemResponse, len(orders))
	for i := range orders {
		o := &orders[i]
		items[i] = PurchaseOrderListItemResponse{
			ID:           o.ID,
			OrderNumber:  o.OrderNumber,
			Status:       o.Status.String(),
			SupplierID:   o.SupplierID,
			SupplierName: o.SupplierName,
			LineCount:    len(o.Lines),
			TotalAmount:  o.TotalAmount,
			CreatedAt:    o.CreatedAt,
			UpdatedAt:    o.UpdatedAt,
		}
	}
	return items
}

// ToLineReceiptResponses converts reconciliation receipts to response DTOs
func ToLineReceiptResponses(receipts []procurement.LineReceipt) []LineReceiptResponse {
	result := make([]LineReceiptResponse, len(receipts))
	for i, r := range receipts {
		result[i] = LineReceiptResponse{
			LineID:            r.LineID,
			Outcome:           string(r.Outcome.Status),
			OrderedQuantity:   r.Outcome.Ordered,
			RequestedQuantity: r.Outcome.Requested,
			PreviousQuantity:  r.Previous,
			ReceivedQuantity:  r.NewTotal,
			InventoryDelta:    r.Increment,
			Clamped:           r.Outcome.Clamped,
		}
	}
	return result
}

// ToStockAdjustmentResponses converts stock adjustments to response DTOs
func ToStockAdjustmentResponses(adjustments []procurement.StockAdjustment) []StockAdjustmentResponse {
	result := make([]StockAdjustmentResponse, len(adjustments))
	for i, a := range adjustments {
		result[i] = StockAdjustmentResponse{
			ID:              a.ID,
			PurchaseOrderID: a.PurchaseOrderID,
			LineID:          a.LineID,
			ProductID:       a.ProductID,
			Sequence:        a.Sequence,
			Delta:           a.Delta,
			OrderedQuantity: a.OrderedQuantity,
			ReceivedTotal:   a.ReceivedTotal,
			Mode:            string(a.Mode),
			Status:          string(a.Status),
			Attempts:        a.Attempts,
			LastError:       a.LastError,
			NextAttemptAt:   a.NextAttemptAt,
			AppliedAt:       a.AppliedAt,
			CreatedAt:       a.CreatedAt,
		}
	}
	return result
}

func toLineInputs(lines []OrderLineRequest) []procurement.LineInput {
	inputs := make([]procurement.LineInput, len(lines))
	for i, l := range lines {
		inputs[i] = procurement.LineInput{
			ProductID:   l.ProductID,
			ProductCode: l.ProductCode,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		}
	}
	return inputs
}

func toLineQuantities(lines []ReceivedLineInput) []procurement.LineQuantity {
	result := make([]procurement.LineQuantity, len(lines))
	for i, l := range lines {
		result[i] = procurement.LineQuantity{LineID: l.LineID, Quantity: l.ReceivedQuantity}
	}
	return result
}
