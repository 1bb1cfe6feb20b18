package procurement

import (
	"time"

	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypePurchaseOrder is the aggregate type for purchase orders
const AggregateTypePurchaseOrder = "PurchaseOrder"

// Event type constants for purchase orders
const (
	EventTypePurchaseOrderCreated       = "PurchaseOrderCreated"
	EventTypePurchaseOrderSubmitted     = "PurchaseOrderSubmitted"
	EventTypePurchaseOrderSent          = "PurchaseOrderSent"
	EventTypePurchaseOrderConfirmed     = "PurchaseOrderConfirmed"
	EventTypePurchaseOrderItemsReceived = "PurchaseOrderItemsReceived"
	EventTypePurchaseOrderCanceled      = "PurchaseOrderCanceled"
)

// LineSnapshot is the line information carried by events
type LineSnapshot struct {
	LineID           uuid.UUID       `json:"line_id"`
	ProductID        uuid.UUID       `json:"product_id"`
	ProductName      string          `json:"product_name"`
	OrderedQuantity  int64           `json:"ordered_quantity"`
	ReceivedQuantity int64           `json:"received_quantity"`
	Increment        int64           `json:"increment,omitempty"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
}

func snapshotLines(order *PurchaseOrder, increments map[uuid.UUID]int64) []LineSnapshot {
	lines := make([]LineSnapshot, len(order.Lines))
	for i, line := range order.Lines {
		lines[i] = LineSnapshot{
			LineID:           line.ID,
			ProductID:        line.ProductID,
			ProductName:      line.ProductName,
			OrderedQuantity:  line.OrderedQuantity,
			ReceivedQuantity: line.ReceivedQuantity,
			Increment:        increments[line.ID],
			UnitPrice:        line.UnitPrice,
		}
	}
	return lines
}

// PurchaseOrderCreatedEvent is raised when a draft order is created
type PurchaseOrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderNumber  string    `json:"order_number"`
	SupplierID   uuid.UUID `json:"supplier_id"`
	SupplierName string    `json:"supplier_name"`
}

// NewPurchaseOrderCreatedEvent creates a PurchaseOrderCreatedEvent
func NewPurchaseOrderCreatedEvent(order *PurchaseOrder) *PurchaseOrderCreatedEvent {
	return &PurchaseOrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderCreated, AggregateTypePurchaseOrder, order.ID),
		OrderNumber:     order.OrderNumber,
		SupplierID:      order.SupplierID,
		SupplierName:    order.SupplierName,
	}
}

// PurchaseOrderSubmittedEvent is raised on draft -> pending
type PurchaseOrderSubmittedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string          `json:"order_number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	LineCount   int             `json:"line_count"`
}

// NewPurchaseOrderSubmittedEvent creates a PurchaseOrderSubmittedEvent
func NewPurchaseOrderSubmittedEvent(order *PurchaseOrder) *PurchaseOrderSubmittedEvent {
	return &PurchaseOrderSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderSubmitted, AggregateTypePurchaseOrder, order.ID),
		OrderNumber:     order.OrderNumber,
		TotalAmount:     order.TotalAmount,
		LineCount:       len(order.Lines),
	}
}

// PurchaseOrderSentEvent is raised when the order is sent to the supplier
type PurchaseOrderSentEvent struct {
	shared.BaseDomainEvent
	OrderNumber   string    `json:"order_number"`
	SupplierEmail string    `json:"supplier_email"`
	SentAt        time.Time `json:"sent_at"`
}

// NewPurchaseOrderSentEvent creates a PurchaseOrderSentEvent
func NewPurchaseOrderSentEvent(order *PurchaseOrder) *PurchaseOrderSentEvent {
	return &PurchaseOrderSentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderSent, AggregateTypePurchaseOrder, order.ID),
		OrderNumber:     order.OrderNumber,
		SupplierEmail:   order.SupplierEmail,
		SentAt:          *order.SentAt,
	}
}

// PurchaseOrderConfirmedEvent is raised by the confirm event, whether the
// order ends up confirmed or partially fulfilled
type PurchaseOrderConfirmedEvent struct {
	shared.BaseDomainEvent
	OrderNumber  string          `json:"order_number"`
	Status       Status          `json:"status"`
	PaymentTerms string          `json:"payment_terms"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Lines        []LineSnapshot  `json:"lines"`
}

// NewPurchaseOrderConfirmedEvent creates a PurchaseOrderConfirmedEvent
func NewPurchaseOrderConfirmedEvent(order *PurchaseOrder, increments map[uuid.UUID]int64) *PurchaseOrderConfirmedEvent {
	return &PurchaseOrderConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderConfirmed, AggregateTypePurchaseOrder, order.ID),
		OrderNumber:     order.OrderNumber,
		Status:          order.Status,
		PaymentTerms:    order.PaymentTerms,
		TotalAmount:     order.TotalAmount,
		Lines:           snapshotLines(order, increments),
	}
}

// PurchaseOrderItemsReceivedEvent is raised when a receipt increases received quantities
type PurchaseOrderItemsReceivedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string         `json:"order_number"`
	Status      Status         `json:"status"`
	Lines       []LineSnapshot `json:"lines"`
}

// NewPurchaseOrderItemsReceivedEvent creates a PurchaseOrderItemsReceivedEvent
func NewPurchaseOrderItemsReceivedEvent(order *PurchaseOrder, increments map[uuid.UUID]int64) *PurchaseOrderItemsReceivedEvent {
	return &PurchaseOrderItemsReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderItemsReceived, AggregateTypePurchaseOrder, order.ID),
		OrderNumber:     order.OrderNumber,
		Status:          order.Status,
		Lines:           snapshotLines(order, increments),
	}
}

// PurchaseOrderCanceledEvent is raised on cancellation
type PurchaseOrderCanceledEvent struct {
	shared.BaseDomainEvent
	OrderNumber    string `json:"order_number"`
	PreviousStatus Status `json:"previous_status"`
	Reason         string `json:"reason"`
}

// NewPurchaseOrderCanceledEvent creates a PurchaseOrderCanceledEvent
func NewPurchaseOrderCanceledEvent(order *PurchaseOrder, previous Status) *PurchaseOrderCanceledEvent {
	return &PurchaseOrderCanceledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderCanceled, AggregateTypePurchaseOrder, order.ID),
		OrderNumber:     order.OrderNumber,
		PreviousStatus:  previous,
		Reason:          order.CancellationReason,
	}
}
