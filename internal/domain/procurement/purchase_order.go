package procurement

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// eventUpdateLines and eventDelete are not lifecycle edges; they only name
// the rejected action in ILLEGAL_TRANSITION errors
const (
	eventUpdateLines Event = "update_lines"
	eventDelete      Event = "delete"
)

// PurchaseOrderLine is one product line of a purchase order
type PurchaseOrderLine struct {
	ID               uuid.UUID
	OrderID          uuid.UUID
	LineNo           int
	ProductID        uuid.UUID
	ProductCode      string
	ProductName      string
	OrderedQuantity  int64
	ReceivedQuantity int64
	UnitPrice        decimal.Decimal
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// LineInput describes a line to add to a draft order
type LineInput struct {
	ProductID   uuid.UUID
	ProductCode string
	ProductName string
	Quantity    int64
	UnitPrice   decimal.Decimal
}

// Validate checks the line input
func (in LineInput) Validate() error {
	if in.ProductID == uuid.Nil {
		return NewValidationError("product_id", "product id is required")
	}
	if in.Quantity < 0 {
		return NewInvalidQuantityError("quantity", in.Quantity)
	}
	if in.UnitPrice.IsNegative() {
		return NewValidationError("unit_price", "unit price must not be negative")
	}
	return nil
}

// Amount returns ordered quantity times unit price
func (l *PurchaseOrderLine) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.OrderedQuantity))
}

// ReceivedAmount returns received quantity times unit price
func (l *PurchaseOrderLine) ReceivedAmount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.ReceivedQuantity))
}

// Remaining returns the quantity still to be received
func (l *PurchaseOrderLine) Remaining() int64 {
	if l.ReceivedQuantity >= l.OrderedQuantity {
		return 0
	}
	return l.OrderedQuantity - l.ReceivedQuantity
}

// IsFulfilled returns true when at least the ordered quantity was received.
// A zero-quantity line is always fulfilled.
func (l *PurchaseOrderLine) IsFulfilled() bool {
	return l.ReceivedQuantity >= l.OrderedQuantity
}

// Outcome classifies the recorded quantities of the line
func (l *PurchaseOrderLine) Outcome() LineOutcome {
	return LineOutcome{
		Status:    classify(l.OrderedQuantity, l.ReceivedQuantity),
		Ordered:   l.OrderedQuantity,
		Requested: l.ReceivedQuantity,
		Received:  l.ReceivedQuantity,
	}
}

// PurchaseOrder is the aggregate root for a purchase order and its lines
type PurchaseOrder struct {
	shared.BaseAggregateRoot
	OrderNumber        string
	SupplierID         uuid.UUID
	SupplierName       string
	SupplierEmail      string
	Status             Status
	Lines              []PurchaseOrderLine
	PaymentTerms       string
	Notes              string
	CancellationReason string
	TotalAmount        decimal.Decimal
	SentAt             *time.Time
	ConfirmedAt        *time.Time
	CanceledAt         *time.Time

	// adjustments raised by the current operation, persisted with the order
	adjustments []StockAdjustment
}

// NewPurchaseOrder creates a draft purchase order
func NewPurchaseOrder(orderNumber string, supplierID uuid.UUID, supplierName, supplierEmail string) (*PurchaseOrder, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, NewValidationError("order_number", "order number cannot be empty")
	}
	if supplierID == uuid.Nil {
		return nil, NewValidationError("supplier_id", "supplier id cannot be empty")
	}
	if strings.TrimSpace(supplierName) == "" {
		return nil, NewValidationError("supplier_name", "supplier name cannot be empty")
	}

	order := &PurchaseOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		SupplierID:        supplierID,
		SupplierName:      supplierName,
		SupplierEmail:     supplierEmail,
		Status:            StatusDraft,
		Lines:             make([]PurchaseOrderLine, 0),
		TotalAmount:       decimal.Zero,
	}
	order.AddDomainEvent(NewPurchaseOrderCreatedEvent(order))
	return order, nil
}

// AddLine appends a line to a draft order
func (o *PurchaseOrder) AddLine(in LineInput) (*PurchaseOrderLine, error) {
	if !o.Status.CanEditLines() {
		return nil, NewIllegalTransitionError(o.Status, eventUpdateLines)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	o.Lines = append(o.Lines, PurchaseOrderLine{
		ID:              uuid.New(),
		OrderID:         o.ID,
		LineNo:          len(o.Lines) + 1,
		ProductID:       in.ProductID,
		ProductCode:     in.ProductCode,
		ProductName:     in.ProductName,
		OrderedQuantity: in.Quantity,
		UnitPrice:       in.UnitPrice,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	o.recalculateTotals()
	o.Touch()
	return &o.Lines[len(o.Lines)-1], nil
}

// ReplaceLines swaps the full line list of a draft order
func (o *PurchaseOrder) ReplaceLines(inputs []LineInput) error {
	if !o.Status.CanEditLines() {
		return NewIllegalTransitionError(o.Status, eventUpdateLines)
	}
	for i, in := range inputs {
		if err := in.Validate(); err != nil {
			var de *shared.DomainError
			if errors.As(err, &de) {
				return de.WithDetail("line", i+1)
			}
			return err
		}
	}

	previous := o.Lines
	o.Lines = make([]PurchaseOrderLine, 0, len(inputs))
	for _, in := range inputs {
		if _, err := o.AddLine(in); err != nil {
			o.Lines = previous
			return err
		}
	}
	o.recalculateTotals()
	return nil
}

// EnsureDeletable fails unless the order is draft or canceled
func (o *PurchaseOrder) EnsureDeletable() error {
	if !o.Status.CanDelete() {
		return NewIllegalTransitionError(o.Status, eventDelete)
	}
	return nil
}

// Submit moves a draft order to pending
func (o *PurchaseOrder) Submit() error {
	next, err := Transition(o.Status, EventSubmit, TransitionContext{LineCount: len(o.Lines)})
	if err != nil {
		return err
	}

	o.Status = next
	o.recalculateTotals()
	o.Touch()
	o.AddDomainEvent(NewPurchaseOrderSubmittedEvent(o))
	return nil
}

// Send marks a pending order as sent to the supplier
func (o *PurchaseOrder) Send() error {
	next, err := Transition(o.Status, EventSend, TransitionContext{LineCount: len(o.Lines)})
	if err != nil {
		return err
	}

	o.Status = next
	if o.SentAt == nil {
		now := time.Now()
		o.SentAt = &now
	}
	o.Touch()
	o.AddDomainEvent(NewPurchaseOrderSentEvent(o))
	return nil
}

// Cancel cancels an order that has not received anything yet. Received
// stock is never reversed.
func (o *PurchaseOrder) Cancel(reason string) error {
	reason = strings.TrimSpace(reason)
	next, err := Transition(o.Status, EventCancel, TransitionContext{CancellationReason: reason})
	if err != nil {
		return err
	}

	previous := o.Status
	o.Status = next
	o.CancellationReason = reason
	if o.CanceledAt == nil {
		now := time.Now()
		o.CanceledAt = &now
	}
	o.Touch()
	o.AddDomainEvent(NewPurchaseOrderCanceledEvent(o, previous))
	return nil
}

// LineQuantity is an absolute cumulative received quantity for one line
type LineQuantity struct {
	LineID   uuid.UUID
	Quantity int64
}

// ConfirmParams are the inputs of the confirm event
type ConfirmParams struct {
	PaymentTerms string
	Notes        string
	// PartialFulfillment switches from "received everything ordered" to the
	// quantities listed in ReceivedLines
	PartialFulfillment  bool
	ReceivedLines       []LineQuantity
	AllowExcessQuantity bool
}

// ReceiveParams are the inputs of the receive_items event
type ReceiveParams struct {
	Lines               []LineQuantity
	AllowExcessQuantity bool
}

// Warning is a non-fatal condition reported alongside a successful result
type Warning struct {
	Code      string    `json:"code"`
	LineID    uuid.UUID `json:"line_id"`
	Message   string    `json:"message"`
	Requested int64     `json:"requested_quantity"`
	Applied   int64     `json:"applied_quantity"`
}

// FulfillmentOutcome describes what a confirm or receive event did
type FulfillmentOutcome struct {
	Event          Event
	PreviousStatus Status
	Status         Status
	Mode           AdjustmentMode
	Receipts       []LineReceipt
	Warnings       []Warning
	Adjustments    []StockAdjustment
}

// Increments returns the positive per-line increments keyed by line id
func (f *FulfillmentOutcome) Increments() map[uuid.UUID]int64 {
	increments := make(map[uuid.UUID]int64, len(f.Receipts))
	for _, r := range f.Receipts {
		if r.Increment > 0 {
			increments[r.LineID] = r.Increment
		}
	}
	return increments
}

// Confirm applies the confirm event. Without PartialFulfillment every line is
// received in full; with it the listed lines are received at the given
// quantities and unlisted lines keep their recorded quantity.
func (o *PurchaseOrder) Confirm(p ConfirmParams) (*FulfillmentOutcome, error) {
	if !IsAllowed(o.Status, EventConfirm) {
		return nil, NewIllegalTransitionError(o.Status, EventConfirm)
	}
	paymentTerms := strings.TrimSpace(p.PaymentTerms)
	if paymentTerms == "" {
		return nil, NewValidationError("payment_terms", "payment terms are required to confirm a purchase order")
	}

	var requested map[uuid.UUID]int64
	mode := AdjustmentModeFull
	if p.PartialFulfillment {
		if len(p.ReceivedLines) == 0 {
			return nil, NewValidationError("received_lines", "received lines are required for a partial fulfillment")
		}
		var err error
		if requested, err = o.requestedQuantities(p.ReceivedLines); err != nil {
			return nil, err
		}
		mode = AdjustmentModePartial
	} else {
		if len(p.ReceivedLines) > 0 {
			return nil, NewValidationError("received_lines", "received lines are only accepted with partial fulfillment")
		}
		requested = make(map[uuid.UUID]int64, len(o.Lines))
		for _, line := range o.Lines {
			requested[line.ID] = line.OrderedQuantity
		}
	}

	receipts, warnings, err := o.reconcileLines(requested, p.AllowExcessQuantity)
	if err != nil {
		return nil, err
	}

	next, err := Transition(o.Status, EventConfirm, TransitionContext{
		LineCount:         len(o.Lines),
		PaymentTerms:      paymentTerms,
		AllLinesFulfilled: allFulfilled(receipts),
		QuantityIncreased: anyIncrement(receipts),
	})
	if err != nil {
		return nil, err
	}

	outcome := o.applyReceipts(EventConfirm, next, mode, receipts, warnings)
	o.PaymentTerms = paymentTerms
	if p.Notes != "" {
		o.Notes = p.Notes
	}
	if o.ConfirmedAt == nil {
		now := time.Now()
		o.ConfirmedAt = &now
	}
	o.AddDomainEvent(NewPurchaseOrderConfirmedEvent(o, outcome.Increments()))
	return outcome, nil
}

// ReceiveItems records absolute cumulative received quantities. Recorded
// quantities never decrease and stock is only credited for the increment, so
// replaying the same request changes nothing.
func (o *PurchaseOrder) ReceiveItems(p ReceiveParams) (*FulfillmentOutcome, error) {
	if !IsAllowed(o.Status, EventReceiveItems) {
		return nil, NewIllegalTransitionError(o.Status, EventReceiveItems)
	}
	if len(p.Lines) == 0 {
		return nil, NewValidationError("lines", "at least one received line is required")
	}

	requested, err := o.requestedQuantities(p.Lines)
	if err != nil {
		return nil, err
	}
	receipts, warnings, err := o.reconcileLines(requested, p.AllowExcessQuantity)
	if err != nil {
		return nil, err
	}

	increased := anyIncrement(receipts)
	next, err := Transition(o.Status, EventReceiveItems, TransitionContext{
		LineCount:         len(o.Lines),
		AllLinesFulfilled: allFulfilled(receipts),
		QuantityIncreased: increased,
	})
	if err != nil {
		return nil, err
	}

	outcome := o.applyReceipts(EventReceiveItems, next, AdjustmentModePartial, receipts, warnings)
	if next == StatusConfirmed && o.ConfirmedAt == nil {
		now := time.Now()
		o.ConfirmedAt = &now
	}
	if increased {
		o.AddDomainEvent(NewPurchaseOrderItemsReceivedEvent(o, outcome.Increments()))
	}
	return outcome, nil
}

// PendingAdjustments returns the stock adjustments raised since the order was
// loaded. Repositories persist them together with the order.
func (o *PurchaseOrder) PendingAdjustments() []StockAdjustment {
	return o.adjustments
}

// ClearPendingAdjustments drops the adjustments once they are persisted
func (o *PurchaseOrder) ClearPendingAdjustments() {
	o.adjustments = nil
}

// GetLine returns the line with the given id, or nil
func (o *PurchaseOrder) GetLine(lineID uuid.UUID) *PurchaseOrderLine {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return &o.Lines[i]
		}
	}
	return nil
}

// TotalOrderedQuantity sums the ordered quantities
func (o *PurchaseOrder) TotalOrderedQuantity() int64 {
	var total int64
	for _, line := range o.Lines {
		total += line.OrderedQuantity
	}
	return total
}

// TotalReceivedQuantity sums the received quantities
func (o *PurchaseOrder) TotalReceivedQuantity() int64 {
	var total int64
	for _, line := range o.Lines {
		total += line.ReceivedQuantity
	}
	return total
}

// ReceivedAmount returns the value of the goods received so far
func (o *PurchaseOrder) ReceivedAmount() decimal.Decimal {
	total := decimal.Zero
	for i := range o.Lines {
		total = total.Add(o.Lines[i].ReceivedAmount())
	}
	return total
}

// IsFullyReceived reports whether every line is fulfilled
func (o *PurchaseOrder) IsFullyReceived() bool {
	for i := range o.Lines {
		if !o.Lines[i].IsFulfilled() {
			return false
		}
	}
	return true
}

// requestedQuantities maps the requested lines by id, starting from the
// recorded quantities so unlisted lines stay as they are
func (o *PurchaseOrder) requestedQuantities(lines []LineQuantity) (map[uuid.UUID]int64, error) {
	requested := make(map[uuid.UUID]int64, len(o.Lines))
	for _, line := range o.Lines {
		requested[line.ID] = line.ReceivedQuantity
	}

	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, lq := range lines {
		if o.GetLine(lq.LineID) == nil {
			return nil, NewValidationError("line_id", fmt.Sprintf("line %s does not belong to purchase order %s", lq.LineID, o.OrderNumber))
		}
		if _, dup := seen[lq.LineID]; dup {
			return nil, NewValidationError("line_id", fmt.Sprintf("line %s is listed more than once", lq.LineID))
		}
		seen[lq.LineID] = struct{}{}
		requested[lq.LineID] = lq.Quantity
	}
	return requested, nil
}

func (o *PurchaseOrder) reconcileLines(requested map[uuid.UUID]int64, allowExcess bool) ([]LineReceipt, []Warning, error) {
	receipts := make([]LineReceipt, 0, len(o.Lines))
	var warnings []Warning
	for _, line := range o.Lines {
		receipt, err := ReconcileReceipt(line, requested[line.ID], allowExcess)
		if err != nil {
			var de *shared.DomainError
			if errors.As(err, &de) {
				return nil, nil, de.WithDetail("line_id", line.ID.String())
			}
			return nil, nil, err
		}
		if receipt.Outcome.Clamped {
			warnings = append(warnings, Warning{
				Code:      CodeQuantityClamped,
				LineID:    line.ID,
				Message:   fmt.Sprintf("received quantity %d for %s exceeds ordered quantity %d and was capped", receipt.Outcome.Requested, line.ProductName, line.OrderedQuantity),
				Requested: receipt.Outcome.Requested,
				Applied:   receipt.Outcome.Received,
			})
		}
		receipts = append(receipts, receipt)
	}
	return receipts, warnings, nil
}

// applyReceipts mutates the lines once the transition has been accepted
func (o *PurchaseOrder) applyReceipts(event Event, next Status, mode AdjustmentMode, receipts []LineReceipt, warnings []Warning) *FulfillmentOutcome {
	outcome := &FulfillmentOutcome{
		Event:          event,
		PreviousStatus: o.Status,
		Status:         next,
		Mode:           mode,
		Receipts:       receipts,
		Warnings:       warnings,
	}

	now := time.Now()
	for _, receipt := range receipts {
		line := o.GetLine(receipt.LineID)
		if receipt.Increment <= 0 {
			continue
		}
		line.ReceivedQuantity = receipt.NewTotal
		line.UpdatedAt = now
		// one adjustment per line per saved version keeps the ledger key unique
		adj := NewStockAdjustment(o.ID, line, o.Version, receipt.Increment, mode)
		o.adjustments = append(o.adjustments, adj)
		outcome.Adjustments = append(outcome.Adjustments, adj)
	}

	o.Status = next
	o.recalculateTotals()
	o.Touch()
	return outcome
}

// recalculateTotals recomputes the total from ordered quantity and unit price
func (o *PurchaseOrder) recalculateTotals() {
	total := decimal.Zero
	for i := range o.Lines {
		total = total.Add(o.Lines[i].Amount())
	}
	o.TotalAmount = total
}

func allFulfilled(receipts []LineReceipt) bool {
	for _, r := range receipts {
		if !r.Outcome.Fulfilled() {
			return false
		}
	}
	return true
}

func anyIncrement(receipts []LineReceipt) bool {
	for _, r := range receipts {
		if r.Increment > 0 {
			return true
		}
	}
	return false
}
