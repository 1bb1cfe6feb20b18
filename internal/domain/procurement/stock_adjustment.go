package procurement

import (
	"time"

	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
)

// AdjustmentMode records which receipt path produced a stock adjustment
type AdjustmentMode string

const (
	// AdjustmentModeFull credits the full ordered quantity on a plain confirm
	AdjustmentModeFull AdjustmentMode = "full"
	// AdjustmentModePartial credits an actual received quantity; the ordered
	// quantity is kept alongside for audit
	AdjustmentModePartial AdjustmentMode = "partial"
)

// AdjustmentStatus is the delivery state of a stock adjustment
type AdjustmentStatus string

const (
	AdjustmentPending AdjustmentStatus = "pending"
	AdjustmentApplied AdjustmentStatus = "applied"
	AdjustmentFailed  AdjustmentStatus = "failed"
	AdjustmentDead    AdjustmentStatus = "dead"
)

// DefaultAdjustmentMaxAttempts bounds automatic retries of one adjustment
const DefaultAdjustmentMaxAttempts = 8

// StockAdjustment is a pending inventory credit owed by a purchase order.
// It is written in the same transaction as the order change that caused it
// and applied to the inventory store afterwards. (PurchaseOrderID, LineID,
// Sequence) is unique, so a receipt is recorded at most once per line step.
type StockAdjustment struct {
	ID              uuid.UUID
	PurchaseOrderID uuid.UUID
	LineID          uuid.UUID
	ProductID       uuid.UUID
	Sequence        int
	Delta           int64
	OrderedQuantity int64
	ReceivedTotal   int64
	Mode            AdjustmentMode
	Status          AdjustmentStatus
	Attempts        int
	MaxAttempts     int
	LastError       string
	NextAttemptAt   *time.Time
	AppliedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewStockAdjustment creates a pending adjustment for a line increment
func NewStockAdjustment(orderID uuid.UUID, line *PurchaseOrderLine, sequence int, delta int64, mode AdjustmentMode) StockAdjustment {
	now := time.Now()
	return StockAdjustment{
		ID:              uuid.New(),
		PurchaseOrderID: orderID,
		LineID:          line.ID,
		ProductID:       line.ProductID,
		Sequence:        sequence,
		Delta:           delta,
		OrderedQuantity: line.OrderedQuantity,
		ReceivedTotal:   line.ReceivedQuantity,
		Mode:            mode,
		Status:          AdjustmentPending,
		MaxAttempts:     DefaultAdjustmentMaxAttempts,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// IdempotencyKey identifies the adjustment in the idempotency store
func (a *StockAdjustment) IdempotencyKey() string {
	return "inventory:adjustment:" + a.ID.String()
}

// Reference is the movement reference the inventory store deduplicates on
func (a *StockAdjustment) Reference() string {
	return "purchase_order:" + a.PurchaseOrderID.String() + "/adjustment:" + a.ID.String()
}

// IsOutstanding reports whether the adjustment still has to reach the store
func (a *StockAdjustment) IsOutstanding() bool {
	return a.Status == AdjustmentPending || a.Status == AdjustmentFailed
}

// MarkApplied records a successful store call
func (a *StockAdjustment) MarkApplied() {
	now := time.Now()
	a.Status = AdjustmentApplied
	a.Attempts++
	a.LastError = ""
	a.NextAttemptAt = nil
	a.AppliedAt = &now
	a.UpdatedAt = now
}

// MarkFailed records a failed store call and schedules the next attempt
func (a *StockAdjustment) MarkFailed(errMsg string) {
	a.Attempts++
	a.LastError = errMsg
	a.UpdatedAt = time.Now()

	maxAttempts := a.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultAdjustmentMaxAttempts
	}
	if a.Attempts >= maxAttempts {
		a.Status = AdjustmentDead
		a.NextAttemptAt = nil
		return
	}
	a.Status = AdjustmentFailed
	next := time.Now().Add(shared.RetryBackoff(a.Attempts))
	a.NextAttemptAt = &next
}

// Revive puts a dead adjustment back in the queue for a manual retry
func (a *StockAdjustment) Revive() {
	if a.Status != AdjustmentDead {
		return
	}
	a.Status = AdjustmentFailed
	a.Attempts = 0
	a.NextAttemptAt = nil
	a.UpdatedAt = time.Now()
}
