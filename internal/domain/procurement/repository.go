package procurement

import (
	"context"
	"time"

	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderFilter narrows purchase order listings
type OrderFilter struct {
	shared.Filter
	Status     Status
	SupplierID *uuid.UUID
}

// PurchaseOrderRepository defines the interface for purchase order persistence
type PurchaseOrderRepository interface {
	// FindByID finds a purchase order with its lines by ID
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)

	// FindByOrderNumber finds a purchase order by its order number
	FindByOrderNumber(ctx context.Context, orderNumber string) (*PurchaseOrder, error)

	// FindAll finds purchase orders matching the filter, lines included
	FindAll(ctx context.Context, filter OrderFilter) ([]PurchaseOrder, error)

	// Count counts purchase orders matching the filter
	Count(ctx context.Context, filter OrderFilter) (int64, error)

	// Save creates or updates an order and its lines without a version check
	Save(ctx context.Context, order *PurchaseOrder) error

	// SaveWithEvents saves a new order and writes events to the outbox atomically
	SaveWithEvents(ctx context.Context, order *PurchaseOrder, events []shared.DomainEvent) error

	// SaveWithLock saves an order after checking its version, together with
	// its lines and pending stock adjustments. Returns CONCURRENT_MODIFICATION
	// when the stored version differs from the loaded one.
	SaveWithLock(ctx context.Context, order *PurchaseOrder) error

	// SaveWithLockAndEvents is SaveWithLock plus events written to the outbox
	SaveWithLockAndEvents(ctx context.Context, order *PurchaseOrder, events []shared.DomainEvent) error

	// Delete removes an order and its lines
	Delete(ctx context.Context, id uuid.UUID) error

	// ExistsByOrderNumber checks if an order number is taken
	ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error)

	// GenerateOrderNumber returns the next PO-YYYYMMDD-NNNN number
	GenerateOrderNumber(ctx context.Context) (string, error)
}

// StockAdjustmentRepository defines the interface for the stock adjustment ledger
type StockAdjustmentRepository interface {
	// FindByOrder lists the adjustments of an order, oldest first
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]StockAdjustment, error)

	// FindRetryable lists pending or failed adjustments created before the
	// given time whose next attempt is due, oldest first
	FindRetryable(ctx context.Context, before time.Time, limit int) ([]StockAdjustment, error)

	// Update persists the delivery state of an adjustment
	Update(ctx context.Context, adjustment *StockAdjustment) error

	// CountByStatus counts adjustments per status
	CountByStatus(ctx context.Context) (map[AdjustmentStatus]int64, error)
}
