package inventory

import (
	"context"

	"github.com/google/uuid"
)

// Store is the inventory store purchase orders credit received goods to
type Store interface {
	// GetStock returns the on-hand level of a product; unknown products have 0
	GetStock(ctx context.Context, productID uuid.UUID) (int64, error)

	// AdjustStock applies a signed delta and returns the new level. reference
	// identifies the cause of the change in the movement log.
	AdjustStock(ctx context.Context, productID uuid.UUID, delta int64, reference string) (int64, error)
}

// MovementReader lists applied movements
type MovementReader interface {
	// ListMovements returns the latest movements of a product, newest first
	ListMovements(ctx context.Context, productID uuid.UUID, limit int) ([]Movement, error)
}
