package inventory

import (
	"fmt"

	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
)

// CodeInsufficientStock is returned when an adjustment would make a level negative
const CodeInsufficientStock = "INSUFFICIENT_STOCK"

// NewInsufficientStockError reports a rejected negative adjustment
func NewInsufficientStockError(productID uuid.UUID, level, delta int64) *shared.DomainError {
	return shared.NewDomainError(
		CodeInsufficientStock,
		fmt.Sprintf("adjusting stock of %s by %d would leave %d on hand", productID, delta, level+delta),
	).WithDetail("product_id", productID.String())
}

// StoreError wraps an I/O failure of the inventory store
type StoreError struct {
	*shared.DomainError
	Err error
}

// NewStoreError wraps err as a STORE_ERROR for the named operation
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{
		DomainError: shared.NewDomainError(shared.CodeStore, fmt.Sprintf("inventory store %s failed: %v", op, err)),
		Err:         err,
	}
}

// Unwrap returns the underlying cause
func (e *StoreError) Unwrap() []error {
	return []error{e.DomainError, e.Err}
}
