package procurement

import (
	"fmt"

	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
)

// AdjustmentFailure names a stock adjustment the inventory store rejected
type AdjustmentFailure struct {
	AdjustmentID uuid.UUID `json:"adjustment_id"`
	LineID       uuid.UUID `json:"line_id"`
	ProductID    uuid.UUID `json:"product_id"`
	Delta        int64     `json:"delta"`
	Error        string    `json:"error"`
}

// AdjustmentError is returned after the order change committed but some or
// all inventory adjustments failed. The order is not rolled back; the failed
// adjustments stay queued for retry.
type AdjustmentError struct {
	*shared.DomainError
	Failures []AdjustmentFailure
}

// NewAdjustmentError builds a PARTIAL_APPLY error, or STORE_ERROR when no
// adjustment succeeded
func NewAdjustmentError(orderNumber string, attempted int, failures []AdjustmentFailure) *AdjustmentError {
	code := CodePartialApply
	msg := fmt.Sprintf("%d of %d inventory adjustments for %s failed", len(failures), attempted, orderNumber)
	if len(failures) >= attempted {
		code = shared.CodeStore
		msg = fmt.Sprintf("inventory store rejected all %d adjustments for %s", attempted, orderNumber)
	}
	return &AdjustmentError{
		DomainError: shared.NewDomainError(code, msg).WithDetail("failed", len(failures)).WithDetail("attempted", attempted),
		Failures:    failures,
	}
}

// Unwrap exposes the domain error to errors.As
func (e *AdjustmentError) Unwrap() error {
	return e.DomainError
}
