package procurement

import (
	"fmt"

	"github.com/erp/purchasing/internal/domain/shared"
)

// Error codes raised by the procurement context
const (
	CodeIllegalTransition = "ILLEGAL_TRANSITION"
	CodeInvalidQuantity   = "INVALID_QUANTITY"
	CodePartialApply      = "PARTIAL_APPLY"
	CodeQuantityClamped   = "QUANTITY_CLAMPED"
)

// ErrOrderNotFound is returned when a purchase order does not exist
var ErrOrderNotFound = shared.NewDomainError(shared.CodeNotFound, "Purchase order not found")

// NewIllegalTransitionError names the current status and the rejected event
func NewIllegalTransitionError(current Status, event Event) *shared.DomainError {
	return shared.NewDomainError(
		CodeIllegalTransition,
		fmt.Sprintf("cannot %s a purchase order in status %s", event, current),
	).WithDetail("current_status", string(current)).WithDetail("event", string(event))
}

// NewInvalidQuantityError rejects a negative quantity for a line
func NewInvalidQuantityError(field string, quantity int64) *shared.DomainError {
	return shared.NewDomainError(
		CodeInvalidQuantity,
		fmt.Sprintf("%s must not be negative, got %d", field, quantity),
	).WithDetail("field", field)
}

// NewValidationError reports a missing or malformed field
func NewValidationError(field, message string) *shared.DomainError {
	return shared.NewValidationError(field, message)
}
