package procurement

import "github.com/google/uuid"

// LineStatus classifies received against ordered quantity for one line
type LineStatus string

const (
	LineNotReceived LineStatus = "not_received"
	LinePartial     LineStatus = "partial"
	LineComplete    LineStatus = "complete"
	LineExcess      LineStatus = "excess"
)

// LineOutcome is the result of reconciling one line
type LineOutcome struct {
	Status LineStatus `json:"status"`
	// Ordered is the ordered quantity the outcome was computed against
	Ordered int64 `json:"ordered_quantity"`
	// Requested is the quantity the caller asked to record
	Requested int64 `json:"requested_quantity"`
	// Received is the quantity accepted after clamping
	Received int64 `json:"received_quantity"`
	// InventoryDelta is the stock increase implied by Received
	InventoryDelta int64 `json:"inventory_delta"`
	// Clamped is set when Requested exceeded Ordered without excess allowed
	Clamped bool `json:"clamped"`
}

// Fulfilled reports whether nothing is outstanding on the line
func (o LineOutcome) Fulfilled() bool {
	return o.Received >= o.Ordered
}

// Reconcile compares a received quantity with the ordered quantity.
// Negative quantities are rejected. A quantity above the ordered one is
// clamped to it unless allowExcess is set.
func Reconcile(ordered, received int64, allowExcess bool) (LineOutcome, error) {
	if ordered < 0 {
		return LineOutcome{}, NewInvalidQuantityError("ordered_quantity", ordered)
	}
	if received < 0 {
		return LineOutcome{}, NewInvalidQuantityError("received_quantity", received)
	}

	outcome := LineOutcome{
		Ordered:   ordered,
		Requested: received,
		Received:  received,
	}
	if received > ordered && !allowExcess {
		outcome.Received = ordered
		outcome.Clamped = true
	}
	outcome.Status = classify(ordered, outcome.Received)
	outcome.InventoryDelta = outcome.Received
	return outcome, nil
}

func classify(ordered, received int64) LineStatus {
	switch {
	case received == 0:
		return LineNotReceived
	case received < ordered:
		return LinePartial
	case received == ordered:
		return LineComplete
	default:
		return LineExcess
	}
}

// LineReceipt is the reconciliation of a requested cumulative quantity
// against what a line has already recorded.
type LineReceipt struct {
	LineID    uuid.UUID   `json:"line_id"`
	Outcome   LineOutcome `json:"outcome"`
	Previous  int64       `json:"previous_quantity"`
	NewTotal  int64       `json:"new_quantity"`
	Increment int64       `json:"increment"`
}

// ReconcileReceipt reconciles an absolute received quantity for a line and
// derives the increment over the recorded quantity. Recorded quantities never
// decrease, so a request below the recorded quantity yields a zero increment.
func ReconcileReceipt(line PurchaseOrderLine, requested int64, allowExcess bool) (LineReceipt, error) {
	outcome, err := Reconcile(line.OrderedQuantity, requested, allowExcess)
	if err != nil {
		return LineReceipt{}, err
	}

	newTotal := outcome.Received
	if line.ReceivedQuantity > newTotal {
		// the recorded quantity wins, so the cap changed nothing
		newTotal = line.ReceivedQuantity
		outcome.Received = newTotal
		outcome.Status = classify(line.OrderedQuantity, newTotal)
		outcome.Clamped = false
	}
	increment := newTotal - line.ReceivedQuantity
	outcome.InventoryDelta = increment

	return LineReceipt{
		LineID:    line.ID,
		Outcome:   outcome,
		Previous:  line.ReceivedQuantity,
		NewTotal:  newTotal,
		Increment: increment,
	}, nil
}
