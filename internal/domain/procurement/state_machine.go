package procurement

import "strings"

// TransitionContext carries the facts the state machine needs to decide an
// event. It is filled by the aggregate after reconciling quantities.
type TransitionContext struct {
	LineCount          int
	PaymentTerms       string
	CancellationReason string
	// AllLinesFulfilled is true when every line received at least its ordered quantity
	AllLinesFulfilled bool
	// QuantityIncreased is true when the event raises any line's received quantity
	QuantityIncreased bool
}

// edges lists, per event, the statuses the event may be applied to
var edges = map[Event][]Status{
	EventSubmit:       {StatusDraft},
	EventSend:         {StatusPending},
	EventConfirm:      {StatusPending, StatusSent},
	EventCancel:       {StatusDraft, StatusPending, StatusSent},
	EventReceiveItems: {StatusSent, StatusPartiallyFulfilled, StatusConfirmed},
}

// IsAllowed reports whether event has an edge leaving current. It does not
// check preconditions; Transition does.
func IsAllowed(current Status, event Event) bool {
	for _, from := range edges[event] {
		if from == current {
			return true
		}
	}
	return false
}

// AllowedEvents returns the events with an edge leaving current
func AllowedEvents(current Status) []Event {
	var events []Event
	for _, event := range []Event{EventSubmit, EventSend, EventConfirm, EventCancel, EventReceiveItems} {
		if IsAllowed(current, event) {
			events = append(events, event)
		}
	}
	return events
}

// Transition decides the status that results from applying event to an order
// in status current. It performs no I/O and never mutates anything.
func Transition(current Status, event Event, tc TransitionContext) (Status, error) {
	if !IsAllowed(current, event) {
		return current, NewIllegalTransitionError(current, event)
	}

	switch event {
	case EventSubmit:
		if tc.LineCount == 0 {
			return current, NewValidationError("lines", "a purchase order needs at least one line to be submitted")
		}
		return StatusPending, nil

	case EventSend:
		if tc.LineCount == 0 {
			return current, NewValidationError("lines", "a purchase order needs at least one line to be sent")
		}
		return StatusSent, nil

	case EventConfirm:
		if strings.TrimSpace(tc.PaymentTerms) == "" {
			return current, NewValidationError("payment_terms", "payment terms are required to confirm a purchase order")
		}
		return fulfillmentStatus(tc.AllLinesFulfilled), nil

	case EventCancel:
		if strings.TrimSpace(tc.CancellationReason) == "" {
			return current, NewValidationError("reason", "a cancellation reason is required")
		}
		return StatusCanceled, nil

	case EventReceiveItems:
		if current == StatusConfirmed {
			// confirmed orders only accept replays of receipts already recorded
			if tc.QuantityIncreased {
				return current, NewIllegalTransitionError(current, event)
			}
			return StatusConfirmed, nil
		}
		return fulfillmentStatus(tc.AllLinesFulfilled), nil
	}

	return current, NewIllegalTransitionError(current, event)
}

func fulfillmentStatus(allFulfilled bool) Status {
	if allFulfilled {
		return StatusConfirmed
	}
	return StatusPartiallyFulfilled
}
