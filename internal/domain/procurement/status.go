package procurement

// Status is the lifecycle status of a purchase order
type Status string

const (
	StatusDraft              Status = "draft"
	StatusPending            Status = "pending"
	StatusSent               Status = "sent"
	StatusConfirmed          Status = "confirmed"
	StatusPartiallyFulfilled Status = "partially_fulfilled"
	StatusCanceled           Status = "canceled"
)

// AllStatuses lists every status in lifecycle order
var AllStatuses = []Status{
	StatusDraft,
	StatusPending,
	StatusSent,
	StatusConfirmed,
	StatusPartiallyFulfilled,
	StatusCanceled,
}

// IsValid checks if the status is a known value
func (s Status) IsValid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further status transition can leave s.
// A confirmed order still accepts idempotent receipt replays that leave it confirmed.
func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusCanceled
}

// CanEditLines reports whether the order lines may still be replaced
func (s Status) CanEditLines() bool {
	return s == StatusDraft
}

// CanDelete reports whether the order may be physically deleted
func (s Status) CanDelete() bool {
	return s == StatusDraft || s == StatusCanceled
}

// Event is a request to move a purchase order through its lifecycle
type Event string

const (
	EventSubmit       Event = "submit"
	EventSend         Event = "send"
	EventConfirm      Event = "confirm"
	EventCancel       Event = "cancel"
	EventReceiveItems Event = "receive_items"
)

func (e Event) String() string {
	return string(e)
}
