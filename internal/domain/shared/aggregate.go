package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseAggregateRoot carries identity, timestamps, the optimistic-lock version
// and the events raised since the aggregate was last persisted.
type BaseAggregateRoot struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int

	pending []DomainEvent
}

// NewBaseAggregateRoot starts a fresh aggregate at version 1.
func NewBaseAggregateRoot() BaseAggregateRoot {
	now := time.Now()
	return BaseAggregateRoot{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// RestoreAggregateRoot rebuilds the root from stored state with no pending events.
func RestoreAggregateRoot(id uuid.UUID, createdAt, updatedAt time.Time, version int) BaseAggregateRoot {
	return BaseAggregateRoot{ID: id, CreatedAt: createdAt, UpdatedAt: updatedAt, Version: version}
}

func (a *BaseAggregateRoot) Touch() {
	a.UpdatedAt = time.Now()
}

// IncrementVersion is called by repositories after a versioned update succeeds.
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.pending
}

func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.pending = nil
}

// PopDomainEvents hands the pending events to the caller, which becomes
// responsible for writing them to the outbox.
func (a *BaseAggregateRoot) PopDomainEvents() []DomainEvent {
	events := a.pending
	a.pending = nil
	return events
}
