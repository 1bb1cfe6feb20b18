package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New()),
		Data:            "test data",
	}
}

type recordingHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicWith  any
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.eventTypes }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	ctx := context.Background()
	bus := NewInMemoryEventBus(zap.NewNop())

	sent := &recordingHandler{eventTypes: []string{"Sent"}}
	all := &recordingHandler{}
	bus.Subscribe(sent)
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(ctx, newTestEvent("Sent"), newTestEvent("Canceled")))
	assert.Equal(t, 1, sent.count())
	assert.Equal(t, 2, all.count())
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := &recordingHandler{eventTypes: []string{"Sent"}}
	bus.Subscribe(h, "Canceled")

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("Sent"), newTestEvent("Canceled")))
	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_HandlerErrors(t *testing.T) {
	ctx := context.Background()
	bus := NewInMemoryEventBus(zap.NewNop())

	failing := &recordingHandler{eventTypes: []string{"Sent"}, err: errors.New("smtp unavailable")}
	panicking := &recordingHandler{eventTypes: []string{"Sent"}, panicWith: "boom"}
	healthy := &recordingHandler{eventTypes: []string{"Sent"}}
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(ctx, newTestEvent("Sent"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp unavailable")
	assert.Contains(t, err.Error(), "handler panicked")
	assert.Equal(t, 1, healthy.count(), "other handlers still run")
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	bus := NewInMemoryEventBus(zap.NewNop())

	typed := &recordingHandler{eventTypes: []string{"Sent", "Canceled"}}
	wildcard := &recordingHandler{}
	bus.Subscribe(typed)
	bus.Subscribe(wildcard)

	bus.Unsubscribe(typed)
	bus.Unsubscribe(wildcard)

	require.NoError(t, bus.Publish(ctx, newTestEvent("Sent"), newTestEvent("Canceled")))
	assert.Zero(t, typed.count())
	assert.Zero(t, wildcard.count())
	assert.Empty(t, bus.handlers)
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Stop(context.Background()))
}
