package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

func TestIdempotentHandler_FirstDelivery(t *testing.T) {
	ctx := context.Background()
	store := new(MockIdempotencyStore)
	inner := &recordingHandler{eventTypes: []string{"TestEvent"}}
	h := NewIdempotentHandler(inner, store, zap.NewNop(), WithHandlerName("mailer"))

	event := newTestEvent("TestEvent")
	store.On("MarkProcessed", ctx, "event:mailer:"+event.EventID().String(), 24*time.Hour).Return(true, nil)

	require.NoError(t, h.Handle(ctx, event))
	assert.Equal(t, 1, inner.count())
	assert.Equal(t, []string{"TestEvent"}, h.EventTypes())
	assert.Equal(t, IdempotencyStats{EventsProcessed: 1}, h.Stats())
	store.AssertExpectations(t)
}

func TestIdempotentHandler_Duplicate(t *testing.T) {
	ctx := context.Background()
	store := new(MockIdempotencyStore)
	inner := &recordingHandler{}
	h := NewIdempotentHandler(inner, store, zap.NewNop())

	store.On("MarkProcessed", ctx, mock.Anything, mock.Anything).Return(false, nil)

	require.NoError(t, h.Handle(ctx, newTestEvent("TestEvent")))
	assert.Zero(t, inner.count())
	assert.Equal(t, int64(1), h.Stats().EventsDuplicate)
}

func TestIdempotentHandler_FailureReleasesKey(t *testing.T) {
	ctx := context.Background()
	store := new(MockIdempotencyStore)
	inner := &recordingHandler{err: errors.New("smtp unavailable")}
	h := NewIdempotentHandler(inner, store, zap.NewNop(), WithHandlerName("mailer"))

	event := newTestEvent("TestEvent")
	key := "event:mailer:" + event.EventID().String()
	store.On("MarkProcessed", ctx, key, mock.Anything).Return(true, nil)
	store.On("Release", ctx, key).Return(nil)

	err := h.Handle(ctx, event)
	assert.EqualError(t, err, "smtp unavailable")
	assert.Equal(t, int64(1), h.Stats().EventsFailed)
	store.AssertExpectations(t)
}

func TestIdempotentHandler_StoreErrorStillProcesses(t *testing.T) {
	ctx := context.Background()
	store := new(MockIdempotencyStore)
	inner := &recordingHandler{}
	h := NewIdempotentHandler(inner, store, zap.NewNop())

	store.On("MarkProcessed", ctx, mock.Anything, mock.Anything).Return(false, errors.New("redis down"))

	require.NoError(t, h.Handle(ctx, newTestEvent("TestEvent")))
	assert.Equal(t, 1, inner.count())
}

func TestIdempotentHandler_Disabled(t *testing.T) {
	store := new(MockIdempotencyStore)
	inner := &recordingHandler{}
	h := NewIdempotentHandler(inner, store, zap.NewNop(),
		WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: false}))

	require.NoError(t, h.Handle(context.Background(), newTestEvent("TestEvent")))
	require.NoError(t, h.Handle(context.Background(), newTestEvent("TestEvent")))
	assert.Equal(t, 2, inner.count())
	store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
}

func TestIdempotentHandler_KeysAreScopedPerHandler(t *testing.T) {
	ctx := context.Background()
	store := new(MockIdempotencyStore)
	event := newTestEvent("TestEvent")

	store.On("MarkProcessed", ctx, "event:a:"+event.EventID().String(), mock.Anything).Return(true, nil).Once()
	store.On("MarkProcessed", ctx, "event:b:"+event.EventID().String(), mock.Anything).Return(true, nil).Once()

	first := &recordingHandler{}
	second := &recordingHandler{}
	require.NoError(t, NewIdempotentHandler(first, store, zap.NewNop(), WithHandlerName("a")).Handle(ctx, event))
	require.NoError(t, NewIdempotentHandler(second, store, zap.NewNop(), WithHandlerName("b")).Handle(ctx, event))

	assert.Equal(t, 1, first.count())
	assert.Equal(t, 1, second.count())
	store.AssertExpectations(t)
}
