package event

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func newTestPublisher() *OutboxPublisher {
	serializer := NewEventSerializer()
	serializer.Register("TestEvent", &testEvent{})
	return NewOutboxPublisher(serializer)
}

func TestOutboxPublisher_StoresSerializedPayload(t *testing.T) {
	db := newOutboxDB(t)
	publisher := newTestPublisher()
	event := newTestEvent("TestEvent")

	err := db.Transaction(func(tx *gorm.DB) error {
		return publisher.SaveEvents(context.Background(), tx, event, newTestEvent("TestEvent"))
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&shared.OutboxEntry{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	var stored shared.OutboxEntry
	require.NoError(t, db.First(&stored, "event_id = ?", event.EventID()).Error)
	assert.Equal(t, shared.OutboxStatusPending, stored.Status)
	assert.Equal(t, "TestAggregate", stored.AggregateType)
	assert.Equal(t, event.AggregateID(), stored.AggregateID)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(stored.Payload, &payload))
	assert.Equal(t, "test data", payload["data"])
}

func TestOutboxPublisher_Rejections(t *testing.T) {
	publisher := newTestPublisher()
	ctx := context.Background()

	t.Run("no events is a no-op", func(t *testing.T) {
		assert.NoError(t, publisher.SaveEvents(ctx, nil))
	})

	t.Run("wrong transaction handle", func(t *testing.T) {
		err := publisher.SaveEvents(ctx, "not a tx", newTestEvent("TestEvent"))
		assert.EqualError(t, err, "txProvider must be a *gorm.DB, got string")
	})

	t.Run("unregistered event type", func(t *testing.T) {
		db, mock := setupMockDB(t)
		err := publisher.SaveEvents(ctx, db, newTestEvent("Unknown"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Unknown is not registered")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
