package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestRegisterDBTracing(t *testing.T) {
	recorder := installRecorder(t)
	db := openSQLite(t)

	err := RegisterDBTracing(db, DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: time.Nanosecond,
		DBName:          "purchasing",
	}, zap.NewNop())
	require.NoError(t, err)

	var n int
	require.NoError(t, db.WithContext(context.Background()).Raw("SELECT 1").Scan(&n).Error)
	assert.Error(t, db.WithContext(context.Background()).Exec("SELECT * FROM missing_table").Error)

	spans := recorder.Ended()
	require.NotEmpty(t, spans)

	var sawError bool
	for _, s := range spans {
		if s.Status().Code == codes.Error {
			sawError = true
		}
	}
	assert.True(t, sawError)
}

func TestRegisterDBTracing_Disabled(t *testing.T) {
	db := openSQLite(t)
	assert.NoError(t, RegisterDBTracing(db, DBTracingConfig{}, zap.NewNop()))
}

func TestGormAdjustmentBacklogProvider(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, db.Exec("CREATE TABLE stock_adjustments (id TEXT PRIMARY KEY, status TEXT NOT NULL)").Error)
	require.NoError(t, db.Exec(`INSERT INTO stock_adjustments (id, status) VALUES
		('a', 'applied'), ('b', 'failed'), ('c', 'failed'), ('d', 'dead')`).Error)

	counts, err := NewGormAdjustmentBacklogProvider(db).CountAdjustmentsByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"applied": 1, "failed": 2, "dead": 1}, counts)
}
