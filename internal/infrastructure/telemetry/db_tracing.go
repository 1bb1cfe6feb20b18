package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // include bound variables in db.statement
	SlowQueryThresh time.Duration
	DBName          string
}

// RegisterDBTracing installs otelgorm on db plus callbacks that tag slow
// queries and mark failed statements on the active span.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	cb := &slowQueryCallbacks{threshold: cfg.SlowQueryThresh}
	if err := cb.register(db); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

type queryStartKey struct{}

type slowQueryCallbacks struct {
	threshold time.Duration
}

func (c *slowQueryCallbacks) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (c *slowQueryCallbacks) after(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok || c.threshold <= 0 {
		return
	}
	if elapsed := time.Since(start); elapsed > c.threshold {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}

func (c *slowQueryCallbacks) register(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("purchasing:timing_create", c.before); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("purchasing:timing_query", c.before); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("purchasing:timing_update", c.before); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("purchasing:timing_delete", c.before); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register("purchasing:timing_raw", c.before); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("purchasing:slow_create", c.after); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("purchasing:slow_query", c.after); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("purchasing:slow_update", c.after); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("purchasing:slow_delete", c.after); err != nil {
		return err
	}
	return cb.Raw().After("gorm:raw").Register("purchasing:slow_raw", c.after)
}
