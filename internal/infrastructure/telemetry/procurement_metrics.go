package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Metric attribute keys.
var (
	AttrMetricEvent   = attribute.Key("event")
	AttrMetricFrom    = attribute.Key("from")
	AttrMetricTo      = attribute.Key("to")
	AttrMetricOutcome = attribute.Key("outcome")
	AttrMetricStatus  = attribute.Key("status")
)

// AdjustmentBacklogProvider reports stock adjustment counts keyed by status.
type AdjustmentBacklogProvider interface {
	CountAdjustmentsByStatus(ctx context.Context) (map[string]int64, error)
}

// ProcurementMetrics records purchase order lifecycle and stock adjustment metrics.
type ProcurementMetrics struct {
	logger *zap.Logger

	transitions        *Counter
	adjustments        *Counter
	clamped            *Counter
	fulfillmentLatency *Histogram
	backlog            *Gauge

	backlogProvider AdjustmentBacklogProvider
	stopChan        chan struct{}
	stopOnce        sync.Once
	collectOnce     sync.Once
}

// NewProcurementMetrics registers the purchasing instruments on meter.
// backlogProvider may be nil, in which case no backlog gauge is collected.
func NewProcurementMetrics(meter metric.Meter, backlogProvider AdjustmentBacklogProvider, logger *zap.Logger) (*ProcurementMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pm := &ProcurementMetrics{
		logger:          logger,
		backlogProvider: backlogProvider,
		stopChan:        make(chan struct{}),
	}

	var err error
	if pm.transitions, err = NewCounter(meter,
		"purchasing_orders_transitioned_total",
		"Purchase order lifecycle transitions",
		"{transitions}",
	); err != nil {
		return nil, err
	}
	if pm.adjustments, err = NewCounter(meter,
		"purchasing_inventory_adjustments_total",
		"Stock adjustment attempts by outcome",
		"{adjustments}",
	); err != nil {
		return nil, err
	}
	if pm.clamped, err = NewCounter(meter,
		"purchasing_quantity_clamped_total",
		"Received quantities clamped to the ordered quantity",
		"{lines}",
	); err != nil {
		return nil, err
	}
	if pm.fulfillmentLatency, err = NewHistogram(meter,
		"purchasing_fulfillment_duration_seconds",
		"Latency of confirm and receive operations including stock adjustment",
		"s",
		FulfillmentDurationBuckets,
	); err != nil {
		return nil, err
	}
	if pm.backlog, err = NewGauge(meter,
		"purchasing_inventory_adjustments_backlog",
		"Stock adjustments by status",
		"{adjustments}",
	); err != nil {
		return nil, err
	}
	return pm, nil
}

// RecordTransition counts a committed lifecycle transition.
func (pm *ProcurementMetrics) RecordTransition(ctx context.Context, event, from, to string) {
	pm.transitions.Inc(ctx, AttrMetricEvent.String(event), AttrMetricFrom.String(from), AttrMetricTo.String(to))
}

// RecordAdjustment counts a stock adjustment attempt by outcome (applied or failed).
func (pm *ProcurementMetrics) RecordAdjustment(ctx context.Context, outcome string) {
	pm.adjustments.Inc(ctx, AttrMetricOutcome.String(outcome))
}

// RecordQuantityClamped counts lines whose received quantity was clamped.
func (pm *ProcurementMetrics) RecordQuantityClamped(ctx context.Context, lines int64) {
	pm.clamped.Add(ctx, lines)
}

// RecordFulfillmentDuration records the latency of a confirm or receive.
func (pm *ProcurementMetrics) RecordFulfillmentDuration(ctx context.Context, event string, d time.Duration) {
	pm.fulfillmentLatency.RecordDuration(ctx, d, AttrMetricEvent.String(event))
}

// StartBacklogCollection samples the adjustment backlog every interval until
// Stop is called or ctx ends.
func (pm *ProcurementMetrics) StartBacklogCollection(ctx context.Context, interval time.Duration) {
	if pm.backlogProvider == nil {
		return
	}
	pm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}
		go pm.runBacklogCollection(ctx, interval)
	})
}

func (pm *ProcurementMetrics) runBacklogCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pm.CollectBacklog(ctx)
	for {
		select {
		case <-pm.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			pm.CollectBacklog(ctx)
		}
	}
}

// CollectBacklog samples the backlog gauge once.
func (pm *ProcurementMetrics) CollectBacklog(ctx context.Context) {
	if pm.backlogProvider == nil {
		return
	}
	counts, err := pm.backlogProvider.CountAdjustmentsByStatus(ctx)
	if err != nil {
		pm.logger.Warn("Failed to collect stock adjustment backlog", zap.Error(err))
		return
	}
	for status, n := range counts {
		pm.backlog.Record(ctx, n, AttrMetricStatus.String(status))
	}
}

// Stop ends backlog collection.
func (pm *ProcurementMetrics) Stop() {
	pm.stopOnce.Do(func() {
		close(pm.stopChan)
	})
}
