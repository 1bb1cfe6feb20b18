package procurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/purchasing/internal/domain/inventory"
	"github.com/erp/purchasing/internal/domain/procurement"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/erp/purchasing/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// AdjustResult is the outcome of applying a batch of stock adjustments
type AdjustResult struct {
	Attempted   int
	Applied     int
	Failures    []procurement.AdjustmentFailure
	Adjustments []procurement.StockAdjustment
}

// HasFailures reports whether any adjustment failed
func (r *AdjustResult) HasFailures() bool {
	return len(r.Failures) > 0
}

// InventoryAdjuster credits pending stock adjustments to the inventory store.
// Every call carries the adjustment's movement reference and the store
// applies a reference at most once, so a replay after a lost state update
// credits nothing. The idempotency store only holds a short in-flight claim
// that keeps two workers off the same adjustment. A failed line does not undo
// lines applied before it.
type InventoryAdjuster struct {
	store          inventory.Store
	adjustmentRepo procurement.StockAdjustmentRepository
	idempotency    shared.IdempotencyStore
	claimTTL       time.Duration
	logger         *zap.Logger
	metrics        *telemetry.ProcurementMetrics
}

// NewInventoryAdjuster creates a new InventoryAdjuster. idempotency may be nil,
// in which case adjustments are applied without a claim.
func NewInventoryAdjuster(
	store inventory.Store,
	adjustmentRepo procurement.StockAdjustmentRepository,
	idempotency shared.IdempotencyStore,
	logger *zap.Logger,
) *InventoryAdjuster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryAdjuster{
		store:          store,
		adjustmentRepo: adjustmentRepo,
		idempotency:    idempotency,
		claimTTL:       DefaultAdjustmentClaimTTL,
		logger:         logger,
	}
}

// DefaultAdjustmentClaimTTL bounds how long a crashed worker's claim blocks retries
const DefaultAdjustmentClaimTTL = 2 * time.Minute

// ErrAdjustmentInFlight is reported for an adjustment another worker holds
var ErrAdjustmentInFlight = errors.New("stock adjustment is being applied by another worker")

// SetClaimTTL sets how long an in-flight claim is held at most
func (a *InventoryAdjuster) SetClaimTTL(ttl time.Duration) {
	if ttl > 0 {
		a.claimTTL = ttl
	}
}

// SetMetrics sets the procurement metrics collector
func (a *InventoryAdjuster) SetMetrics(m *telemetry.ProcurementMetrics) {
	a.metrics = m
}

// Apply applies each outstanding adjustment and records its delivery state
func (a *InventoryAdjuster) Apply(ctx context.Context, adjustments []procurement.StockAdjustment) *AdjustResult {
	result := &AdjustResult{}

	for i := range adjustments {
		adj := adjustments[i]
		if !adj.IsOutstanding() {
			result.Adjustments = append(result.Adjustments, adj)
			continue
		}
		result.Attempted++

		err := a.applyOne(ctx, &adj)
		if err != nil {
			adj.MarkFailed(err.Error())
			result.Failures = append(result.Failures, procurement.AdjustmentFailure{
				AdjustmentID: adj.ID,
				LineID:       adj.LineID,
				ProductID:    adj.ProductID,
				Delta:        adj.Delta,
				Error:        err.Error(),
			})
			a.logger.Warn("stock adjustment failed",
				zap.String("adjustment_id", adj.ID.String()),
				zap.String("purchase_order_id", adj.PurchaseOrderID.String()),
				zap.String("product_id", adj.ProductID.String()),
				zap.Int64("delta", adj.Delta),
				zap.Int("attempts", adj.Attempts),
				zap.String("status", string(adj.Status)),
				zap.Error(err),
			)
			a.recordOutcome(ctx, "failed")
		} else {
			adj.MarkApplied()
			result.Applied++
			a.recordOutcome(ctx, "applied")
		}

		if a.adjustmentRepo != nil {
			if uerr := a.adjustmentRepo.Update(ctx, &adj); uerr != nil {
				// the movement reference keeps a later retry from crediting twice
				a.logger.Error("failed to record stock adjustment state",
					zap.String("adjustment_id", adj.ID.String()),
					zap.String("status", string(adj.Status)),
					zap.Error(uerr),
				)
			}
		}
		result.Adjustments = append(result.Adjustments, adj)
	}

	return result
}

func (a *InventoryAdjuster) applyOne(ctx context.Context, adj *procurement.StockAdjustment) error {
	if a.idempotency != nil {
		key := adj.IdempotencyKey()
		claimed, err := a.idempotency.MarkProcessed(ctx, key, a.claimTTL)
		if err != nil {
			return fmt.Errorf("claim adjustment: %w", err)
		}
		if !claimed {
			return ErrAdjustmentInFlight
		}
		defer a.releaseClaim(ctx, adj, key)
	}

	level, err := a.store.AdjustStock(ctx, adj.ProductID, adj.Delta, adj.Reference())
	if err != nil {
		return err
	}

	a.logger.Debug("stock adjusted",
		zap.String("adjustment_id", adj.ID.String()),
		zap.String("product_id", adj.ProductID.String()),
		zap.Int64("delta", adj.Delta),
		zap.Int64("stock_level", level),
		zap.String("mode", string(adj.Mode)),
	)
	return nil
}

// releaseClaim runs even when the request was canceled. A claim that cannot
// be released expires after claimTTL.
func (a *InventoryAdjuster) releaseClaim(ctx context.Context, adj *procurement.StockAdjustment, key string) {
	if err := a.idempotency.Release(context.WithoutCancel(ctx), key); err != nil {
		a.logger.Warn("failed to release adjustment claim",
			zap.String("adjustment_id", adj.ID.String()),
			zap.Duration("expires_in", a.claimTTL),
			zap.Error(err),
		)
	}
}

func (a *InventoryAdjuster) recordOutcome(ctx context.Context, outcome string) {
	if a.metrics != nil {
		a.metrics.RecordAdjustment(ctx, outcome)
	}
}
