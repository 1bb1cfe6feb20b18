package procurement

import (
	"context"
	"sync"
	"time"

	"github.com/erp/purchasing/internal/domain/procurement"
	"go.uber.org/zap"
)

// AdjustmentProcessorConfig holds configuration for the stock adjustment retry worker
type AdjustmentProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// GracePeriod leaves fresh pending adjustments to the request that created them
	GracePeriod time.Duration
}

// DefaultAdjustmentProcessorConfig returns default configuration
func DefaultAdjustmentProcessorConfig() AdjustmentProcessorConfig {
	return AdjustmentProcessorConfig{
		BatchSize:    50,
		PollInterval: 30 * time.Second,
		GracePeriod:  time.Minute,
	}
}

// AdjustmentProcessor re-applies pending and failed stock adjustments in the
// background with exponential backoff until they succeed or go dead
type AdjustmentProcessor struct {
	repo     procurement.StockAdjustmentRepository
	adjuster *InventoryAdjuster
	config   AdjustmentProcessorConfig
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAdjustmentProcessor creates a new AdjustmentProcessor
func NewAdjustmentProcessor(
	repo procurement.StockAdjustmentRepository,
	adjuster *InventoryAdjuster,
	config AdjustmentProcessorConfig,
	logger *zap.Logger,
) *AdjustmentProcessor {
	defaults := DefaultAdjustmentProcessorConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.GracePeriod < 0 {
		config.GracePeriod = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdjustmentProcessor{
		repo:     repo,
		adjuster: adjuster,
		config:   config,
		logger:   logger,
	}
}

// Start starts the background loop
func (p *AdjustmentProcessor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.loop(ctx)

	p.logger.Info("stock adjustment processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Duration("grace_period", p.config.GracePeriod),
	)
	return nil
}

// Stop stops the loop and waits for the current batch to finish
func (p *AdjustmentProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("stock adjustment processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *AdjustmentProcessor) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch applies one batch of due adjustments and returns how many were applied
func (p *AdjustmentProcessor) ProcessBatch(ctx context.Context) int {
	due, err := p.repo.FindRetryable(ctx, time.Now().Add(-p.config.GracePeriod), p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find retryable stock adjustments", zap.Error(err))
		return 0
	}
	if len(due) == 0 {
		return 0
	}

	result := p.adjuster.Apply(ctx, due)
	for _, adj := range result.Adjustments {
		if adj.Status == procurement.AdjustmentDead {
			p.logger.Error("stock adjustment moved to dead letter",
				zap.String("adjustment_id", adj.ID.String()),
				zap.String("purchase_order_id", adj.PurchaseOrderID.String()),
				zap.String("product_id", adj.ProductID.String()),
				zap.Int64("delta", adj.Delta),
				zap.Int("attempts", adj.Attempts),
				zap.String("last_error", adj.LastError),
			)
		}
	}

	p.logger.Info("stock adjustment batch processed",
		zap.Int("due", len(due)),
		zap.Int("applied", result.Applied),
		zap.Int("failed", len(result.Failures)),
	)
	return result.Applied
}
