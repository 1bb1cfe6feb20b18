package persistence

import (
	"context"
	"time"

	"github.com/erp/purchasing/internal/domain/procurement"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/erp/purchasing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockAdjustmentRepository implements StockAdjustmentRepository using GORM
type GormStockAdjustmentRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStockAdjustmentRepository creates a new GormStockAdjustmentRepository
func NewGormStockAdjustmentRepository(db *gorm.DB) *GormStockAdjustmentRepository {
	return &GormStockAdjustmentRepository{db: db, now: time.Now}
}

// FindByOrder lists the adjustments of an order, oldest first
func (r *GormStockAdjustmentRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]procurement.StockAdjustment, error) {
	var rows []models.StockAdjustmentModel
	if err := r.db.WithContext(ctx).
		Where("purchase_order_id = ?", orderID).
		Order("sequence ASC").
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toAdjustments(rows), nil
}

// FindRetryable lists outstanding adjustments created before the cutoff whose
// next attempt is due
func (r *GormStockAdjustmentRepository) FindRetryable(ctx context.Context, before time.Time, limit int) ([]procurement.StockAdjustment, error) {
	var rows []models.StockAdjustmentModel
	if err := r.db.WithContext(ctx).
		Where("status IN ?", []string{string(procurement.AdjustmentPending), string(procurement.AdjustmentFailed)}).
		Where("created_at <= ?", before).
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", r.now()).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toAdjustments(rows), nil
}

// Update persists the delivery state of an adjustment
func (r *GormStockAdjustmentRepository) Update(ctx context.Context, adjustment *procurement.StockAdjustment) error {
	result := r.db.WithContext(ctx).
		Model(&models.StockAdjustmentModel{}).
		Where("id = ?", adjustment.ID).
		Updates(map[string]any{
			"status":          string(adjustment.Status),
			"attempts":        adjustment.Attempts,
			"last_error":      adjustment.LastError,
			"next_attempt_at": adjustment.NextAttemptAt,
			"applied_at":      adjustment.AppliedAt,
			"updated_at":      adjustment.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound.WithDetail("adjustment_id", adjustment.ID.String())
	}
	return nil
}

// CountByStatus counts adjustments per status
func (r *GormStockAdjustmentRepository) CountByStatus(ctx context.Context) (map[procurement.AdjustmentStatus]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.StockAdjustmentModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[procurement.AdjustmentStatus]int64, len(rows))
	for _, row := range rows {
		counts[procurement.AdjustmentStatus(row.Status)] = row.Count
	}
	return counts, nil
}

func toAdjustments(rows []models.StockAdjustmentModel) []procurement.StockAdjustment {
	adjustments := make([]procurement.StockAdjustment, len(rows))
	for i := range rows {
		adjustments[i] = rows[i].ToDomain()
	}
	return adjustments
}

// Ensure GormStockAdjustmentRepository implements StockAdjustmentRepository
var _ procurement.StockAdjustmentRepository = (*GormStockAdjustmentRepository)(nil)
