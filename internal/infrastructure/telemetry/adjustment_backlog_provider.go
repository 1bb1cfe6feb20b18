package telemetry

import (
	"context"

	"gorm.io/gorm"
)

// GormAdjustmentBacklogProvider implements AdjustmentBacklogProvider by
// aggregating the stock_adjustments table directly.
type GormAdjustmentBacklogProvider struct {
	db *gorm.DB
}

// NewGormAdjustmentBacklogProvider creates a new GormAdjustmentBacklogProvider.
func NewGormAdjustmentBacklogProvider(db *gorm.DB) *GormAdjustmentBacklogProvider {
	return &GormAdjustmentBacklogProvider{db: db}
}

// CountAdjustmentsByStatus returns the number of adjustments per status.
func (p *GormAdjustmentBacklogProvider) CountAdjustmentsByStatus(ctx context.Context) (map[string]int64, error) {
	type result struct {
		Status string `gorm:"column:status"`
		Count  int64  `gorm:"column:count"`
	}

	var results []result
	err := p.db.WithContext(ctx).
		Table("stock_adjustments").
		Select("status, COUNT(*) AS count").
		Group("status").
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(results))
	for _, r := range results {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
