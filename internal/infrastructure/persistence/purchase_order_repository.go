package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/purchasing/internal/domain/procurement"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/erp/purchasing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormPurchaseOrderRepository implements PurchaseOrderRepository using GORM
type GormPurchaseOrderRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
	now         func() time.Time
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: db, now: time.Now}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormPurchaseOrderRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID finds a purchase order with its lines by ID
func (r *GormPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*procurement.PurchaseOrder, error) {
	var model models.PurchaseOrderModel
	if err := r.withLines(r.db.WithContext(ctx)).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, procurement.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOrderNumber finds a purchase order by its order number
func (r *GormPurchaseOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*procurement.PurchaseOrder, error) {
	var model models.PurchaseOrderModel
	if err := r.withLines(r.db.WithContext(ctx)).
		Where("order_number = ?", orderNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, procurement.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds purchase orders matching the filter
func (r *GormPurchaseOrderRepository) FindAll(ctx context.Context, filter procurement.OrderFilter) ([]procurement.PurchaseOrder, error) {
	var orderModels []models.PurchaseOrderModel

	query := r.db.WithContext(ctx).Model(&models.PurchaseOrderModel{})
	query = r.applyFilter(query, filter)

	if err := r.withLines(query).Find(&orderModels).Error; err != nil {
		return nil, err
	}
	orders := make([]procurement.PurchaseOrder, len(orderModels))
	for i := range orderModels {
		orders[i] = *orderModels[i].ToDomain()
	}
	return orders, nil
}

// Count counts purchase orders matching the filter
func (r *GormPurchaseOrderRepository) Count(ctx context.Context, filter procurement.OrderFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.PurchaseOrderModel{})
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates an order and its lines without a version check
func (r *GormPurchaseOrderRepository) Save(ctx context.Context, order *procurement.PurchaseOrder) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.saveAll(tx, order)
	})
	if err != nil {
		return err
	}
	order.ClearPendingAdjustments()
	return nil
}

// SaveWithEvents saves a new order and writes its events to the outbox in one transaction
func (r *GormPurchaseOrderRepository) SaveWithEvents(ctx context.Context, order *procurement.PurchaseOrder, events []shared.DomainEvent) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.saveAll(tx, order); err != nil {
			return err
		}
		return r.saveEvents(ctx, tx, events)
	})
	if err != nil {
		return err
	}
	order.ClearPendingAdjustments()
	return nil
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormPurchaseOrderRepository) SaveWithLock(ctx context.Context, order *procurement.PurchaseOrder) error {
	return r.saveVersioned(ctx, order, nil)
}

// SaveWithLockAndEvents saves with optimistic locking and persists domain events atomically.
// The order row, its lines, the stock adjustments raised by the last event and the
// outbox entries are written in the same transaction.
func (r *GormPurchaseOrderRepository) SaveWithLockAndEvents(ctx context.Context, order *procurement.PurchaseOrder, events []shared.DomainEvent) error {
	return r.saveVersioned(ctx, order, events)
}

func (r *GormPurchaseOrderRepository) saveVersioned(ctx context.Context, order *procurement.PurchaseOrder, events []shared.DomainEvent) error {
	updatedAt := r.now()
	nextVersion := order.Version + 1

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.PurchaseOrderModel
		if err := tx.Select("id", "version").
			Where("id = ?", order.ID).
			Take(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return procurement.ErrOrderNotFound
			}
			return err
		}

		if current.Version != order.Version {
			return concurrentModification(order, current.Version)
		}

		result := tx.Model(&models.PurchaseOrderModel{}).
			Where("id = ? AND version = ?", order.ID, order.Version).
			Updates(map[string]any{
				"supplier_id":         order.SupplierID,
				"supplier_name":       order.SupplierName,
				"supplier_email":      order.SupplierEmail,
				"status":              string(order.Status),
				"payment_terms":       order.PaymentTerms,
				"notes":               order.Notes,
				"cancellation_reason": order.CancellationReason,
				"total_amount":        order.TotalAmount,
				"sent_at":             order.SentAt,
				"confirmed_at":        order.ConfirmedAt,
				"canceled_at":         order.CanceledAt,
				"version":             nextVersion,
				"updated_at":          updatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return concurrentModification(order, current.Version)
		}

		if err := r.syncLines(tx, order); err != nil {
			return err
		}
		if err := r.insertAdjustments(tx, order.PendingAdjustments()); err != nil {
			return err
		}
		return r.saveEvents(ctx, tx, events)
	})
	if err != nil {
		return err
	}

	order.IncrementVersion()
	order.UpdatedAt = updatedAt
	order.ClearPendingAdjustments()
	return nil
}

// Delete removes an order and its lines
func (r *GormPurchaseOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.PurchaseOrderLineModel{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.PurchaseOrderModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return procurement.ErrOrderNotFound
		}
		return nil
	})
}

// ExistsByOrderNumber checks if an order number is taken
func (r *GormPurchaseOrderRepository) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderModel{}).
		Where("order_number = ?", orderNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GenerateOrderNumber generates the next order number of the day.
// Format: PO-YYYYMMDD-NNNN (e.g., PO-20260105-0001)
func (r *GormPurchaseOrderRepository) GenerateOrderNumber(ctx context.Context) (string, error) {
	prefix := "PO-" + r.now().UTC().Format("20060102") + "-"

	var lastOrder models.PurchaseOrderModel
	err := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderModel{}).
		Select("order_number").
		Where("order_number LIKE ?", prefix+"%").
		Order("order_number DESC").
		Take(&lastOrder).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	nextNum := 1
	if err == nil {
		var num int
		if _, scanErr := fmt.Sscanf(strings.TrimPrefix(lastOrder.OrderNumber, prefix), "%d", &num); scanErr == nil {
			nextNum = num + 1
		}
	}

	for range 100 {
		orderNumber := fmt.Sprintf("%s%04d", prefix, nextNum)
		exists, err := r.ExistsByOrderNumber(ctx, orderNumber)
		if err != nil {
			return "", err
		}
		if !exists {
			return orderNumber, nil
		}
		nextNum++
	}
	return "", fmt.Errorf("no free order number for prefix %s", prefix)
}

func (r *GormPurchaseOrderRepository) withLines(query *gorm.DB) *gorm.DB {
	return query.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("line_no ASC")
	})
}

// saveAll writes the order row, its lines and pending adjustments
func (r *GormPurchaseOrderRepository) saveAll(tx *gorm.DB, order *procurement.PurchaseOrder) error {
	model := models.PurchaseOrderModelFromDomain(order)
	if err := tx.Omit("Lines").Save(model).Error; err != nil {
		return err
	}
	if err := r.syncLines(tx, order); err != nil {
		return err
	}
	return r.insertAdjustments(tx, order.PendingAdjustments())
}

// syncLines deletes lines no longer on the order and upserts the rest
func (r *GormPurchaseOrderRepository) syncLines(tx *gorm.DB, order *procurement.PurchaseOrder) error {
	currentLineIDs := make([]uuid.UUID, len(order.Lines))
	for i, line := range order.Lines {
		currentLineIDs[i] = line.ID
	}

	remove := tx.Where("order_id = ?", order.ID)
	if len(currentLineIDs) > 0 {
		remove = remove.Where("id NOT IN ?", currentLineIDs)
	}
	if err := remove.Delete(&models.PurchaseOrderLineModel{}).Error; err != nil {
		return err
	}

	for i := range order.Lines {
		order.Lines[i].OrderID = order.ID
		lineModel := models.PurchaseOrderLineModelFromDomain(&order.Lines[i])
		if err := tx.Save(lineModel).Error; err != nil {
			return err
		}
	}
	return nil
}

// insertAdjustments records new ledger entries. An entry already written for
// the same order, line and sequence is left untouched.
func (r *GormPurchaseOrderRepository) insertAdjustments(tx *gorm.DB, adjustments []procurement.StockAdjustment) error {
	if len(adjustments) == 0 {
		return nil
	}
	rows := make([]*models.StockAdjustmentModel, len(adjustments))
	for i := range adjustments {
		rows[i] = models.StockAdjustmentModelFromDomain(&adjustments[i])
	}
	// a conflicting row fails the save so the ledger never lags the credits
	return tx.Create(&rows).Error
}

func (r *GormPurchaseOrderRepository) saveEvents(ctx context.Context, tx *gorm.DB, events []shared.DomainEvent) error {
	if r.outboxSaver == nil || len(events) == 0 {
		return nil
	}
	if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
		return fmt.Errorf("failed to save events to outbox: %w", err)
	}
	return nil
}

// applyFilter applies filter options to the query
func (r *GormPurchaseOrderRepository) applyFilter(query *gorm.DB, filter procurement.OrderFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	return query.Order(orderClause(filter.OrderBy, filter.OrderDir)).Order("id ASC")
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormPurchaseOrderRepository) applyFilterWithoutPagination(query *gorm.DB, filter procurement.OrderFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(order_number) LIKE ? OR LOWER(supplier_name) LIKE ?",
			searchPattern, searchPattern)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}

	for key, value := range filter.Filters {
		switch key {
		case "statuses":
			if statuses, ok := value.([]string); ok && len(statuses) > 0 {
				query = query.Where("status IN ?", statuses)
			}
		case "start_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at >= ?", t)
			}
		case "end_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at <= ?", t)
			}
		case "min_amount":
			if d, ok := value.(decimal.Decimal); ok {
				query = query.Where("total_amount >= ?", d)
			}
		case "max_amount":
			if d, ok := value.(decimal.Decimal); ok {
				query = query.Where("total_amount <= ?", d)
			}
		}
	}

	return query
}

func concurrentModification(order *procurement.PurchaseOrder, storedVersion int) error {
	return shared.ErrConcurrentModification.
		WithDetail("order_id", order.ID.String()).
		WithDetail("expected_version", order.Version).
		WithDetail("stored_version", storedVersion)
}

// Ensure GormPurchaseOrderRepository implements PurchaseOrderRepository
var _ procurement.PurchaseOrderRepository = (*GormPurchaseOrderRepository)(nil)
