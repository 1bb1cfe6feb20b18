package persistence

import (
	"context"

	appprocurement "github.com/erp/purchasing/internal/application/procurement"
	"github.com/erp/purchasing/internal/domain/procurement"
	"github.com/erp/purchasing/internal/domain/shared"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Repositories handed to the callback share one transaction and the outbox saver.
type GormTransactionScope struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB, outboxSaver shared.OutboxEventSaver) *GormTransactionScope {
	return &GormTransactionScope{db: db, outboxSaver: outboxSaver}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appprocurement.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, outboxSaver: s.outboxSaver})
	})
}

type gormTransactionalRepositories struct {
	tx          *gorm.DB
	outboxSaver shared.OutboxEventSaver
}

// OrderRepo returns the purchase order repository scoped to the current transaction.
func (r *gormTransactionalRepositories) OrderRepo() procurement.PurchaseOrderRepository {
	repo := NewGormPurchaseOrderRepository(r.tx)
	if r.outboxSaver != nil {
		repo.SetOutboxEventSaver(r.outboxSaver)
	}
	return repo
}

// AdjustmentRepo returns the stock adjustment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) AdjustmentRepo() procurement.StockAdjustmentRepository {
	return NewGormStockAdjustmentRepository(r.tx)
}

var (
	_ appprocurement.TransactionScope          = (*GormTransactionScope)(nil)
	_ appprocurement.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
