package procurement

import (
	"context"

	"github.com/erp/purchasing/internal/domain/procurement"
)

// TransactionScope runs a load-modify-save cycle in one database transaction.
// If fn returns an error the transaction is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to repositories bound to the current transaction
type TransactionalRepositories interface {
	// OrderRepo returns the purchase order repository scoped to the transaction
	OrderRepo() procurement.PurchaseOrderRepository
	// AdjustmentRepo returns the stock adjustment repository scoped to the transaction
	AdjustmentRepo() procurement.StockAdjustmentRepository
}

// NoOpTransactionScope runs fn directly against the given repositories.
// Used by tests and by stores without transaction support.
type NoOpTransactionScope struct {
	orderRepo      procurement.PurchaseOrderRepository
	adjustmentRepo procurement.StockAdjustmentRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(orderRepo procurement.PurchaseOrderRepository, adjustmentRepo procurement.StockAdjustmentRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{orderRepo: orderRepo, adjustmentRepo: adjustmentRepo}
}

// Execute runs fn without a transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// OrderRepo returns the purchase order repository
func (s *NoOpTransactionScope) OrderRepo() procurement.PurchaseOrderRepository {
	return s.orderRepo
}

// AdjustmentRepo returns the stock adjustment repository
func (s *NoOpTransactionScope) AdjustmentRepo() procurement.StockAdjustmentRepository {
	return s.adjustmentRepo
}

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
