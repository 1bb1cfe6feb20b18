package inventory

import (
	"context"

	"github.com/erp/purchasing/internal/domain/inventory"
	"github.com/google/uuid"
)

// DefaultMovementLimit is the number of movements returned with a stock level
const DefaultMovementLimit = 20

// StockLevelResponse is the on-hand quantity of a product with its latest movements
type StockLevelResponse struct {
	ProductID  uuid.UUID            `json:"product_id"`
	StockLevel int64                `json:"stock_level"`
	Movements  []inventory.Movement `json:"movements"`
}

// StockQueryService answers stock level queries against the inventory store
type StockQueryService struct {
	store        inventory.Store
	movements    inventory.MovementReader
	defaultLimit int
}

// NewStockQueryService creates a StockQueryService. movements may be nil.
func NewStockQueryService(store inventory.Store, movements inventory.MovementReader) *StockQueryService {
	return &StockQueryService{store: store, movements: movements, defaultLimit: DefaultMovementLimit}
}

// SetDefaultLimit changes the number of movements returned when the caller
// asks for none or for more than 100
func (s *StockQueryService) SetDefaultLimit(limit int) {
	if limit > 0 && limit <= 100 {
		s.defaultLimit = limit
	}
}

// GetStockLevel returns the stock level of a product and, when the store keeps
// a movement log, its latest movements
func (s *StockQueryService) GetStockLevel(ctx context.Context, productID uuid.UUID, limit int) (*StockLevelResponse, error) {
	level, err := s.store.GetStock(ctx, productID)
	if err != nil {
		return nil, err
	}

	resp := &StockLevelResponse{
		ProductID:  productID,
		StockLevel: level,
		Movements:  []inventory.Movement{},
	}
	if s.movements == nil {
		return resp, nil
	}

	if limit <= 0 || limit > 100 {
		limit = s.defaultLimit
	}
	movements, err := s.movements.ListMovements(ctx, productID, limit)
	if err != nil {
		return nil, err
	}
	resp.Movements = movements
	return resp, nil
}
