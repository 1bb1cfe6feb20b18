package inventory

import (
	"time"

	"github.com/google/uuid"
)

// StockRecord is the on-hand quantity of one product
type StockRecord struct {
	ProductID  uuid.UUID `json:"product_id"`
	StockLevel int64     `json:"stock_level"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Movement is one applied change of a stock level
type Movement struct {
	ID         uuid.UUID `json:"id"`
	ProductID  uuid.UUID `json:"product_id"`
	Delta      int64     `json:"delta"`
	StockAfter int64     `json:"stock_after"`
	Reference  string    `json:"reference"`
	CreatedAt  time.Time `json:"created_at"`
}
