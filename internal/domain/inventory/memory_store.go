package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for tests and local runs
type MemoryStore struct {
	mu         sync.Mutex
	levels     map[uuid.UUID]int64
	movements  []Movement
	references map[string]struct{}
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		levels:     make(map[uuid.UUID]int64),
		references: make(map[string]struct{}),
	}
}

// GetStock implements Store
func (s *MemoryStore) GetStock(ctx context.Context, productID uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, NewStoreError("get", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.levels[productID], nil
}

// AdjustStock implements Store. A reference that was already applied leaves
// the level unchanged.
func (s *MemoryStore) AdjustStock(ctx context.Context, productID uuid.UUID, delta int64, reference string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, NewStoreError("adjust", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	level := s.levels[productID]
	if reference != "" {
		if _, seen := s.references[reference]; seen {
			return level, nil
		}
	}
	if level+delta < 0 {
		return level, NewInsufficientStockError(productID, level, delta)
	}
	level += delta
	s.levels[productID] = level
	if reference != "" {
		s.references[reference] = struct{}{}
	}
	s.movements = append(s.movements, Movement{
		ID:         uuid.New(),
		ProductID:  productID,
		Delta:      delta,
		StockAfter: level,
		Reference:  reference,
		CreatedAt:  time.Now(),
	})
	return level, nil
}

// ListMovements implements MovementReader
func (s *MemoryStore) ListMovements(ctx context.Context, productID uuid.UUID, limit int) ([]Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Movement, 0)
	for i := len(s.movements) - 1; i >= 0; i-- {
		if s.movements[i].ProductID != productID {
			continue
		}
		result = append(result, s.movements[i])
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

var (
	_ Store          = (*MemoryStore)(nil)
	_ MovementReader = (*MemoryStore)(nil)
)
