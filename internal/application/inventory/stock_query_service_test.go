package inventory

import (
	"context"
	"fmt"
	"testing"

	"github.com/erp/purchasing/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockQueryService_GetStockLevel(t *testing.T) {
	ctx := context.Background()
	store := inventory.NewMemoryStore()
	productID := uuid.New()
	for i := 0; i < 3; i++ {
		_, err := store.AdjustStock(ctx, productID, 5, fmt.Sprintf("po-%d", i))
		require.NoError(t, err)
	}

	svc := NewStockQueryService(store, store)
	resp, err := svc.GetStockLevel(ctx, productID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(15), resp.StockLevel)
	assert.Len(t, resp.Movements, 2)
	assert.Equal(t, int64(15), resp.Movements[0].StockAfter)
}

func TestStockQueryService_UnknownProduct(t *testing.T) {
	svc := NewStockQueryService(inventory.NewMemoryStore(), nil)
	resp, err := svc.GetStockLevel(context.Background(), uuid.New(), 0)
	require.NoError(t, err)
	assert.Zero(t, resp.StockLevel)
	assert.Empty(t, resp.Movements)
}

func TestStockQueryService_DefaultLimit(t *testing.T) {
	ctx := context.Background()
	store := inventory.NewMemoryStore()
	productID := uuid.New()
	for i := 0; i < 5; i++ {
		_, err := store.AdjustStock(ctx, productID, 1, fmt.Sprintf("po-%d", i))
		require.NoError(t, err)
	}

	svc := NewStockQueryService(store, store)
	svc.SetDefaultLimit(3)
	svc.SetDefaultLimit(0)

	resp, err := svc.GetStockLevel(ctx, productID, 0)
	require.NoError(t, err)
	assert.Len(t, resp.Movements, 3)

	resp, err = svc.GetStockLevel(ctx, productID, 500)
	require.NoError(t, err)
	assert.Len(t, resp.Movements, 3)
}
