package handler

import (
	"errors"
	"net/http"
	"testing"

	inventoryapp "github.com/erp/purchasing/internal/application/inventory"
	"github.com/erp/purchasing/internal/domain/inventory"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/erp/purchasing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newInventoryRouter(stock StockQuery) *gin.Engine {
	h := NewInventoryHandler(stock)
	router := gin.New()
	router.GET("/api/v1/inventory/:product_id", h.GetStockLevel)
	return router
}

func TestInventoryHandler_GetStockLevel(t *testing.T) {
	productID := uuid.New()

	t.Run("found", func(t *testing.T) {
		stock := new(MockStockQuery)
		stock.On("GetStockLevel", mock.Anything, productID, 5).Return(&inventoryapp.StockLevelResponse{
			ProductID:  productID,
			StockLevel: 42,
			Movements:  []inventory.Movement{},
		}, nil).Once()

		w := serve(newInventoryRouter(stock), http.MethodGet, "/api/v1/inventory/"+productID.String()+"?limit=5", "")

		assert.Equal(t, http.StatusOK, w.Code)
		env := decode[inventoryapp.StockLevelResponse](t, w)
		assert.Equal(t, int64(42), env.Data.StockLevel)
		assert.Equal(t, productID, env.Data.ProductID)
		stock.AssertExpectations(t)
	})

	t.Run("default limit", func(t *testing.T) {
		stock := new(MockStockQuery)
		stock.On("GetStockLevel", mock.Anything, productID, 0).
			Return(&inventoryapp.StockLevelResponse{ProductID: productID}, nil).Once()

		w := serve(newInventoryRouter(stock), http.MethodGet, "/api/v1/inventory/"+productID.String(), "")

		assert.Equal(t, http.StatusOK, w.Code)
		stock.AssertExpectations(t)
	})

	t.Run("bad input", func(t *testing.T) {
		stock := new(MockStockQuery)
		router := newInventoryRouter(stock)

		assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodGet, "/api/v1/inventory/xyz", "").Code)
		assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodGet, "/api/v1/inventory/"+productID.String()+"?limit=-1", "").Code)
		assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodGet, "/api/v1/inventory/"+productID.String()+"?limit=ten", "").Code)
		stock.AssertNotCalled(t, "GetStockLevel", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("store failure", func(t *testing.T) {
		stock := new(MockStockQuery)
		stock.On("GetStockLevel", mock.Anything, productID, 0).
			Return(nil, shared.NewDomainError(shared.CodeStore, "inventory store unavailable")).Once()

		w := serve(newInventoryRouter(stock), http.MethodGet, "/api/v1/inventory/"+productID.String(), "")

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, dto.ErrCodeStore, decode[any](t, w).Error.Code)
	})

	t.Run("unexpected failure", func(t *testing.T) {
		stock := new(MockStockQuery)
		stock.On("GetStockLevel", mock.Anything, productID, 0).Return(nil, errors.New("boom")).Once()

		w := serve(newInventoryRouter(stock), http.MethodGet, "/api/v1/inventory/"+productID.String(), "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
