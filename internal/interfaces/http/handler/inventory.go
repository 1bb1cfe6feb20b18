package handler

import (
	"context"
	"strconv"

	inventoryapp "github.com/erp/purchasing/internal/application/inventory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StockQuery answers stock level lookups
type StockQuery interface {
	GetStockLevel(ctx context.Context, productID uuid.UUID, limit int) (*inventoryapp.StockLevelResponse, error)
}

// InventoryHandler handles inventory API endpoints
type InventoryHandler struct {
	BaseHandler
	stock StockQuery
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(stock StockQuery) *InventoryHandler {
	return &InventoryHandler{stock: stock}
}

// GetStockLevel godoc
// @ID           getInventoryStockLevel
// @Summary      Get the stock level of a product
// @Description  On-hand quantity with the latest stock movements. Unknown products report 0.
// @Tags         inventory
// @Produce      json
// @Param        product_id path string true "Product ID" format(uuid)
// @Param        limit query int false "Movements to return" default(20) maximum(100)
// @Success      200 {object} APIResponse[inventoryapp.StockLevelResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/{product_id} [get]
func (h *InventoryHandler) GetStockLevel(c *gin.Context) {
	productID, ok := h.parseUUIDParam(c, "product_id", "product ID")
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.BadRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	level, err := h.stock.GetStockLevel(c.Request.Context(), productID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, level)
}
