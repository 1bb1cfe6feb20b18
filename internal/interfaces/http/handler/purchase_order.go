package handler

import (
	"context"
	"mime"
	"net/http"

	appprocurement "github.com/erp/purchasing/internal/application/procurement"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/erp/purchasing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PurchaseOrderService is the fulfillment API the purchase order endpoints use
type PurchaseOrderService interface {
	CreateOrder(ctx context.Context, req appprocurement.CreatePurchaseOrderRequest) (*appprocurement.PurchaseOrderResponse, error)
	UpdateDraftLines(ctx context.Context, orderID uuid.UUID, req appprocurement.UpdateLinesRequest) (*appprocurement.PurchaseOrderResponse, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*appprocurement.PurchaseOrderResponse, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*appprocurement.PurchaseOrderResponse, error)
	ListOrders(ctx context.Context, filter appprocurement.PurchaseOrderListFilter) (*shared.Paginated[appprocurement.PurchaseOrderListItemResponse], error)
	SubmitOrder(ctx context.Context, orderID uuid.UUID) (*appprocurement.PurchaseOrderResponse, error)
	SendOrder(ctx context.Context, orderID uuid.UUID) (*appprocurement.PurchaseOrderResponse, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, req appprocurement.CancelPurchaseOrderRequest) (*appprocurement.PurchaseOrderResponse, error)
	ConfirmOrder(ctx context.Context, orderID uuid.UUID, req appprocurement.ConfirmPurchaseOrderRequest) (*appprocurement.FulfillmentResultResponse, error)
	ReceiveItems(ctx context.Context, orderID uuid.UUID, req appprocurement.ReceiveItemsRequest) (*appprocurement.FulfillmentResultResponse, error)
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
	ListAdjustments(ctx context.Context, orderID uuid.UUID) ([]appprocurement.StockAdjustmentResponse, error)
	RetryAdjustments(ctx context.Context, orderID uuid.UUID) (*appprocurement.AdjustmentRetryResponse, error)
}

// DocumentService renders purchase orders as downloadable files
type DocumentService interface {
	RenderOrderPDF(ctx context.Context, orderID uuid.UUID) (*appprocurement.RenderedDocument, error)
	ExportOrder(ctx context.Context, orderID uuid.UUID) (*appprocurement.RenderedDocument, error)
}

// PurchaseOrderHandler handles purchase order API endpoints
type PurchaseOrderHandler struct {
	BaseHandler
	orders    PurchaseOrderService
	documents DocumentService
}

// NewPurchaseOrderHandler creates a new PurchaseOrderHandler. documents may be
// nil, in which case the PDF and export endpoints answer DOCUMENTS_DISABLED.
func NewPurchaseOrderHandler(orders PurchaseOrderService, documents DocumentService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{
		orders:    orders,
		documents: documents,
	}
}

// Create godoc
// @ID           createPurchaseOrder
// @Summary      Create a purchase order
// @Description  Create a draft purchase order. The order number is generated.
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Param        request body appprocurement.CreatePurchaseOrderRequest true "Order to create"
// @Success      201 {object} APIResponse[appprocurement.PurchaseOrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /purchase-orders [post]
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req appprocurement.CreatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, order)
}

// List godoc
// @ID           listPurchaseOrders
// @Summary      List purchase orders
// @Description  Paginated purchase order list with search and status filters
// @Tags         purchase-orders
// @Produce      json
// @Param        search query string false "Order number or supplier name"
// @Param        status query string false "Status" Enums(draft, pending, sent, confirmed, partially_fulfilled, canceled)
// @Param        supplier_id query string false "Supplier ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Param        order_by query string false "Sort field" Enums(created_at, updated_at, order_number, total_amount, status)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]appprocurement.PurchaseOrderListItemResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /purchase-orders [get]
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	var filter appprocurement.PurchaseOrderListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.orders.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// GetByID godoc
// @ID           getPurchaseOrder
// @Summary      Get a purchase order
// @Tags         purchase-orders
// @Produce      json
// @Param        id path string true "Purchase Order ID" format(uuid)
// @Success      200 {object} APIResponse[appprocurement.PurchaseOrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /purchase-orders/{id} [get]
func (h *PurchaseOrderHandler) GetByID(c *gin.Context) {
	orderID, ok := h.parseUUIDParam(c, "id", "order ID")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// GetByNumber godoc
// @ID           getPurchaseOrderByNumber
// @Summary      Get a purchase order by its number
// @Tags         purchase-orders
// @Produce      json
// @Param        number path string true "Order number" example(PO-20260115-0001)
// @Success      200 {object} APIResponse[appprocurement.PurchaseOrderResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /purchase-orders/number/{number} [get]
func (h *PurchaseOrderHandler) GetByNumber(c *gin.Context) {
	order, err := h.orders.GetOrderByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// UpdateLines godoc
// @ID           updatePurchaseOrderLines
// @Summary      Replace the lines of a draft order
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase Order ID" format(uuid)
// @Param        request body appprocurement.UpdateLinesRequest true "New lines"
// @Success      200 {object} APIResponse[appprocurement.PurchaseOrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /purchase-orders/{id}/lines [put]
func (h *PurchaseOrderHandler) UpdateLines(c *gin.Context) {
	orderID, ok := h.parseUUIDParam(c, "id", "order ID")
	if !ok {
		return
	}

	var req appprocurement.UpdateLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	order, err := h.orders.UpdateDraftLines(c.Request.Context(), orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// Delete godoc
// @ID           deletePurchaseOrder
// @Summary      Delete a draft or canceled order
// @Tags         purchase-orders
// @Param        id path string true "Purchase Order ID" format(uuid)
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /purchase-orders/{id} [delete]
func (h *PurchaseOrderHandler) Delete(c *gin.Context) {
	orderID, ok := h.parseUUIDParam(c, "id", "order ID")
	if !ok {
		return
	}

	if err := h.orders.DeleteOrder(c.Request.Context(), orderID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Submit godoc
// @ID           submitPurchaseOrder
// @Summary      Submit a draft order
// @Description  Moves a draft order with at least one line to pending
// @Tags         purchase-orders
// @Produce      json
// @Param        id path string true "Purchase Order ID" format(uuid)
// @Success      200 {object} APIResponse[appprocurement.PurchaseOrderResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /purchase-orders/{id}/submit [post]
func (h *PurchaseOrderHandler) Submit(c *gin.Context) {
	h.transition(c, h.orders.SubmitOrder)
}

// Send godoc
// @ID           sendPurchaseOrder
// @Summary      Send an order to the supplier
// @Description  Moves a pending order to sent and notifies the supplier
// @Tags         purchase-orders
// @Produce      json
// @Param        id path string true "Purchase Order ID" format(uuid)
// @Success      200 {object} APIResponse[appprocurement.PurchaseOrderResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /purchase-orders/{id}/send [post]
func (h *PurchaseOrderHandler) Send(c *gin.Context) {
	h.transition(c, h.orders.SendOrder)
}

// Cancel godoc
// @ID           cancelPurchaseOrder
// @Summary      Cancel an order
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase Order ID" format(uuid)
// @Param        request body appprocurement.CancelPurchaseOrderRequest false "Cancellation reason"
// @Success      200 {object} APIResponse[appprocurement.PurchaseOrderResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /purchase-orders/{id}/cancel [post]
func (h *PurchaseOrderHandler) Cancel(c *gin.Context) {
	orderID, ok := h.parseUUIDParam(c, "id", "order ID")
	if !ok {
		return
	}

	var req appprocurement.CancelPurchaseOrderRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	order, err := h.orders.CancelOrder(c.Request.Context(), orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// Confirm godoc
// @ID           confirmPurchaseOrder
// @Summary      Confirm an order
// @Description  Confirms a pending or sent order and credits the received quantities to inventory.
// @Description  Answers 207 with the committed result when some inventory adjustments did not apply.
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase Order ID" format(uuid)
// @Param        request body appprocurement.ConfirmPurchaseOrderRequest true "Confirmation"
// @Success      200 {object} APIResponse[appprocurement.FulfillmentResultResponse]
// @Success      207 {object} PartialResponse[appprocurement.FulfillmentResultResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      502 {object} PartialResponse[appprocurement.FulfillmentResultResponse]
// @Security     BearerAuth
// @Router       /purchase-orders/{id}/confirm [post]
func (h *PurchaseOrderHandler) Confirm(c *gin.Context) {
	orderID, ok := h.parseUUIDParam(c, "id", "order ID")
	if !ok {
		return
	}

	var req appprocurement.ConfirmPurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.orders.ConfirmOrder(c.Request.Context(), orderID, req)
	h.HandleResult(c, resultOrNil(result), err)
}

// Receive godoc
// @ID           receivePurchaseOrder
// @Summary      Record received quantities
// @Description  Records cumulative received quantities per line. Only the increase over what was
// @Description  already recorded is credited to inventory, so a repeated request credits nothing.
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase Order ID" format(uuid)
// @Param        request body appprocurement.ReceiveItemsRequest true "Received lines"
// @Success      200 {object} APIResponse[appprocurement.FulfillmentResultResponse]
// @Success      207 {object} PartialResponse[appprocurement.FulfillmentResultResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      502 {object} PartialResponse[appprocurement.FulfillmentResultResponse]
// @Security     BearerAuth
// @Router       /purchase-orders/{id}/receive [post]
func (h *PurchaseOrderHandler) Receive(c *gin.Context) {
	orderID, ok := h.parseUUIDParam(c, "id", "order ID")
	if !ok {
		return
	}

	var req appprocurement.ReceiveItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.orders.ReceiveItems(c.Request.Context(), orderID, req)
	h.HandleResult(c, resultOrNil(result), err)
}

// ListAdjustments godoc
// @ID           listPurchaseOrderAdjustments
// @Summary      List the stock adjustments of an order
// @Tags         purchase-orders
// @Produce      json
// @Param        id path string true "Purchase Order ID" format(uuid)
// @Success      200 {object} APIResponse[[]appprocurement.StockAdjustmentResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /purchase-orders/{id}/adjustments [get]
func (h *PurchaseOrderHandler) ListAdjustments(c *gin.Context) {
	orderID, ok := h.parseUUIDParam(c, "id", "order ID")
	if !ok {
		return
	}

	adjustments, err := h.orders.ListAdjustments(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, adjustments)
}

// RetryAdjustments godoc
// @ID           retryPurchaseOrderAdjustments
// @Summary      Retry failed stock adjustments
// @Description  Re-applies the outstanding and dead stock adjustments of an order
// @Tags         purchase-orders
// @Produce      json
// @Param        id path string true "Purchase Order ID" format(uuid)
// @Success      200 {object} APIResponse[appprocurement.AdjustmentRetryResponse]
// @Success      207 {object} PartialResponse[appprocurement.AdjustmentRetryResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      502 {object} PartialResponse[appprocurement.AdjustmentRetryResponse]
// @Security     BearerAuth
// @Router       /purchase-orders/{id}/adjustments/retry [post]
func (h *PurchaseOrderHandler) RetryAdjustments(c *gin.Context) {
	orderID, ok := h.parseUUIDParam(c, "id", "order ID")
	if !ok {
		return
	}

	result, err := h.orders.RetryAdjustments(c.Request.Context(), orderID)
	var data any
	if result != nil {
		data = result
	}
	h.HandleResult(c, data, err)
}

// DownloadPDF godoc
// @ID           downloadPurchaseOrderPDF
// @Summary      Download the order as PDF
// @Description  Falls back to HTML when PDF rendering is disabled
// @Tags         purchase-orders
// @Produce      application/pdf
// @Param        id path string true "Purchase Order ID" format(uuid)
// @Success      200 {file} binary
// @Failure      404 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /purchase-orders/{id}/pdf [get]
func (h *PurchaseOrderHandler) DownloadPDF(c *gin.Context) {
	h.download(c, func(ctx context.Context, id uuid.UUID) (*appprocurement.RenderedDocument, error) {
		return h.documents.RenderOrderPDF(ctx, id)
	})
}

// Export godoc
// @ID           exportPurchaseOrder
// @Summary      Export the order as XLSX
// @Tags         purchase-orders
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        id path string true "Purchase Order ID" format(uuid)
// @Success      200 {file} binary
// @Failure      404 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /purchase-orders/{id}/export [get]
func (h *PurchaseOrderHandler) Export(c *gin.Context) {
	h.download(c, func(ctx context.Context, id uuid.UUID) (*appprocurement.RenderedDocument, error) {
		return h.documents.ExportOrder(ctx, id)
	})
}

func (h *PurchaseOrderHandler) transition(c *gin.Context, fn func(context.Context, uuid.UUID) (*appprocurement.PurchaseOrderResponse, error)) {
	orderID, ok := h.parseUUIDParam(c, "id", "order ID")
	if !ok {
		return
	}

	order, err := fn(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

func (h *PurchaseOrderHandler) download(c *gin.Context, render func(context.Context, uuid.UUID) (*appprocurement.RenderedDocument, error)) {
	orderID, ok := h.parseUUIDParam(c, "id", "order ID")
	if !ok {
		return
	}
	if h.documents == nil {
		h.HandleError(c, appprocurement.ErrDocumentsDisabled)
		return
	}

	doc, err := render(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	content := doc.Content
	contentType := doc.ContentType
	if len(content) == 0 {
		content = []byte(doc.HTML)
		contentType = "text/html; charset=utf-8"
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
	c.Data(http.StatusOK, contentType, content)
}

// bindOptionalJSON binds the body when there is one
func (h *PurchaseOrderHandler) bindOptionalJSON(c *gin.Context, obj any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// resultOrNil keeps a typed nil pointer from reaching HandleResult as a non-nil any
func resultOrNil(r *appprocurement.FulfillmentResultResponse) any {
	if r == nil {
		return nil
	}
	return r
}
