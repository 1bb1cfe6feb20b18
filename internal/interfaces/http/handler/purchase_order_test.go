package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appprocurement "github.com/erp/purchasing/internal/application/procurement"
	"github.com/erp/purchasing/internal/domain/procurement"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/erp/purchasing/internal/interfaces/http/dto"
	"github.com/erp/purchasing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newPurchaseOrderRouter(orders PurchaseOrderService, documents DocumentService) *gin.Engine {
	middleware.SetupValidator()
	h := NewPurchaseOrderHandler(orders, documents)

	router := gin.New()
	router.Use(middleware.RequestID())
	po := router.Group("/api/v1/purchase-orders")
	po.POST("", h.Create)
	po.GET("", h.List)
	po.GET("/number/:number", h.GetByNumber)
	po.GET("/:id", h.GetByID)
	po.PUT("/:id/lines", h.UpdateLines)
	po.DELETE("/:id", h.Delete)
	po.POST("/:id/submit", h.Submit)
	po.POST("/:id/send", h.Send)
	po.POST("/:id/confirm", h.Confirm)
	po.POST("/:id/cancel", h.Cancel)
	po.POST("/:id/receive", h.Receive)
	po.GET("/:id/adjustments", h.ListAdjustments)
	po.POST("/:id/adjustments/retry", h.RetryAdjustments)
	po.GET("/:id/pdf", h.DownloadPDF)
	po.GET("/:id/export", h.Export)
	return router
}

func serve(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sampleOrder(status procurement.Status) *appprocurement.PurchaseOrderResponse {
	return &appprocurement.PurchaseOrderResponse{
		ID:           uuid.New(),
		OrderNumber:  "PO-20260115-0001",
		Status:       string(status),
		SupplierID:   uuid.New(),
		SupplierName: "Acme Supplies",
		TotalAmount:  decimal.RequireFromString("125.50"),
		Version:      1,
	}
}

func TestPurchaseOrderHandler_Create(t *testing.T) {
	svc := new(MockPurchaseOrderService)
	router := newPurchaseOrderRouter(svc, nil)
	supplierID := uuid.New()
	productID := uuid.New()

	svc.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req appprocurement.CreatePurchaseOrderRequest) bool {
		return req.SupplierID == supplierID &&
			len(req.Lines) == 1 &&
			req.Lines[0].Quantity == 10 &&
			req.Lines[0].UnitPrice.Equal(decimal.RequireFromString("12.55"))
	})).Return(sampleOrder(procurement.StatusDraft), nil).Once()

	body := `{"supplier_id":"` + supplierID.String() + `","supplier_name":"Acme Supplies",
		"lines":[{"product_id":"` + productID.String() + `","product_name":"Bolt M8","quantity":10,"unit_price":"12.55"}]}`
	w := serve(router, http.MethodPost, "/api/v1/purchase-orders", body)

	assert.Equal(t, http.StatusCreated, w.Code)
	env := decode[appprocurement.PurchaseOrderResponse](t, w)
	assert.True(t, env.Success)
	assert.Equal(t, "draft", env.Data.Status)
	svc.AssertExpectations(t)
}

func TestPurchaseOrderHandler_Create_Invalid(t *testing.T) {
	svc := new(MockPurchaseOrderService)
	router := newPurchaseOrderRouter(svc, nil)

	w := serve(router, http.MethodPost, "/api/v1/purchase-orders", `{"supplier_name":""}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode[any](t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
	assert.NotEmpty(t, env.Error.Fields)
	svc.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestPurchaseOrderHandler_List(t *testing.T) {
	svc := new(MockPurchaseOrderService)
	router := newPurchaseOrderRouter(svc, nil)

	page := shared.NewPaginated([]appprocurement.PurchaseOrderListItemResponse{
		{ID: uuid.New(), OrderNumber: "PO-20260115-0001", Status: "sent"},
	}, 11, 2, 10)
	svc.On("ListOrders", mock.Anything, mock.MatchedBy(func(f appprocurement.PurchaseOrderListFilter) bool {
		return f.Status == "sent" && f.Page == 2 && f.PageSize == 10 && f.Search == "acme"
	})).Return(&page, nil).Once()

	w := serve(router, http.MethodGet, "/api/v1/purchase-orders?status=sent&page=2&page_size=10&search=acme", "")

	assert.Equal(t, http.StatusOK, w.Code)
	env := decode[[]appprocurement.PurchaseOrderListItemResponse](t, w)
	require.Len(t, env.Data, 1)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(11), env.Meta.Total)
	assert.Equal(t, 2, env.Meta.TotalPages)
	svc.AssertExpectations(t)
}

func TestPurchaseOrderHandler_List_InvalidStatus(t *testing.T) {
	svc := new(MockPurchaseOrderService)
	w := serve(newPurchaseOrderRouter(svc, nil), http.MethodGet, "/api/v1/purchase-orders?status=shipped", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, decode[any](t, w).Error.Code)
}

func TestPurchaseOrderHandler_Get(t *testing.T) {
	svc := new(MockPurchaseOrderService)
	router := newPurchaseOrderRouter(svc, nil)
	order := sampleOrder(procurement.StatusSent)
	missing := uuid.New()

	svc.On("GetOrder", mock.Anything, order.ID).Return(order, nil)
	svc.On("GetOrder", mock.Anything, missing).Return(nil, procurement.ErrOrderNotFound)
	svc.On("GetOrderByNumber", mock.Anything, "PO-20260115-0001").Return(order, nil)

	w := serve(router, http.MethodGet, "/api/v1/purchase-orders/"+order.ID.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, order.OrderNumber, decode[appprocurement.PurchaseOrderResponse](t, w).Data.OrderNumber)

	w = serve(router, http.MethodGet, "/api/v1/purchase-orders/"+missing.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeNotFound, decode[any](t, w).Error.Code)

	w = serve(router, http.MethodGet, "/api/v1/purchase-orders/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, http.MethodGet, "/api/v1/purchase-orders/number/PO-20260115-0001", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPurchaseOrderHandler_Transitions(t *testing.T) {
	svc := new(MockPurchaseOrderService)
	router := newPurchaseOrderRouter(svc, nil)
	id := uuid.New()

	svc.On("SubmitOrder", mock.Anything, id).Return(sampleOrder(procurement.StatusPending), nil)
	svc.On("SendOrder", mock.Anything, id).
		Return(nil, procurement.NewIllegalTransitionError(procurement.StatusDraft, procurement.EventSend))

	w := serve(router, http.MethodPost, "/api/v1/purchase-orders/"+id.String()+"/submit", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending", decode[appprocurement.PurchaseOrderResponse](t, w).Data.Status)

	w = serve(router, http.MethodPost, "/api/v1/purchase-orders/"+id.String()+"/send", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	env := decode[any](t, w)
	assert.Equal(t, dto.ErrCodeIllegalTransition, env.Error.Code)
	assert.Equal(t, "draft", env.Error.Details["current_status"])
}

func TestPurchaseOrderHandler_Cancel(t *testing.T) {
	svc := new(MockPurchaseOrderService)
	router := newPurchaseOrderRouter(svc, nil)
	id := uuid.New()

	svc.On("CancelOrder", mock.Anything, id, appprocurement.CancelPurchaseOrderRequest{}).
		Return(sampleOrder(procurement.StatusCanceled), nil).Once()
	svc.On("CancelOrder", mock.Anything, id, appprocurement.CancelPurchaseOrderRequest{Reason: "duplicate"}).
		Return(sampleOrder(procurement.StatusCanceled), nil).Once()

	w := serve(router, http.MethodPost, "/api/v1/purchase-orders/"+id.String()+"/cancel", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, http.MethodPost, "/api/v1/purchase-orders/"+id.String()+"/cancel", `{"reason":"duplicate"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestPurchaseOrderHandler_Confirm(t *testing.T) {
	id := uuid.New()
	lineID := uuid.New()
	body := `{"payment_terms":"Net 30","partial_fulfillment":true,"received_lines":[{"line_id":"` + lineID.String() + `","received_quantity":4}]}`
	matchReq := mock.MatchedBy(func(req appprocurement.ConfirmPurchaseOrderRequest) bool {
		return req.PaymentTerms == "Net 30" && req.PartialFulfillment &&
			len(req.ReceivedLines) == 1 && req.ReceivedLines[0].ReceivedQuantity == 4
	})
	result := &appprocurement.FulfillmentResultResponse{
		Order: *sampleOrder(procurement.StatusPartiallyFulfilled),
		Receipts: []appprocurement.LineReceiptResponse{
			{LineID: lineID, Outcome: "partial", OrderedQuantity: 10, ReceivedQuantity: 4, InventoryDelta: 4},
		},
	}

	t.Run("applied", func(t *testing.T) {
		svc := new(MockPurchaseOrderService)
		svc.On("ConfirmOrder", mock.Anything, id, matchReq).Return(result, nil).Once()

		w := serve(newPurchaseOrderRouter(svc, nil), http.MethodPost, "/api/v1/purchase-orders/"+id.String()+"/confirm", body)

		assert.Equal(t, http.StatusOK, w.Code)
		env := decode[appprocurement.FulfillmentResultResponse](t, w)
		assert.True(t, env.Success)
		assert.Equal(t, "partially_fulfilled", env.Data.Order.Status)
		require.Len(t, env.Data.Receipts, 1)
		assert.Equal(t, int64(4), env.Data.Receipts[0].InventoryDelta)
	})

	t.Run("partial apply", func(t *testing.T) {
		failures := []procurement.AdjustmentFailure{{AdjustmentID: uuid.New(), LineID: lineID, Delta: 4, Error: "store down"}}
		partial := *result
		partial.Failures = failures

		svc := new(MockPurchaseOrderService)
		svc.On("ConfirmOrder", mock.Anything, id, matchReq).
			Return(&partial, procurement.NewAdjustmentError("PO-20260115-0001", 2, failures)).Once()

		w := serve(newPurchaseOrderRouter(svc, nil), http.MethodPost, "/api/v1/purchase-orders/"+id.String()+"/confirm", body)

		assert.Equal(t, http.StatusMultiStatus, w.Code)
		env := decode[appprocurement.FulfillmentResultResponse](t, w)
		assert.False(t, env.Success)
		assert.Equal(t, "partially_fulfilled", env.Data.Order.Status)
		require.Len(t, env.Data.Failures, 1)
		require.NotNil(t, env.Error)
		assert.Equal(t, dto.ErrCodePartialApply, env.Error.Code)
	})

	t.Run("validation from service", func(t *testing.T) {
		svc := new(MockPurchaseOrderService)
		svc.On("ConfirmOrder", mock.Anything, id, mock.Anything).
			Return(nil, procurement.NewValidationError("payment_terms", "payment terms are required")).Once()

		w := serve(newPurchaseOrderRouter(svc, nil), http.MethodPost, "/api/v1/purchase-orders/"+id.String()+"/confirm", `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decode[any](t, w)
		assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
		assert.Nil(t, env.Data)
	})
}

func TestPurchaseOrderHandler_Receive(t *testing.T) {
	svc := new(MockPurchaseOrderService)
	router := newPurchaseOrderRouter(svc, nil)
	id := uuid.New()
	lineID := uuid.New()

	svc.On("ReceiveItems", mock.Anything, id, mock.MatchedBy(func(req appprocurement.ReceiveItemsRequest) bool {
		return len(req.Lines) == 1 && req.Lines[0].LineID == lineID && req.Lines[0].ReceivedQuantity == 6
	})).Return(&appprocurement.FulfillmentResultResponse{Order: *sampleOrder(procurement.StatusConfirmed)}, nil).Once()

	w := serve(router, http.MethodPost, "/api/v1/purchase-orders/"+id.String()+"/receive",
		`{"lines":[{"line_id":"`+lineID.String()+`","received_quantity":6}]}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, http.MethodPost, "/api/v1/purchase-orders/"+id.String()+"/receive", `{"lines":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestPurchaseOrderHandler_UpdateLinesAndDelete(t *testing.T) {
	svc := new(MockPurchaseOrderService)
	router := newPurchaseOrderRouter(svc, nil)
	id := uuid.New()

	svc.On("UpdateDraftLines", mock.Anything, id, mock.Anything).Return(sampleOrder(procurement.StatusDraft), nil).Once()
	svc.On("DeleteOrder", mock.Anything, id).Return(nil).Once()

	w := serve(router, http.MethodPut, "/api/v1/purchase-orders/"+id.String()+"/lines",
		`{"lines":[{"product_id":"`+uuid.NewString()+`","product_name":"Nut M8","quantity":3,"unit_price":1.2}]}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, http.MethodDelete, "/api/v1/purchase-orders/"+id.String(), "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	svc.AssertExpectations(t)
}

func TestPurchaseOrderHandler_Adjustments(t *testing.T) {
	svc := new(MockPurchaseOrderService)
	router := newPurchaseOrderRouter(svc, nil)
	id := uuid.New()
	failures := []procurement.AdjustmentFailure{{AdjustmentID: uuid.New(), Delta: 2, Error: "timeout"}}

	svc.On("ListAdjustments", mock.Anything, id).Return([]appprocurement.StockAdjustmentResponse{
		{ID: uuid.New(), PurchaseOrderID: id, Delta: 2, Status: "failed", Attempts: 1},
	}, nil).Once()
	svc.On("RetryAdjustments", mock.Anything, id).Return(&appprocurement.AdjustmentRetryResponse{
		Attempted: 1,
		Failures:  failures,
	}, procurement.NewAdjustmentError("PO-20260115-0001", 1, failures)).Once()

	w := serve(router, http.MethodGet, "/api/v1/purchase-orders/"+id.String()+"/adjustments", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]appprocurement.StockAdjustmentResponse](t, w).Data, 1)

	w = serve(router, http.MethodPost, "/api/v1/purchase-orders/"+id.String()+"/adjustments/retry", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	env := decode[appprocurement.AdjustmentRetryResponse](t, w)
	assert.Equal(t, 1, env.Data.Attempted)
	assert.Equal(t, dto.ErrCodeStore, env.Error.Code)
	svc.AssertExpectations(t)
}

func TestPurchaseOrderHandler_Documents(t *testing.T) {
	id := uuid.New()

	t.Run("pdf", func(t *testing.T) {
		docs := new(MockDocumentService)
		docs.On("RenderOrderPDF", mock.Anything, id).Return(&appprocurement.RenderedDocument{
			FileName:    "PO-20260115-0001.pdf",
			ContentType: "application/pdf",
			Content:     []byte("%PDF-1.7"),
		}, nil)

		w := serve(newPurchaseOrderRouter(new(MockPurchaseOrderService), docs), http.MethodGet, "/api/v1/purchase-orders/"+id.String()+"/pdf", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename=PO-20260115-0001.pdf`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "%PDF-1.7", w.Body.String())
	})

	t.Run("html fallback", func(t *testing.T) {
		docs := new(MockDocumentService)
		docs.On("RenderOrderPDF", mock.Anything, id).Return(&appprocurement.RenderedDocument{
			FileName: "PO-20260115-0001.html",
			HTML:     "<html>PO</html>",
		}, nil)

		w := serve(newPurchaseOrderRouter(new(MockPurchaseOrderService), docs), http.MethodGet, "/api/v1/purchase-orders/"+id.String()+"/pdf", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Equal(t, "<html>PO</html>", w.Body.String())
	})

	t.Run("export", func(t *testing.T) {
		docs := new(MockDocumentService)
		docs.On("ExportOrder", mock.Anything, id).Return(&appprocurement.RenderedDocument{
			FileName:    "PO-20260115-0001.xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Content:     []byte("PK"),
		}, nil)

		w := serve(newPurchaseOrderRouter(new(MockPurchaseOrderService), docs), http.MethodGet, "/api/v1/purchase-orders/"+id.String()+"/export", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), "PO-20260115-0001.xlsx")
	})

	t.Run("disabled", func(t *testing.T) {
		w := serve(newPurchaseOrderRouter(new(MockPurchaseOrderService), nil), http.MethodGet, "/api/v1/purchase-orders/"+id.String()+"/export", "")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, dto.ErrCodeDocumentsDisabled, decode[any](t, w).Error.Code)
	})
}
