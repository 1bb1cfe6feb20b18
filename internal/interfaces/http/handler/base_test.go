package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/purchasing/internal/domain/procurement"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/erp/purchasing/internal/interfaces/http/dto"
	"github.com/erp/purchasing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// envelope decodes the response wrapper with a typed data field
type envelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *dto.ErrorInfo `json:"error"`
	Meta    *dto.Meta      `json:"meta"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(middleware.RequestIDKey, "req-42")
	return c, w
}

func TestBaseHandler_Success(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.Success(c, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	env := decode[map[string]string](t, w)
	assert.True(t, env.Success)
	assert.Equal(t, "value", env.Data["key"])
}

func TestBaseHandler_SuccessWithMeta(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.SuccessWithMeta(c, []int{1, 2}, 45, 2, 20)

	env := decode[[]int](t, w)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(45), env.Meta.Total)
	assert.Equal(t, 3, env.Meta.TotalPages)
}

func TestBaseHandler_CreatedAndNoContent(t *testing.T) {
	h := &BaseHandler{}

	c, w := newTestContext()
	h.Created(c, "x")
	assert.Equal(t, http.StatusCreated, w.Code)

	c, w = newTestContext()
	h.NoContent(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", shared.ErrNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"wrapped not found", fmt.Errorf("load order: %w", procurement.ErrOrderNotFound), http.StatusNotFound, dto.ErrCodeNotFound},
		{"validation", procurement.NewValidationError("lines", "at least one line is required"), http.StatusBadRequest, dto.ErrCodeValidation},
		{"invalid quantity", procurement.NewInvalidQuantityError("quantity", -1), http.StatusBadRequest, dto.ErrCodeInvalidQuantity},
		{"illegal transition", procurement.NewIllegalTransitionError(procurement.StatusDraft, procurement.EventConfirm), http.StatusConflict, dto.ErrCodeIllegalTransition},
		{"concurrent modification", shared.ErrConcurrentModification, http.StatusConflict, dto.ErrCodeConcurrentModification},
		{"store", shared.NewDomainError(shared.CodeStore, "inventory store unavailable"), http.StatusBadGateway, dto.ErrCodeStore},
		{"unknown code", shared.NewDomainError("SOMETHING_ELSE", "odd"), http.StatusInternalServerError, "SOMETHING_ELSE"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext()

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			env := decode[any](t, w)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			assert.Equal(t, "req-42", env.Error.RequestID)
			assert.Equal(t, tt.wantCode, c.GetString(middleware.ErrorCodeKey))
		})
	}
}

func TestBaseHandler_HandleError_KeepsDetails(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.HandleError(c, procurement.NewIllegalTransitionError(procurement.StatusCanceled, procurement.EventSend))

	env := decode[any](t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "canceled", env.Error.Details["current_status"])
}

func TestBaseHandler_HandleError_Nil(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()
	h.HandleError(c, nil)
	assert.Empty(t, w.Body.String())
}

func TestBaseHandler_HandleResult(t *testing.T) {
	failures := []procurement.AdjustmentFailure{{AdjustmentID: uuid.New(), Delta: 5, Error: "store down"}}
	data := map[string]int{"applied": 1}

	t.Run("success", func(t *testing.T) {
		h := &BaseHandler{}
		c, w := newTestContext()
		h.HandleResult(c, data, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("partial apply", func(t *testing.T) {
		h := &BaseHandler{}
		c, w := newTestContext()

		h.HandleResult(c, data, procurement.NewAdjustmentError("PO-20260115-0001", 2, failures))

		assert.Equal(t, http.StatusMultiStatus, w.Code)
		env := decode[map[string]int](t, w)
		assert.False(t, env.Success)
		assert.Equal(t, 1, env.Data["applied"])
		require.NotNil(t, env.Error)
		assert.Equal(t, dto.ErrCodePartialApply, env.Error.Code)
		assert.EqualValues(t, 1, env.Error.Details["failed"])
	})

	t.Run("all adjustments failed", func(t *testing.T) {
		h := &BaseHandler{}
		c, w := newTestContext()

		h.HandleResult(c, data, procurement.NewAdjustmentError("PO-20260115-0001", 1, failures))

		assert.Equal(t, http.StatusBadGateway, w.Code)
		env := decode[map[string]int](t, w)
		assert.Equal(t, 1, env.Data["applied"])
		assert.Equal(t, dto.ErrCodeStore, env.Error.Code)
	})

	t.Run("error without data", func(t *testing.T) {
		h := &BaseHandler{}
		c, w := newTestContext()

		h.HandleResult(c, nil, shared.ErrNotFound)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestBaseHandler_ParseUUIDParam(t *testing.T) {
	h := &BaseHandler{}

	c, _ := newTestContext()
	id := uuid.New()
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	got, ok := h.parseUUIDParam(c, "id", "order ID")
	assert.True(t, ok)
	assert.Equal(t, id, got)

	c, w := newTestContext()
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	_, ok = h.parseUUIDParam(c, "id", "order ID")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid order ID format", decode[any](t, w).Error.Message)
}
