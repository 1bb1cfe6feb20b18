package handler

import (
	"errors"
	"net/http"

	"github.com/erp/purchasing/internal/domain/procurement"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/erp/purchasing/internal/infrastructure/logger"
	"github.com/erp/purchasing/internal/interfaces/http/dto"
	"github.com/erp/purchasing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the given status and code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.Set(middleware.ErrorCodeKey, code)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// parseUUIDParam parses a path parameter as a UUID, answering 400 when it is not one
func (h *BaseHandler) parseUUIDParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+label+" format")
		return uuid.Nil, false
	}
	return id, true
}

// HandleError converts an error into an HTTP response.
// Domain errors keep their code and map to a status through dto.GetHTTPStatus;
// anything else is logged and answered with a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		c.Set(middleware.ErrorCodeKey, domainErr.Code)
		c.JSON(dto.GetHTTPStatus(domainErr.Code), dto.Response{
			Success: false,
			Error:   errorInfo(c, domainErr),
		})
		return
	}

	logger.GetGinLogger(c).Error("unhandled request error", zap.Error(err))
	h.InternalError(c, "An unexpected error occurred")
}

// HandleResult answers with data, or with data plus the error when the
// operation committed but some inventory adjustments did not apply.
func (h *BaseHandler) HandleResult(c *gin.Context, data any, err error) {
	if err == nil {
		h.Success(c, data)
		return
	}

	var adjErr *procurement.AdjustmentError
	if errors.As(err, &adjErr) && data != nil {
		c.Set(middleware.ErrorCodeKey, adjErr.Code)
		info := errorInfo(c, adjErr.DomainError)
		c.JSON(dto.GetHTTPStatus(adjErr.Code), dto.NewPartialResponse(data, info))
		return
	}

	h.HandleError(c, err)
}

func errorInfo(c *gin.Context, err *shared.DomainError) *dto.ErrorInfo {
	return &dto.ErrorInfo{
		Code:      err.Code,
		Message:   err.Message,
		RequestID: middleware.GetRequestID(c),
		Details:   err.Details,
	}
}
