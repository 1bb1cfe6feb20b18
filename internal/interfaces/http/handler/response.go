package handler

import "github.com/erp/purchasing/internal/interfaces/http/dto"

// APIResponse represents a generic API response for OpenAPI documentation
// @Description Standard API response wrapper with typed data field
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse represents an error API response for OpenAPI documentation
// @Description Standard error response
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// SuccessResponse represents a simple success API response for OpenAPI documentation
// @Description Simple success response without data
type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}

// PartialResponse documents the 207 answer of fulfillment operations: the
// order change committed, some inventory adjustments are still pending retry
// @Description Committed result with the PARTIAL_APPLY error
type PartialResponse[T any] struct {
	Success bool           `json:"success" example:"false"`
	Data    T              `json:"data"`
	Error   *dto.ErrorInfo `json:"error"`
}
