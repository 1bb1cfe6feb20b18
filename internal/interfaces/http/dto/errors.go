package dto

import (
	"net/http"

	"github.com/erp/purchasing/internal/domain/inventory"
	"github.com/erp/purchasing/internal/domain/procurement"
	"github.com/erp/purchasing/internal/domain/shared"
)

// Error codes returned in the response envelope. Domain codes are passed
// through unchanged so clients see the same code the service raised.

// General error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeServiceUnavailable is used when an optional subsystem is not configured
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	// ErrCodeDocumentsDisabled is raised when PDF or XLSX generation is not configured
	ErrCodeDocumentsDisabled = "DOCUMENTS_DISABLED"
)

// Request error codes
const (
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeValidation      = shared.CodeValidation
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "RATE_LIMITED"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = shared.CodeUnauthorized
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "INVALID_TOKEN"
)

// Domain error codes
const (
	ErrCodeNotFound               = shared.CodeNotFound
	ErrCodeAlreadyExists          = shared.CodeAlreadyExists
	ErrCodeConcurrentModification = shared.CodeConcurrentModification
	ErrCodeStore                  = shared.CodeStore
	ErrCodeIllegalTransition      = procurement.CodeIllegalTransition
	ErrCodeInvalidQuantity        = procurement.CodeInvalidQuantity
	ErrCodePartialApply           = procurement.CodePartialApply
	ErrCodeInsufficientStock      = inventory.CodeInsufficientStock
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeDocumentsDisabled:  http.StatusServiceUnavailable,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound:               http.StatusNotFound,
	ErrCodeAlreadyExists:          http.StatusConflict,
	ErrCodeConcurrentModification: http.StatusConflict,
	ErrCodeIllegalTransition:      http.StatusConflict,
	ErrCodeInvalidQuantity:        http.StatusBadRequest,
	ErrCodeInsufficientStock:      http.StatusUnprocessableEntity,
	ErrCodePartialApply:           http.StatusMultiStatus,
	ErrCodeStore:                  http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
