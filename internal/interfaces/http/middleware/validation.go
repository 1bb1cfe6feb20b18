package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/erp/purchasing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Money columns are DECIMAL(18, 4).
const (
	moneyScale      = 4
	moneyMaxIntPart = 14
)

// SetupValidator reports fields by their json (or form) name and registers
// the "money" tag used on price fields.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(fieldName)
	v.RegisterCustomTypeFunc(decimalString, decimal.Decimal{})
	_ = v.RegisterValidation("money", validateMoney)
}

func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// decimalString lets tags see decimals as their canonical text.
func decimalString(field reflect.Value) any {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

// validateMoney accepts decimals that fit the money columns without rounding.
func validateMoney(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	if d.Exponent() < -moneyScale && !d.Equal(d.Round(moneyScale)) {
		return false
	}
	return len(d.Abs().Truncate(0).String()) <= moneyMaxIntPart
}

var validationMessages = map[string]func(validator.FieldError) string{
	"required": func(validator.FieldError) string { return "This field is required" },
	"email":    func(validator.FieldError) string { return "Invalid email format" },
	"uuid":     func(validator.FieldError) string { return "Invalid UUID format" },
	"url":      func(validator.FieldError) string { return "Invalid URL format" },
	"money":    func(validator.FieldError) string { return "Must be a decimal with at most 4 fractional digits" },
	"oneof":    func(e validator.FieldError) string { return "Must be one of: " + e.Param() },
	"gte":      func(e validator.FieldError) string { return "Must be greater than or equal to " + e.Param() },
	"lte":      func(e validator.FieldError) string { return "Must be less than or equal to " + e.Param() },
	"gt":       func(e validator.FieldError) string { return "Must be greater than " + e.Param() },
	"lt":       func(e validator.FieldError) string { return "Must be less than " + e.Param() },
	"len":      func(e validator.FieldError) string { return "Must be exactly " + e.Param() + " characters" },
	"min":      func(e validator.FieldError) string { return "Must be at least " + e.Param() + unit(e) },
	"max":      func(e validator.FieldError) string { return "Must be at most " + e.Param() + unit(e) },
}

func unit(e validator.FieldError) string {
	switch e.Kind() {
	case reflect.String:
		return " characters"
	case reflect.Slice, reflect.Array:
		return " items"
	}
	return ""
}

func getValidationMessage(e validator.FieldError) string {
	if msg, ok := validationMessages[e.Tag()]; ok {
		return msg(e)
	}
	return "Invalid value"
}

// FormatValidationErrors turns a binding error into the VALIDATION_ERROR envelope.
// Errors that carry no field detail (malformed JSON, type mismatch) keep
// their own message.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		msg := "Request validation failed"
		if err != nil {
			msg = err.Error()
		}
		return dto.NewValidationErrorResponse(msg, requestID, nil)
	}

	details := make([]dto.ValidationDetail, 0, len(verrs))
	for _, e := range verrs {
		details = append(details, dto.ValidationDetail{Field: e.Field(), Message: getValidationMessage(e)})
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError writes a 400 VALIDATION_ERROR response.
func HandleValidationError(c *gin.Context, err error) {
	c.Set(ErrorCodeKey, dto.ErrCodeValidation)
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}
