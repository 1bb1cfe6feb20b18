package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_WithDetail(t *testing.T) {
	base := NewDomainError(CodeValidation, "payment terms are required")

	withField := base.WithDetail("field", "payment_terms")

	assert.Nil(t, base.Details)
	assert.Equal(t, "payment_terms", withField.Details["field"])
	assert.Equal(t, base.Message, withField.Error())
}

func TestDomainError_Is(t *testing.T) {
	err := fmt.Errorf("load order: %w", ErrNotFound.WithDetail("id", "42"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConcurrentModification))
	assert.True(t, IsDomainError(err, CodeNotFound))
	assert.False(t, IsDomainError(errors.New("plain"), CodeNotFound))
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("reason", "cancellation reason is required")

	assert.Equal(t, CodeValidation, err.Code)
	assert.Equal(t, "reason", err.Details["field"])
}
