package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeInvalidCredentials, http.StatusUnauthorized},
		{ErrCodeAccountDeactivated, http.StatusForbidden},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeInsufficientStock, http.StatusBadRequest},
		{ErrCodeEmptyCart, http.StatusBadRequest},
		{ErrCodeProductUnavailable, http.StatusBadRequest},
		{ErrCodeInvalidTransition, http.StatusUnprocessableEntity},
		{ErrCodeCategoryInUse, http.StatusUnprocessableEntity},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeInternal, http.StatusInternalServerError},
		{"SOMETHING_NOBODY_MAPPED", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode("PRODUCT_NOT_FOUND"))
	assert.Equal(t, ErrCodeEmptyCart, NormalizeErrorCode("EMPTY_CART"))
	assert.Equal(t, ErrCodeInvalidCredentials, NormalizeErrorCode("INVALID_CREDENTIALS"))
	assert.Equal(t, ErrCodeInvalidInput, NormalizeErrorCode("INVALID_PASSWORD"))

	// Codes already in transport format pass through
	assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode(ErrCodeNotFound))

	// Unknown codes pass through untouched
	assert.Equal(t, "WEIRD_CODE", NormalizeErrorCode("WEIRD_CODE"))
}

func TestEveryDomainCodeMapsToKnownStatus(t *testing.T) {
	for domainCode, transportCode := range DomainErrorCodeMapping {
		_, ok := ErrorCodeHTTPStatus[transportCode]
		assert.True(t, ok, "domain code %s maps to unmapped transport code %s", domainCode, transportCode)
	}
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]string{"a"}, 45, 2, 20)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(45), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "nope", "req-123")
	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "req-123", resp.Error.RequestID)
}
