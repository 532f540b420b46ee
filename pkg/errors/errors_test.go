package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		code     string
		status   int
		sentinel error
	}{
		{"not found", NotFound("product", "7"), "NOT_FOUND", http.StatusNotFound, ErrNotFound},
		{"invalid input", InvalidInput("quantity is required"), "INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput},
		{"unauthorized", Unauthorized("token expired"), "UNAUTHORIZED", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", Forbidden("not your order"), "FORBIDDEN", http.StatusForbidden, ErrForbidden},
		{"conflict", Conflict("receipt exists"), "CONFLICT", http.StatusConflict, ErrConflict},
		{"gone", Gone("product withdrawn"), "GONE", http.StatusGone, ErrGone},
		{"unprocessable", Unprocessable("cart is empty"), "UNPROCESSABLE", http.StatusUnprocessableEntity, ErrUnprocessable},
		{"unavailable", ServiceUnavailable("receipts disabled"), "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, ErrServiceUnavail},
		{"bad gateway", BadGateway("catalog returned 500"), "BAD_GATEWAY", http.StatusBadGateway, ErrBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestNotFound_Message(t *testing.T) {
	assert.Equal(t, "product with id 7 not found", NotFound("product", "7").Message)
}

func TestInternal_HidesCause(t *testing.T) {
	cause := errors.New("redis: connection pool exhausted")
	err := Internal(cause)

	assert.Equal(t, "an internal error occurred", err.Message)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
}

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "EMPTY_CART: cart is empty",
		New("EMPTY_CART", "cart is empty", http.StatusUnprocessableEntity, nil).Error())
	assert.Equal(t, "INVALID_INPUT: quantity is required: invalid input",
		InvalidInput("quantity is required").Error())
}

func TestAppError_Unwrap(t *testing.T) {
	assert.Nil(t, New("X", "x", http.StatusTeapot, nil).Unwrap())
	assert.Equal(t, ErrConflict, Conflict("dup").Unwrap())
}

func TestHTTPStatus_Chains(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"wrapped app error", fmt.Errorf("add to cart: %w", NotFound("product", "9")), http.StatusNotFound},
		{"app error overrides its cause", New("SERVER_ERROR", "upstream said 422", http.StatusBadGateway, ErrUnprocessable), http.StatusBadGateway},
		{"bare sentinel", ErrGone, http.StatusGone},
		{"wrapped sentinel", fmt.Errorf("list receipts: %w", ErrServiceUnavail), http.StatusServiceUnavailable},
		{"joined sentinels", errors.Join(errors.New("x"), ErrConflict), http.StatusConflict},
		{"internal sentinel", ErrInternal, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestSentinels_AreDistinct(t *testing.T) {
	all := []error{ErrNotFound, ErrInvalidInput, ErrUnauthorized, ErrForbidden, ErrInternal,
		ErrConflict, ErrGone, ErrUnprocessable, ErrServiceUnavail, ErrBadGateway}
	for i, a := range all {
		for j, b := range all {
			if i != j {
				assert.NotErrorIs(t, a, b)
			}
		}
	}
}
