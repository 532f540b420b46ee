// Package errors defines the application error type that carries an HTTP
// status and a stable machine-readable code.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels classify errors independently of their message. AppErrors
// built by the constructors below wrap the matching sentinel.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal error")
	ErrConflict       = errors.New("conflict")
	ErrGone           = errors.New("gone")
	ErrUnprocessable  = errors.New("unprocessable")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrBadGateway     = errors.New("bad gateway")
)

var sentinelStatus = []struct {
	err    error
	status int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrForbidden, http.StatusForbidden},
	{ErrConflict, http.StatusConflict},
	{ErrGone, http.StatusGone},
	{ErrUnprocessable, http.StatusUnprocessableEntity},
	{ErrServiceUnavail, http.StatusServiceUnavailable},
	{ErrBadGateway, http.StatusBadGateway},
}

// AppError is an error with a response status and code.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

// New builds an AppError. cause may be nil.
func New(code, message string, status int, cause error) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: cause}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// NotFound reports a missing resource by kind and id.
func NotFound(resource, id string) *AppError {
	return New("NOT_FOUND", fmt.Sprintf("%s with id %s not found", resource, id), http.StatusNotFound, ErrNotFound)
}

// InvalidInput is a 400.
func InvalidInput(message string) *AppError {
	return New("INVALID_INPUT", message, http.StatusBadRequest, ErrInvalidInput)
}

// Unauthorized is a 401.
func Unauthorized(message string) *AppError {
	return New("UNAUTHORIZED", message, http.StatusUnauthorized, ErrUnauthorized)
}

// Forbidden is a 403.
func Forbidden(message string) *AppError {
	return New("FORBIDDEN", message, http.StatusForbidden, ErrForbidden)
}

// Conflict is a 409.
func Conflict(message string) *AppError {
	return New("CONFLICT", message, http.StatusConflict, ErrConflict)
}

// Gone is a 410.
func Gone(message string) *AppError {
	return New("GONE", message, http.StatusGone, ErrGone)
}

// Unprocessable is a 422 for a well-formed request that cannot be acted on.
func Unprocessable(message string) *AppError {
	return New("UNPROCESSABLE", message, http.StatusUnprocessableEntity, ErrUnprocessable)
}

// ServiceUnavailable is a 503.
func ServiceUnavailable(message string) *AppError {
	return New("SERVICE_UNAVAILABLE", message, http.StatusServiceUnavailable, ErrServiceUnavail)
}

// BadGateway is a 502 for an upstream that answered badly.
func BadGateway(message string) *AppError {
	return New("BAD_GATEWAY", message, http.StatusBadGateway, ErrBadGateway)
}

// Internal hides err behind a generic 500 message.
func Internal(err error) *AppError {
	return New("INTERNAL_ERROR", "an internal error occurred", http.StatusInternalServerError, err)
}

// HTTPStatus returns the status of the first AppError in err's chain,
// falling back to the wrapped sentinel and then 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	for _, s := range sentinelStatus {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}
