package domain

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/utafrali/wholesale-storefront/pkg/errors"
)

// Error kinds of the cart and order subsystem. Match them with errors.Is.
var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrUnauthenticated   = errors.New("no bearer credential available")
	ErrAlreadySubmitting = errors.New("order submission already in progress")
	ErrStorageRead       = errors.New("cart storage unreadable")
	ErrStorageWrite      = errors.New("cart storage write failed")
	ErrNetwork           = errors.New("order service unreachable")
	ErrServer            = errors.New("order service rejected the request")
	ErrIndexOutOfRange   = errors.New("cart line index out of range")
)

// kindError joins an AppError (for the HTTP surface) with a domain kind (for errors.Is).
type kindError struct {
	*apperrors.AppError
	kind error
}

func (e *kindError) Unwrap() []error {
	return []error{e.AppError, e.kind}
}

func newKindError(kind error, code, message string, status int, cause error) error {
	return &kindError{
		AppError: apperrors.New(code, message, status, cause),
		kind:     kind,
	}
}

// EmptyCart reports a submission attempted with no lines.
func EmptyCart() error {
	return newKindError(ErrEmptyCart, "EMPTY_CART", "cart is empty", http.StatusUnprocessableEntity, apperrors.ErrUnprocessable)
}

// Unauthenticated reports a missing bearer credential.
func Unauthenticated() error {
	return newKindError(ErrUnauthenticated, "UNAUTHENTICATED", "user is not authenticated", http.StatusUnauthorized, apperrors.ErrUnauthorized)
}

// AlreadySubmitting reports a re-entrant submission while one is in flight.
func AlreadySubmitting() error {
	return newKindError(ErrAlreadySubmitting, "ALREADY_SUBMITTING", "an order is already being placed", http.StatusConflict, apperrors.ErrConflict)
}

// StorageWrite reports that a cart mutation did not reach durable storage.
func StorageWrite(cause error) error {
	return newKindError(ErrStorageWrite, "STORAGE_WRITE_ERROR", "cart could not be saved", http.StatusServiceUnavailable, cause)
}

// StorageRead reports unreadable or corrupt persisted cart data. It is only
// ever logged; loads recover by treating the cart as empty.
func StorageRead(cause error) error {
	return newKindError(ErrStorageRead, "STORAGE_READ_ERROR", "cart could not be read", http.StatusInternalServerError, cause)
}

// IndexOutOfRange reports a removal with an index outside the cart.
func IndexOutOfRange(index, length int) error {
	return newKindError(ErrIndexOutOfRange, "INDEX_OUT_OF_RANGE",
		fmt.Sprintf("line index %d out of range [0,%d)", index, length),
		http.StatusBadRequest, apperrors.ErrInvalidInput)
}

// NetworkError reports a transport failure or timeout talking to the order service.
func NetworkError(cause error) error {
	return newKindError(ErrNetwork, "NETWORK_ERROR", "failed to place the order, please retry", http.StatusBadGateway, cause)
}

// ServerError reports a non-2xx response from the order service.
func ServerError(status int, cause error) error {
	return newKindError(ErrServer, "SERVER_ERROR",
		fmt.Sprintf("order service responded with status %d", status),
		http.StatusBadGateway, cause)
}
