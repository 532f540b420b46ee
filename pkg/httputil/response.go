// Package httputil writes the JSON envelope every storefront endpoint returns
// and parses path and query parameters into it.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/utafrali/wholesale-storefront/pkg/errors"
	"github.com/utafrali/wholesale-storefront/pkg/logger"
	"github.com/utafrali/wholesale-storefront/pkg/validator"
)

// Response is the JSON envelope. Exactly one of Data and Error is set.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse is the error half of the envelope.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v with status. Encoding errors are dropped since the
// header is already sent.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var sentinelBodies = map[int]ErrorResponse{
	http.StatusNotFound:            {Code: "NOT_FOUND", Message: "resource not found"},
	http.StatusUnauthorized:        {Code: "UNAUTHORIZED", Message: "unauthorized"},
	http.StatusForbidden:           {Code: "FORBIDDEN", Message: "forbidden"},
	http.StatusConflict:            {Code: "CONFLICT", Message: "resource conflict"},
	http.StatusGone:                {Code: "GONE", Message: "resource no longer available"},
	http.StatusUnprocessableEntity: {Code: "UNPROCESSABLE", Message: "request cannot be processed"},
	http.StatusBadGateway:          {Code: "BAD_GATEWAY", Message: "upstream service failed"},
	http.StatusServiceUnavailable:  {Code: "SERVICE_UNAVAILABLE", Message: "service temporarily unavailable"},
}

// classify maps err to a status and error body. AppErrors carry their own;
// wrapped sentinels get the status apperrors.HTTPStatus assigns and a generic
// message; anything else is an opaque 500.
func classify(err error) (int, *ErrorResponse) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Status, &ErrorResponse{Code: appErr.Code, Message: appErr.Message}
	}

	status := apperrors.HTTPStatus(err)
	if status == http.StatusBadRequest {
		return status, &ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()}
	}
	if body, ok := sentinelBodies[status]; ok {
		return status, &body
	}
	return http.StatusInternalServerError, &ErrorResponse{Code: "INTERNAL_ERROR", Message: "an internal error occurred"}
}

// WriteError writes err as an error envelope tagged with the request's
// correlation ID. 5xx responses are logged through the request-scoped
// logger, or fallback when none is stored in the context.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	status, body := classify(err)
	body.RequestID = logger.CorrelationIDFromContext(r.Context())

	if status >= http.StatusInternalServerError {
		l := logger.FromContext(r.Context())
		if l == slog.Default() && fallback != nil {
			l = fallback
		}
		l.LogAttrs(r.Context(), slog.LevelError, "request failed",
			slog.Int("status", status),
			slog.String("code", body.Code),
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}
	WriteJSON(w, status, Response{Error: body})
}

// WriteValidationError writes a 400. Rule failures list each field under
// VALIDATION_ERROR; decode failures are INVALID_INPUT.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	body := &ErrorResponse{
		Code:      "INVALID_INPUT",
		Message:   err.Error(),
		RequestID: logger.CorrelationIDFromContext(r.Context()),
	}
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		body.Code = "VALIDATION_ERROR"
		body.Message = "request validation failed"
		body.Fields = valErr.Fields()
	}
	WriteJSON(w, http.StatusBadRequest, Response{Error: body})
}

func writeParamError(w http.ResponseWriter, name, raw string) {
	WriteJSON(w, http.StatusBadRequest, Response{
		Error: &ErrorResponse{Code: "INVALID_PARAMETER", Message: "invalid " + name + ": " + raw},
	})
}

// ParseID parses a positive integer identifier. On failure it writes an
// INVALID_PARAMETER response and returns false.
func ParseID(w http.ResponseWriter, name, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeParamError(w, name, raw)
		return 0, false
	}
	return id, true
}

// ParseInt parses any integer, leaving range checks to the caller. On
// failure it writes an INVALID_PARAMETER response and returns false.
func ParseInt(w http.ResponseWriter, name, raw string) (int, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeParamError(w, name, raw)
		return 0, false
	}
	return n, true
}
