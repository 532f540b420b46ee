package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/wholesale-storefront/pkg/errors"
)

const maxErrorBody = 1 << 20

// errorBody covers both error shapes the wholesale API sends: the
// {"error":{"code","message"}} envelope and a flat {"message"} body.
type errorBody struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

func (b errorBody) codeAndMessage() (string, string, bool) {
	if b.Error != nil {
		return b.Error.Code, b.Error.Message, true
	}
	return "", b.Message, b.Message != ""
}

// StatusError is an upstream response that has no AppError equivalent:
// every 5xx, and any body that could not be understood.
type StatusError struct {
	Service string
	Status  int
	Code    string
	Body    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s returned status %d (%s): %s", e.Service, e.Status, e.Code, e.Body)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.Status, e.Body)
}

// ResponseStatus returns the upstream HTTP status carried by err, if any.
func ResponseStatus(err error) (int, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status, true
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status, true
	}
	return 0, false
}

var clientErrors = map[int]func(string) *apperrors.AppError{
	http.StatusBadRequest:          apperrors.InvalidInput,
	http.StatusUnauthorized:        apperrors.Unauthorized,
	http.StatusForbidden:           apperrors.Forbidden,
	http.StatusConflict:            apperrors.Conflict,
	http.StatusGone:                apperrors.Gone,
	http.StatusUnprocessableEntity: apperrors.Unprocessable,
}

// ParseResponseError consumes and closes the body of a non-2xx response and
// turns it into an AppError. 5xx responses and unreadable bodies become a
// *StatusError instead.
func ParseResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", service, resp.StatusCode, err)
	}

	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		if code, msg, ok := body.codeAndMessage(); ok {
			return statusToError(service, resp.StatusCode, code, msg)
		}
	}
	return &StatusError{Service: service, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
}

func statusToError(service string, status int, code, msg string) error {
	if status >= http.StatusInternalServerError {
		return &StatusError{Service: service, Status: status, Code: code, Body: msg}
	}
	if status == http.StatusNotFound {
		return apperrors.NotFound(service, msg)
	}
	qualified := service + ": " + msg
	if build, ok := clientErrors[status]; ok {
		return build(qualified)
	}
	if code == "" {
		code = http.StatusText(status)
	}
	return apperrors.New(code, qualified, status, nil)
}
