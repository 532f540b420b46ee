package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/wholesale-storefront/pkg/logger"
)

func newTestLogger(w *bytes.Buffer) *slog.Logger {
	return logger.NewWithWriter("test-svc", "debug", w)
}

// logLines decodes every JSON log line written to buf.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if raw == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &m))
		lines = append(lines, m)
	}
	return lines
}

// handlerLog runs RequestLogger around a handler that logs once through the
// context logger and returns that line.
func handlerLog(t *testing.T, req *http.Request) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	h := RequestLogger(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("handled")
	}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	return lines[0]
}

func TestRequestLogger_StoresBoundLogger(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req = req.WithContext(logger.WithCorrelationID(req.Context(), "corr-abc"))

	line := handlerLog(t, req)

	assert.Equal(t, "handled", line["msg"])
	assert.Equal(t, "corr-abc", line["correlation_id"])
	assert.Equal(t, "test-svc", line["service"])
}

func TestRequestLogger_UserID(t *testing.T) {
	tests := []struct {
		name   string
		ctxID  string
		header string
		want   any
	}{
		{name: "from auth context", ctxID: "ctx-user", want: "ctx-user"},
		{name: "from header", header: "hdr-user", want: "hdr-user"},
		{name: "context wins", ctxID: "ctx-user", header: "hdr-user", want: "ctx-user"},
		{name: "absent", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
			if tt.ctxID != "" {
				req = req.WithContext(context.WithValue(req.Context(), userIDKey, tt.ctxID))
			}
			if tt.header != "" {
				req.Header.Set("X-User-ID", tt.header)
			}

			line := handlerLog(t, req)

			assert.Equal(t, tt.want, line["user_id"])
		})
	}
}

func TestRequestLogger_TraceFields(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	spanID, _ := trace.SpanIDFromHex("b7ad6b7169203331")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req = req.WithContext(trace.ContextWithSpanContext(req.Context(), sc))

	line := handlerLog(t, req)

	assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", line["trace_id"])
	assert.Equal(t, "b7ad6b7169203331", line["span_id"])
}
