package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/wholesale-storefront/pkg/httputil"
	"github.com/utafrali/wholesale-storefront/pkg/logger"
)

var httpPanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "http_handler_panics_total",
	Help: "Panics recovered from HTTP handlers",
})

// Recovery turns a handler panic into a 500 error envelope carrying the
// correlation ID. When the handler already started the response only the
// log entry is written. http.ErrAbortHandler is re-raised.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				httpPanicsTotal.Inc()

				l.LogAttrs(r.Context(), slog.LevelError, "panic recovered",
					slog.Any("panic", v),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Bool("response_started", rec.wroteHeader),
					slog.String("stack", string(debug.Stack())),
				)
				if rec.wroteHeader {
					return
				}
				httputil.WriteJSON(rec, http.StatusInternalServerError, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:      "INTERNAL_ERROR",
						Message:   "an internal error occurred",
						RequestID: logger.CorrelationIDFromContext(r.Context()),
					},
				})
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
