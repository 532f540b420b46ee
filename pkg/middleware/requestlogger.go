package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/wholesale-storefront/pkg/logger"
)

// RequestLogger puts base, bound to the request's correlation ID, user and
// trace, into the context for logger.FromContext. It must run after
// RequestLogging, Tracing and BearerToken have filled the context.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if uid := requestUserID(r); uid != "" {
				ctx = logger.WithUserID(ctx, uid)
			}
			bound := logger.WithContext(ctx, base)
			next.ServeHTTP(w, r.WithContext(logger.NewContext(ctx, bound)))
		})
	}
}

// requestUserID prefers the ID stored by BearerToken over the raw header.
func requestUserID(r *http.Request) string {
	if uid := UserIDFromContext(r.Context()); uid != "" {
		return uid
	}
	return r.Header.Get("X-User-ID")
}
