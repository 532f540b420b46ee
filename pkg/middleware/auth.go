package middleware

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/wholesale-storefront/pkg/errors"
	"github.com/utafrali/wholesale-storefront/pkg/httputil"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	tokenKey
)

// BearerToken stores the caller's bearer credential in the request context so
// it can be presented to the wholesale API. A request without Authorization
// passes through untouched; a malformed header is a 401. X-User-ID, when
// sent, is kept for request logging.
func BearerToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if header := r.Header.Get("Authorization"); header != "" {
			token, ok := parseBearer(header)
			if !ok {
				httputil.WriteError(w, r, apperrors.Unauthorized("invalid authorization header format"), nil)
				return
			}
			ctx = WithToken(ctx, token)
		}
		if uid := r.Header.Get("X-User-ID"); uid != "" {
			ctx = context.WithValue(ctx, userIDKey, uid)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func parseBearer(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", false
	}
	return token, true
}

// WithToken returns ctx carrying a bearer credential.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext returns the bearer credential, or "".
func TokenFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(tokenKey).(string)
	return tok
}

// UserIDFromContext returns the X-User-ID the caller sent, or "".
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
