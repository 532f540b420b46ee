package http

import (
	"mime"
	"net/http"

	apperrors "github.com/utafrali/wholesale-storefront/pkg/errors"
	"github.com/utafrali/wholesale-storefront/pkg/httputil"
)

// ContentTypeJSON answers 415 to a body-carrying request that declares a
// media type other than application/json. An absent Content-Type is allowed.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if carriesBody(r) && !acceptsJSON(r.Header.Get("Content-Type")) {
			httputil.WriteError(w, r, apperrors.New("UNSUPPORTED_MEDIA_TYPE",
				"Content-Type must be application/json", http.StatusUnsupportedMediaType, nil), nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func carriesBody(r *http.Request) bool {
	return r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch
}

func acceptsJSON(contentType string) bool {
	if contentType == "" {
		return true
	}
	media, _, err := mime.ParseMediaType(contentType)
	return err == nil && media == "application/json"
}

// limitBody caps request bodies at maxBytes.
func limitBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
