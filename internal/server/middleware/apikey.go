package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gorilla/mux"

	"taskboard/backend/internal/response"
)

// APIKeyHeader carries the shared API key on every request.
const APIKeyHeader = "X-Api-Key"

// RequireAPIKey rejects any request whose X-Api-Key header does not match key
// before further work happens. Paths in skip (e.g. /healthz) are exempt.
// The comparison is constant-time.
func RequireAPIKey(key string, skip map[string]bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			got := r.Header.Get(APIKeyHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				response.WriteJSON(w, http.StatusUnauthorized, response.Error("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
