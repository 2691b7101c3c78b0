package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	accountdomain "taskboard/backend/internal/account/domain"
	"taskboard/backend/internal/authz"
	"taskboard/backend/internal/response"
	"taskboard/backend/internal/token"
)

const bearerPrefix = "bearer "

// sessionExpiredMessage is the one message callers see for every token
// failure. Expired, revoked, and malformed are logged but never distinguished
// on the wire.
const sessionExpiredMessage = "session expired, please log in again"

// TokenValidator validates a bearer token and returns the session identity.
type TokenValidator interface {
	Validate(ctx context.Context, tokenString string) (*token.Identity, error)
}

// RequireSession validates the Bearer token and, when required is non-empty,
// enforces role membership. On success the identity is stored in the request
// context for the handler.
func RequireSession(tokens TokenValidator, required ...accountdomain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := ExtractBearer(r)
			if raw == "" {
				response.WriteJSON(w, http.StatusUnauthorized, response.Error(sessionExpiredMessage))
				return
			}
			id, err := tokens.Validate(r.Context(), raw)
			if err != nil {
				log.Printf("middleware: token rejected: %v", err)
				response.WriteJSON(w, http.StatusUnauthorized, response.Error(sessionExpiredMessage))
				return
			}
			if !authz.Allowed(id.Role, required...) {
				response.WriteJSON(w, http.StatusForbidden, response.Error("insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// ExtractBearer returns the Bearer token from the Authorization header, or ""
// if missing or malformed.
func ExtractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
