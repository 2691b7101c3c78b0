// Package server assembles the HTTP router and the ordered security filter
// chain: API key, telemetry, then per-route bearer validation and role gate.
// Public routes skip the session check by explicit allow-list in the route
// table, never by absence of a wrapper.
package server

import (
	"net/http"

	"github.com/gorilla/mux"

	accountdomain "taskboard/backend/internal/account/domain"
	authhandler "taskboard/backend/internal/auth/handler"
	healthhandler "taskboard/backend/internal/health/handler"
	"taskboard/backend/internal/server/middleware"
	"taskboard/backend/internal/telemetry"
)

// Route is one entry of the route table. Public routes bypass bearer
// validation; Roles restricts protected routes (empty = any authenticated).
type Route struct {
	Method  string
	Path    string
	Handler http.Handler
	Public  bool
	Roles   []accountdomain.Role
}

// Deps holds the wired dependencies for the router.
type Deps struct {
	Auth   *authhandler.Handler
	Health *healthhandler.Server
	Tokens middleware.TokenValidator
	// APIKey is the shared secret every request must carry in X-Api-Key.
	APIKey string
	// Emitter receives per-request telemetry events; nil disables emission.
	Emitter telemetry.EventEmitter
}

// Routes returns the route table. This is the single source of truth for
// which endpoints are public.
func Routes(d Deps) []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/healthz", Handler: d.Health, Public: true},
		{Method: http.MethodPost, Path: "/auth/login", Handler: http.HandlerFunc(d.Auth.Login), Public: true},
		{Method: http.MethodPost, Path: "/auth/register", Handler: http.HandlerFunc(d.Auth.Register), Public: true},
		{Method: http.MethodGet, Path: "/auth/status", Handler: http.HandlerFunc(d.Auth.Status)},
		{Method: http.MethodPost, Path: "/auth/logout", Handler: http.HandlerFunc(d.Auth.Logout)},
		{Method: http.MethodPost, Path: "/auth/logout-all", Handler: http.HandlerFunc(d.Auth.LogoutAll)},
		{Method: http.MethodPost, Path: "/auth/unlock", Handler: http.HandlerFunc(d.Auth.Unlock), Roles: []accountdomain.Role{accountdomain.RoleAdmin}},
	}
}

// probePaths are exempt from the API key check and from telemetry emission.
var probePaths = map[string]bool{"/healthz": true}

// NewRouter builds the mux router with the filter chain applied.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.ClientIPContext())
	r.Use(middleware.Telemetry(d.Emitter, probePaths))
	r.Use(middleware.RequireAPIKey(d.APIKey, probePaths))

	for _, rt := range Routes(d) {
		h := rt.Handler
		if !rt.Public {
			h = middleware.RequireSession(d.Tokens, rt.Roles...)(h)
		}
		r.Handle(rt.Path, h).Methods(rt.Method)
	}
	return r
}
