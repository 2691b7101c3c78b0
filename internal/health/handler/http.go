// Package handler serves the liveness/readiness probe for Kubernetes, load
// balancers, and CI.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger reports backing-store reachability (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server serves GET /healthz.
type Server struct {
	pinger Pinger
}

// NewServer returns a health server. pinger may be nil to skip the DB check.
func NewServer(pinger Pinger) *Server {
	return &Server{pinger: pinger}
}

type healthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db,omitempty"`
}

// ServeHTTP reports 200 when the process is up and the database (if
// configured) answers a ping within a short deadline, 503 otherwise.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	code := http.StatusOK
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.PingContext(ctx); err != nil {
			resp.Status = "degraded"
			resp.DB = "down"
			code = http.StatusServiceUnavailable
		} else {
			resp.DB = "ok"
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
