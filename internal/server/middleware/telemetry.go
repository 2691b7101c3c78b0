package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"taskboard/backend/internal/telemetry"
)

// httpRequestMetadata is the JSON shape stored in Event.Metadata for
// http_request events.
type httpRequestMetadata struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	Status     int    `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
}

// Telemetry records request metrics and emits a telemetry event after each
// request. Best-effort: failures are logged and never fail the request.
// Metrics go through the global MeterProvider; events through emitter, which
// may be nil to disable them. Paths in skip (e.g. /healthz) are untouched.
func Telemetry(emitter telemetry.EventEmitter, skip map[string]bool) mux.MiddlewareFunc {
	meter := otel.Meter("taskboard/backend/internal/server/middleware")
	requests, _ := meter.Int64Counter("http.server.request_count",
		metric.WithDescription("Completed HTTP requests"))
	duration, _ := meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request duration"), metric.WithUnit("ms"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			ctx, holder := withIdentityHolder(r.Context())
			r = r.WithContext(ctx)
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			elapsed := time.Since(start)
			attrs := metric.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", r.URL.Path),
				attribute.Int("http.status_code", sw.status),
			)
			requests.Add(r.Context(), 1, attrs)
			duration.Record(r.Context(), float64(elapsed)/float64(time.Millisecond), attrs)

			if emitter == nil {
				return
			}
			meta := httpRequestMetadata{
				Method:     r.Method,
				Path:       r.URL.Path,
				Status:     sw.status,
				DurationMs: elapsed.Milliseconds(),
				ClientIP:   ClientIP(r),
			}
			metaJSON, _ := json.Marshal(meta)
			event := &telemetry.Event{
				EventType: "http_request",
				Source:    "http_middleware",
				Metadata:  metaJSON,
				CreatedAt: time.Now().UTC(),
			}
			if id := holder.id; id != nil {
				event.Subject = id.Subject
				event.SessionID = id.JTI
			}
			telemetry.EmitAsync(emitter, r.Context(), event)
		})
	}
}

// ClientIPContext stores the originating client address in the request
// context so layers below HTTP (audit logging) can read it.
func ClientIPContext() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), clientIPKey, ClientIP(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIPFrom returns the client address stored by ClientIPContext, or
// "unknown" when absent.
func ClientIPFrom(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey).(string); ok && ip != "" {
		return ip
	}
	return "unknown"
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// ClientIP returns the originating client address, preferring the standard
// proxy headers over the socket peer.
func ClientIP(r *http.Request) string {
	if s := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); s != "" {
		if i := strings.Index(s, ","); i > 0 {
			s = strings.TrimSpace(s[:i])
		}
		return s
	}
	if s := strings.TrimSpace(r.Header.Get("X-Real-Ip")); s != "" {
		return s
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
