// Package router assembles the intake HTTP surface on a chi mux.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gabrielmiguelok/fundingintake/pkg/health"
	"github.com/gabrielmiguelok/fundingintake/pkg/limits"
	"github.com/gabrielmiguelok/fundingintake/pkg/logging"
)

// Route paths.
const (
	PathRelay   = "/api/intake-submission"
	PathLive    = "/live/intake"
	PathHealth  = "/healthz"
	PathReady   = "/readyz"
	PathStatus  = "/status"
	PathMetrics = "/metrics"
)

// Config holds the handlers the router mounts. Nil handlers are not mounted.
type Config struct {
	Logger logging.Logger

	// Relay serves every method on PathRelay; it answers CORS preflight itself.
	Relay http.Handler

	// Live accepts websocket sessions on PathLive.
	Live http.Handler

	// LiveLimiter caps concurrent live sessions. Nil is unbounded.
	LiveLimiter *limits.ConnectionLimiter

	Health  *health.Checker
	Metrics http.Handler

	SecureHeaders SecureHeadersConfig

	// RateLimit is the per-client requests per second allowed on PathRelay.
	// Zero disables limiting.
	RateLimit int
}

// New builds the router.
func New(cfg Config) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger{}
	}

	r := chi.NewRouter()
	r.Use(Recovery(logger))
	r.Use(logging.RequestLogger(logger))
	r.Use(SecureHeaders(cfg.SecureHeaders))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	if cfg.Health != nil {
		r.Method(http.MethodGet, PathHealth, cfg.Health.LivenessHandler())
		r.Method(http.MethodGet, PathReady, cfg.Health.ReadinessHandler())
		r.Method(http.MethodGet, PathStatus, cfg.Health.HealthHandler())
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, PathMetrics, cfg.Metrics)
	}
	if cfg.Relay != nil {
		r.With(RateLimit(cfg.RateLimit)).Handle(PathRelay, cfg.Relay)
	}
	if cfg.Live != nil {
		live := r.With()
		if cfg.LiveLimiter != nil {
			live = r.With(cfg.LiveLimiter.Middleware())
		}
		live.Method(http.MethodGet, PathLive, cfg.Live)
	}

	return r
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
