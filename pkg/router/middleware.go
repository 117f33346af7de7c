package router

import (
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/gabrielmiguelok/fundingintake/pkg/limits"
	"github.com/gabrielmiguelok/fundingintake/pkg/logging"
)

// Middleware wraps an http.Handler.
type Middleware = func(http.Handler) http.Handler

// Recovery middleware recovers from panics and answers 500.
func Recovery(logger logging.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					l := logging.LoggerFromContext(r.Context())
					if l == nil {
						l = logger
					}
					l.Error("panic recovered",
						logging.Any("panic", rec),
						logging.String("stack", string(debug.Stack())),
					)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// SecureHeadersConfig configures security headers.
type SecureHeadersConfig struct {
	// FrameOptions controls X-Frame-Options header.
	// Default: "DENY"
	FrameOptions string

	// ContentTypeNosniff enables X-Content-Type-Options: nosniff.
	ContentTypeNosniff bool

	// ReferrerPolicy sets the Referrer-Policy header.
	ReferrerPolicy string

	// HSTSEnabled enables Strict-Transport-Security header.
	// Only set when request is over HTTPS.
	HSTSEnabled bool

	// HSTSMaxAge is the max-age for HSTS in seconds.
	HSTSMaxAge int

	// ContentSecurityPolicy sets the CSP header.
	ContentSecurityPolicy string
}

// DefaultSecureHeadersConfig returns defaults for a JSON and websocket API
// that serves no documents.
func DefaultSecureHeadersConfig() SecureHeadersConfig {
	return SecureHeadersConfig{
		FrameOptions:          "DENY",
		ContentTypeNosniff:    true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		HSTSEnabled:           true,
		HSTSMaxAge:            31536000, // 1 year
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
	}
}

// SecureHeaders middleware adds security headers.
func SecureHeaders(config SecureHeadersConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if config.FrameOptions != "" {
				h.Set("X-Frame-Options", config.FrameOptions)
			}
			if config.ContentTypeNosniff {
				h.Set("X-Content-Type-Options", "nosniff")
			}
			if config.ReferrerPolicy != "" {
				h.Set("Referrer-Policy", config.ReferrerPolicy)
			}
			if config.HSTSEnabled && (r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https") {
				h.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(config.HSTSMaxAge)+"; includeSubDomains")
			}
			if config.ContentSecurityPolicy != "" {
				h.Set("Content-Security-Policy", config.ContentSecurityPolicy)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit middleware allows requestsPerSecond requests per client IP.
// Zero or less disables it. Preflight requests are never limited. Clients
// idle for a minute are dropped.
func RateLimit(requestsPerSecond int) Middleware {
	if requestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := newClientLimiter(rate.Limit(requestsPerSecond), requestsPerSecond, time.Minute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if !limiter.allow(limits.ClientIP(r)) {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type clientLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	clients   map[string]*clientEntry
	lastSweep time.Time
}

func newClientLimiter(limit rate.Limit, burst int, idleTTL time.Duration) *clientLimiter {
	return &clientLimiter{
		limit:     limit,
		burst:     burst,
		idleTTL:   idleTTL,
		clients:   make(map[string]*clientEntry),
		lastSweep: time.Now(),
	}
}

func (l *clientLimiter) allow(key string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.idleTTL {
		for k, entry := range l.clients {
			if now.Sub(entry.lastSeen) > l.idleTTL {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	entry, ok := l.clients[key]
	if !ok {
		entry = &clientEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}
