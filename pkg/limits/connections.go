// Package limits caps concurrent long-lived connections.
package limits

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
)

// Limit errors.
var (
	ErrPerClientLimit = errors.New("too many connections from this client")
	ErrGlobalLimit    = errors.New("server is at connection capacity")
)

// ConnectionLimiter bounds concurrent connections per client IP and in
// total. A limit of zero or less is unbounded.
type ConnectionLimiter struct {
	maxPerIP int
	maxTotal int

	mu    sync.Mutex
	perIP map[string]int
	total int

	blocked atomic.Int64
}

// NewConnectionLimiter creates a limiter.
func NewConnectionLimiter(maxPerIP, maxTotal int) *ConnectionLimiter {
	return &ConnectionLimiter{
		maxPerIP: maxPerIP,
		maxTotal: maxTotal,
		perIP:    make(map[string]int),
	}
}

// Acquire takes a slot for ip. Every successful Acquire must be paired with
// a Release.
func (cl *ConnectionLimiter) Acquire(ip string) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.maxTotal > 0 && cl.total >= cl.maxTotal {
		cl.blocked.Add(1)
		return ErrGlobalLimit
	}
	if cl.maxPerIP > 0 && cl.perIP[ip] >= cl.maxPerIP {
		cl.blocked.Add(1)
		return ErrPerClientLimit
	}
	cl.perIP[ip]++
	cl.total++
	return nil
}

// Release returns a slot taken for ip.
func (cl *ConnectionLimiter) Release(ip string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	n, ok := cl.perIP[ip]
	if !ok {
		return
	}
	if n <= 1 {
		delete(cl.perIP, ip)
	} else {
		cl.perIP[ip] = n - 1
	}
	cl.total--
}

// Count returns the number of connections held by ip.
func (cl *ConnectionLimiter) Count(ip string) int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.perIP[ip]
}

// Total returns the number of connections held.
func (cl *ConnectionLimiter) Total() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.total
}

// Blocked returns how many connections were refused.
func (cl *ConnectionLimiter) Blocked() int64 {
	return cl.blocked.Load()
}

// Middleware holds a slot for as long as the wrapped handler runs. Refused
// clients get 429 at the per-client limit and 503 at the global one.
func (cl *ConnectionLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if err := cl.Acquire(ip); err != nil {
				status := http.StatusTooManyRequests
				if errors.Is(err, ErrGlobalLimit) {
					status = http.StatusServiceUnavailable
				}
				w.Header().Set("Retry-After", "5")
				http.Error(w, err.Error(), status)
				return
			}
			defer cl.Release(ip)

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the client IP from an HTTP request: the first
// X-Forwarded-For entry, then X-Real-IP, then RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
