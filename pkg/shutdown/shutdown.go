// Package shutdown runs prioritised cleanup hooks when the process is asked
// to stop.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/gabrielmiguelok/fundingintake/pkg/logging"
)

// Common shutdown errors.
var (
	ErrShutdownTimeout = errors.New("shutdown timed out")
	ErrAlreadyClosed   = errors.New("shutdown handler already closed")
)

// Hook priorities; lower runs earlier.
const (
	PriorityFirst = 0
	// PriorityHTTP stops the listener and drains relay requests.
	PriorityHTTP = 100
	// PriorityLive closes websocket sessions, which http.Server.Shutdown
	// does not track.
	PriorityLive = 200
	PriorityLast = 1000
)

// Hook is one cleanup step.
type Hook struct {
	Name     string
	Priority int
	Fn       func(ctx context.Context) error
}

// Config configures the shutdown handler.
type Config struct {
	// Timeout bounds the whole shutdown, across all hooks.
	Timeout time.Duration

	// Signals that start shutdown in Wait.
	Signals []os.Signal

	Logger logging.Logger
}

// DefaultConfig returns a 30 second timeout on SIGINT and SIGTERM.
func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
		Signals: []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
}

// Handler manages graceful shutdown.
type Handler struct {
	config Config
	logger logging.Logger
	hooks  []Hook
	done   chan struct{}
	closed bool
	mu     sync.Mutex
}

// NewHandler creates a shutdown handler. Zero fields in config take their
// defaults.
func NewHandler(config Config) *Handler {
	def := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if len(config.Signals) == 0 {
		config.Signals = def.Signals
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Handler{
		config: config,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Register adds a shutdown hook.
func (h *Handler) Register(hook Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook)
}

// RegisterFunc registers fn as a hook.
func (h *Handler) RegisterFunc(name string, priority int, fn func(ctx context.Context) error) {
	h.Register(Hook{Name: name, Priority: priority, Fn: fn})
}

// Wait blocks until a signal arrives, ctx is cancelled or Shutdown is called
// elsewhere, then runs the hooks. It returns nil when another caller already
// shut down.
func (h *Handler) Wait(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, h.config.Signals...)
	defer stop()

	select {
	case <-sigCtx.Done():
		h.logger.Info("shutdown requested", logging.String("cause", context.Cause(sigCtx).Error()))
	case <-h.done:
		return nil
	}

	err := h.Shutdown()
	if errors.Is(err, ErrAlreadyClosed) {
		return nil
	}
	return err
}

// Shutdown runs the hooks in priority order within the configured timeout.
// Hooks with equal priority run in registration order.
func (h *Handler) Shutdown() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrAlreadyClosed
	}
	h.closed = true
	close(h.done)
	hooks := slices.Clone(h.hooks)
	h.mu.Unlock()

	slices.SortStableFunc(hooks, func(a, b Hook) int {
		return a.Priority - b.Priority
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var errs []error
	for _, hook := range hooks {
		start := time.Now()
		err := hook.Fn(ctx)
		fields := []logging.Field{
			logging.String("hook", hook.Name),
			logging.Duration("duration", time.Since(start)),
		}
		if err != nil {
			h.logger.Warn("shutdown hook failed", append(fields, logging.Err(err))...)
			errs = append(errs, fmt.Errorf("%s: %w", hook.Name, err))
		} else {
			h.logger.Debug("shutdown hook completed", fields...)
		}

		if ctx.Err() != nil {
			return errors.Join(append(errs, ErrShutdownTimeout)...)
		}
	}
	return errors.Join(errs...)
}

// Done returns a channel closed when shutdown starts.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

// IsClosed reports whether shutdown has started.
func (h *Handler) IsClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// HTTPServerHook stops srv from accepting connections and drains requests.
func HTTPServerHook(name string, srv *http.Server) Hook {
	return Hook{
		Name:     name,
		Priority: PriorityHTTP,
		Fn:       srv.Shutdown,
	}
}

// TimeoutHook bounds a single hook by timeout.
func TimeoutHook(hook Hook, timeout time.Duration) Hook {
	return Hook{
		Name:     hook.Name,
		Priority: hook.Priority,
		Fn: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return hook.Fn(ctx)
		},
	}
}
