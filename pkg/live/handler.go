package live

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/gabrielmiguelok/fundingintake/pkg/core"
	"github.com/gabrielmiguelok/fundingintake/pkg/logging"
	"github.com/gabrielmiguelok/fundingintake/pkg/protocol"
	"github.com/gabrielmiguelok/fundingintake/pkg/transport"
)

// ErrShutdown is returned by Shutdown when the context expires before every
// session has ended.
var ErrShutdown = errors.New("live sessions did not close in time")

// SessionObserver is notified when sessions open and close.
type SessionObserver interface {
	SessionOpened()
	SessionClosed()
}

type nopObserver struct{}

func (nopObserver) SessionOpened() {}
func (nopObserver) SessionClosed() {}

// Handler upgrades requests and runs one component per connection.
type Handler struct {
	registry  *core.ComponentRegistry
	component string
	codecs    *protocol.CodecRegistry
	wsConfig  *transport.WebSocketConfig
	logger    logging.Logger
	observer  SessionObserver

	sockets map[string]*Socket
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithObserver sets the session observer.
func WithObserver(o SessionObserver) Option {
	return func(h *Handler) {
		if o != nil {
			h.observer = o
		}
	}
}

// WithWebSocketConfig sets origin policy and connection limits.
func WithWebSocketConfig(cfg *transport.WebSocketConfig) Option {
	return func(h *Handler) {
		h.wsConfig = cfg
	}
}

// WithCodecs replaces the codec registry.
func WithCodecs(codecs *protocol.CodecRegistry) Option {
	return func(h *Handler) {
		h.codecs = codecs
	}
}

// NewHandler creates a handler that mounts the named component from
// registry on every connection.
func NewHandler(registry *core.ComponentRegistry, component string, opts ...Option) *Handler {
	h := &Handler{
		registry:  registry,
		component: component,
		codecs:    protocol.NewCodecRegistry(),
		wsConfig:  transport.DefaultWebSocketConfig(),
		logger:    logging.NopLogger{},
		observer:  nopObserver{},
		sockets:   make(map[string]*Socket),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.LoggerFromContext(r.Context())
	if logger == nil {
		logger = h.logger
	}

	component, ok := h.registry.Create(h.component)
	if !ok {
		logger.Error("component not registered", logging.String("component", h.component))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := transport.Accept(w, r, h.wsConfig, h.codecs)
	if err != nil {
		logger.Warn("websocket rejected", logging.Err(err), logging.String("origin", r.Header.Get("Origin")))
		return
	}

	id := uuid.NewString()
	logger = logger.With(
		logging.String("socket_id", id),
		logging.String("component", h.component),
		logging.String("codec", conn.Codec().Name()),
	)
	s := newSocket(id, conn, component, logger)

	if !h.track(s) {
		_ = conn.Close("server shutting down")
		return
	}
	defer h.untrack(s)

	h.observer.SessionOpened()
	defer h.observer.SessionClosed()
	logger.Info("session opened")

	params := make(core.Params)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	session := core.Session{
		"socket_id":   id,
		"request_id":  logging.RequestIDFromContext(r.Context()),
		"remote_addr": r.RemoteAddr,
		"user_agent":  r.UserAgent(),
	}

	if err := s.run(r.Context(), params, session); err != nil {
		logger.Warn("session ended with error", logging.Err(err))
		_ = conn.CloseNow()
		return
	}
	logger.Info("session closed")
}

func (h *Handler) track(s *Socket) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.sockets[s.id] = s
	h.wg.Add(1)
	return true
}

func (h *Handler) untrack(s *Socket) {
	h.mu.Lock()
	delete(h.sockets, s.id)
	h.mu.Unlock()
	h.wg.Done()
}

// Count returns the number of open sessions.
func (h *Handler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sockets)
}

// Shutdown stops accepting connections, closes every open session and
// waits for them to finish. Drafts held by the sessions are lost.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	sockets := make([]*Socket, 0, len(h.sockets))
	for _, s := range h.sockets {
		sockets = append(sockets, s)
	}
	h.mu.Unlock()

	for _, s := range sockets {
		go func(s *Socket) {
			_ = s.close("server shutting down")
		}(s)
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(ErrShutdown, ctx.Err())
	}
}
