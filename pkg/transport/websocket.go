// Package transport carries protocol messages over websocket connections.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/gabrielmiguelok/fundingintake/pkg/protocol"
)

// WebSocket errors
var (
	ErrOriginNotAllowed = errors.New("origin not allowed")
	ErrConnectionClosed = errors.New("connection closed")
)

// WebSocketConfig configures websocket security and limits.
type WebSocketConfig struct {
	// AllowedOrigins is a list of allowed origins for WebSocket connections.
	// If empty and InsecureDevMode is false, only same-origin connections are allowed.
	AllowedOrigins []string

	// InsecureDevMode disables origin validation (ONLY for development).
	InsecureDevMode bool

	// MaxMessageSize bounds a single inbound frame. Attachments travel
	// inline, so this must exceed the largest accepted document.
	MaxMessageSize int64

	// WriteTimeout bounds a single outbound frame.
	WriteTimeout time.Duration

	// PingInterval is how often KeepAlive pings the peer. Zero disables it.
	PingInterval time.Duration
}

// DefaultWebSocketConfig returns secure default configuration.
func DefaultWebSocketConfig() *WebSocketConfig {
	return &WebSocketConfig{
		AllowedOrigins:  nil,
		InsecureDevMode: false,
		MaxMessageSize:  36 << 20,
		WriteTimeout:    10 * time.Second,
		PingInterval:    30 * time.Second,
	}
}

// isOriginAllowed checks if the origin is allowed for WebSocket connections.
func isOriginAllowed(cfg *WebSocketConfig, origin string, requestHost string) bool {
	if cfg != nil && cfg.InsecureDevMode {
		return true
	}

	// Empty origin = non-browser client (allowed)
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	if originURL.Host == requestHost {
		return true
	}

	if cfg != nil {
		for _, allowed := range cfg.AllowedOrigins {
			if allowed == "*" {
				return true
			}
			if allowed == origin {
				return true
			}
			if allowedURL, err := url.Parse(allowed); err == nil && allowedURL.Host != "" {
				if allowedURL.Host == originURL.Host {
					return true
				}
			}
		}
	}

	return false
}

// Conn is a websocket connection speaking one negotiated codec. Writes are
// serialised; reads must come from a single goroutine.
type Conn struct {
	ws    *websocket.Conn
	codec protocol.Codec
	cfg   *WebSocketConfig
	mu    sync.Mutex
}

// Accept upgrades an HTTP request after checking its origin. The codec is
// chosen from the negotiated subprotocol, falling back to the registry
// default when the client offered none.
func Accept(w http.ResponseWriter, r *http.Request, cfg *WebSocketConfig, codecs *protocol.CodecRegistry) (*Conn, error) {
	if cfg == nil {
		cfg = DefaultWebSocketConfig()
	}
	if codecs == nil {
		codecs = protocol.NewCodecRegistry()
	}

	if !isOriginAllowed(cfg, r.Header.Get("Origin"), r.Host) {
		http.Error(w, "Forbidden: Origin not allowed", http.StatusForbidden)
		return nil, ErrOriginNotAllowed
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols: codecs.Subprotocols(),
		// Origin was checked above.
		InsecureSkipVerify: true,
	})
	if err != nil {
		return nil, fmt.Errorf("accept websocket: %w", err)
	}

	return newConn(ws, codecs.Select(ws.Subprotocol()), cfg), nil
}

// Dial opens a client connection asking for the given subprotocol. An
// empty subprotocol uses the registry default.
func Dial(ctx context.Context, rawURL, subprotocol string, cfg *WebSocketConfig) (*Conn, error) {
	if cfg == nil {
		cfg = DefaultWebSocketConfig()
	}
	codecs := protocol.NewCodecRegistry()

	opts := &websocket.DialOptions{}
	if subprotocol != "" {
		opts.Subprotocols = []string{subprotocol}
	}

	ws, _, err := websocket.Dial(ctx, rawURL, opts)
	if err != nil {
		return nil, fmt.Errorf("dial websocket: %w", err)
	}

	return newConn(ws, codecs.Select(ws.Subprotocol()), cfg), nil
}

func newConn(ws *websocket.Conn, codec protocol.Codec, cfg *WebSocketConfig) *Conn {
	if cfg.MaxMessageSize > 0 {
		ws.SetReadLimit(cfg.MaxMessageSize)
	}
	return &Conn{ws: ws, codec: codec, cfg: cfg}
}

// Codec returns the negotiated codec.
func (c *Conn) Codec() protocol.Codec {
	return c.codec
}

// Read blocks for the next message. Frames that do not decode are
// reported with protocol.ErrInvalidMessage and leave the connection open.
func (c *Conn) Read(ctx context.Context) (*protocol.Message, error) {
	_, data, err := c.ws.Read(ctx)
	if err != nil {
		if IsClosed(err) {
			return nil, fmt.Errorf("%w: %w", ErrConnectionClosed, err)
		}
		return nil, err
	}
	return c.codec.Decode(data)
}

// Send encodes and writes a message.
func (c *Conn) Send(ctx context.Context, msg *protocol.Message) error {
	data, err := c.codec.Encode(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	typ := websocket.MessageText
	if c.codec.Binary() {
		typ = websocket.MessageBinary
	}

	if c.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.WriteTimeout)
		defer cancel()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.Write(ctx, typ, data)
}

// KeepAlive pings the peer every PingInterval until ctx is done or a ping
// fails. Pongs are only processed while a Read is in progress.
func (c *Conn) KeepAlive(ctx context.Context) {
	if c.cfg.PingInterval <= 0 {
		return
	}
	timeout := c.cfg.WriteTimeout
	if timeout <= 0 {
		timeout = c.cfg.PingInterval
	}
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, timeout)
			err := c.ws.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// Close closes the connection normally.
func (c *Conn) Close(reason string) error {
	return c.ws.Close(websocket.StatusNormalClosure, reason)
}

// CloseNow closes the connection without a close handshake.
func (c *Conn) CloseNow() error {
	return c.ws.CloseNow()
}

// IsClosed reports whether err means the peer closed the connection.
func IsClosed(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway, websocket.StatusNoStatusRcvd:
		return true
	}
	return errors.Is(err, context.Canceled)
}
