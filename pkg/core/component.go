// Package core provides the component contract hosted by live sessions.
package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownEvent is returned by HandleEvent for events a component does
// not understand. The session reports it to the client and keeps the state.
var ErrUnknownEvent = errors.New("unknown event")

// ErrInvalidPayload is returned by HandleEvent when an event's payload is
// missing or has the wrong shape.
var ErrInvalidPayload = errors.New("invalid event payload")

// ErrEventRejected is returned by HandleEvent for well-formed events the
// component cannot apply in its current state.
var ErrEventRejected = errors.New("event rejected")

// Component is the interface every live component implements. Components
// are stateful server-side entities driven by client events; after Mount
// and after each event the session sends the result of Render.
type Component interface {
	// Name returns the unique identifier for this component type.
	Name() string

	// Mount is called when the component is first connected.
	// It receives the connection parameters and session data.
	Mount(ctx context.Context, params Params, session Session) error

	// Render returns the state snapshot sent to the client.
	Render(ctx context.Context) map[string]any

	// HandleEvent processes a user interaction. The event string identifies
	// the action, and payload contains event data.
	HandleEvent(ctx context.Context, event string, payload map[string]any) error

	// Terminate is called when the component is being destroyed.
	Terminate(ctx context.Context, reason TerminateReason) error
}

// Params contains URL parameters and query strings from the connection.
type Params map[string]string

// Get returns a parameter value or empty string if not found.
func (p Params) Get(key string) string {
	return p[key]
}

// GetDefault returns a parameter value or the default if not found.
func (p Params) GetDefault(key, defaultValue string) string {
	if v, ok := p[key]; ok {
		return v
	}
	return defaultValue
}

// Session contains data passed from the HTTP handler that accepted the
// connection.
type Session map[string]any

// Get returns a session value.
func (s Session) Get(key string) any {
	return s[key]
}

// GetString returns a session value as string.
func (s Session) GetString(key string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return ""
}

// TerminateReason indicates why a component is being terminated.
type TerminateReason int

const (
	// TerminateNormal indicates clean disconnection.
	TerminateNormal TerminateReason = iota
	// TerminateShutdown indicates server shutdown.
	TerminateShutdown
	// TerminateError indicates termination due to an error.
	TerminateError
)

func (r TerminateReason) String() string {
	switch r {
	case TerminateNormal:
		return "normal"
	case TerminateShutdown:
		return "shutdown"
	case TerminateError:
		return "error"
	default:
		return "unknown"
	}
}

// BaseComponent provides default implementations for Component methods.
// Embed it to avoid implementing unused methods.
type BaseComponent struct{}

// Name returns an empty string (override in your component).
func (BaseComponent) Name() string {
	return ""
}

// Mount does nothing by default.
func (BaseComponent) Mount(ctx context.Context, params Params, session Session) error {
	return nil
}

// HandleEvent rejects every event by default.
func (BaseComponent) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	return fmt.Errorf("%w: %s", ErrUnknownEvent, event)
}

// Terminate does nothing by default.
func (BaseComponent) Terminate(ctx context.Context, reason TerminateReason) error {
	return nil
}

// ComponentRegistry manages registered components.
type ComponentRegistry struct {
	components map[string]func() Component
	mu         sync.RWMutex
}

// NewComponentRegistry creates a new component registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		components: make(map[string]func() Component),
	}
}

// Register adds a component factory to the registry.
func (r *ComponentRegistry) Register(name string, factory func() Component) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[name] = factory
}

// Get retrieves a component factory by name.
func (r *ComponentRegistry) Get(name string) (func() Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.components[name]
	return f, ok
}

// Create instantiates a new component by name.
func (r *ComponentRegistry) Create(name string) (Component, bool) {
	f, ok := r.Get(name)
	if !ok {
		return nil, false
	}
	return f(), true
}

// Names returns the registered component names, sorted.
func (r *ComponentRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
