package protocol

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gabrielmiguelok/fundingintake/pkg/logging"
)

// Common handler errors.
var (
	ErrHandlerNotFound = errors.New("handler not found for message type")
	ErrHandlerPanic    = errors.New("handler panicked")
)

// MessageHandler processes protocol messages.
type MessageHandler interface {
	// HandleMessage processes a message and returns a response.
	HandleMessage(ctx context.Context, msg *Message) (*Message, error)
}

// MessageHandlerFunc is an adapter to allow functions as MessageHandler.
type MessageHandlerFunc func(ctx context.Context, msg *Message) (*Message, error)

// HandleMessage implements MessageHandler.
func (f MessageHandlerFunc) HandleMessage(ctx context.Context, msg *Message) (*Message, error) {
	return f(ctx, msg)
}

// MiddlewareFunc is middleware that wraps message handling.
type MiddlewareFunc func(next MessageHandler) MessageHandler

// Dispatcher routes messages to handlers by message type.
type Dispatcher struct {
	handlers   map[MessageType]MessageHandler
	middleware []MiddlewareFunc
	mu         sync.RWMutex
}

// NewDispatcher creates a new message dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers:   make(map[MessageType]MessageHandler),
		middleware: make([]MiddlewareFunc, 0),
	}
}

// Register adds a handler for a message type.
func (d *Dispatcher) Register(msgType MessageType, handler MessageHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[msgType] = handler
}

// RegisterFunc adds a handler function for a message type.
func (d *Dispatcher) RegisterFunc(msgType MessageType, fn func(ctx context.Context, msg *Message) (*Message, error)) {
	d.Register(msgType, MessageHandlerFunc(fn))
}

// Use adds middleware to the dispatcher.
func (d *Dispatcher) Use(mw MiddlewareFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.middleware = append(d.middleware, mw)
}

// Dispatch routes a message to its handler. A panicking handler is
// reported as ErrHandlerPanic.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *Message) (*Message, error) {
	d.mu.RLock()
	handler, ok := d.handlers[msg.Type]
	middleware := make([]MiddlewareFunc, len(d.middleware))
	copy(middleware, d.middleware)
	d.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, msg.Type)
	}

	// Apply middleware (reverse order)
	for i := len(middleware) - 1; i >= 0; i-- {
		handler = middleware[i](handler)
	}

	return d.executeWithRecovery(ctx, handler, msg)
}

func (d *Dispatcher) executeWithRecovery(ctx context.Context, handler MessageHandler, msg *Message) (result *Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()

	return handler.HandleMessage(ctx, msg)
}

// LoggingMiddleware logs message handling at debug level and failures at
// warn level.
func LoggingMiddleware(logger logging.Logger) MiddlewareFunc {
	return func(next MessageHandler) MessageHandler {
		return MessageHandlerFunc(func(ctx context.Context, msg *Message) (*Message, error) {
			start := time.Now()
			result, err := next.HandleMessage(ctx, msg)

			fields := []logging.Field{
				logging.String("type", msg.Type.String()),
				logging.String("event", msg.Event),
				logging.String("ref", msg.Ref),
				logging.Duration("duration", time.Since(start)),
			}
			if err != nil {
				logger.Warn("message failed", append(fields, logging.Err(err))...)
			} else {
				logger.Debug("message handled", fields...)
			}
			return result, err
		})
	}
}
