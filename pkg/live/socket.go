// Package live binds a core.Component to a websocket connection: one
// component instance per connection, driven by client events and answered
// with state snapshots.
package live

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gabrielmiguelok/fundingintake/pkg/core"
	"github.com/gabrielmiguelok/fundingintake/pkg/logging"
	"github.com/gabrielmiguelok/fundingintake/pkg/protocol"
	"github.com/gabrielmiguelok/fundingintake/pkg/transport"
)

// Reasons reported in error messages.
const (
	ReasonUnsupported = "unsupported message type"
	ReasonInternal    = "internal error"
)

// Socket is one live session.
type Socket struct {
	id          string
	topic       string
	conn        *transport.Conn
	component   core.Component
	dispatcher  *protocol.Dispatcher
	logger      logging.Logger
	connectedAt time.Time
	stopping    atomic.Bool
}

func newSocket(id string, conn *transport.Conn, component core.Component, logger logging.Logger) *Socket {
	s := &Socket{
		id:          id,
		topic:       component.Name() + ":" + id,
		conn:        conn,
		component:   component,
		logger:      logger,
		connectedAt: time.Now(),
	}

	s.dispatcher = protocol.NewDispatcher()
	s.dispatcher.Use(protocol.LoggingMiddleware(logger))
	s.dispatcher.RegisterFunc(protocol.MsgEvent, s.handleEvent)
	s.dispatcher.RegisterFunc(protocol.MsgHeartbeat, func(ctx context.Context, msg *protocol.Message) (*protocol.Message, error) {
		return protocol.HeartbeatMessage(s.topic).WithRef(msg.Ref), nil
	})
	return s
}

// ID returns the socket's unique identifier.
func (s *Socket) ID() string {
	return s.id
}

// Topic returns the topic stamped on outbound messages.
func (s *Socket) Topic() string {
	return s.topic
}

// ConnectedAt returns when the socket connected.
func (s *Socket) ConnectedAt() time.Time {
	return s.connectedAt
}

func (s *Socket) handleEvent(ctx context.Context, msg *protocol.Message) (*protocol.Message, error) {
	if err := s.component.HandleEvent(ctx, msg.Event, msg.Payload); err != nil {
		return nil, err
	}
	return protocol.StateMessage(s.topic, msg.Ref, s.component.Render(ctx)), nil
}

// run mounts the component, sends the initial state and serves events until
// the connection closes.
func (s *Socket) run(ctx context.Context, params core.Params, session core.Session) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := s.component.Mount(ctx, params, session); err != nil {
		_ = s.component.Terminate(context.WithoutCancel(ctx), core.TerminateError)
		_ = s.conn.Close("mount failed")
		return fmt.Errorf("mount %s: %w", s.component.Name(), err)
	}

	defer func() {
		reason := core.TerminateNormal
		switch {
		case s.stopping.Load():
			reason = core.TerminateShutdown
		case err != nil:
			reason = core.TerminateError
		}
		if terr := s.component.Terminate(context.WithoutCancel(ctx), reason); terr != nil {
			s.logger.Warn("terminate failed", logging.Err(terr))
		}
	}()

	go s.conn.KeepAlive(ctx)

	if err := s.send(ctx, protocol.StateMessage(s.topic, "", s.component.Render(ctx))); err != nil {
		return err
	}

	for {
		msg, err := s.conn.Read(ctx)
		if errors.Is(err, protocol.ErrInvalidMessage) {
			if err := s.send(ctx, protocol.ErrorMessage(s.topic, "", err.Error())); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			if transport.IsClosed(err) || s.stopping.Load() || ctx.Err() != nil {
				return nil
			}
			return err
		}

		reply, err := s.dispatcher.Dispatch(ctx, msg)
		if err != nil {
			reply = protocol.ErrorMessage(s.topic, msg.Ref, errorReason(err))
		}
		if reply == nil {
			continue
		}
		if err := s.send(ctx, reply); err != nil {
			return err
		}
	}
}

func (s *Socket) send(ctx context.Context, msg *protocol.Message) error {
	if err := s.conn.Send(ctx, msg); err != nil {
		if transport.IsClosed(err) || s.stopping.Load() {
			return nil
		}
		return fmt.Errorf("send %s: %w", msg.Event, err)
	}
	return nil
}

// close asks the peer to disconnect; run returns once the close completes.
func (s *Socket) close(reason string) error {
	s.stopping.Store(true)
	return s.conn.Close(reason)
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, core.ErrUnknownEvent), errors.Is(err, core.ErrInvalidPayload), errors.Is(err, core.ErrEventRejected):
		return err.Error()
	case errors.Is(err, protocol.ErrHandlerNotFound):
		return ReasonUnsupported
	default:
		return ReasonInternal
	}
}
