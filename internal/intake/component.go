// Package intake hosts the funding application wizard as a live component:
// one draft per websocket connection, lost when the connection closes.
package intake

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/gabrielmiguelok/fundingintake/internal/application"
	"github.com/gabrielmiguelok/fundingintake/pkg/core"
	"github.com/gabrielmiguelok/fundingintake/pkg/logging"
	"github.com/gabrielmiguelok/fundingintake/pkg/protocol"
	"github.com/gabrielmiguelok/fundingintake/pkg/wizard"
)

// ComponentName is the registry name of the wizard component.
const ComponentName = "intake"

// Client events.
const (
	EventChange = "change"
	EventAttach = "attach"
	EventDetach = "detach"
	EventNext   = "next"
	EventBack   = "back"
	EventSubmit = "submit"
	EventReset  = "reset"
)

// Component drives one application wizard.
type Component struct {
	core.BaseComponent

	submitter wizard.Submitter
	observer  wizard.TransitionObserver
	logger    logging.Logger

	wizard       *wizard.Wizard
	firstInvalid int
}

// New creates a component that submits through submitter.
func New(submitter wizard.Submitter, observer wizard.TransitionObserver, logger logging.Logger) *Component {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Component{
		submitter:    submitter,
		observer:     observer,
		logger:       logger,
		firstInvalid: -1,
	}
}

// Register adds the component to registry under ComponentName.
func Register(registry *core.ComponentRegistry, submitter wizard.Submitter, observer wizard.TransitionObserver, logger logging.Logger) {
	registry.Register(ComponentName, func() core.Component {
		return New(submitter, observer, logger)
	})
}

// Name returns ComponentName.
func (c *Component) Name() string {
	return ComponentName
}

// Mount starts a fresh draft.
func (c *Component) Mount(ctx context.Context, params core.Params, session core.Session) error {
	w, err := wizard.New(application.WizardConfig(c.observer))
	if err != nil {
		return err
	}
	c.wizard = w
	c.logger = c.logger.With(logging.String("socket_id", session.GetString("socket_id")))
	return nil
}

// HandleEvent applies a client event to the wizard. Failed validation and
// failed submissions are part of the rendered state, not errors.
func (c *Component) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	c.firstInvalid = -1

	switch event {
	case EventChange:
		field, err := valueFieldOf(payload)
		if err != nil {
			return err
		}
		return c.set(field, payload["value"])

	case EventAttach:
		return c.attach(payload)

	case EventDetach:
		field, err := documentFieldOf(payload)
		if err != nil {
			return err
		}
		return c.set(field, nil)

	case EventNext:
		c.wizard.Next()
		return nil

	case EventBack:
		c.wizard.Back()
		return nil

	case EventSubmit:
		return c.submit(ctx)

	case EventReset:
		if err := c.wizard.Reset(); err != nil {
			return fmt.Errorf("%w: %w", core.ErrEventRejected, err)
		}
		return nil

	default:
		return c.BaseComponent.HandleEvent(ctx, event, payload)
	}
}

func (c *Component) set(field string, value any) error {
	err := c.wizard.Set(field, value)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, wizard.ErrUnknownField):
		return fmt.Errorf("%w: %w", core.ErrInvalidPayload, err)
	default:
		return fmt.Errorf("%w: %w", core.ErrEventRejected, err)
	}
}

func (c *Component) attach(payload map[string]any) error {
	field, err := documentFieldOf(payload)
	if err != nil {
		return err
	}

	msg := protocol.Message{Payload: payload}
	data, err := msg.GetPayloadBytes("data")
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidPayload, err)
	}

	doc, err := application.NewDocument(
		msg.GetPayloadString("filename"),
		msg.GetPayloadInt("size"),
		msg.GetPayloadString("content_type"),
		data,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidPayload, err)
	}
	return c.set(field, doc)
}

// submit runs detached from the connection: once the request is in flight
// it completes even if the client goes away.
func (c *Component) submit(ctx context.Context) error {
	result, err := c.wizard.Submit(context.WithoutCancel(ctx), c.submitter)

	var verr *wizard.ValidationError
	switch {
	case err == nil:
		c.logger.Info("application submitted", logging.String("correlation_id", result.Reference()))
		return nil
	case errors.As(err, &verr):
		c.firstInvalid = verr.FirstInvalidStep
		return nil
	case errors.Is(err, wizard.ErrNotFinalStep),
		errors.Is(err, wizard.ErrSubmissionInFlight),
		errors.Is(err, wizard.ErrNotEditing):
		return fmt.Errorf("%w: %w", core.ErrEventRejected, err)
	default:
		c.logger.Warn("submission failed", logging.Err(err))
		return nil
	}
}

// Render returns the wizard view.
func (c *Component) Render(ctx context.Context) map[string]any {
	v := c.wizard.View()
	state := map[string]any{
		"step":     v.Step,
		"steps":    v.Steps,
		"fields":   v.Fields,
		"values":   v.Values,
		"errors":   v.Errors,
		"visible":  v.Visible,
		"phase":    string(v.Phase),
		"can_back": v.CanBack,
		"can_next": v.CanNext,
		"is_last":  v.IsLast,
	}
	if v.SubmitError != "" {
		state["submit_error"] = v.SubmitError
	}
	if v.Phase == wizard.PhaseSucceeded {
		state["correlation_id"] = v.CorrelationID
		state["message"] = v.Message
	}
	if c.firstInvalid >= 0 {
		state["first_invalid_step"] = c.firstInvalid
	}
	return state
}

// Terminate discards the draft.
func (c *Component) Terminate(ctx context.Context, reason core.TerminateReason) error {
	if c.wizard != nil && c.wizard.Phase() != wizard.PhaseSucceeded {
		c.logger.Debug("draft discarded",
			logging.String("reason", reason.String()),
			logging.Int("step", c.wizard.Step()),
		)
	}
	return nil
}

func fieldOf(payload map[string]any) (string, error) {
	field, _ := payload["field"].(string)
	if field == "" {
		return "", fmt.Errorf("%w: missing field", core.ErrInvalidPayload)
	}
	return field, nil
}

// valueFieldOf names a plain field; documents only change through attach
// and detach.
func valueFieldOf(payload map[string]any) (string, error) {
	field, err := fieldOf(payload)
	if err != nil {
		return "", err
	}
	if slices.Contains(application.Documents, field) {
		return "", fmt.Errorf("%w: %s is a document field", core.ErrInvalidPayload, field)
	}
	return field, nil
}

func documentFieldOf(payload map[string]any) (string, error) {
	field, err := fieldOf(payload)
	if err != nil {
		return "", err
	}
	if !slices.Contains(application.Documents, field) {
		return "", fmt.Errorf("%w: %s is not a document field", core.ErrInvalidPayload, field)
	}
	return field, nil
}
