// Package wizard implements a step-gated form wizard: Next is allowed only
// when the current step validates, Back is always allowed, and Submit runs
// on the final step against the combined schema of every step.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gabrielmiguelok/fundingintake/pkg/forms"
	"github.com/gabrielmiguelok/fundingintake/pkg/relay"
)

// SubmitErrorMessage is shown after any failed submission attempt.
const SubmitErrorMessage = "We couldn't submit your application. Please try again."

// Wizard errors.
var (
	ErrNoSteps            = errors.New("wizard has no steps")
	ErrNotFinalStep       = errors.New("submit is only allowed on the final step")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	ErrNotEditing         = errors.New("wizard is not accepting changes")
	ErrUnknownField       = errors.New("unknown field")
)

// Phase is the wizard's lifecycle stage.
type Phase string

const (
	PhaseEditing    Phase = "editing"
	PhaseSubmitting Phase = "submitting"
	PhaseSucceeded  Phase = "succeeded"
)

// Step is one page of the wizard.
type Step struct {
	ID          string
	Title       string
	Description string

	// Schema gates Next. A nil schema always passes.
	Schema *forms.Schema
}

// Submitter delivers a finished submission.
type Submitter interface {
	Submit(ctx context.Context, sub relay.Submission) (relay.Result, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, sub relay.Submission) (relay.Result, error)

func (f SubmitterFunc) Submit(ctx context.Context, sub relay.Submission) (relay.Result, error) {
	return f(ctx, sub)
}

// TransitionObserver is told about every transition attempt.
type TransitionObserver interface {
	RecordTransition(event string, ok bool)
}

// Config describes a wizard.
type Config struct {
	Steps []Step

	// Initial returns a fresh draft. Nil starts from empty values.
	Initial func() forms.Values

	// Visible returns the fields currently shown. Nil shows every field
	// of the current step.
	Visible func(forms.Values) []string

	// Build flattens a validated draft into a submission. Nil forwards the
	// values unchanged.
	Build func(forms.Values, time.Time) (relay.Submission, error)

	// Full validates the whole draft on Submit. Nil merges the step schemas.
	Full *forms.Schema

	// Clock defaults to time.Now.
	Clock func() time.Time

	Observer TransitionObserver
}

// ValidationError is returned by Submit when the draft fails the combined
// schema.
type ValidationError struct {
	Errors forms.Errors

	// FirstInvalidStep is the index of the earliest step with an error.
	FirstInvalidStep int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("application has %d invalid fields (first on step %d): %s",
		len(e.Errors.Fields()), e.FirstInvalidStep+1, strings.Join(e.Errors.Fields(), ", "))
}

// Wizard holds one applicant's in-progress draft. It is safe for
// concurrent use.
type Wizard struct {
	mu sync.Mutex

	cfg  Config
	full *forms.Schema

	step      int
	values    forms.Values
	errors    forms.Errors
	phase     Phase
	submitErr string
	result    *relay.Result
}

// New creates a wizard positioned on the first step with a fresh draft.
func New(cfg Config) (*Wizard, error) {
	if len(cfg.Steps) == 0 {
		return nil, ErrNoSteps
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	full := cfg.Full
	if full == nil {
		schemas := make([]*forms.Schema, len(cfg.Steps))
		for i, s := range cfg.Steps {
			schemas[i] = s.Schema
		}
		full = forms.Merge("wizard", schemas...)
	}

	w := &Wizard{cfg: cfg, full: full}
	w.resetLocked()
	return w, nil
}

func (w *Wizard) resetLocked() {
	w.step = 0
	w.values = w.initial()
	w.errors = make(forms.Errors)
	w.phase = PhaseEditing
	w.submitErr = ""
	w.result = nil
}

func (w *Wizard) initial() forms.Values {
	if w.cfg.Initial == nil {
		return make(forms.Values)
	}
	return w.cfg.Initial()
}

func (w *Wizard) last() int {
	return len(w.cfg.Steps) - 1
}

func (w *Wizard) record(event string, ok bool) {
	if w.cfg.Observer != nil {
		w.cfg.Observer.RecordTransition(event, ok)
	}
}

// Set stores a field value, coerced to the field's kind, and clears that
// field's errors.
func (w *Wizard) Set(field string, value any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.phase != PhaseEditing {
		return ErrNotEditing
	}
	f, ok := w.full.Field(field)
	if !ok && len(w.full.Fields) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if ok {
		value = forms.Coerce(f.Kind, value)
	}
	w.values[field] = value
	w.errors.Delete(field)
	return nil
}

// Next validates the current step and advances when it passes. It reports
// whether the step index changed. A failed check records the step's errors.
func (w *Wizard) Next() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.phase != PhaseEditing {
		w.record("next", false)
		return false
	}

	schema := w.cfg.Steps[w.step].Schema
	errs := schema.Validate(w.values)
	for _, name := range schema.Names() {
		w.errors.Delete(name)
	}
	if errs.Len() > 0 {
		w.errors.Merge(errs)
		w.record("next", false)
		return false
	}

	if w.step >= w.last() {
		w.record("next", false)
		return false
	}
	w.step++
	w.record("next", true)
	return true
}

// Back moves to the previous step without validating. It reports whether
// the step index changed.
func (w *Wizard) Back() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.phase != PhaseEditing || w.step == 0 {
		w.record("back", false)
		return false
	}
	w.step--
	w.record("back", true)
	return true
}

// Submit validates the whole draft and hands the built submission to s.
// The submitter runs without the lock held. On success the draft is
// discarded; on failure the wizard stays on the final step with the draft
// intact and SubmitErrorMessage set.
func (w *Wizard) Submit(ctx context.Context, s Submitter) (relay.Result, error) {
	w.mu.Lock()
	switch {
	case w.phase == PhaseSubmitting:
		w.mu.Unlock()
		return relay.Result{}, ErrSubmissionInFlight
	case w.phase != PhaseEditing:
		w.mu.Unlock()
		return relay.Result{}, ErrNotEditing
	case w.step != w.last():
		w.mu.Unlock()
		w.record("submit", false)
		return relay.Result{}, ErrNotFinalStep
	}

	if errs := w.full.Validate(w.values); errs.Len() > 0 {
		w.errors = errs
		verr := &ValidationError{Errors: errs.Clone(), FirstInvalidStep: w.firstInvalidStep(errs)}
		w.mu.Unlock()
		w.record("submit", false)
		return relay.Result{}, verr
	}

	sub, err := w.build()
	if err != nil {
		w.submitErr = SubmitErrorMessage
		w.mu.Unlock()
		w.record("submit", false)
		return relay.Result{}, fmt.Errorf("build submission: %w", err)
	}

	w.phase = PhaseSubmitting
	w.submitErr = ""
	w.mu.Unlock()

	result, err := s.Submit(ctx, sub)
	if err == nil && !result.OK {
		err = fmt.Errorf("%w: %s", relay.ErrSubmissionFailed, result.Message)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		w.phase = PhaseEditing
		w.submitErr = SubmitErrorMessage
		w.record("submit", false)
		return result, err
	}

	w.phase = PhaseSucceeded
	w.result = &result
	w.values = w.initial()
	w.errors = make(forms.Errors)
	w.record("submit", true)
	return result, nil
}

func (w *Wizard) build() (relay.Submission, error) {
	values := w.full.Normalize(w.values)
	if w.cfg.Build == nil {
		return relay.Submission{Fields: map[string]any(values)}, nil
	}
	return w.cfg.Build(values, w.cfg.Clock())
}

func (w *Wizard) firstInvalidStep(errs forms.Errors) int {
	for i, s := range w.cfg.Steps {
		for _, name := range s.Schema.Names() {
			if errs.Has(name) {
				return i
			}
		}
	}
	return w.last()
}

// Reset discards the draft and returns to the first step.
func (w *Wizard) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.phase == PhaseSubmitting {
		return ErrSubmissionInFlight
	}
	w.resetLocked()
	w.record("reset", true)
	return nil
}

// StepInfo describes a step for rendering.
type StepInfo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Complete    bool   `json:"complete"`
}

// View is an immutable snapshot of the wizard.
type View struct {
	Step          int          `json:"step"`
	Steps         []StepInfo   `json:"steps"`
	Fields        []string     `json:"fields"`
	Values        forms.Values `json:"values"`
	Errors        forms.Errors `json:"errors"`
	Visible       []string     `json:"visible"`
	Phase         Phase        `json:"phase"`
	CanBack       bool         `json:"can_back"`
	CanNext       bool         `json:"can_next"`
	IsLast        bool         `json:"is_last"`
	SubmitError   string       `json:"submit_error,omitempty"`
	CorrelationID string       `json:"correlation_id,omitempty"`
	Message       string       `json:"message,omitempty"`
}

// View returns a snapshot for rendering.
func (w *Wizard) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	steps := make([]StepInfo, len(w.cfg.Steps))
	for i, s := range w.cfg.Steps {
		steps[i] = StepInfo{ID: s.ID, Title: s.Title, Description: s.Description, Complete: i < w.step}
	}

	current := w.cfg.Steps[w.step].Schema.Names()
	var visible []string
	if w.cfg.Visible != nil {
		shown := make(map[string]bool)
		for _, name := range w.cfg.Visible(w.values) {
			shown[name] = true
		}
		for _, name := range current {
			if shown[name] {
				visible = append(visible, name)
			}
		}
	} else {
		visible = append(visible, current...)
	}

	editing := w.phase == PhaseEditing
	v := View{
		Step:        w.step,
		Steps:       steps,
		Fields:      current,
		Values:      w.values.Clone(),
		Errors:      w.errors.Clone(),
		Visible:     visible,
		Phase:       w.phase,
		CanBack:     editing && w.step > 0,
		CanNext:     editing && w.step < w.last(),
		IsLast:      w.step == w.last(),
		SubmitError: w.submitErr,
	}
	if w.result != nil {
		v.CorrelationID = w.result.Reference()
		v.Message = w.result.Message
	}
	return v
}

// Step returns the current step index.
func (w *Wizard) Step() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Phase returns the current phase.
func (w *Wizard) Phase() Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

// Values returns a copy of the draft.
func (w *Wizard) Values() forms.Values {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.values.Clone()
}

// Errors returns a copy of the current field errors.
func (w *Wizard) Errors() forms.Errors {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errors.Clone()
}
