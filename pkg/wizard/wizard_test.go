package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrielmiguelok/fundingintake/pkg/forms"
	"github.com/gabrielmiguelok/fundingintake/pkg/relay"
)

func testConfig() Config {
	return Config{
		Steps: []Step{
			{ID: "info", Title: "Info", Schema: forms.NewSchema("info",
				forms.TextField("name", "Name", forms.WithRequired("Name is required")),
				forms.NumberField("years", "Years", forms.WithValidator(forms.Range(0, 60))),
			)},
			{ID: "docs", Title: "Docs"},
			{ID: "ack", Title: "Ack", Schema: forms.NewSchema("ack",
				forms.AcknowledgementField("agree", "Agree", "You must agree to this acknowledgement"),
			)},
		},
		Initial: func() forms.Values { return forms.Values{"name": "", "years": 0.0, "agree": false} },
		Clock:   func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
}

func newWizard(t *testing.T) *Wizard {
	t.Helper()
	w, err := New(testConfig())
	require.NoError(t, err)
	return w
}

func fillAll(t *testing.T, w *Wizard) {
	t.Helper()
	require.NoError(t, w.Set("name", "Jane"))
	require.True(t, w.Next())
	require.True(t, w.Next())
	require.NoError(t, w.Set("agree", true))
}

func okSubmitter(calls *int, id string) Submitter {
	return SubmitterFunc(func(ctx context.Context, sub relay.Submission) (relay.Result, error) {
		*calls++
		return relay.Result{OK: true, CorrelationID: &id, Message: relay.MessageReceived}, nil
	})
}

func TestNew_NoSteps(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrNoSteps)
}

func TestNext_RejectsInvalidStep(t *testing.T) {
	w := newWizard(t)

	assert.False(t, w.Next())
	assert.Equal(t, 0, w.Step())
	assert.Equal(t, "Name is required", w.Errors().First("name"))

	require.NoError(t, w.Set("years", "61"))
	require.NoError(t, w.Set("name", "Jane"))
	assert.False(t, w.Next())
	assert.True(t, w.Errors().Has("years"))
	assert.False(t, w.Errors().Has("name"))
}

func TestSet_ClearsFieldErrors(t *testing.T) {
	w := newWizard(t)
	w.Next()
	require.True(t, w.Errors().Has("name"))

	require.NoError(t, w.Set("name", "J"))
	assert.False(t, w.Errors().Has("name"))
}

func TestSet_CoercesAndRejectsUnknown(t *testing.T) {
	w := newWizard(t)

	require.NoError(t, w.Set("years", "12"))
	assert.Equal(t, 12.0, w.Values()["years"])

	require.NoError(t, w.Set("years", ""))
	assert.Equal(t, 0.0, w.Values()["years"])

	assert.ErrorIs(t, w.Set("nope", "x"), ErrUnknownField)
}

func TestNext_NilSchemaAlwaysPasses(t *testing.T) {
	w := newWizard(t)
	require.NoError(t, w.Set("name", "Jane"))
	require.True(t, w.Next())
	assert.Equal(t, 1, w.Step())

	assert.True(t, w.Next())
	assert.Equal(t, 2, w.Step())
}

func TestNext_NeverPastLastStep(t *testing.T) {
	w := newWizard(t)
	fillAll(t, w)

	assert.False(t, w.Next())
	assert.Equal(t, 2, w.Step())
}

func TestBack_DoesNotValidateOrClear(t *testing.T) {
	w := newWizard(t)
	require.NoError(t, w.Set("name", "Jane"))
	require.True(t, w.Next())
	require.True(t, w.Next())

	assert.False(t, w.Next())
	require.True(t, w.Errors().Has("agree"))

	assert.True(t, w.Back())
	assert.Equal(t, 1, w.Step())
	assert.True(t, w.Errors().Has("agree"))
	assert.Equal(t, "Jane", w.Values()["name"])

	assert.True(t, w.Back())
	assert.False(t, w.Back())
	assert.Equal(t, 0, w.Step())
}

func TestSubmit_OnlyFromFinalStep(t *testing.T) {
	w := newWizard(t)
	calls := 0

	_, err := w.Submit(context.Background(), okSubmitter(&calls, "x"))
	assert.ErrorIs(t, err, ErrNotFinalStep)
	assert.Zero(t, calls)
}

func TestSubmit_ValidatesFullSchema(t *testing.T) {
	w := newWizard(t)
	fillAll(t, w)
	require.NoError(t, w.Set("agree", false))
	calls := 0

	_, err := w.Submit(context.Background(), okSubmitter(&calls, "x"))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 2, verr.FirstInvalidStep)
	assert.Equal(t, "You must agree to this acknowledgement", verr.Errors.First("agree"))
	assert.Zero(t, calls)
	assert.Equal(t, 2, w.Step())
}

func TestSubmit_ReportsEarliestInvalidStep(t *testing.T) {
	cfg := testConfig()
	cfg.Initial = func() forms.Values { return forms.Values{} }
	w, err := New(cfg)
	require.NoError(t, err)

	w.step = 2
	calls := 0
	_, err = w.Submit(context.Background(), okSubmitter(&calls, "x"))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 0, verr.FirstInvalidStep)
	assert.Equal(t, []string{"agree", "name"}, verr.Errors.Fields())
}

func TestSubmit_Success(t *testing.T) {
	w := newWizard(t)
	fillAll(t, w)
	calls := 0

	var got relay.Submission
	result, err := w.Submit(context.Background(), SubmitterFunc(func(ctx context.Context, sub relay.Submission) (relay.Result, error) {
		calls++
		got = sub
		id := "abc123"
		return relay.Result{OK: true, CorrelationID: &id, Message: relay.MessageReceived}, nil
	}))
	require.NoError(t, err)
	assert.Equal(t, "abc123", result.Reference())
	assert.Equal(t, 1, calls)
	assert.Equal(t, "Jane", got.Fields["name"])
	assert.Equal(t, true, got.Fields["agree"])

	view := w.View()
	assert.Equal(t, PhaseSucceeded, view.Phase)
	assert.Equal(t, "abc123", view.CorrelationID)
	assert.Equal(t, "", view.Values["name"])
	assert.False(t, view.CanNext)
	assert.False(t, view.CanBack)

	assert.ErrorIs(t, w.Set("name", "x"), ErrNotEditing)
	_, err = w.Submit(context.Background(), okSubmitter(&calls, "again"))
	assert.ErrorIs(t, err, ErrNotEditing)
	assert.Equal(t, 1, calls)
}

func TestSubmit_FailureKeepsDraft(t *testing.T) {
	tests := []struct {
		name      string
		submitter Submitter
	}{
		{"transport error", SubmitterFunc(func(context.Context, relay.Submission) (relay.Result, error) {
			return relay.Result{}, errors.New("connection refused")
		})},
		{"upstream rejected", SubmitterFunc(func(context.Context, relay.Submission) (relay.Result, error) {
			return relay.Result{OK: false, Message: relay.MessageUpstreamFailed}, nil
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWizard(t)
			fillAll(t, w)

			_, err := w.Submit(context.Background(), tt.submitter)
			require.Error(t, err)

			view := w.View()
			assert.Equal(t, PhaseEditing, view.Phase)
			assert.Equal(t, 2, view.Step)
			assert.Equal(t, SubmitErrorMessage, view.SubmitError)
			assert.Equal(t, "Jane", view.Values["name"])
			assert.Equal(t, true, view.Values["agree"])

			calls := 0
			_, err = w.Submit(context.Background(), okSubmitter(&calls, "retry"))
			require.NoError(t, err)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestSubmit_InFlightGuard(t *testing.T) {
	w := newWizard(t)
	fillAll(t, w)

	entered := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	blocking := SubmitterFunc(func(ctx context.Context, sub relay.Submission) (relay.Result, error) {
		calls++
		close(entered)
		<-release
		return relay.Result{OK: true, Message: relay.MessageReceived}, nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := w.Submit(context.Background(), blocking)
		done <- err
	}()
	<-entered

	assert.Equal(t, PhaseSubmitting, w.View().Phase)
	_, err := w.Submit(context.Background(), blocking)
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	assert.ErrorIs(t, w.Reset(), ErrSubmissionInFlight)
	assert.ErrorIs(t, w.Set("name", "x"), ErrNotEditing)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, calls)
	assert.Equal(t, PhaseSucceeded, w.Phase())
}

func TestReset(t *testing.T) {
	w := newWizard(t)
	fillAll(t, w)
	calls := 0
	_, err := w.Submit(context.Background(), okSubmitter(&calls, "x"))
	require.NoError(t, err)

	require.NoError(t, w.Reset())
	view := w.View()
	assert.Equal(t, 0, view.Step)
	assert.Equal(t, PhaseEditing, view.Phase)
	assert.Empty(t, view.CorrelationID)
	assert.Equal(t, 0, view.Errors.Len())
}

func TestView_VisibleFields(t *testing.T) {
	cfg := testConfig()
	cfg.Visible = func(v forms.Values) []string {
		if v.String("name") == "" {
			return []string{"name"}
		}
		return []string{"name", "years"}
	}
	w, err := New(cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"name"}, w.View().Visible)
	require.NoError(t, w.Set("name", "Jane"))
	assert.Equal(t, []string{"name", "years"}, w.View().Visible)
}

type countingObserver map[string]int

func (o countingObserver) RecordTransition(event string, ok bool) {
	if ok {
		o[event+":ok"]++
		return
	}
	o[event+":rejected"]++
}

func TestObserver(t *testing.T) {
	obs := countingObserver{}
	cfg := testConfig()
	cfg.Observer = obs
	w, err := New(cfg)
	require.NoError(t, err)

	w.Next()
	require.NoError(t, w.Set("name", "Jane"))
	w.Next()
	w.Back()

	assert.Equal(t, 1, obs["next:rejected"])
	assert.Equal(t, 1, obs["next:ok"])
	assert.Equal(t, 1, obs["back:ok"])
}
