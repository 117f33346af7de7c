package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gabrielmiguelok/fundingintake/pkg/retry"
)

const (
	tracerName        = "github.com/gabrielmiguelok/fundingintake/pkg/relay"
	spanForward       = "relay.forward"
	maxUpstreamBody   = 1 << 20
	attrAttachments   = "relay.attachments"
	attrUpstreamState = "http.response.status_code"
)

// Observer receives relay telemetry.
type Observer interface {
	RecordRelay(outcome string)
	RecordUpstream(duration time.Duration, status int)
}

type nopObserver struct{}

func (nopObserver) RecordRelay(string)                {}
func (nopObserver) RecordUpstream(time.Duration, int) {}

// Forwarder posts submissions to the configured webhook.
type Forwarder struct {
	cfg      Config
	client   *http.Client
	retry    *retry.Config
	observer Observer
	tracer   trace.Tracer
}

// ForwarderOption configures a Forwarder.
type ForwarderOption func(*Forwarder)

// WithHTTPClient replaces the HTTP client used for upstream calls.
func WithHTTPClient(c *http.Client) ForwarderOption {
	return func(f *Forwarder) {
		f.client = c
	}
}

// WithObserver sets the telemetry sink.
func WithObserver(o Observer) ForwarderOption {
	return func(f *Forwarder) {
		if o != nil {
			f.observer = o
		}
	}
}

// WithRetryConfig overrides the backoff used between transport retries.
func WithRetryConfig(rc *retry.Config) ForwarderOption {
	return func(f *Forwarder) {
		f.retry = rc
	}
}

// NewForwarder creates a forwarder for cfg.
func NewForwarder(cfg Config, opts ...ForwarderOption) *Forwarder {
	rc := retry.DefaultConfig()
	rc.MaxRetries = max(cfg.Retries, 0)

	f := &Forwarder{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		retry:    rc,
		observer: nopObserver{},
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Config returns the forwarder's configuration.
func (f *Forwarder) Config() Config {
	return f.cfg
}

// Forward sends the submission upstream and returns the upstream status and
// body. Only transport failures are returned as errors; they are retried up
// to the configured count. Upstream error statuses are never retried.
func (f *Forwarder) Forward(ctx context.Context, sub Submission) (int, []byte, error) {
	if err := f.cfg.Validate(); err != nil {
		return 0, nil, err
	}

	body, contentType, err := sub.Encode()
	if err != nil {
		return 0, nil, err
	}

	ctx, span := f.tracer.Start(ctx, spanForward, trace.WithAttributes(
		attribute.Int(attrAttachments, len(sub.Attachments)),
	))
	defer span.End()

	type upstream struct {
		status int
		body   []byte
	}
	res, err := retry.Do(ctx, f.retry, func(ctx context.Context) (upstream, error) {
		start := time.Now()
		status, respBody, err := f.post(ctx, body, contentType)
		f.observer.RecordUpstream(time.Since(start), status)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return upstream{}, retry.Permanent(err)
			}
			return upstream{}, err
		}
		return upstream{status: status, body: respBody}, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, nil, fmt.Errorf("forward submission: %w", err)
	}

	span.SetAttributes(attribute.Int(attrUpstreamState, res.status))
	if res.status >= 200 && res.status <= 299 {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, http.StatusText(res.status))
	}
	return res.status, res.body, nil
}

// Submit forwards the submission and normalizes the upstream answer. It lets
// an in-process caller use the forwarder where a relay Client would be used.
func (f *Forwarder) Submit(ctx context.Context, sub Submission) (Result, error) {
	status, body, err := f.Forward(ctx, sub)
	if err != nil {
		return failure(MessageInternalError), fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}
	result, _ := Normalize(status, body)
	if !result.OK {
		return result, fmt.Errorf("%w: upstream status %d", ErrSubmissionFailed, status)
	}
	return result, nil
}

func (f *Forwarder) post(ctx context.Context, body []byte, contentType string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, nil, retry.Permanent(err)
	}
	req.Header.Set("Content-Type", contentType)
	switch f.cfg.scheme() {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+f.cfg.Token)
	default:
		req.SetBasicAuth(f.cfg.Username, f.cfg.Password)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}
