// Package metrics exports relay and wizard metrics to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Relay outcomes.
const (
	OutcomeOK             = "ok"
	OutcomeUpstreamError  = "upstream_error"
	OutcomeTransportError = "transport_error"
	OutcomeBadRequest     = "bad_request"
	OutcomeMisconfigured  = "misconfigured"
	OutcomeMethod         = "method_not_allowed"
)

// Observer receives relay and wizard events.
type Observer interface {
	RecordRelay(outcome string)
	RecordUpstream(duration time.Duration, status int)
	RecordTransition(event string, ok bool)
	SessionOpened()
	SessionClosed()
}

// Metrics holds the Prometheus collectors.
type Metrics struct {
	relayRequests    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	transitions      *prometheus.CounterVec
	sessionsActive   prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics registers the collectors with reg. A nil reg uses a fresh
// registry. Collectors already registered under the same name are reused.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	if namespace == "" {
		namespace = "intake"
	}
	var gatherer prometheus.Gatherer
	if reg == nil {
		r := prometheus.NewRegistry()
		reg, gatherer = r, r
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	} else {
		gatherer = prometheus.DefaultGatherer
	}

	m := &Metrics{gatherer: gatherer}
	var err error
	if m.relayRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "relay_requests_total",
		Help:      "Relay requests by outcome.",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if m.upstreamDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "relay_upstream_duration_seconds",
		Help:      "Latency of webhook calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if m.transitions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wizard_transitions_total",
		Help:      "Wizard transitions by event and result.",
	}, []string{"event", "result"})); err != nil {
		return nil, err
	}
	if m.sessionsActive, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_sessions_active",
		Help:      "Open live wizard sessions.",
	})); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, fmt.Errorf("register metric: %w", err)
	}
	return c, nil
}

// RecordRelay counts a relay request.
func (m *Metrics) RecordRelay(outcome string) {
	if m == nil {
		return
	}
	m.relayRequests.WithLabelValues(outcome).Inc()
}

// RecordUpstream observes one webhook call. Status 0 means a transport error.
func (m *Metrics) RecordUpstream(duration time.Duration, status int) {
	if m == nil {
		return
	}
	m.upstreamDuration.WithLabelValues(statusClass(status)).Observe(duration.Seconds())
}

// RecordTransition counts a wizard event.
func (m *Metrics) RecordTransition(event string, ok bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if ok {
		result = "ok"
	}
	m.transitions.WithLabelValues(event, result).Inc()
}

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return fmt.Sprintf("%dxx", status/100)
}

var _ Observer = (*Metrics)(nil)
