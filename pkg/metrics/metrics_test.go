package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Records(t *testing.T) {
	m, err := NewMetrics("test", nil)
	require.NoError(t, err)

	m.RecordRelay(OutcomeOK)
	m.RecordRelay(OutcomeOK)
	m.RecordRelay(OutcomeUpstreamError)
	m.RecordTransition("next", false)
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.RecordUpstream(120*time.Millisecond, 200)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.relayRequests.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.relayRequests.WithLabelValues(OutcomeUpstreamError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("next", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsActive))
}

func TestMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetrics("test", reg)
	require.NoError(t, err)
	second, err := NewMetrics("test", reg)
	require.NoError(t, err)

	first.RecordRelay(OutcomeOK)
	second.RecordRelay(OutcomeOK)
	assert.Equal(t, 2.0, testutil.ToFloat64(first.relayRequests.WithLabelValues(OutcomeOK)))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordRelay(OutcomeOK)
	m.RecordTransition("back", true)
	m.SessionOpened()
}

func TestMetrics_Handler(t *testing.T) {
	m, err := NewMetrics("test", nil)
	require.NoError(t, err)
	m.RecordRelay(OutcomeOK)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `test_relay_requests_total{outcome="ok"} 1`))
}
