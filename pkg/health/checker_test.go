package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecker_AllPass(t *testing.T) {
	hc := NewChecker("1.0.0")
	hc.AddCheck("ping", func(ctx context.Context) error { return nil }, time.Second)
	hc.AddCriticalCheck("relay_config", ConfigCheck(func() error { return nil }), time.Second)

	report := hc.Check(context.Background())

	assert.Equal(t, StatusHealthy, report.Status)
	assert.Equal(t, "1.0.0", report.Version)
	require.Len(t, report.Checks, 2)
	for name, result := range report.Checks {
		assert.Equal(t, StatusHealthy, result.Status, name)
		assert.Empty(t, result.Error, name)
	}
}

func TestChecker_Aggregation(t *testing.T) {
	failing := func(ctx context.Context) error { return errors.New("boom") }
	passing := func(ctx context.Context) error { return nil }

	tests := []struct {
		name     string
		setup    func(*Checker)
		expected Status
	}{
		{
			name: "non-critical failure degrades",
			setup: func(hc *Checker) {
				hc.AddCheck("ok", passing, time.Second)
				hc.AddCheck("bad", failing, time.Second)
			},
			expected: StatusDegraded,
		},
		{
			name: "critical failure is unhealthy",
			setup: func(hc *Checker) {
				hc.AddCheck("bad", failing, time.Second)
				hc.AddCriticalCheck("worse", failing, time.Second)
			},
			expected: StatusUnhealthy,
		},
		{
			name:     "no checks is healthy",
			setup:    func(hc *Checker) {},
			expected: StatusHealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewChecker("")
			tt.setup(hc)
			assert.Equal(t, tt.expected, hc.Check(context.Background()).Status)
		})
	}
}

func TestChecker_Timeout(t *testing.T) {
	hc := NewChecker("")
	hc.AddCriticalCheck("slow", func(ctx context.Context) error {
		time.Sleep(time.Second)
		return nil
	}, 20*time.Millisecond)

	start := time.Now()
	report := hc.Check(context.Background())

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Contains(t, report.Checks["slow"].Error, "deadline exceeded")
}

func TestReadinessHandler(t *testing.T) {
	var cfgErr error
	hc := NewChecker("test")
	hc.AddCriticalCheck("relay_config", ConfigCheck(func() error { return cfgErr }), time.Second)

	rec := httptest.NewRecorder()
	hc.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	cfgErr = errors.New("webhook url is not configured")
	rec = httptest.NewRecorder()
	hc.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var report Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Equal(t, "webhook url is not configured", report.Checks["relay_config"].Error)
}

func TestLivenessAndHealthHandlers(t *testing.T) {
	hc := NewChecker("test")
	hc.AddCriticalCheck("bad", func(ctx context.Context) error { return errors.New("down") }, time.Second)

	rec := httptest.NewRecorder()
	hc.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"alive"`)

	rec = httptest.NewRecorder()
	hc.HealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"unhealthy"`)
}

func TestCapacityCheck(t *testing.T) {
	count := 5
	check := CapacityCheck("live sessions", func() int { return count }, 10)
	assert.NoError(t, check(context.Background()))

	count = 10
	err := check(context.Background())
	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, "live sessions at capacity", herr.Message)
	assert.Equal(t, 10, herr.Details["max"])

	unlimited := CapacityCheck("live sessions", func() int { return 1 << 20 }, 0)
	assert.NoError(t, unlimited(context.Background()))

	hc := NewChecker("")
	hc.AddCheck("sessions", check, time.Second)
	report := hc.Check(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, 10, report.Checks["sessions"].Details["current"])
}
