package monitoring

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker(t *testing.T) {
	h := NewHealthChecker(5 * time.Minute)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	assert.Equal(t, "degraded", h.Status().Status, "no cycle yet")

	h.RecordCycle(now.Add(-time.Minute), 40, 3, nil)
	status := h.Status()
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, 40, status.Universe)
	assert.Equal(t, 3, status.OpenPositions)

	h.RecordCycle(now, 40, 3, []string{"XRPUSDT 15m: timeout"})
	assert.Equal(t, "warning", h.Status().Status)

	now = now.Add(10 * time.Minute)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, []string{"XRPUSDT 15m: timeout"}, body.Errors)
}

func TestMetricsHandlerExposesCounters(t *testing.T) {
	RecordCycle(2 * time.Second)
	RecordFetch("4h", errors.New("boom"), time.Second)
	RecordSignal("trend", "long")
	RecordOpen("trend", "long")
	RecordClose("take_profit", 12.5)
	RecordClose("stop_loss", -100)
	SetOpenPositions(2)
	RecordError("FETCH")

	rec := httptest.NewRecorder()
	NewMetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, name := range []string{
		"signal_bot_cycles_total",
		`signal_bot_fetch_total{interval="4h",outcome="error"}`,
		`signal_bot_positions_closed_total{reason="take_profit"}`,
		"signal_bot_open_positions 2",
		`signal_bot_errors_total{category="FETCH"}`,
	} {
		assert.True(t, strings.Contains(body, name), name)
	}
}
