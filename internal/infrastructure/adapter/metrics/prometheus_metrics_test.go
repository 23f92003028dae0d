package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/core"
)

// sample returns the value of the first series of name whose labels include want
func sample(t *testing.T, m *PrometheusMetrics, name string, want map[string]string) float64 {
	t.Helper()

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	series:
		for _, metric := range family.GetMetric() {
			labels := make(map[string]string)
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue series
				}
			}
			switch {
			case metric.GetCounter() != nil:
				return metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				return metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				return float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("metric %s %v not found", name, want)
	return 0
}

func TestPrometheusMetricsCounters(t *testing.T) {
	m := NewPrometheusMetrics()

	m.IntentSubmitted("deposit", "internal")
	m.IntentSubmitted("deposit", "internal")
	m.IntentRejected()
	m.IntentTerminal("deposit", "internal", "completed", 250*coreport.Millisecond)
	m.QueueDepth(7)
	m.ChainEvent("recorded")
	m.ChainEvent("duplicate")
	m.ChainEvent("duplicate")

	assert.Equal(t, 2.0, sample(t, m, "settlement_intents_submitted_total", map[string]string{"kind": "deposit", "domain": "internal"}))
	assert.Equal(t, 1.0, sample(t, m, "settlement_queue_rejections_total", nil))
	assert.Equal(t, 1.0, sample(t, m, "settlement_intents_terminal_total", map[string]string{"status": "completed"}))
	assert.Equal(t, 1.0, sample(t, m, "settlement_intent_duration_seconds", map[string]string{"kind": "deposit"}))
	assert.Equal(t, 7.0, sample(t, m, "settlement_queue_depth", nil))
	assert.Equal(t, 2.0, sample(t, m, "settlement_chain_events_total", map[string]string{"outcome": "duplicate"}))
	assert.Equal(t, 1.0, sample(t, m, "settlement_chain_events_total", map[string]string{"outcome": "recorded"}))
}

func TestPrometheusMetricsPoolGauges(t *testing.T) {
	m := NewPrometheusMetrics()
	m.DBPoolStats(4, 3, 1, 9, 2*time.Second)

	assert.Equal(t, 4.0, sample(t, m, "settlement_db_open_connections", nil))
	assert.Equal(t, 3.0, sample(t, m, "settlement_db_in_use_connections", nil))
	assert.Equal(t, 1.0, sample(t, m, "settlement_db_idle_connections", nil))
	assert.Equal(t, 9.0, sample(t, m, "settlement_db_wait_count", nil))
	assert.Equal(t, 2.0, sample(t, m, "settlement_db_wait_duration_seconds", nil))
}

func TestPrometheusMetricsHandler(t *testing.T) {
	m := NewPrometheusMetrics()
	m.ChainEvent("deferred")
	m.HTTPRequest(http.MethodGet, "/health", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `settlement_chain_events_total{outcome="deferred"} 1`)
	assert.Contains(t, body, `settlement_http_requests_total{endpoint="/health",method="GET",status="200"} 1`)
}
