package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coreport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/core"
)

// PrometheusMetrics exports settlement, database pool and HTTP metrics on its own registry
type PrometheusMetrics struct {
	registry *prometheus.Registry

	intentsSubmitted *prometheus.CounterVec
	intentsTerminal  *prometheus.CounterVec
	intentDuration   *prometheus.HistogramVec
	queueDepth       prometheus.Gauge
	queueRejections  prometheus.Counter
	chainEvents      *prometheus.CounterVec

	dbOpen         prometheus.Gauge
	dbInUse        prometheus.Gauge
	dbIdle         prometheus.Gauge
	dbWaitCount    prometheus.Gauge
	dbWaitDuration prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

var _ coreport.SettlementMetrics = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics registers every collector on a fresh registry
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		registry: registry,

		intentsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_intents_submitted_total",
			Help: "Intents accepted into the queue",
		}, []string{"kind", "domain"}),
		intentsTerminal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_intents_terminal_total",
			Help: "Intents that reached completed or failed",
		}, []string{"kind", "domain", "status"}),
		intentDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "settlement_intent_duration_seconds",
			Help:    "Time from submission to terminal status",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		}, []string{"kind", "domain"}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "settlement_queue_depth",
			Help: "Intents waiting for the worker",
		}),
		queueRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "settlement_queue_rejections_total",
			Help: "Intents refused because the queue was saturated",
		}),
		chainEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_chain_events_total",
			Help: "Chain events handled by the reconciler",
		}, []string{"outcome"}),

		dbOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "settlement_db_open_connections",
			Help: "Open database connections",
		}),
		dbInUse: factory.NewGauge(prometheus.GaugeOpts{
			Name: "settlement_db_in_use_connections",
			Help: "Database connections in use",
		}),
		dbIdle: factory.NewGauge(prometheus.GaugeOpts{
			Name: "settlement_db_idle_connections",
			Help: "Idle database connections",
		}),
		dbWaitCount: factory.NewGauge(prometheus.GaugeOpts{
			Name: "settlement_db_wait_count",
			Help: "Connections waited for since start",
		}),
		dbWaitDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "settlement_db_wait_duration_seconds",
			Help: "Total time spent waiting for connections",
		}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		httpLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "settlement_http_request_duration_seconds",
			Help:    "Request latency",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"method", "endpoint"}),
	}
}

// IntentSubmitted counts an accepted intent
func (m *PrometheusMetrics) IntentSubmitted(kind, domain string) {
	m.intentsSubmitted.WithLabelValues(kind, domain).Inc()
}

// IntentRejected counts a saturation refusal
func (m *PrometheusMetrics) IntentRejected() {
	m.queueRejections.Inc()
}

// IntentTerminal counts a terminal intent and observes its age
func (m *PrometheusMetrics) IntentTerminal(kind, domain, status string, elapsed coreport.Duration) {
	m.intentsTerminal.WithLabelValues(kind, domain, status).Inc()
	m.intentDuration.WithLabelValues(kind, domain).Observe(elapsed.Std().Seconds())
}

// QueueDepth sets the queue depth gauge
func (m *PrometheusMetrics) QueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

// ChainEvent counts a reconciled event by outcome
func (m *PrometheusMetrics) ChainEvent(outcome string) {
	m.chainEvents.WithLabelValues(outcome).Inc()
}

// DBPoolStats records a connection pool sample
func (m *PrometheusMetrics) DBPoolStats(open, inUse, idle int, waitCount int64, waitDuration time.Duration) {
	m.dbOpen.Set(float64(open))
	m.dbInUse.Set(float64(inUse))
	m.dbIdle.Set(float64(idle))
	m.dbWaitCount.Set(float64(waitCount))
	m.dbWaitDuration.Set(waitDuration.Seconds())
}

// HTTPRequest records one served request
func (m *PrometheusMetrics) HTTPRequest(method, endpoint string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}
