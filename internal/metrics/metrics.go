package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so several servers can live in one process.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	productionRuns  *prometheus.CounterVec
	entityWrites    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		productionRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockroom_production_runs_total",
				Help: "Production runs by outcome",
			},
			[]string{"result"},
		),
		entityWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockroom_entity_writes_total",
				Help: "Successful create, update and delete calls per entity",
			},
			[]string{"entity", "op"},
		),
	}
	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.productionRuns,
		m.entityWrites,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished HTTP request. path should be the
// route pattern, not the raw URL, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method string, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requests.WithLabelValues(method, path, code).Inc()
	m.requestDuration.WithLabelValues(method, path, code).Observe(elapsed.Seconds())
}

func (m *Metrics) ProductionRun(result string) {
	if m == nil {
		return
	}
	m.productionRuns.WithLabelValues(result).Inc()
}

func (m *Metrics) EntityWrite(entity string, op string) {
	if m == nil {
		return
	}
	m.entityWrites.WithLabelValues(entity, op).Inc()
}
