package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	DepositsCreated prometheus.Counter
	Surfaces        *prometheus.CounterVec
	Sessions        *prometheus.CounterVec
	SharedUses      *prometheus.CounterVec
	TimerRuns       *prometheus.CounterVec
	TimerUpdates    *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPLatency     *prometheus.HistogramVec
	Errors          *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = newMetrics(namespace)
		prometheus.MustRegister(metricsInstance.collectors()...)
	})
	return metricsInstance
}

// NewUnregistered returns collectors not attached to any registry, for tests
// and embedded use.
func NewUnregistered() *Metrics {
	return newMetrics("")
}

func newMetrics(namespace string) *Metrics {
	return &Metrics{
		DepositsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deposits_created_total",
			Help:      "Total deposits created.",
		}),
		Surfaces: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "surfaces_total",
			Help:      "Surfacing attempts by kind (own, shared) and result (hit, empty).",
		}, []string{"kind", "result"}),
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rainy_day_rounds_total",
			Help:      "Rainy-day rounds by resulting outcome.",
		}, []string{"outcome"}),
		SharedUses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shared_uses_total",
			Help:      "Shared deposit uses by helpfulness answer.",
		}, []string{"helpful"}),
		TimerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timer_runs_total",
			Help:      "Background timer runs by timer and status.",
		}, []string{"timer", "status"}),
		TimerUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timer_updates_total",
			Help:      "Rows changed by background timers.",
		}, []string{"timer"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"route", "code"}),
		HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution for HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total errors grouped by component.",
		}, []string{"component"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.DepositsCreated,
		m.Surfaces,
		m.Sessions,
		m.SharedUses,
		m.TimerRuns,
		m.TimerUpdates,
		m.HTTPRequests,
		m.HTTPLatency,
		m.Errors,
	}
}
