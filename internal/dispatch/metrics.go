package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts resolver invocations on a private registry. A nil *Metrics
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	resolutionsTotal *prometheus.CounterVec
	failuresTotal    *prometheus.CounterVec
	duration         *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		resolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dep_resolver_resolutions_total",
				Help: "Number of project roots handed to a resolver.",
			},
			[]string{"ecosystem"},
		),
		failuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dep_resolver_resolution_failures_total",
				Help: "Number of project roots whose resolution failed.",
			},
			[]string{"ecosystem"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dep_resolver_resolution_duration_seconds",
				Help:    "Time taken to resolve one project root.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"ecosystem"},
		),
	}
	m.registry.MustRegister(m.resolutionsTotal, m.failuresTotal, m.duration)
	return m
}

// Observe records one finished invocation
func (m *Metrics) Observe(ecosystem string, elapsed time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.resolutionsTotal.WithLabelValues(ecosystem).Inc()
	if failed {
		m.failuresTotal.WithLabelValues(ecosystem).Inc()
	}
	m.duration.WithLabelValues(ecosystem).Observe(elapsed.Seconds())
}

// Registry exposes the registry for gathering
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteFile writes all metrics to path in the text exposition format
func (m *Metrics) WriteFile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
