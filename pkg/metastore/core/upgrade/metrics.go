package upgrade

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	targetConnector = "connector"
	targetFramework = "framework"

	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Metrics records upgrade outcomes to a Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	upgradeTotal    *prometheus.CounterVec
	upgradeDuration *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance with its own registry, including the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		upgradeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "metastore_schema_upgrade_total",
			Help: "Total number of schema upgrade attempts by target and outcome.",
		}, []string{"target", "outcome"}),
		upgradeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "metastore_schema_upgrade_duration_seconds",
			Help:    "Duration of schema upgrade attempts.",
			Buckets: prometheus.DefBuckets,
		}, []string{"target", "outcome"}),
	}
	registry.MustRegister(m.upgradeTotal, m.upgradeDuration)
	return m
}

// Registry returns the Prometheus registry holding the upgrade metrics, for
// callers that expose them.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// observe records one upgrade attempt. Safe to call on a nil receiver.
func (m *Metrics) observe(target string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeFailure
	}
	m.upgradeTotal.WithLabelValues(target, outcome).Inc()
	m.upgradeDuration.WithLabelValues(target, outcome).Observe(time.Since(start).Seconds())
}
