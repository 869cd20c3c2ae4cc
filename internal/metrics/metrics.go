// Package metrics exposes rebalance cycle metrics in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Metrics implements rebalancer.Recorder.
type Metrics struct {
	registry      *prometheus.Registry
	cycles        *prometheus.CounterVec
	stageFailures *prometheus.CounterVec
	drift         *prometheus.GaugeVec
}

// New registers collectors in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lpkeeper_cycles_total",
			Help: "Finished rebalance cycles by outcome",
		}, []string{"pool", "outcome"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lpkeeper_stage_failures_total",
			Help: "Failed rebalance cycles by failing stage",
		}, []string{"pool", "stage"}),
		drift: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lpkeeper_drift_ratio",
			Help: "Relative deviation of position amounts from target at the last range check",
		}, []string{"pool", "asset"}),
	}
	m.registry.MustRegister(m.cycles, m.stageFailures, m.drift)
	return m
}

// ObserveDrift records the latest drift of both assets.
func (m *Metrics) ObserveDrift(pool string, base, quote decimal.Decimal) {
	m.drift.WithLabelValues(pool, "base").Set(base.InexactFloat64())
	m.drift.WithLabelValues(pool, "quote").Set(quote.InexactFloat64())
}

// CycleFinished counts a cycle outcome: in_range, rebalanced or failed.
func (m *Metrics) CycleFinished(pool string, outcome string) {
	m.cycles.WithLabelValues(pool, outcome).Inc()
}

// StageFailed counts a failure at stage.
func (m *Metrics) StageFailed(pool string, stage string) {
	m.stageFailures.WithLabelValues(pool, stage).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
