// Package metrics exposes prometheus collectors for the request gate, the
// refresh exchange and the role guard.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the gateway collectors around their own registry so tests
// can build as many instances as they like.
type Metrics struct {
	registry        *prometheus.Registry
	gateDecisions   *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	guardDecisions  *prometheus.CounterVec
}

// New creates and registers the gateway collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateway",
			Name:      "gate_decisions_total",
			Help:      "Request gate outcomes by state transition.",
		}, []string{"outcome"}),
		refreshDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gateway",
			Name:      "refresh_duration_seconds",
			Help:      "Latency of refresh exchanges with the identity service.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateway",
			Name:      "role_guard_decisions_total",
			Help:      "Role guard decisions per section.",
		}, []string{"section", "decision"}),
	}

	m.registry.MustRegister(
		m.gateDecisions,
		m.refreshDuration,
		m.guardDecisions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// GateDecision counts one gate outcome. Safe on a nil receiver.
func (m *Metrics) GateDecision(outcome string) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(outcome).Inc()
}

// RefreshObserved records the latency of one refresh exchange
func (m *Metrics) RefreshObserved(d time.Duration, ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.refreshDuration.WithLabelValues(result).Observe(d.Seconds())
}

// GuardDecision counts one role guard decision
func (m *Metrics) GuardDecision(section, decision string) {
	if m == nil {
		return
	}
	m.guardDecisions.WithLabelValues(section, decision).Inc()
}

// Registry exposes the underlying registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
