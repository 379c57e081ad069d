// Package metrics owns the prometheus registry for the gateway.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aivoice"

// Metrics bundles every collector the gateway exports. One instance per
// process, shared through dependency injection.
type Metrics struct {
	registry *prometheus.Registry

	GateAttempts  *prometheus.CounterVec
	GateSucceeded *prometheus.CounterVec
	GateFailed    *prometheus.CounterVec
	GateQueued    *prometheus.CounterVec
	GateRetries   *prometheus.CounterVec
	GateWait      *prometheus.HistogramVec

	SessionsActive    prometheus.Gauge
	SessionsTotal     prometheus.Counter
	SessionsCompleted prometheus.Counter
	TurnsTotal        prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.GateAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gate",
		Name:      "requests_total",
		Help:      "Remote speech calls attempted, by capability.",
	}, []string{"capability"})
	m.GateSucceeded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gate",
		Name:      "requests_succeeded_total",
		Help:      "Remote speech calls that eventually succeeded.",
	}, []string{"capability"})
	m.GateFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gate",
		Name:      "requests_failed_total",
		Help:      "Remote speech calls that failed after all retries.",
	}, []string{"capability"})
	m.GateQueued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gate",
		Name:      "requests_queued_total",
		Help:      "Calls that had to wait for an admission slot.",
	}, []string{"capability"})
	m.GateRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gate",
		Name:      "retries_total",
		Help:      "Retry attempts after transient failures.",
	}, []string{"capability"})
	m.GateWait = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "gate",
		Name:      "admission_wait_seconds",
		Help:      "Time spent waiting for an admission slot.",
		Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"capability"})

	m.SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "live",
		Name:      "sessions_active",
		Help:      "Currently connected conversation sessions.",
	})
	m.SessionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "live",
		Name:      "sessions_total",
		Help:      "Conversation sessions started.",
	})
	m.SessionsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "live",
		Name:      "sessions_completed_total",
		Help:      "Conversation sessions that reached the turn limit.",
	})
	m.TurnsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "live",
		Name:      "turns_total",
		Help:      "Completed conversation turns.",
	})

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.GateAttempts, m.GateSucceeded, m.GateFailed, m.GateQueued, m.GateRetries, m.GateWait,
		m.SessionsActive, m.SessionsTotal, m.SessionsCompleted, m.TurnsTotal,
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
