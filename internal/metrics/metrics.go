// Package metrics provides Prometheus metrics for the proxy.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the proxy.
type Metrics struct {
	RPCRequestsTotal *prometheus.CounterVec
	RPCDuration      *prometheus.HistogramVec
	RPCRetriesTotal  prometheus.Counter
	FallbackAttempts *prometheus.CounterVec
	LoginsTotal      *prometheus.CounterVec
	SessionsActive   prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RPCRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leanbridge_rpc_requests_total",
				Help: "Upstream JSON-RPC calls by method and outcome.",
			},
			[]string{"method", "outcome"},
		),
		RPCDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leanbridge_rpc_duration_seconds",
				Help:    "Upstream JSON-RPC call duration by method.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		RPCRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "leanbridge_rpc_retries_total",
				Help: "Retries issued after upstream rate limiting.",
			},
		),
		FallbackAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leanbridge_fallback_attempts_total",
				Help: "Method-resolution fallback attempts by operation family.",
			},
			[]string{"family"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leanbridge_logins_total",
				Help: "Form-login attempts by outcome.",
			},
			[]string{"outcome"},
		),
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "leanbridge_sessions_active",
				Help: "Sessions currently held in the session store.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.RPCRequestsTotal)
	reg.MustRegister(m.RPCDuration)
	reg.MustRegister(m.RPCRetriesTotal)
	reg.MustRegister(m.FallbackAttempts)
	reg.MustRegister(m.LoginsTotal)
	reg.MustRegister(m.SessionsActive)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRPC increments the call counter.
func (m *Metrics) RecordRPC(method, outcome string) {
	if m == nil {
		return
	}
	m.RPCRequestsTotal.WithLabelValues(method, outcome).Inc()
}

// RecordRetry increments the retry counter.
func (m *Metrics) RecordRetry() {
	if m == nil {
		return
	}
	m.RPCRetriesTotal.Inc()
}

// RecordFallback increments the fallback attempt counter.
func (m *Metrics) RecordFallback(family string) {
	if m == nil {
		return
	}
	m.FallbackAttempts.WithLabelValues(family).Inc()
}

// RecordLogin increments the login counter.
func (m *Metrics) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(outcome).Inc()
}

// SessionOpened bumps the active-session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
}

// SessionClosed drops the active-session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}

// ObserveRPCDuration records call duration.
func (m *Metrics) ObserveRPCDuration(method string, seconds float64) {
	if m == nil {
		return
	}
	m.RPCDuration.WithLabelValues(method).Observe(seconds)
}
