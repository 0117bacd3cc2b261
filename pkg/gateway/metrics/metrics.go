// Package metrics exposes Prometheus instrumentation for the call
// gateway on a private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	registry *prometheus.Registry

	CallsActive  prometheus.Gauge
	CallsTotal   *prometheus.CounterVec
	CallDuration prometheus.Histogram

	RoutingDecisions *prometheus.CounterVec
	TurnsTotal       prometheus.Counter

	InterruptsTotal *prometheus.CounterVec
	SessionsEvicted prometheus.Counter
	AudioBytesTotal *prometheus.CounterVec
}

// New creates a Metrics instance with everything registered on a fresh
// private registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "voicecore"
	}

	registry := prometheus.NewRegistry()

	callsActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "calls_active",
		Help:      "Number of calls currently connected",
	})

	callsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "calls_total",
		Help:      "Total number of calls handled",
	}, []string{"status"})

	callDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "call_duration_seconds",
		Help:      "Call duration in seconds",
		Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1800},
	})

	routingDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "routing_decisions_total",
		Help:      "Committed turns by routing decision and detected intent",
	}, []string{"decision", "intent"})

	turnsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "turns_total",
		Help:      "Total committed caller turns",
	})

	interruptsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "interrupts_total",
		Help:      "Interrupt requests by outcome",
	}, []string{"outcome"})

	sessionsEvicted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_evicted_total",
		Help:      "Sessions removed by the staleness sweeper",
	})

	audioBytesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audio_bytes_total",
		Help:      "Audio bytes through the gateway by direction",
	}, []string{"direction"})

	registry.MustRegister(
		callsActive,
		callsTotal,
		callDuration,
		routingDecisions,
		turnsTotal,
		interruptsTotal,
		sessionsEvicted,
		audioBytesTotal,
	)

	return &Metrics{
		registry:         registry,
		CallsActive:      callsActive,
		CallsTotal:       callsTotal,
		CallDuration:     callDuration,
		RoutingDecisions: routingDecisions,
		TurnsTotal:       turnsTotal,
		InterruptsTotal:  interruptsTotal,
		SessionsEvicted:  sessionsEvicted,
		AudioBytesTotal:  audioBytesTotal,
	}
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordCallStart records a call connecting.
func (m *Metrics) RecordCallStart() {
	m.CallsActive.Inc()
}

// RecordCallEnd records a call finishing with the given status
// ("completed" or "aborted").
func (m *Metrics) RecordCallEnd(status string, duration time.Duration) {
	m.CallsActive.Dec()
	m.CallsTotal.WithLabelValues(status).Inc()
	m.CallDuration.Observe(duration.Seconds())
}

// RecordTurn records a committed caller turn and its routing decision.
func (m *Metrics) RecordTurn(needsTool bool, intent string) {
	decision := "chat"
	if needsTool {
		decision = "tool_call"
	}
	m.TurnsTotal.Inc()
	m.RoutingDecisions.WithLabelValues(decision, intent).Inc()
}

// RecordInterrupt records an interrupt request outcome ("accepted" or
// "ignored").
func (m *Metrics) RecordInterrupt(outcome string) {
	m.InterruptsTotal.WithLabelValues(outcome).Inc()
}

// RecordEvictions records sessions removed by a sweep.
func (m *Metrics) RecordEvictions(n int) {
	if n > 0 {
		m.SessionsEvicted.Add(float64(n))
	}
}

// RecordAudio records audio bytes by direction ("in" or "out").
func (m *Metrics) RecordAudio(direction string, bytes int) {
	if bytes > 0 {
		m.AudioBytesTotal.WithLabelValues(direction).Add(float64(bytes))
	}
}
