// Package metrics owns the Prometheus collectors PulsePy exports on /metrics.
//
// A private registry is used instead of prometheus.DefaultRegisterer so two
// servers in one process (tests!) never collide on registration.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector and the registry they live in.
type Metrics struct {
	registry        *prometheus.Registry
	authAttempts    *prometheus.CounterVec
	originFallbacks prometheus.Counter
}

// New creates the registry, the standard Go/process collectors and
// PulsePy's own counters.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		authAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsepy_auth_attempts_total",
				Help: "Signup and login attempts by outcome",
			},
			[]string{"operation", "outcome"},
		),
		originFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pulsepy_origin_fallbacks_total",
			Help: "Outbound requests that moved on to the next candidate origin",
		}),
	}
	registry.MustRegister(m.authAttempts, m.originFallbacks)

	return m
}

// AuthAttempt increments pulsepy_auth_attempts_total.
// operation is "signup" or "login"; outcome uses the service.Outcome* labels.
func (m *Metrics) AuthAttempt(operation, outcome string) {
	m.authAttempts.WithLabelValues(operation, outcome).Inc()
}

// OriginFallback increments pulsepy_origin_fallbacks_total.
func (m *Metrics) OriginFallback() {
	m.originFallbacks.Inc()
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
