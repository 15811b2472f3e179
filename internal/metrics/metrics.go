// Package metrics exposes launcher counters in the Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/specialistvlad/launcher/internal/bus"
	"github.com/specialistvlad/launcher/internal/store"
)

// Metrics owns a registry and the launcher collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	busMessages  *prometheus.CounterVec
	phase        *prometheus.GaugeVec
	phaseSeconds *prometheus.HistogramVec
	openModals   prometheus.Gauge
	loginCheck   prometheus.Gauge

	now        func() time.Time
	phaseStart time.Time
}

// New builds the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		busMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "launcher",
				Subsystem: "bus",
				Name:      "messages_total",
				Help:      "Bus frames handled, by event, direction and outcome.",
			},
			[]string{"event", "direction", "outcome"},
		),
		phase: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "launcher",
				Subsystem: "startup",
				Name:      "phase",
				Help:      "1 for the current startup phase, 0 otherwise.",
			},
			[]string{"phase"},
		),
		phaseSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "launcher",
				Subsystem: "startup",
				Name:      "phase_duration_seconds",
				Help:      "Time spent in each startup phase.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 4, 10),
			},
			[]string{"phase"},
		),
		openModals: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "launcher",
			Subsystem: "ui",
			Name:      "open_modals",
			Help:      "Modals currently open.",
		}),
		loginCheck: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "launcher",
			Subsystem: "startup",
			Name:      "login_checking",
			Help:      "1 while the startup login check is in progress.",
		}),
		now: time.Now,
	}
	m.phaseStart = m.now()
	m.registry.MustRegister(
		m.busMessages, m.phase, m.phaseSeconds, m.openModals, m.loginCheck,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveBus counts one bus frame. It satisfies bus.Observer.
func (m *Metrics) ObserveBus(ev bus.Event, dir bus.Direction, outcome string) {
	m.busMessages.WithLabelValues(string(ev), string(dir), outcome).Inc()
}

// ObserveState follows store transitions. Register it with
// store.Subscribe; it runs on the dispatching goroutine.
func (m *Metrics) ObserveState(prev, next store.State) {
	m.openModals.Set(float64(len(next.Modals)))
	if next.LoginChecking {
		m.loginCheck.Set(1)
	} else {
		m.loginCheck.Set(0)
	}
	if prev.Phase == next.Phase {
		return
	}
	now := m.now()
	m.phaseSeconds.WithLabelValues(string(prev.Phase)).Observe(now.Sub(m.phaseStart).Seconds())
	m.phaseStart = now
	m.phase.WithLabelValues(string(prev.Phase)).Set(0)
	m.phase.WithLabelValues(string(next.Phase)).Set(1)
}
