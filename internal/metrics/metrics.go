// Package metrics exposes the Prometheus collectors of the service.
// Every method is safe on a nil *Metrics so components can run without metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agribot"

type Metrics struct {
	registry *prometheus.Registry

	ticks        prometheus.Counter
	tickErrors   prometheus.Counter
	subscribers  prometheus.Gauge
	drops        prometheus.Counter
	toggles      *prometheus.CounterVec
	sinkFailures *prometheus.CounterVec
	commands     *prometheus.CounterVec
}

// New builds the collectors on a private registry (plus Go runtime collectors).
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "simulator", Name: "ticks_total",
			Help: "Ticks applied to the farm state.",
		}),
		tickErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "simulator", Name: "tick_errors_total",
			Help: "Ticks whose mutation failed and was rolled back.",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "broadcast", Name: "subscribers",
			Help: "Currently registered push subscribers.",
		}),
		drops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "broadcast", Name: "dropped_snapshots_total",
			Help: "Snapshots evicted from a full subscriber queue.",
		}),
		toggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "device", Name: "toggles_total",
			Help: "Applied actuator toggles.",
		}, []string{"actuator", "source"}),
		sinkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sink", Name: "failures_total",
			Help: "Failed deliveries to external sinks.",
		}, []string{"sink"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "device", Name: "commands_total",
			Help: "Actuator commands received over MQTT by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.ticks, m.tickErrors, m.subscribers, m.drops, m.toggles, m.sinkFailures, m.commands,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) TickApplied() {
	if m == nil {
		return
	}
	m.ticks.Inc()
}

func (m *Metrics) TickFailed() {
	if m == nil {
		return
	}
	m.tickErrors.Inc()
}

func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}

func (m *Metrics) SnapshotDropped() {
	if m == nil {
		return
	}
	m.drops.Inc()
}

func (m *Metrics) ToggleApplied(actuator, source string) {
	if m == nil {
		return
	}
	m.toggles.WithLabelValues(actuator, source).Inc()
}

func (m *Metrics) SinkFailed(sink string) {
	if m == nil {
		return
	}
	m.sinkFailures.WithLabelValues(sink).Inc()
}

// CommandHandled counts MQTT commands: "applied", "duplicate" or "rejected".
func (m *Metrics) CommandHandled(outcome string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(outcome).Inc()
}
