package graphite

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "graphout"
	metricsSubsystem = "graphite"
)

// Metrics holds sink counters exported on the debug endpoint.
// Params: prometheus collectors for delivery and connection state.
// Returns: counter set shared by Conn and Sender.
type Metrics struct {
	LinesSent       prometheus.Counter
	LinesDropped    prometheus.Counter
	LinesResent     prometheus.Counter
	EventsFiltered  prometheus.Counter
	ConnectAttempts prometheus.Counter
	ConnectFailures prometheus.Counter
	WriteFailures   prometheus.Counter
	Connected       prometheus.Gauge
}

// NewMetrics creates sink counters and registers them.
// Params: reg target registerer; nil creates unregistered collectors.
// Returns: metrics set.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      name,
			Help:      help,
		})
	}

	return &Metrics{
		LinesSent:       counter("lines_sent_total", "Metric lines written to the collector socket."),
		LinesDropped:    counter("lines_dropped_total", "Metric lines not delivered because the connection broke or reconnecting was aborted."),
		LinesResent:     counter("lines_resent_total", "Metric lines written again after a reconnect."),
		EventsFiltered:  counter("events_filtered_total", "Events skipped by type or tag filter."),
		ConnectAttempts: counter("connect_attempts_total", "TCP connect attempts to the collector."),
		ConnectFailures: counter("connect_failures_total", "Failed TCP connect attempts to the collector."),
		WriteFailures:   counter("write_failures_total", "Writes that failed with a broken connection."),
		Connected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "connected",
			Help:      "1 while the collector connection is established.",
		}),
	}
}
