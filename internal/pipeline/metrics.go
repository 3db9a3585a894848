package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// inputMetrics counts events per input.
type inputMetrics struct {
	received *prometheus.CounterVec
	rejected *prometheus.CounterVec
}

// newInputMetrics creates input counters labelled by input name.
// Params: reg target registerer; nil creates unregistered collectors.
// Returns: counter set shared by all inputs of one engine.
func newInputMetrics(reg prometheus.Registerer) *inputMetrics {
	factory := promauto.With(reg)
	return &inputMetrics{
		received: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphout",
			Subsystem: "input",
			Name:      "events_received_total",
			Help:      "Events decoded and handed to sinks.",
		}, []string{"input"}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphout",
			Subsystem: "input",
			Name:      "payloads_rejected_total",
			Help:      "Payloads or lines that failed to decode.",
		}, []string{"input"}),
	}
}
