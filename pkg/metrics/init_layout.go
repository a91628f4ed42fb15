package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLayoutMetrics() {
	r.LayoutInvocationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cag_layout_invocations_total",
			Help: "Layout engine invocations by engine and outcome",
		},
		[]string{"engine", "status"},
	)

	r.LayoutDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cag_layout_duration_seconds",
			Help:    "Layout engine invocation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
		[]string{"engine"},
	)

	r.LayoutPollRetries = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cag_layout_poll_retries",
			Help:    "Polls needed before an exported image appeared",
			Buckets: []float64{0, 1, 2, 5, 10, 20},
		},
	)
}
