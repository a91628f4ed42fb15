package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initCompileMetrics() {
	r.CompileTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cag_compile_total",
			Help: "Protocol compilations by outcome",
		},
		[]string{"status"},
	)

	r.CompileSessionsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cag_compile_sessions_total",
			Help: "Session documents emitted by the protocol compiler",
		},
	)

	r.CompileDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cag_compile_duration_seconds",
			Help:    "Protocol compilation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
	)
}
