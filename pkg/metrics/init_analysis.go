package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initAnalysisMetrics() {
	r.PropagationRunsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cag_propagation_runs_total",
			Help: "Fixpoint propagation runs",
		},
	)

	r.PropagationPasses = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cag_propagation_passes",
			Help:    "Passes over the function nodes needed to reach the fixpoint",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
		},
	)

	r.PropagationRaisedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cag_propagation_raised_total",
			Help: "Node level changes made by propagation",
		},
		[]string{"kind"},
	)

	r.SearchTrialsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cag_search_trials_total",
			Help: "Input combinations evaluated by the minimal attack-set search",
		},
	)

	r.SearchSolutionsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cag_search_solutions_total",
			Help: "Minimal attack sets found",
		},
	)

	r.SearchDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cag_search_duration_seconds",
			Help:    "Minimal attack-set search duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 1.0, 10.0, 60.0},
		},
		[]string{"outcome"},
	)

	r.SearchMinimalSize = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cag_search_minimal_size",
			Help: "Cardinality of the last minimal attack set found, 0 when none",
		},
	)
}
