package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every metric the pipeline records. All Record methods are
// safe to call on a nil *Registry, which records nothing.
type Registry struct {
	// Compiler Metrics
	CompileTotal         *prometheus.CounterVec
	CompileSessionsTotal prometheus.Counter
	CompileDuration      prometheus.Histogram

	// Propagation Metrics
	PropagationRunsTotal   prometheus.Counter
	PropagationPasses      prometheus.Histogram
	PropagationRaisedTotal *prometheus.CounterVec

	// Search Metrics
	SearchTrialsTotal    prometheus.Counter
	SearchSolutionsTotal prometheus.Counter
	SearchDuration       *prometheus.HistogramVec
	SearchMinimalSize    prometheus.Gauge

	// Layout Metrics
	LayoutInvocationsTotal *prometheus.CounterVec
	LayoutDuration         *prometheus.HistogramVec
	LayoutPollRetries      prometheus.Histogram

	registry *prometheus.Registry
	mu       sync.Mutex
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry with all metrics initialized.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initCompileMetrics()
	r.initAnalysisMetrics()
	r.initLayoutMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
