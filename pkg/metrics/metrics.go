package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RecordCompile records one protocol compilation.
func (r *Registry) RecordCompile(status string, sessions int, duration time.Duration) {
	if r == nil {
		return
	}
	r.CompileTotal.WithLabelValues(status).Inc()
	r.CompileSessionsTotal.Add(float64(sessions))
	r.CompileDuration.Observe(duration.Seconds())
}

// RecordPropagation records one fixpoint run.
func (r *Registry) RecordPropagation(passes, raised, reset int) {
	if r == nil {
		return
	}
	r.PropagationRunsTotal.Inc()
	r.PropagationPasses.Observe(float64(passes))
	r.PropagationRaisedTotal.WithLabelValues("raised").Add(float64(raised))
	r.PropagationRaisedTotal.WithLabelValues("reset").Add(float64(reset))
}

// RecordSearchTrial records one evaluated input combination.
func (r *Registry) RecordSearchTrial(solution bool) {
	if r == nil {
		return
	}
	r.SearchTrialsTotal.Inc()
	if solution {
		r.SearchSolutionsTotal.Inc()
	}
}

// RecordSearch records a finished search. size is 0 when nothing was found.
func (r *Registry) RecordSearch(size int, duration time.Duration) {
	if r == nil {
		return
	}
	outcome := "found"
	if size == 0 {
		outcome = "none"
	}
	r.SearchDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	r.SearchMinimalSize.Set(float64(size))
}

// RecordLayout records one layout engine invocation.
func (r *Registry) RecordLayout(engine, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.LayoutInvocationsTotal.WithLabelValues(engine, status).Inc()
	r.LayoutDuration.WithLabelValues(engine).Observe(duration.Seconds())
}

// RecordPollRetries records how many polls an image export needed.
func (r *Registry) RecordPollRetries(n int) {
	if r == nil {
		return
	}
	r.LayoutPollRetries.Observe(float64(n))
}

// WriteTextfile writes the registry in the Prometheus text exposition
// format, for collection by a node exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
