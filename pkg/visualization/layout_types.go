// Package visualization places attack graphs for display. It drives an
// external Graphviz process or, without one, a built-in hierarchical
// placement, and copies the resulting layout back onto the model.
package visualization

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-cag/pkg/logging"
	"github.com/dd0wney/cluso-cag/pkg/metrics"
	"github.com/dd0wney/cluso-cag/pkg/validation"
)

// Engine lays out render-mode graph text and returns the same graph with
// node pos/width/height and edge pos attributes added.
type Engine interface {
	Layout(ctx context.Context, text []byte) ([]byte, error)
}

// LayoutConfig configures the built-in placement. Distances are in points,
// node sizes in inches, matching the units Graphviz writes.
type LayoutConfig struct {
	RankSep    float64 // vertical distance between levels
	NodeSep    float64 // horizontal distance between nodes of a level
	NodeWidth  float64
	NodeHeight float64
}

const pointsPerInch = 72

// Option configures engines and exporters.
type Option func(*options)

type options struct {
	logger       logging.Logger
	metrics      *metrics.Registry
	timeout      time.Duration
	pollInterval time.Duration
	pollRetries  int
}

func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(o *options) { o.metrics = m }
}

// WithTimeout bounds each engine process. Zero means no bound beyond the
// caller's context.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithPolling sets how often and how many times an export checks for its
// output file. A zero interval keeps the default.
func WithPolling(interval time.Duration, retries int) Option {
	return func(o *options) {
		o.pollInterval = validation.DefaultOrDuration(interval, o.pollInterval)
		o.pollRetries = retries
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:       logging.NewNopLogger(),
		pollInterval: 200 * time.Millisecond,
		pollRetries:  20,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
