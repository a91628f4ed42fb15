package visualization

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dd0wney/cluso-cag/pkg/faults"
	"github.com/dd0wney/cluso-cag/pkg/logging"
)

// Exporter renders graph text to an image file through Graphviz.
type Exporter struct {
	engine *GraphvizEngine
}

// NewExporter creates an exporter running command.
func NewExporter(command string, opts ...Option) *Exporter {
	return &Exporter{engine: NewGraphvizEngine(command, opts...)}
}

// Export runs "<command> -T<format> -o outPath" on text, then waits for a
// non-empty outPath, checking once per poll interval up to the retry
// ceiling. Running out of checks is a recoverable layout engine error.
func (x *Exporter) Export(ctx context.Context, text []byte, format, outPath string) (err error) {
	o := x.engine.opts
	start := time.Now()
	timer := logging.StartTimer(o.logger, "export image",
		logging.Component("visualization"),
		logging.Path(outPath),
		logging.String("format", format))
	defer func() {
		o.metrics.RecordLayout(x.engine.Command, status(err), time.Since(start))
		if err != nil {
			timer.EndError(err)
		} else {
			timer.End()
		}
	}()

	if _, err := x.engine.run(ctx, text, "-T"+format, "-o", outPath); err != nil {
		return err
	}

	checks := max(o.pollRetries, 1)
	for attempt := 1; ; attempt++ {
		if fi, statErr := os.Stat(outPath); statErr == nil && fi.Size() > 0 {
			o.metrics.RecordPollRetries(attempt - 1)
			return nil
		}
		if attempt >= checks {
			o.metrics.RecordPollRetries(attempt)
			return faults.New("export").Layout().Path(outPath).
				Context("no output after %d checks", checks).Err()
		}
		select {
		case <-ctx.Done():
			return faults.LayoutFailure("export", fmt.Errorf("waiting for %s: %w", outPath, ctx.Err()))
		case <-time.After(o.pollInterval):
		}
	}
}
