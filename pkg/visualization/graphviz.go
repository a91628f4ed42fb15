package visualization

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/dd0wney/cluso-cag/pkg/faults"
	"github.com/dd0wney/cluso-cag/pkg/logging"
)

// GraphvizEngine lays graphs out with an external Graphviz command.
type GraphvizEngine struct {
	Command string
	opts    options
}

// NewGraphvizEngine creates an engine that runs command, typically "dot".
func NewGraphvizEngine(command string, opts ...Option) *GraphvizEngine {
	return &GraphvizEngine{Command: command, opts: newOptions(opts)}
}

// Layout runs "<command> -Tdot" with text on stdin. A failing process or
// empty output is a layout engine error.
func (e *GraphvizEngine) Layout(ctx context.Context, text []byte) (out []byte, err error) {
	start := time.Now()
	timer := logging.StartTimer(e.opts.logger, "graphviz layout",
		logging.Component("visualization"),
		logging.String("command", e.Command))
	defer func() {
		e.opts.metrics.RecordLayout(e.Command, status(err), time.Since(start))
		if err != nil {
			timer.EndError(err)
		} else {
			timer.EndDebug(logging.Int("bytes", len(out)))
		}
	}()

	stdout, err := e.run(ctx, text, "-Tdot")
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(stdout)) == 0 {
		return nil, faults.LayoutFailure("layout", errors.New("engine produced no output"))
	}
	return stdout, nil
}

func (e *GraphvizEngine) run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	if e.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.Command, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, faults.LayoutFailure("layout", fmt.Errorf("%s %s: %w", e.Command, strings.Join(args, " "), err))
	}
	return stdout.Bytes(), nil
}
