package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-cag/pkg/analysis"
	"github.com/dd0wney/cluso-cag/pkg/casplus"
	"github.com/dd0wney/cluso-cag/pkg/config"
	"github.com/dd0wney/cluso-cag/pkg/faults"
	"github.com/dd0wney/cluso-cag/pkg/logging"
	"github.com/dd0wney/cluso-cag/pkg/metrics"
	"github.com/dd0wney/cluso-cag/pkg/visualization"
)

// app carries what every command shares: the loaded configuration, the
// run-scoped logger and the metrics registry.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath  string
	logLevel    string
	metricsFile string

	runID   string
	cfg     *config.Config
	logger  logging.Logger
	metrics *metrics.Registry
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:  stdout,
		stderr:  stderr,
		runID:   uuid.NewString(),
		cfg:     config.Default(),
		logger:  logging.NewNopLogger(),
		metrics: metrics.NewRegistry(),
	}
}

// setup loads the configuration and builds the logger. The log level comes
// from --log-level, then LOG_LEVEL, then the configuration file.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Logging.Level
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	if a.logLevel != "" {
		level = a.logLevel
	}
	lvl, err := logging.LevelFromString(level)
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	a.logger = logging.NewJSONLogger(a.stderr, lvl).With(logging.RunID(a.runID))

	if a.metricsFile == "" {
		a.metricsFile = cfg.Metrics.File
	}
	return nil
}

func (a *app) engine() *analysis.Engine {
	return analysis.NewEngine(
		analysis.WithThresholds(a.cfg.Analysis.EasyThresholdBits, a.cfg.Analysis.HardThresholdBits),
		analysis.WithLogger(a.logger),
		analysis.WithMetrics(a.metrics))
}

func (a *app) compiler() *casplus.Compiler {
	return casplus.NewCompiler(
		casplus.WithDefaultEntropy(a.cfg.Analysis.DefaultEntropyBits),
		casplus.WithLogger(a.logger),
		casplus.WithMetrics(a.metrics))
}

func (a *app) layoutOptions() []visualization.Option {
	l := a.cfg.Layout
	return []visualization.Option{
		visualization.WithLogger(a.logger),
		visualization.WithMetrics(a.metrics),
		visualization.WithTimeout(l.Timeout),
		visualization.WithPolling(l.PollInterval, l.PollRetries),
	}
}

func (a *app) layoutEngine() visualization.Engine {
	if a.cfg.Layout.Engine == config.EngineBuiltin {
		return visualization.NewHierarchicalEngine(visualization.LayoutConfig{}, a.layoutOptions()...)
	}
	return visualization.NewGraphvizEngine(a.cfg.Layout.Command, a.layoutOptions()...)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "cag",
		Short: "Cryptographic attack graphs for security protocols",
		Long: `cag compiles CAS+ protocol descriptions into attack graphs, propagates
compromise through them and searches for minimal attack sets.

Exit codes:
  0   success
  1   input file missing or unreadable
  2   malformed graph text (or layout engine failure)
  3   malformed protocol text
  4   no minimal attack set found
  64  usage or configuration error`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		newCompileCmd(a),
		newAnalyzeCmd(a),
		newMinsetCmd(a),
		newRenderCmd(a),
		newInspectCmd(a),
		newMarkCmd(a),
	)
	return root
}

// run executes one command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout, stderr)
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)

	if a.metricsFile != "" {
		if merr := a.metrics.WriteTextfile(a.metricsFile); merr != nil {
			a.logger.Warn("could not write metrics", logging.Path(a.metricsFile), logging.Error(merr))
		}
	}

	if err != nil {
		a.logger.Error("command failed", logging.Error(err), logging.ErrorClass(faults.Class(err)))
		fmt.Fprintln(stderr, errorStyle.Render("cag: "+err.Error()))
		return exitCode(err)
	}
	return faults.ExitSuccess
}

// exitCode maps classified errors through faults.ExitCode. Anything else
// came from flag parsing, argument checks or configuration.
func exitCode(err error) int {
	var fe *faults.Error
	if errors.As(err, &fe) {
		return faults.ExitCode(err)
	}
	return faults.ExitUsage
}
