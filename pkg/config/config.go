// Package config loads the optional YAML configuration shared by the cag
// commands. A missing path yields Default().
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-cag/pkg/faults"
	"github.com/dd0wney/cluso-cag/pkg/validation"
)

// ErrInvalid marks a configuration that could not be decoded or failed
// validation.
var ErrInvalid = errors.New("invalid configuration")

// Layout engines.
const (
	EngineGraphviz = "dot"
	EngineBuiltin  = "builtin"
)

// Bounds on tunable values.
const (
	MaxThresholdBits = 4096
	MaxPollRetries   = 1000
	MaxPollInterval  = time.Minute
)

var (
	engines   = []string{EngineGraphviz, EngineBuiltin}
	logLevels = []string{"debug", "info", "warn", "error"}
)

// Config is the top-level configuration document.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis"`
	Layout   LayoutConfig   `yaml:"layout"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// AnalysisConfig holds the propagation thresholds and the entropy given to
// nodes that declare none.
type AnalysisConfig struct {
	EasyThresholdBits  int `yaml:"easy_threshold_bits"`
	HardThresholdBits  int `yaml:"hard_threshold_bits"`
	DefaultEntropyBits int `yaml:"default_entropy_bits"`
}

// LayoutConfig selects and tunes the layout engine.
type LayoutConfig struct {
	Engine       string        `yaml:"engine" validate:"required"`
	Command      string        `yaml:"command"`
	Format       string        `yaml:"format" validate:"required"`
	PollInterval time.Duration `yaml:"poll_interval"`
	PollRetries  int           `yaml:"poll_retries"`
	Timeout      time.Duration `yaml:"timeout"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"required"`
}

type MetricsConfig struct {
	// File receives a Prometheus textfile dump after each command. Empty
	// disables the dump.
	File string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			EasyThresholdBits:  60,
			HardThresholdBits:  80,
			DefaultEntropyBits: 128,
		},
		Layout: LayoutConfig{
			Engine:       EngineGraphviz,
			Command:      "dot",
			Format:       "png",
			PollInterval: 200 * time.Millisecond,
			PollRetries:  20,
			Timeout:      30 * time.Second,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads path over the defaults and validates the result. Keys absent
// from the file keep their default values; unknown keys are rejected.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, faults.InputAccess("load config", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return cfg, nil
}

// Validate reports every violation in the configuration.
func (c *Config) Validate() error {
	a, l := c.Analysis, c.Layout
	cv := validation.NewConfigValidator("config").
		Merge(validation.Struct(c)).
		NonNegative("analysis.easy_threshold_bits", a.EasyThresholdBits).
		RangeInt("analysis.hard_threshold_bits", a.HardThresholdBits, 0, MaxThresholdBits).
		Less("analysis.easy_threshold_bits", a.EasyThresholdBits,
			"analysis.hard_threshold_bits", a.HardThresholdBits).
		Positive("analysis.default_entropy_bits", a.DefaultEntropyBits).
		RangeDuration("layout.poll_interval", l.PollInterval, time.Millisecond, MaxPollInterval).
		RangeInt("layout.poll_retries", l.PollRetries, 0, MaxPollRetries).
		MinDuration("layout.timeout", l.Timeout, time.Second)

	cv.When(l.Engine != "", func(v *validation.ConfigValidator) {
		v.OneOf("layout.engine", l.Engine, engines)
	})
	cv.When(l.Format != "", func(v *validation.ConfigValidator) {
		v.Custom("layout.format", func() error { return checkFormat(l.Format) })
	})
	cv.When(l.Engine == EngineGraphviz, func(v *validation.ConfigValidator) {
		v.Required("layout.command", l.Command)
	})
	cv.When(c.Logging.Level != "", func(v *validation.ConfigValidator) {
		v.OneOf("logging.level", c.Logging.Level, logLevels)
	})

	if !cv.HasErrors() {
		return nil
	}
	return cv.Validate()
}

// checkFormat accepts Graphviz output formats such as png, svg or
// png:cairo:gd.
func checkFormat(format string) error {
	for _, r := range format {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ':', r == '_':
		default:
			return fmt.Errorf("%q is not an output format name", format)
		}
	}
	return nil
}
