// Package faults holds the closed error taxonomy shared by every stage of the
// attack-graph pipeline and its mapping to process exit codes.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Every error returned across a package boundary wraps exactly
// one of these.
var (
	ErrInputAccess       = errors.New("input not accessible")
	ErrMalformedGraph    = errors.New("malformed graph text")
	ErrMalformedProtocol = errors.New("malformed protocol text")
	ErrLayoutEngine      = errors.New("layout engine failed")
	ErrNoSolution        = errors.New("no minimal set found")
)

// Exit codes understood by callers of the CLI.
const (
	ExitSuccess           = 0
	ExitInputAccess       = 1
	ExitMalformedGraph    = 2
	ExitMalformedProtocol = 3
	ExitNoSolution        = 4
	ExitUsage             = 64
)

// Error is a classified failure with enough position information to point a
// user at the offending input.
type Error struct {
	Kind    error  // one of the Err* classes above
	Op      string // operation that failed, e.g. "parse", "compile"
	Path    string // file involved, if any
	Line    int    // 1-based line number, 0 when unknown
	Context string
	Cause   error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Op)
	if e.Path != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Path)
	}
	if e.Line > 0 {
		if e.Path == "" {
			sb.WriteString(" line")
		} else {
			sb.WriteString(":")
		}
		fmt.Fprintf(&sb, " %d", e.Line)
	}
	if e.Kind != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Kind.Error())
	}
	if e.Context != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Context)
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap exposes both the class and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Builder assembles an *Error fluently.
type Builder struct {
	err Error
}

// New starts an error for the given operation.
func New(op string) *Builder {
	return &Builder{err: Error{Op: op}}
}

func (b *Builder) Input(path string) *Builder {
	b.err.Kind = ErrInputAccess
	b.err.Path = path
	return b
}

func (b *Builder) Graph() *Builder {
	b.err.Kind = ErrMalformedGraph
	return b
}

func (b *Builder) Protocol() *Builder {
	b.err.Kind = ErrMalformedProtocol
	return b
}

func (b *Builder) Layout() *Builder {
	b.err.Kind = ErrLayoutEngine
	return b
}

func (b *Builder) NoSolution() *Builder {
	b.err.Kind = ErrNoSolution
	return b
}

func (b *Builder) Path(p string) *Builder {
	b.err.Path = p
	return b
}

func (b *Builder) Line(n int) *Builder {
	b.err.Line = n
	return b
}

// Context sets a formatted description of what went wrong.
func (b *Builder) Context(format string, args ...any) *Builder {
	b.err.Context = fmt.Sprintf(format, args...)
	return b
}

func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Build returns the constructed *Error.
func (b *Builder) Build() *Error {
	e := b.err
	return &e
}

// Err returns the constructed error as an error interface.
func (b *Builder) Err() error {
	return b.Build()
}

// InputAccess wraps a file system failure.
func InputAccess(op, path string, cause error) error {
	return New(op).Input(path).Cause(cause).Err()
}

// GraphFormat reports malformed graph text at the given line.
func GraphFormat(line int, format string, args ...any) error {
	return New("parse").Graph().Line(line).Context(format, args...).Err()
}

// ProtocolFormat reports malformed protocol text at the given line.
func ProtocolFormat(line int, format string, args ...any) error {
	return New("compile").Protocol().Line(line).Context(format, args...).Err()
}

// LayoutFailure reports a layout engine invocation that produced nothing usable.
func LayoutFailure(op string, cause error) error {
	return New(op).Layout().Cause(cause).Err()
}

// WithPath attaches a file path to a classified error that lacks one.
// Unclassified errors are returned unchanged.
func WithPath(err error, path string) error {
	var fe *Error
	if errors.As(err, &fe) && fe.Path == "" {
		cp := *fe
		cp.Path = path
		return &cp
	}
	return err
}

// IsFormat reports whether err is a graph or protocol format error.
func IsFormat(err error) bool {
	return errors.Is(err, ErrMalformedGraph) || errors.Is(err, ErrMalformedProtocol)
}

// IsRecoverable reports whether the caller may reasonably offer a retry.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrLayoutEngine)
}

// ExitCode maps an error to the closed set of process exit codes.
// Layout engine failures share the malformed-graph code; they stay
// distinguishable through IsRecoverable.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrNoSolution):
		return ExitNoSolution
	case errors.Is(err, ErrMalformedProtocol):
		return ExitMalformedProtocol
	case errors.Is(err, ErrMalformedGraph), errors.Is(err, ErrLayoutEngine):
		return ExitMalformedGraph
	default:
		return ExitInputAccess
	}
}

// Class returns a short label for the error class, used in logs and metrics.
func Class(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInputAccess):
		return "input_access"
	case errors.Is(err, ErrMalformedGraph):
		return "malformed_graph"
	case errors.Is(err, ErrMalformedProtocol):
		return "malformed_protocol"
	case errors.Is(err, ErrLayoutEngine):
		return "layout_engine"
	case errors.Is(err, ErrNoSolution):
		return "no_solution"
	default:
		return "internal"
	}
}
