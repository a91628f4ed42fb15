package logging

import (
	"time"
)

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Strings(key string, values []string) Field {
	return Field{Key: key, Value: values}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Pipeline fields

func Component(name string) Field { return String("component", name) }
func Operation(op string) Field   { return String("operation", op) }
func Path(p string) Field         { return String("path", p) }
func Count(n int) Field           { return Int("count", n) }

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

// Graph names the digraph being processed.
func Graph(name string) Field { return String("graph", name) }

// NodeName identifies a graph node by label.
func NodeName(name string) Field { return String("node", name) }

// Session is the 1-based session instance of a compiled protocol.
func Session(n int) Field { return Int("session", n) }

// Ordinal numbers a search solution.
func Ordinal(n int) Field { return Int("ordinal", n) }

// Size is a combination or set cardinality.
func Size(k int) Field { return Int("size", k) }

// RunID ties together every entry of one CLI invocation.
func RunID(id string) Field { return String("run_id", id) }

// ErrorClass records the fault class of an error.
func ErrorClass(class string) Field { return String("error_class", class) }
