package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func decode(t *testing.T, line string) LogEntry {
	t.Helper()
	var entry LogEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("Failed to unmarshal log entry %q: %v", line, err)
	}
	return entry
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("Level.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{" Error ", ErrorLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := LevelFromString(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LevelFromString(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("LevelFromString(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if ParseLevel(tt.input) != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, ParseLevel(tt.input), tt.want)
			}
		})
	}
}

func TestJSONLoggerEntry(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	logger.Info("propagation finished", Graph("nspk"), Count(3), Bool("fixpoint", true))

	entry := decode(t, strings.TrimSpace(buf.String()))
	if entry.Level != "INFO" || entry.Message != "propagation finished" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Fields["graph"] != "nspk" {
		t.Errorf("graph field = %v, want nspk", entry.Fields["graph"])
	}
	if entry.Fields["count"] != float64(3) {
		t.Errorf("count field = %v, want 3", entry.Fields["count"])
	}
	if _, err := time.Parse(time.RFC3339Nano, entry.Time); err != nil {
		t.Errorf("time %q is not RFC3339: %v", entry.Time, err)
	}
}

func TestJSONLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, WarnLevel)

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log entries, got %d", len(lines))
	}
	if decode(t, lines[0]).Level != "WARN" || decode(t, lines[1]).Level != "ERROR" {
		t.Errorf("unexpected levels in %v", lines)
	}
}

func TestJSONLoggerWithSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	parent := NewJSONLogger(&buf, InfoLevel)
	child := parent.With(Component("search"), RunID("r-1"))

	child.Info("trial", Size(2))
	entry := decode(t, strings.TrimSpace(buf.String()))
	for key, want := range map[string]any{"component": "search", "run_id": "r-1", "size": float64(2)} {
		if entry.Fields[key] != want {
			t.Errorf("field %s = %v, want %v", key, entry.Fields[key], want)
		}
	}

	buf.Reset()
	parent.SetLevel(ErrorLevel)
	child.Info("suppressed")
	if buf.Len() != 0 {
		t.Error("child ignored the level set on its parent")
	}
	if child.GetLevel() != ErrorLevel {
		t.Errorf("child level = %v, want ERROR", child.GetLevel())
	}
}

func TestJSONLoggerChildFieldsDoNotLeak(t *testing.T) {
	var buf bytes.Buffer
	parent := NewJSONLogger(&buf, InfoLevel)
	_ = parent.With(Session(1))

	parent.Info("plain")
	entry := decode(t, strings.TrimSpace(buf.String()))
	if _, ok := entry.Fields["session"]; ok {
		t.Error("child field leaked into parent")
	}
}

func TestJSONLoggerConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.With(Ordinal(i)).Info("solution")
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 20 {
		t.Fatalf("got %d lines, want 20", len(lines))
	}
	for _, line := range lines {
		decode(t, line)
	}
}

func TestTimedOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	StartTimer(logger, "compile", Path("nspk.txt")).End(Count(2))
	entry := decode(t, strings.TrimSpace(buf.String()))
	if entry.Message != "compile" || entry.Fields["path"] != "nspk.txt" || entry.Fields["count"] != float64(2) {
		t.Errorf("entry = %+v", entry)
	}
	if _, ok := entry.Fields["latency"]; !ok {
		t.Error("latency field missing")
	}

	buf.Reset()
	StartTimer(logger, "layout").EndError(errors.New("empty output"))
	entry = decode(t, strings.TrimSpace(buf.String()))
	if entry.Level != "ERROR" || entry.Fields["error"] != "empty output" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Info("ignored", Graph("g"))
	if logger.With(Count(1)) == nil {
		t.Error("NopLogger.With returned nil")
	}
	if logger.GetLevel() != InfoLevel {
		t.Errorf("GetLevel() = %v, want INFO", logger.GetLevel())
	}
}

func TestDefaultLoggerReplacement(t *testing.T) {
	original := DefaultLogger()
	defer SetDefaultLogger(original)

	var buf bytes.Buffer
	SetDefaultLogger(NewJSONLogger(&buf, InfoLevel))
	OrDefault(nil).Info("via default")

	if !strings.Contains(buf.String(), "via default") {
		t.Errorf("default logger not replaced, output %q", buf.String())
	}
}

func TestErrorField(t *testing.T) {
	if f := Error(nil); f.Value != nil {
		t.Errorf("Error(nil) = %+v", f)
	}
	if f := Error(errors.New("boom")); f.Key != "error" || f.Value != "boom" {
		t.Errorf("Error() = %+v", f)
	}
}
