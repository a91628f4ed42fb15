package validation

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestConfigValidator_Required(t *testing.T) {
	cv := NewConfigValidator("layout")
	cv.Required("command", "")

	if !cv.HasErrors() {
		t.Error("Expected error for empty required field")
	}

	cv2 := NewConfigValidator("layout")
	cv2.Required("command", "dot")

	if cv2.HasErrors() {
		t.Error("Expected no error for non-empty required field")
	}
}

func TestConfigValidator_Ints(t *testing.T) {
	tests := []struct {
		name    string
		apply   func(*ConfigValidator)
		wantErr bool
	}{
		{"non-negative zero", func(cv *ConfigValidator) { cv.NonNegative("retries", 0) }, false},
		{"non-negative below", func(cv *ConfigValidator) { cv.NonNegative("retries", -1) }, true},
		{"positive zero", func(cv *ConfigValidator) { cv.Positive("entropy", 0) }, true},
		{"positive", func(cv *ConfigValidator) { cv.Positive("entropy", 128) }, false},
		{"range low edge", func(cv *ConfigValidator) { cv.RangeInt("easy", 0, 0, 100) }, false},
		{"range high edge", func(cv *ConfigValidator) { cv.RangeInt("easy", 100, 0, 100) }, false},
		{"range outside", func(cv *ConfigValidator) { cv.RangeInt("easy", 101, 0, 100) }, true},
		{"less", func(cv *ConfigValidator) { cv.Less("easy", 60, "hard", 80) }, false},
		{"less equal", func(cv *ConfigValidator) { cv.Less("easy", 80, "hard", 80) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := NewConfigValidator("analysis")
			tt.apply(cv)
			if cv.HasErrors() != tt.wantErr {
				t.Errorf("HasErrors() = %v, want %v (%v)", cv.HasErrors(), tt.wantErr, cv.Validate())
			}
		})
	}
}

func TestConfigValidator_Durations(t *testing.T) {
	cv := NewConfigValidator("layout")
	cv.MinDuration("poll_interval", time.Millisecond, 10*time.Millisecond)
	cv.RangeDuration("timeout", time.Hour, time.Second, time.Minute)

	err := cv.Validate()
	if err == nil {
		t.Fatal("Expected errors for both durations")
	}
	for _, field := range []string{"layout.poll_interval", "layout.timeout"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("Expected %s in %v", field, err)
		}
	}

	cv2 := NewConfigValidator("layout")
	cv2.MinDuration("poll_interval", 200*time.Millisecond, 10*time.Millisecond)
	cv2.RangeDuration("timeout", 30*time.Second, time.Second, time.Minute)

	if cv2.HasErrors() {
		t.Errorf("Expected no errors, got %v", cv2.Validate())
	}
}

func TestConfigValidator_OneOf(t *testing.T) {
	allowed := []string{"dot", "builtin"}

	cv := NewConfigValidator("layout")
	cv.OneOf("engine", "neato", allowed)
	if !cv.HasErrors() {
		t.Error("Expected error for value outside the allowed set")
	}

	cv2 := NewConfigValidator("layout")
	cv2.OneOf("engine", "builtin", allowed)
	if cv2.HasErrors() {
		t.Error("Expected no error for allowed value")
	}
}

func TestConfigValidator_CustomWraps(t *testing.T) {
	sentinel := errors.New("boom")
	cv := NewConfigValidator("metrics")
	cv.Custom("file", func() error { return sentinel })

	err := cv.Validate()
	if !errors.Is(err, sentinel) {
		t.Fatalf("Expected wrapped sentinel, got %v", err)
	}
	if !strings.Contains(err.Error(), "metrics.file") {
		t.Errorf("Expected field path in %q", err.Error())
	}
}

func TestConfigValidator_When(t *testing.T) {
	cv := NewConfigValidator("layout")
	cv.When(false, func(v *ConfigValidator) { v.Required("command", "") })
	if cv.HasErrors() {
		t.Error("Expected skipped validations to add nothing")
	}

	cv.When(true, func(v *ConfigValidator) { v.Required("command", "") })
	if !cv.HasErrors() {
		t.Error("Expected applied validations to fail")
	}
}

func TestConfigValidator_ValidateJoinsAll(t *testing.T) {
	cv := NewConfigValidator("analysis").
		Positive("entropy", 0).
		Less("easy", 90, "hard", 80).
		Merge(errors.New("extra"))

	err := cv.Validate()
	if err == nil {
		t.Fatal("Expected error")
	}
	for _, want := range []string{"analysis.entropy", "analysis.easy", "extra"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected %q in %q", want, err.Error())
		}
	}

	if NewConfigValidator("ok").Merge(nil).Validate() != nil {
		t.Error("Expected nil for a validator without errors")
	}
}

func TestDefaultOr(t *testing.T) {
	if got := DefaultOrDuration(0, time.Second); got != time.Second {
		t.Errorf("DefaultOrDuration(0, 1s) = %v", got)
	}
	if got := DefaultOrDuration(time.Minute, time.Second); got != time.Minute {
		t.Errorf("DefaultOrDuration(1m, 1s) = %v", got)
	}
}
