package validation

import (
	"strings"
	"testing"
)

type sample struct {
	Engine string `yaml:"engine" validate:"required,oneof=dot builtin"`
	Limit  int    `yaml:"limit" validate:"min=1,max=10"`
	Inner  inner  `yaml:"inner"`
}

type inner struct {
	Level string `yaml:"level" validate:"oneof=debug info"`
}

func TestStruct_Valid(t *testing.T) {
	s := sample{Engine: "dot", Limit: 3, Inner: inner{Level: "info"}}
	if err := Struct(&s); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestStruct_CollectsEveryViolation(t *testing.T) {
	s := sample{Engine: "neato", Limit: 11, Inner: inner{Level: "trace"}}
	err := Struct(&s)
	if err == nil {
		t.Fatal("Expected error")
	}

	msg := err.Error()
	for _, want := range []string{
		"engine: neato must be one of [dot builtin]",
		"limit: must not exceed 10",
		"inner.level: trace must be one of [debug info]",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected %q in %q", want, msg)
		}
	}
}

func TestStruct_Required(t *testing.T) {
	s := sample{Limit: 0, Inner: inner{Level: "debug"}}
	err := Struct(&s)
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "engine: field is required") {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !strings.Contains(err.Error(), "limit: must be at least 1") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestStruct_Nil(t *testing.T) {
	if err := Struct(nil); err == nil {
		t.Error("Expected error for nil")
	}
}

func TestFieldPath(t *testing.T) {
	if got := fieldPath("Config.layout.engine"); got != "layout.engine" {
		t.Errorf("fieldPath = %q", got)
	}
	if got := fieldPath("engine"); got != "engine" {
		t.Errorf("fieldPath = %q", got)
	}
}
