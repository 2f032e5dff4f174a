package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := (&DomainError{
		Category: ErrCatSpawn,
		Code:     CodeChildSpawnFailed,
		Message:  "message",
	}).WithCause(cause)

	if err.Unwrap() != cause {
		t.Fatalf("expected cause to be unwrapped")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to match cause")
	}

	match := &DomainError{Category: ErrCatSpawn, Code: CodeChildSpawnFailed}
	if !errors.Is(err, match) {
		t.Fatalf("expected errors.Is to match category and code")
	}
	if got := err.Error(); got != "[spawn] CHILD_SPAWN_FAILED: message (root)" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := &DomainError{Category: ErrCatIO, Code: "X", Message: "msg"}
	err.WithDetail("k", "v")
	if err.Details == nil || err.Details["k"] != "v" {
		t.Fatalf("expected details to be set")
	}
}

func TestErrorFactories(t *testing.T) {
	tests := []struct {
		name string
		err  *DomainError
		cat  ErrorCategory
	}{
		{"validation", ErrValidation(CodeInvalidCount, "m"), ErrCatValidation},
		{"spawn", ErrSpawn(CodeChildSpawnFailed, "m"), ErrCatSpawn},
		{"permission", ErrPermission("disk_io"), ErrCatPermission},
		{"io", ErrIO("/tmp/x.log"), ErrCatIO},
		{"interrupted", ErrInterrupted("interrupt"), ErrCatInterrupted},
		{"internal", ErrInternal(CodeAttemptPanic, "m"), ErrCatInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Category != tt.cat {
				t.Fatalf("category = %s, want %s", tt.err.Category, tt.cat)
			}
			if !IsCategory(fmt.Errorf("wrapped: %w", tt.err), tt.cat) {
				t.Fatalf("expected wrapped error to keep category %s", tt.cat)
			}
		})
	}
}

func TestCategoryHelpers(t *testing.T) {
	if !IsValidation(ErrValidation(CodeEmptyCommand, "m")) {
		t.Fatalf("expected validation")
	}
	if !IsSpawn(ErrSpawn(CodeTracerSpawnFailed, "m")) {
		t.Fatalf("expected spawn")
	}
	if !IsPermission(ErrPermission("memory")) {
		t.Fatalf("expected permission")
	}
	if IsValidation(nil) || IsSpawn(nil) || IsPermission(nil) {
		t.Fatalf("nil error must not match any category")
	}
	if GetCategory(errors.New("plain")) != ErrCatInternal {
		t.Fatalf("plain errors should be internal")
	}
}

func TestErrIO_Details(t *testing.T) {
	err := ErrIO("/logs/1/false_0_stdout.log")
	if err.Details["path"] != "/logs/1/false_0_stdout.log" {
		t.Fatalf("expected path detail, got %v", err.Details)
	}
}
