package services_test

import (
	"errors"
	"strings"
	"testing"

	"karaoke/internal/queue"
	"karaoke/internal/services"
)

func TestWrapTagsMarkerAndDetail(t *testing.T) {
	cause := errors.New("exit status 1")
	err := services.Wrap(services.ErrExternalTool, "separating", "run demucs", "separator exited abnormally", cause)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatal("expected ErrExternalTool marker")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be wrapped")
	}
	for _, want := range []string{"separating", "run demucs", "separator exited abnormally"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err, want)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "extracting", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatal("expected nil marker to default to ErrTransient")
	}
}

func TestFailureStatus(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "rendering", "validate inputs", "missing music track", nil)
	if got := services.FailureStatus(err); got != queue.StatusFailed {
		t.Fatalf("unexpected failure status: %v", got)
	}
}
