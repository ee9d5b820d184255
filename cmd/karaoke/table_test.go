package main

import (
	"strings"
	"testing"
	"unicode/utf8"

	"karaoke/internal/queue"
)

func TestTruncateCutsOnRuneBoundaries(t *testing.T) {
	value := strings.Repeat("ä", 70)
	got := truncate(value, 60)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate produced invalid UTF-8: %q", got)
	}
	if want := strings.Repeat("ä", 57) + "..."; got != want {
		t.Fatalf("truncate = %q, want %q", got, want)
	}

	if got := truncate("  short  ", 60); got != "short" {
		t.Fatalf("short value should pass through trimmed, got %q", got)
	}
}

func TestRenderQueueTableShowsErrorDetailForFailures(t *testing.T) {
	items := []*queue.Item{
		{ID: 1, Title: "My Song", Status: queue.StatusPending, ProgressMessage: "waiting"},
		{ID: 2, Title: "Überlied", Status: queue.StatusFailed, ErrorMessage: "demucs exited abnormally"},
	}
	out := renderQueueTable(items)
	for _, want := range []string{"My Song", "waiting", "Überlied", "demucs exited abnormally"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}
