package deps_test

import (
	"os"
	"path/filepath"
	"testing"

	"karaoke/internal/deps"
)

func TestCheckBinariesReportsAvailability(t *testing.T) {
	binDir := t.TempDir()
	stub := filepath.Join(binDir, "fakeffmpeg")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", binDir)

	results := deps.CheckBinaries([]deps.Requirement{
		{Name: "FFmpeg", Command: "fakeffmpeg"},
		{Name: "Missing", Command: "definitely-not-installed"},
		{Name: "Unset", Command: "  "},
	})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Available {
		t.Fatalf("stub binary reported unavailable: %+v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("missing binary reported available: %+v", results[1])
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unset command handled wrong: %+v", results[2])
	}
}
