package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"karaoke/internal/fileutil"
)

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")

	payload := []byte("stems and subtitles")
	if err := os.WriteFile(src, payload, 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		t.Fatalf("CopyFileVerified: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("content mismatch: %q", got)
	}
}

func TestExistsNonEmpty(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	full := filepath.Join(dir, "full")
	if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if fileutil.ExistsNonEmpty(empty) {
		t.Fatal("empty file reported non-empty")
	}
	if fileutil.ExistsNonEmpty(dir) {
		t.Fatal("directory reported non-empty file")
	}
	if !fileutil.ExistsNonEmpty(full) {
		t.Fatal("expected non-empty file")
	}
	if fileutil.ExistsNonEmpty(filepath.Join(dir, "missing")) {
		t.Fatal("missing file reported present")
	}
}
