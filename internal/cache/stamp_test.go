package cache_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"karaoke/internal/cache"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestFreshAfterWrite(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "song.mp4")
	artifact := filepath.Join(dir, "song.mp3")
	writeFile(t, source, "video bytes")
	writeFile(t, artifact, "audio bytes")

	params := map[string]string{"codec": "libmp3lame"}
	if cache.Fresh(artifact, source, params) {
		t.Fatal("artifact without stamp reported fresh")
	}
	if err := cache.Write(artifact, source, params); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !cache.Fresh(artifact, source, params) {
		t.Fatal("expected fresh artifact after stamping")
	}
}

func TestFreshRejectsChangedSource(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "song.mp4")
	artifact := filepath.Join(dir, "song.mp3")
	writeFile(t, source, "video bytes")
	writeFile(t, artifact, "audio bytes")

	if err := cache.Write(artifact, source, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Rewrite the source with different content and a different mtime.
	writeFile(t, source, "different video bytes entirely")
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(source, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if cache.Fresh(artifact, source, nil) {
		t.Fatal("artifact reported fresh after source changed")
	}
}

func TestFreshRejectsChangedParams(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "song.mp4")
	artifact := filepath.Join(dir, "vocals.mp3")
	writeFile(t, source, "audio bytes")
	writeFile(t, artifact, "stem bytes")

	if err := cache.Write(artifact, source, map[string]string{"model": "htdemucs"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if cache.Fresh(artifact, source, map[string]string{"model": "mdx_extra"}) {
		t.Fatal("artifact reported fresh for different stage parameters")
	}
}

func TestFreshRejectsEmptyArtifact(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "song.mp4")
	artifact := filepath.Join(dir, "song.mp3")
	writeFile(t, source, "video bytes")
	writeFile(t, artifact, "")

	_ = cache.Write(artifact, source, nil)
	if cache.Fresh(artifact, source, nil) {
		t.Fatal("empty artifact reported fresh")
	}
}

func TestInvalidate(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "song.mp4")
	artifact := filepath.Join(dir, "song.mp3")
	writeFile(t, source, "video bytes")
	writeFile(t, artifact, "audio bytes")

	if err := cache.Write(artifact, source, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := cache.Invalidate(artifact); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if cache.Fresh(artifact, source, nil) {
		t.Fatal("artifact fresh after invalidation")
	}
	// Invalidating twice is not an error.
	if err := cache.Invalidate(artifact); err != nil {
		t.Fatalf("second Invalidate: %v", err)
	}
}
