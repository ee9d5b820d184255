package separate_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"karaoke/internal/logging"
	"karaoke/internal/queue"
	"karaoke/internal/separate"
	"karaoke/internal/services"
	"karaoke/internal/testsupport"
)

func TestStemPath(t *testing.T) {
	got := separate.StemPath("/work/stems", "vocals", "my_song")
	want := filepath.Join("/work/stems", "vocals_my_song.mp3")
	if got != want {
		t.Fatalf("StemPath = %q, want %q", got, want)
	}
}

func TestBuildSeparateArgs(t *testing.T) {
	args := separate.BuildSeparateArgs("htdemucs", 4, "/tmp/work", "/in/song.mp3")
	joined := strings.Join(args, " ")
	for _, want := range []string{"-n htdemucs", "-j 4", "-o /tmp/work", "/in/song.mp3"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %v", want, args)
		}
	}
}

// fake demucs writes real WAV stems so the accompaniment mix runs for real.
func stubRunner(t *testing.T) func(ctx context.Context, name string, args ...string) error {
	return func(ctx context.Context, name string, args ...string) error {
		if strings.Contains(name, "demucs") {
			outDir, model, input := demucsArgs(t, args)
			track := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
			rawDir := filepath.Join(outDir, model, track)
			writeWAV(t, mkpath(t, rawDir, "vocals.wav"), []int{1, 2, 3})
			writeWAV(t, mkpath(t, rawDir, "drums.wav"), []int{10, 10, 10})
			writeWAV(t, mkpath(t, rawDir, "bass.wav"), []int{5, 5, 5})
			writeWAV(t, mkpath(t, rawDir, "other.wav"), []int{-1, 0, 1})
			return nil
		}
		// ffmpeg stem encode: last arg is the mp3 target
		testsupport.WriteFile(t, args[len(args)-1], 128)
		return nil
	}
}

func demucsArgs(t *testing.T, args []string) (outDir, model, input string) {
	t.Helper()
	for i := 0; i < len(args)-1; i++ {
		switch args[i] {
		case "-o":
			outDir = args[i+1]
		case "-n":
			model = args[i+1]
		}
	}
	input = args[len(args)-1]
	if outDir == "" || model == "" || input == "" {
		t.Fatalf("unexpected demucs args: %v", args)
	}
	return outDir, model, input
}

func mkpath(t *testing.T, dir, name string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	return filepath.Join(dir, name)
}

func TestExecuteSeparatesAndPublishesStems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	audio := filepath.Join(testsupport.BaseDir(cfg), "my_song.mp3")
	testsupport.WriteFile(t, audio, 2048)

	separator := separate.NewSeparator(cfg, nil, logging.NewNop())
	separator.WithCommandRunner(stubRunner(t))

	item := &queue.Item{
		ID:         7,
		SourcePath: filepath.Join(testsupport.BaseDir(cfg), "my_song.mp4"),
		AudioFile:  audio,
		Status:     queue.StatusSeparating,
	}
	if err := separator.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	wantVocals := separate.StemPath(cfg.Paths.StemsDir, "vocals", "my_song")
	wantMusic := separate.StemPath(cfg.Paths.StemsDir, "music", "my_song")
	if item.VocalsFile != wantVocals {
		t.Errorf("VocalsFile = %q, want %q", item.VocalsFile, wantVocals)
	}
	if item.MusicFile != wantMusic {
		t.Errorf("MusicFile = %q, want %q", item.MusicFile, wantMusic)
	}
	for _, stem := range []string{"vocals", "drums", "bass", "other", "music"} {
		path := separate.StemPath(cfg.Paths.StemsDir, stem, "my_song")
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing published %s stem: %v", stem, err)
		}
	}
}

func TestExecuteReusesFreshStems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	audio := filepath.Join(testsupport.BaseDir(cfg), "my_song.mp3")
	testsupport.WriteFile(t, audio, 2048)

	separator := separate.NewSeparator(cfg, nil, logging.NewNop())
	separator.WithCommandRunner(stubRunner(t))

	item := &queue.Item{
		ID:         7,
		SourcePath: filepath.Join(testsupport.BaseDir(cfg), "my_song.mp4"),
		AudioFile:  audio,
		Status:     queue.StatusSeparating,
	}
	if err := separator.Execute(context.Background(), item); err != nil {
		t.Fatalf("first Execute: %v", err)
	}

	separator.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		t.Fatal("separation should not rerun on a fresh cache")
		return nil
	})
	second := &queue.Item{ID: 7, SourcePath: item.SourcePath, AudioFile: audio, Status: queue.StatusSeparating}
	if err := separator.Execute(context.Background(), second); err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if second.VocalsFile == "" || second.MusicFile == "" {
		t.Fatalf("cached stem paths not set: %+v", second)
	}
}

func TestExecuteWrapsSeparationFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	audio := filepath.Join(testsupport.BaseDir(cfg), "my_song.mp3")
	testsupport.WriteFile(t, audio, 2048)

	separator := separate.NewSeparator(cfg, nil, logging.NewNop())
	separator.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return errors.New("model load failed")
	})

	item := &queue.Item{ID: 7, SourcePath: "my_song.mp4", AudioFile: audio}
	err := separator.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestExecuteRejectsMissingAudio(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	separator := separate.NewSeparator(cfg, nil, logging.NewNop())

	item := &queue.Item{ID: 7, SourcePath: "my_song.mp4"}
	err := separator.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
