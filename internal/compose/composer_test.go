package compose_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"karaoke/internal/compose"
	"karaoke/internal/logging"
	"karaoke/internal/media/ffprobe"
	"karaoke/internal/queue"
	"karaoke/internal/services"
	"karaoke/internal/subtitles"
	"karaoke/internal/testsupport"
)

func durationProbe(durations map[string]string) func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
	return func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
		duration, ok := durations[filepath.Base(path)]
		if !ok {
			return ffprobe.Result{}, errors.New("unexpected probe target " + path)
		}
		return ffprobe.Result{Format: ffprobe.Format{Duration: duration}}, nil
	}
}

func composerFixture(t *testing.T) (*compose.Composer, *queue.Item, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)

	source := filepath.Join(base, "song.mp4")
	music := filepath.Join(cfg.Paths.StemsDir, "music_song.mp3")
	vocals := filepath.Join(cfg.Paths.StemsDir, "vocals_song.mp3")
	srt := filepath.Join(cfg.Paths.SubtitlesDir, "song.srt")
	testsupport.WriteFile(t, source, 4096)
	testsupport.WriteFile(t, music, 1024)
	testsupport.WriteFile(t, vocals, 1024)
	if err := subtitles.WriteSRT(srt, []subtitles.Segment{{Start: 0, End: 5, Text: "la la la"}}); err != nil {
		t.Fatal(err)
	}

	composer := compose.NewComposerWithDependencies(cfg, nil, logging.NewNop(), nil)
	composer.WithProber(durationProbe(map[string]string{
		"song.mp4":       "90.0",
		"music_song.mp3": "92.5",
		"vocals_song.mp3": "91.0",
	}))

	item := &queue.Item{
		ID:           11,
		SourcePath:   source,
		Title:        "Song",
		MusicFile:    music,
		VocalsFile:   vocals,
		SubtitleFile: srt,
		Status:       queue.StatusRendering,
	}
	return composer, item, cfg.Paths.OutputDir
}

func TestExecuteRendersFinalVideo(t *testing.T) {
	composer, item, outputDir := composerFixture(t)

	var gotArgs []string
	composer.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		gotArgs = args
		testsupport.WriteFile(t, args[len(args)-1], 4096)
		return nil
	})

	if err := composer.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := filepath.Join(outputDir, "karaoke_song.mp4")
	if item.FinalFile != want {
		t.Fatalf("FinalFile = %q, want %q", item.FinalFile, want)
	}
	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "-t 92.500") {
		t.Errorf("output duration should match the longest audio stem: %v", gotArgs)
	}
	if !strings.Contains(joined, "tpad=stop_mode=clone") {
		t.Errorf("backdrop shorter than mix should clone its last frame: %v", gotArgs)
	}
	if !strings.Contains(joined, ".ass") {
		t.Errorf("caption overlay missing from render args: %v", gotArgs)
	}
}

func TestExecuteStylesInstrumentalCue(t *testing.T) {
	composer, item, _ := composerFixture(t)
	if err := subtitles.WriteSRT(item.SubtitleFile, []subtitles.Segment{
		{Start: 0, End: 90, Text: subtitles.InstrumentalLabel},
	}); err != nil {
		t.Fatal(err)
	}

	var assContent string
	composer.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		for _, arg := range args {
			if idx := strings.Index(arg, "ass=filename='"); idx >= 0 {
				path := arg[idx+len("ass=filename='"):]
				path = path[:strings.Index(path, "'")]
				path = strings.NewReplacer(`\:`, `:`, `\,`, `,`, `\\`, `\`).Replace(path)
				data, err := os.ReadFile(path)
				if err != nil {
					t.Fatalf("read ass overlay: %v", err)
				}
				assContent = string(data)
			}
		}
		testsupport.WriteFile(t, args[len(args)-1], 4096)
		return nil
	})

	if err := composer.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(assContent, "Style: Instrumental,") {
		t.Errorf("overlay missing Instrumental style:\n%s", assContent)
	}
	if !strings.Contains(assContent, ",Instrumental,,0,0,0,,instrumental") {
		t.Errorf("sentinel cue not assigned the Instrumental style:\n%s", assContent)
	}
}

func TestExecuteRemovesPartialOutputOnFailure(t *testing.T) {
	composer, item, outputDir := composerFixture(t)
	composer.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		testsupport.WriteFile(t, args[len(args)-1], 64)
		return errors.New("encoder crashed")
	})

	err := composer.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	partial := filepath.Join(outputDir, "karaoke_song.mp4")
	if _, statErr := os.Stat(partial); !os.IsNotExist(statErr) {
		t.Fatalf("expected partial output removed, stat err=%v", statErr)
	}
}

func TestExecuteRejectsMissingInputs(t *testing.T) {
	composer, item, _ := composerFixture(t)
	item.SubtitleFile = ""

	err := composer.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
