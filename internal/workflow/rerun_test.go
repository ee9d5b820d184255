package workflow_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"karaoke/internal/compose"
	"karaoke/internal/config"
	"karaoke/internal/extract"
	"karaoke/internal/logging"
	"karaoke/internal/media/ffprobe"
	"karaoke/internal/queue"
	"karaoke/internal/separate"
	"karaoke/internal/testsupport"
	"karaoke/internal/transcribe"
	"karaoke/internal/workflow"
)

func writeStemWAV(t *testing.T, path string, samples []int) {
	t.Helper()
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	encoder := wav.NewEncoder(file, 44100, 16, 1, 1)
	buffer := &audio.IntBuffer{
		Data:           samples,
		Format:         &audio.Format{NumChannels: 1, SampleRate: 44100},
		SourceBitDepth: 16,
	}
	if err := encoder.Write(buffer); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := encoder.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("close %s: %v", path, err)
	}
}

// pipelineFixture wires the real stage handlers with stubbed external tools
// and counts each tool invocation so reruns can assert what recomputed.
func pipelineFixture(t *testing.T, cfg *config.Config, store *queue.Store, counts map[string]int) *workflow.Runner {
	t.Helper()

	extractor := extract.NewExtractor(cfg, store, logging.NewNop())
	extractor.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		counts["extract"]++
		testsupport.WriteFile(t, args[len(args)-1], 2048)
		return nil
	})

	separator := separate.NewSeparator(cfg, store, logging.NewNop())
	separator.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		if !strings.Contains(name, "demucs") {
			// ffmpeg stem encode: last arg is the mp3 target
			testsupport.WriteFile(t, args[len(args)-1], 128)
			return nil
		}
		counts["demucs"]++
		var outDir, model string
		for i := 0; i < len(args)-1; i++ {
			switch args[i] {
			case "-o":
				outDir = args[i+1]
			case "-n":
				model = args[i+1]
			}
		}
		input := args[len(args)-1]
		track := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		rawDir := filepath.Join(outDir, model, track)
		if err := os.MkdirAll(rawDir, 0o755); err != nil {
			return err
		}
		writeStemWAV(t, filepath.Join(rawDir, "vocals.wav"), []int{1, 2, 3})
		writeStemWAV(t, filepath.Join(rawDir, "drums.wav"), []int{10, 10, 10})
		writeStemWAV(t, filepath.Join(rawDir, "bass.wav"), []int{5, 5, 5})
		writeStemWAV(t, filepath.Join(rawDir, "other.wav"), []int{-1, 0, 1})
		return nil
	})

	transcriber := transcribe.NewTranscriber(cfg, store, logging.NewNop())
	transcriber.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		counts["whisper"]++
		var source, outputDir string
		for i, arg := range args {
			if arg == "--output_dir" && i+1 < len(args) {
				outputDir = args[i+1]
			}
			if strings.HasSuffix(arg, ".mp3") {
				source = arg
			}
		}
		if source == "" || outputDir == "" {
			t.Fatalf("could not locate source/output dir in args: %v", args)
		}
		base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
		payload := `{"segments":[{"text":"la la la","start":0.5,"end":2.0}]}`
		return os.WriteFile(filepath.Join(outputDir, base+".json"), []byte(payload), 0o644)
	})

	composer := compose.NewComposerWithDependencies(cfg, store, logging.NewNop(), nil)
	composer.WithProber(func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
		return ffprobe.Result{Format: ffprobe.Format{Duration: "90.0"}}, nil
	})
	composer.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		counts["render"]++
		testsupport.WriteFile(t, args[len(args)-1], 4096)
		return nil
	})

	return workflow.NewRunnerWithHandlers(cfg, store, logging.NewNop(), extractor, separator, transcriber, composer)
}

func TestRunRebuildsDeletedTranscriptOnRerun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := openStore(t, cfg)
	ctx := context.Background()

	source := filepath.Join(testsupport.BaseDir(cfg), "my_song.mp4")
	testsupport.WriteFile(t, source, 4096)

	counts := map[string]int{}
	runner := pipelineFixture(t, cfg, store, counts)

	item, err := store.NewItem(ctx, source)
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}

	processed, failedCount, err := runner.Run(ctx)
	if err != nil || processed != 1 || failedCount != 0 {
		t.Fatalf("first Run: processed=%d failed=%d err=%v", processed, failedCount, err)
	}
	first, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if first.Status != queue.StatusCompleted {
		t.Fatalf("status after first run = %v", first.Status)
	}
	if _, err := os.Stat(first.FinalFile); err != nil {
		t.Fatalf("expected output video after first run: %v", err)
	}

	// Drop only the transcript; the rerun must rebuild it without
	// re-extracting or re-separating.
	if err := os.Remove(first.SubtitleFile); err != nil {
		t.Fatalf("remove transcript: %v", err)
	}
	requeued, err := store.Requeue(ctx, item.ID)
	if err != nil || !requeued {
		t.Fatalf("Requeue: requeued=%v err=%v", requeued, err)
	}

	processed, failedCount, err = runner.Run(ctx)
	if err != nil || processed != 1 || failedCount != 0 {
		t.Fatalf("second Run: processed=%d failed=%d err=%v", processed, failedCount, err)
	}
	second, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if second.Status != queue.StatusCompleted {
		t.Fatalf("status after rerun = %v", second.Status)
	}
	if _, err := os.Stat(second.SubtitleFile); err != nil {
		t.Fatalf("expected transcript regenerated: %v", err)
	}
	if _, err := os.Stat(second.FinalFile); err != nil {
		t.Fatalf("expected output video after rerun: %v", err)
	}

	if counts["extract"] != 1 {
		t.Errorf("extraction reran despite fresh cache: %d runs", counts["extract"])
	}
	if counts["demucs"] != 1 {
		t.Errorf("separation reran despite fresh cache: %d runs", counts["demucs"])
	}
	if counts["whisper"] != 2 {
		t.Errorf("transcription should rerun for the deleted transcript: %d runs", counts["whisper"])
	}
	if counts["render"] != 2 {
		t.Errorf("render should run on both passes: %d runs", counts["render"])
	}
}
