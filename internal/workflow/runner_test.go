package workflow_test

import (
	"context"
	"errors"
	"testing"

	"karaoke/internal/config"
	"karaoke/internal/logging"
	"karaoke/internal/queue"
	"karaoke/internal/stage"
	"karaoke/internal/testsupport"
	"karaoke/internal/workflow"
)

type stubStage struct {
	name     string
	executed *[]string
	fail     bool
	mutate   func(*queue.Item)
}

func (s stubStage) Prepare(ctx context.Context, item *queue.Item) error { return nil }

func (s stubStage) Execute(ctx context.Context, item *queue.Item) error {
	if s.executed != nil {
		*s.executed = append(*s.executed, s.name)
	}
	if s.fail {
		return errors.New(s.name + " blew up")
	}
	if s.mutate != nil {
		s.mutate(item)
	}
	return nil
}

func (s stubStage) HealthCheck(ctx context.Context) stage.Health {
	if s.fail {
		return stage.Unhealthy(s.name, "stub failure")
	}
	return stage.Healthy(s.name)
}

func openStore(t *testing.T, cfg *config.Config) *queue.Store {
	t.Helper()
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newRunner(t *testing.T, cfg *config.Config, store *queue.Store, executed *[]string, failing string) *workflow.Runner {
	t.Helper()
	build := func(name string) stubStage {
		return stubStage{
			name:     name,
			executed: executed,
			fail:     name == failing,
			mutate: func(item *queue.Item) {
				switch name {
				case "extract":
					item.AudioFile = "/tmp/a.mp3"
				case "separate":
					item.VocalsFile = "/tmp/v.mp3"
					item.MusicFile = "/tmp/m.mp3"
				case "transcribe":
					item.SubtitleFile = "/tmp/s.srt"
				case "compose":
					item.FinalFile = "/tmp/karaoke_a.mp4"
				}
			},
		}
	}
	return workflow.NewRunnerWithHandlers(cfg, store, logging.NewNop(),
		build("extract"), build("separate"), build("transcribe"), build("compose"))
}

func TestRunProcessesItemThroughAllStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := openStore(t, cfg)
	item, err := store.NewItem(context.Background(), "/videos/song.mp4")
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}

	var executed []string
	runner := newRunner(t, cfg, store, &executed, "")

	processed, failed, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if processed != 1 || failed != 0 {
		t.Fatalf("processed=%d failed=%d", processed, failed)
	}

	want := []string{"extract", "separate", "transcribe", "compose"}
	if len(executed) != len(want) {
		t.Fatalf("executed %v, want %v", executed, want)
	}
	for i := range want {
		if executed[i] != want[i] {
			t.Fatalf("executed %v, want %v", executed, want)
		}
	}

	final, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if final.Status != queue.StatusCompleted {
		t.Fatalf("status = %q, want completed", final.Status)
	}
	if final.FinalFile == "" {
		t.Fatal("final file not persisted")
	}
}

func TestRunPersistsFailureAndContinues(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := openStore(t, cfg)
	bad, err := store.NewItem(context.Background(), "/videos/bad.mp4")
	if err != nil {
		t.Fatal(err)
	}

	var executed []string
	runner := newRunner(t, cfg, store, &executed, "transcribe")

	processed, failed, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if processed != 0 || failed != 1 {
		t.Fatalf("processed=%d failed=%d", processed, failed)
	}

	stored, err := store.GetByID(context.Background(), bad.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != queue.StatusFailed {
		t.Fatalf("status = %q, want failed", stored.Status)
	}
	if stored.ErrorMessage == "" {
		t.Fatal("error message not persisted")
	}
}

func TestRunResumesFromSettledStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := openStore(t, cfg)
	item, err := store.NewItem(context.Background(), "/videos/song.mp4")
	if err != nil {
		t.Fatal(err)
	}
	item.Status = queue.StatusSeparated
	item.AudioFile = "/tmp/a.mp3"
	item.VocalsFile = "/tmp/v.mp3"
	item.MusicFile = "/tmp/m.mp3"
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatal(err)
	}

	var executed []string
	runner := newRunner(t, cfg, store, &executed, "")

	if _, _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"transcribe", "compose"}
	if len(executed) != len(want) || executed[0] != want[0] || executed[1] != want[1] {
		t.Fatalf("executed %v, want %v", executed, want)
	}
}

func TestRunHoldsWorkspaceLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := openStore(t, cfg)

	var executed []string
	blocker := make(chan struct{})
	release := make(chan struct{})

	if _, err := store.NewItem(context.Background(), "/videos/song.mp4"); err != nil {
		t.Fatal(err)
	}

	first := workflow.NewRunnerWithHandlers(cfg, store, logging.NewNop(),
		stubStage{name: "extract", executed: &executed, mutate: func(item *queue.Item) {
			close(blocker)
			<-release
			item.AudioFile = "/tmp/a.mp3"
		}},
		stubStage{name: "separate"}, stubStage{name: "transcribe"}, stubStage{name: "compose"})

	errCh := make(chan error, 1)
	go func() {
		_, _, err := first.Run(context.Background())
		errCh <- err
	}()
	<-blocker

	second := newRunner(t, cfg, store, nil, "")
	if _, _, err := second.Run(context.Background()); !errors.Is(err, workflow.ErrAlreadyRunning) {
		t.Fatalf("expected lock contention error, got %v", err)
	}

	close(release)
	if err := <-errCh; err != nil {
		t.Fatalf("first run: %v", err)
	}
}

func TestHealthChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := openStore(t, cfg)

	runner := workflow.NewRunnerWithHandlers(cfg, store, logging.NewNop(),
		stubStage{name: "extract"},
		stubStage{name: "separate", fail: true},
		stubStage{name: "transcribe"},
		stubStage{name: "compose"})

	checks := runner.HealthChecks(context.Background())
	if len(checks) != 4 {
		t.Fatalf("got %d checks", len(checks))
	}
	unhealthy := workflow.Unhealthy(checks)
	if len(unhealthy) != 1 {
		t.Fatalf("unhealthy = %v", unhealthy)
	}
}
