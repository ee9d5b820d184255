package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"karaoke/internal/compose"
	"karaoke/internal/config"
	"karaoke/internal/extract"
	"karaoke/internal/logging"
	"karaoke/internal/notifications"
	"karaoke/internal/queue"
	"karaoke/internal/separate"
	"karaoke/internal/services"
	"karaoke/internal/stage"
	"karaoke/internal/transcribe"
)

// ErrAlreadyRunning reports that another process holds the workspace lock.
// Stages communicate through paths on disk, so two pipelines over the same
// workspace would race on the same cache artifacts.
var ErrAlreadyRunning = errors.New("another karaoke run holds the workspace lock")

// stageDefinition binds a handler to the queue statuses it moves an item
// between.
type stageDefinition struct {
	name       string
	ready      queue.Status
	processing queue.Status
	done       queue.Status
	handler    stage.Handler
}

// Runner drives queue items through the pipeline stages in order, holding
// the workspace lock for the duration of a run.
type Runner struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	notifier notifications.Service
	stages   []stageDefinition
	lock     *flock.Flock
}

// NewRunner constructs a runner wired with the production stage handlers.
func NewRunner(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Runner {
	return NewRunnerWithHandlers(cfg, store, logger,
		extract.NewExtractor(cfg, store, logger),
		separate.NewSeparator(cfg, store, logger),
		transcribe.NewTranscriber(cfg, store, logger),
		compose.NewComposer(cfg, store, logger),
	)
}

// NewRunnerWithHandlers allows injecting custom stage handlers (used for tests).
func NewRunnerWithHandlers(cfg *config.Config, store *queue.Store, logger *slog.Logger, extractor, separator, transcriber, composer stage.Handler) *Runner {
	runner := &Runner{
		cfg:      cfg,
		store:    store,
		notifier: notifications.NewService(cfg),
		lock:     flock.New(cfg.LockPath()),
	}
	runner.stages = []stageDefinition{
		{name: "extract", ready: queue.StatusPending, processing: queue.StatusExtracting, done: queue.StatusExtracted, handler: extractor},
		{name: "separate", ready: queue.StatusExtracted, processing: queue.StatusSeparating, done: queue.StatusSeparated, handler: separator},
		{name: "transcribe", ready: queue.StatusSeparated, processing: queue.StatusTranscribing, done: queue.StatusTranscribed, handler: transcriber},
		{name: "compose", ready: queue.StatusTranscribed, processing: queue.StatusRendering, done: queue.StatusCompleted, handler: composer},
	}
	runner.SetLogger(logger)
	return runner
}

// SetLogger updates the runner's logging destination while preserving component labeling.
func (r *Runner) SetLogger(logger *slog.Logger) {
	r.logger = logging.NewComponentLogger(logger, "workflow")
}

// readyStatuses returns the settled statuses a run picks items up from.
func (r *Runner) readyStatuses() []queue.Status {
	statuses := make([]queue.Status, 0, len(r.stages))
	for _, definition := range r.stages {
		statuses = append(statuses, definition.ready)
	}
	return statuses
}

// Run drains the queue: every item in a settled, unfinished status is driven
// through its remaining stages. Returns counts of items processed to
// completion and items that failed.
func (r *Runner) Run(ctx context.Context) (processed, failed int, err error) {
	locked, lockErr := r.lock.TryLock()
	if lockErr != nil {
		return 0, 0, fmt.Errorf("acquire workspace lock: %w", lockErr)
	}
	if !locked {
		return 0, 0, ErrAlreadyRunning
	}
	defer func() {
		if unlockErr := r.lock.Unlock(); unlockErr != nil && err == nil {
			err = fmt.Errorf("release workspace lock: %w", unlockErr)
		}
	}()

	if reset, resetErr := r.store.ResetStuckProcessing(ctx); resetErr != nil {
		return 0, 0, fmt.Errorf("reset interrupted items: %w", resetErr)
	} else if reset > 0 {
		r.logger.Info("rolled back interrupted items", logging.Int64("count", reset))
	}

	runStart := time.Now()
	stats, statsErr := r.store.Stats(ctx)
	if statsErr == nil {
		pending := 0
		for _, definition := range r.stages {
			pending += stats[definition.ready]
		}
		if pending > 0 {
			if notifyErr := r.notifier.NotifyQueueStarted(ctx, pending); notifyErr != nil {
				r.logger.Debug("queue start notification failed", logging.Error(notifyErr))
			}
		}
	}

	for {
		if ctx.Err() != nil {
			return processed, failed, ctx.Err()
		}
		item, nextErr := r.store.NextForStatuses(ctx, r.readyStatuses()...)
		if nextErr != nil {
			return processed, failed, fmt.Errorf("fetch next item: %w", nextErr)
		}
		if item == nil {
			break
		}
		if processErr := r.ProcessItem(ctx, item); processErr != nil {
			failed++
			r.logger.Error("item failed",
				logging.Int64(logging.FieldItemID, item.ID),
				logging.Error(processErr),
			)
			continue
		}
		processed++
	}

	if processed > 0 || failed > 0 {
		if notifyErr := r.notifier.NotifyQueueCompleted(ctx, processed, failed, time.Since(runStart)); notifyErr != nil {
			r.logger.Debug("queue completion notification failed", logging.Error(notifyErr))
		}
	}
	return processed, failed, nil
}

// ProcessItem drives a single item from its current settled status through
// every remaining stage. The item is persisted after each transition so an
// interrupted run can resume from the last settled status.
func (r *Runner) ProcessItem(ctx context.Context, item *queue.Item) error {
	requestID := uuid.NewString()
	ctx = services.WithItemID(ctx, item.ID)
	ctx = services.WithRequestID(ctx, requestID)
	logger := logging.WithContext(ctx, r.logger)

	start := r.stageIndexFor(item.Status)
	if start < 0 {
		return services.Wrap(
			services.ErrValidation,
			"workflow",
			"resolve stage",
			fmt.Sprintf("Item %d is in status %q, not a settled pipeline status", item.ID, item.Status),
			nil,
		)
	}

	for index := start; index < len(r.stages); index++ {
		definition := r.stages[index]
		stageCtx := services.WithStage(ctx, definition.name)
		stageLogger := logging.WithContext(stageCtx, r.logger)

		item.Status = definition.processing
		item.ErrorMessage = ""
		if err := r.store.Update(stageCtx, item); err != nil {
			return fmt.Errorf("persist %s start: %w", definition.name, err)
		}
		stageLogger.Info("stage started", logging.String(logging.FieldStage, definition.name))

		if err := r.runStage(stageCtx, definition, item); err != nil {
			item.SetFailed(err.Error())
			item.Status = services.FailureStatus(err)
			if updateErr := r.store.Update(stageCtx, item); updateErr != nil {
				stageLogger.Error("failed to persist failure", logging.Error(updateErr))
			}
			if notifyErr := r.notifier.NotifyError(stageCtx, err, definition.name); notifyErr != nil {
				stageLogger.Debug("error notification failed", logging.Error(notifyErr))
			}
			return err
		}

		item.Status = definition.done
		if err := r.store.Update(stageCtx, item); err != nil {
			return fmt.Errorf("persist %s completion: %w", definition.name, err)
		}
		stageLogger.Info("stage completed", logging.String(logging.FieldStage, definition.name))
	}

	logger.Info("item completed", logging.String("final_file", item.FinalFile))
	return nil
}

func (r *Runner) runStage(ctx context.Context, definition stageDefinition, item *queue.Item) error {
	if err := definition.handler.Prepare(ctx, item); err != nil {
		return fmt.Errorf("%s prepare: %w", definition.name, err)
	}
	return definition.handler.Execute(ctx, item)
}

func (r *Runner) stageIndexFor(status queue.Status) int {
	for index, definition := range r.stages {
		if definition.ready == status {
			return index
		}
	}
	return -1
}

// HealthChecks runs every stage's health check and returns the results in
// pipeline order.
func (r *Runner) HealthChecks(ctx context.Context) []stage.Health {
	results := make([]stage.Health, 0, len(r.stages))
	for _, definition := range r.stages {
		results = append(results, definition.handler.HealthCheck(ctx))
	}
	return results
}

// Unhealthy returns the names of stages whose health check failed.
func Unhealthy(checks []stage.Health) []string {
	var names []string
	for _, check := range checks {
		if !check.Ready {
			names = append(names, fmt.Sprintf("%s: %s", check.Name, strings.TrimSpace(check.Detail)))
		}
	}
	return names
}
