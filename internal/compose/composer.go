package compose

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"karaoke/internal/config"
	"karaoke/internal/fileutil"
	"karaoke/internal/logging"
	"karaoke/internal/media/ffprobe"
	"karaoke/internal/notifications"
	"karaoke/internal/preflight"
	"karaoke/internal/queue"
	"karaoke/internal/services"
	"karaoke/internal/stage"
	"karaoke/internal/subtitles"
)

// Composer renders the final karaoke video: dimmed backdrop, burned-in
// captions, and the accompaniment mix with a faint vocal guide track.
type Composer struct {
	store         *queue.Store
	cfg           *config.Config
	logger        *slog.Logger
	notifier      notifications.Service
	probe         func(ctx context.Context, binary, path string) (ffprobe.Result, error)
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewComposer constructs the video composition handler.
func NewComposer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Composer {
	return NewComposerWithDependencies(cfg, store, logger, notifications.NewService(cfg))
}

// NewComposerWithDependencies allows injecting custom dependencies (used for tests).
func NewComposerWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Composer {
	composer := &Composer{
		store:    store,
		cfg:      cfg,
		notifier: notifier,
		probe:    ffprobe.Inspect,
	}
	composer.SetLogger(logger)
	return composer
}

// SetLogger updates the composer's logging destination while preserving component labeling.
func (c *Composer) SetLogger(logger *slog.Logger) {
	c.logger = logging.NewComponentLogger(logger, "composer")
}

// WithCommandRunner sets a custom command runner (for testing).
func (c *Composer) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	c.commandRunner = runner
}

// WithProber sets a custom media prober (for testing).
func (c *Composer) WithProber(probe func(ctx context.Context, binary, path string) (ffprobe.Result, error)) {
	c.probe = probe
}

func (c *Composer) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, c.logger)
	item.SetProgress("Rendering", "Rendering karaoke video", 0)
	logger.Debug("starting composition preparation")
	return nil
}

func (c *Composer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, c.logger)
	stageStart := time.Now()

	if err := c.validateInputs(item); err != nil {
		return err
	}
	if result := preflight.CheckFreeSpace(c.cfg.Paths.WorkspaceDir, c.cfg.Render.MinFreeGiB); !result.Passed {
		return services.Wrap(
			services.ErrConfiguration,
			"compose",
			"free space preflight",
			result.Detail,
			nil,
		)
	}
	if err := os.MkdirAll(c.cfg.Paths.OutputDir, 0o755); err != nil {
		return services.Wrap(
			services.ErrConfiguration,
			"compose",
			"ensure output dir",
			"Failed to create output directory; set output_dir to a writable path",
			err,
		)
	}

	plan, cleanup, err := c.buildPlan(ctx, item)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		return err
	}

	logger.Info("rendering karaoke video",
		logging.String("source", item.SourcePath),
		logging.String("output", plan.OutputPath),
		logging.Float64("mix_duration_seconds", plan.MixDuration),
	)
	item.SetProgress("Rendering", "Encoding final video", 25)

	// Render into the scratch directory, then promote the verified result so
	// the output dir never holds a partial encode.
	stagingPath := filepath.Join(filepath.Dir(plan.SubtitlePath), filepath.Base(plan.OutputPath))
	renderPlan := plan
	renderPlan.OutputPath = stagingPath
	args := BuildRenderArgs(renderPlan, c.cfg.Render)
	if err := c.run(ctx, c.cfg.FFmpegBinary(), args...); err != nil {
		return services.Wrap(
			services.ErrExternalTool,
			"compose",
			"ffmpeg render",
			"Video composition failed; inspect the ffmpeg output for the failing filter",
			err,
		)
	}
	if !fileutil.ExistsNonEmpty(stagingPath) {
		return services.Wrap(
			services.ErrValidation,
			"compose",
			"validate output",
			fmt.Sprintf("Render produced no video at %q", stagingPath),
			nil,
		)
	}
	if err := c.publishOutput(logger, stagingPath, plan.OutputPath); err != nil {
		return err
	}

	item.FinalFile = plan.OutputPath
	item.SetProgressComplete("Completed", "Karaoke video rendered")

	if c.notifier != nil {
		if err := c.notifier.NotifyRenderCompleted(ctx, item.Title, item.FinalFile); err != nil {
			logger.Debug("render notification failed", logging.Error(err))
		}
	}

	logger.Info("composition stage summary",
		logging.String("final_file", item.FinalFile),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	return nil
}

// buildPlan probes durations, converts the SRT transcript into a styled ASS
// overlay in a scratch directory, and assembles the render plan. The
// returned cleanup removes the scratch directory and is non-nil whenever the
// directory was created.
func (c *Composer) buildPlan(ctx context.Context, item *queue.Item) (RenderPlan, func(), error) {
	videoProbe, err := c.probe(ctx, c.cfg.FFprobeBinary(), item.SourcePath)
	if err != nil {
		return RenderPlan{}, nil, c.wrapProbe("probe video", err)
	}
	musicProbe, err := c.probe(ctx, c.cfg.FFprobeBinary(), item.MusicFile)
	if err != nil {
		return RenderPlan{}, nil, c.wrapProbe("probe music", err)
	}
	vocalsProbe, err := c.probe(ctx, c.cfg.FFprobeBinary(), item.VocalsFile)
	if err != nil {
		return RenderPlan{}, nil, c.wrapProbe("probe vocals", err)
	}
	mixDuration := MixDuration(musicProbe.DurationSeconds(), vocalsProbe.DurationSeconds())
	if mixDuration <= 0 {
		return RenderPlan{}, nil, services.Wrap(
			services.ErrValidation,
			"compose",
			"probe durations",
			"Audio mix duration could not be determined",
			nil,
		)
	}

	workDir := filepath.Join(c.cfg.Paths.WorkspaceDir, fmt.Sprintf("compose-%d", item.ID))
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return RenderPlan{}, nil, services.Wrap(
			services.ErrConfiguration,
			"compose",
			"ensure work dir",
			"Failed to create composition working directory",
			err,
		)
	}
	cleanup := func() { _ = os.RemoveAll(workDir) }

	segments, err := subtitles.ParseSRT(item.SubtitleFile)
	if err != nil {
		return RenderPlan{}, cleanup, services.Wrap(
			services.ErrValidation,
			"compose",
			"load transcript",
			"Subtitle file is unreadable; rerun transcription",
			err,
		)
	}
	assPath := filepath.Join(workDir, item.SourceBase()+".ass")
	styleOpts := subtitles.StyleOptions{
		PlayResX:    c.cfg.Render.Width,
		PlayResY:    c.cfg.Render.Height,
		Font:        c.cfg.Render.Font,
		FontSize:    c.cfg.Render.FontSize,
		TextColor:   c.cfg.Render.TextColor,
		StrokeColor: c.cfg.Render.StrokeColor,
		StrokeWidth: c.cfg.Render.StrokeWidth,
		TextWidth:   c.cfg.Render.TextWidth,
	}
	if err := subtitles.GenerateASS(assPath, segments, styleOpts); err != nil {
		return RenderPlan{}, cleanup, services.Wrap(
			services.ErrValidation,
			"compose",
			"style captions",
			"Failed to generate the caption overlay",
			err,
		)
	}

	plan := RenderPlan{
		VideoPath:     item.SourcePath,
		MusicPath:     item.MusicFile,
		VocalsPath:    item.VocalsFile,
		SubtitlePath:  assPath,
		FontsDir:      c.cfg.Render.FontsDir,
		OutputPath:    OutputPath(c.cfg.Paths.OutputDir, item.SourcePath),
		VideoDuration: videoProbe.DurationSeconds(),
		MixDuration:   mixDuration,
	}
	return plan, cleanup, nil
}

// HealthCheck verifies ffmpeg, ffprobe, and the fonts directory.
func (c *Composer) HealthCheck(ctx context.Context) stage.Health {
	const name = "composer"
	if c.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	for _, binary := range []string{c.cfg.FFmpegBinary(), c.cfg.FFprobeBinary()} {
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy(name, fmt.Sprintf("binary %q not found", binary))
		}
	}
	if fontsDir := strings.TrimSpace(c.cfg.Render.FontsDir); fontsDir != "" {
		if info, err := os.Stat(fontsDir); err != nil || !info.IsDir() {
			return stage.Unhealthy(name, fmt.Sprintf("fonts directory %q not accessible", fontsDir))
		}
	}
	return stage.Healthy(name)
}

func (c *Composer) validateInputs(item *queue.Item) error {
	checks := []struct {
		path  string
		label string
	}{
		{item.SourcePath, "source video"},
		{item.MusicFile, "accompaniment stem"},
		{item.VocalsFile, "vocal stem"},
		{item.SubtitleFile, "subtitle file"},
	}
	for _, check := range checks {
		if strings.TrimSpace(check.path) == "" || !fileutil.ExistsNonEmpty(check.path) {
			return services.Wrap(
				services.ErrValidation,
				"compose",
				"validate inputs",
				fmt.Sprintf("Missing %s; ensure earlier stages completed", check.label),
				nil,
			)
		}
	}
	return nil
}

func (c *Composer) wrapProbe(operation string, err error) error {
	return services.Wrap(
		services.ErrExternalTool,
		"compose",
		operation,
		"ffprobe inspection failed",
		err,
	)
}

func (c *Composer) publishOutput(logger *slog.Logger, stagingPath, finalPath string) error {
	if err := fileutil.CopyFileVerified(stagingPath, finalPath); err != nil {
		c.removePartialOutput(logger, finalPath)
		return services.Wrap(
			services.ErrValidation,
			"compose",
			"publish output",
			fmt.Sprintf("Failed to publish the rendered video to %q", finalPath),
			err,
		)
	}
	return nil
}

func (c *Composer) removePartialOutput(logger *slog.Logger, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove partial render output", logging.Error(err))
	}
}

func (c *Composer) run(ctx context.Context, name string, args ...string) error {
	if c.commandRunner != nil {
		return c.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
