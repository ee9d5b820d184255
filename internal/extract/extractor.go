package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"karaoke/internal/cache"
	"karaoke/internal/config"
	"karaoke/internal/fileutil"
	"karaoke/internal/logging"
	"karaoke/internal/queue"
	"karaoke/internal/services"
	"karaoke/internal/stage"
)

// Extractor pulls the audio track out of the source video with ffmpeg.
type Extractor struct {
	store         *queue.Store
	cfg           *config.Config
	logger        *slog.Logger
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewExtractor constructs the audio extraction handler.
func NewExtractor(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Extractor {
	extractor := &Extractor{store: store, cfg: cfg}
	extractor.SetLogger(logger)
	return extractor
}

// SetLogger updates the extractor's logging destination while preserving component labeling.
func (e *Extractor) SetLogger(logger *slog.Logger) {
	e.logger = logging.NewComponentLogger(logger, "extractor")
}

// WithCommandRunner sets a custom command runner (for testing).
func (e *Extractor) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	e.commandRunner = runner
}

// AudioPath derives the extracted audio location by replacing the video
// extension with .mp3, keeping the artifact next to the source.
func AudioPath(sourcePath string) string {
	ext := filepath.Ext(sourcePath)
	return strings.TrimSuffix(sourcePath, ext) + ".mp3"
}

// BuildExtractArgs constructs the ffmpeg arguments that decode the audio
// stream of source and write it to dest, dropping the video stream.
func BuildExtractArgs(source, dest string) []string {
	return []string{
		"-y",
		"-i", source,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "2",
		dest,
	}
}

func (e *Extractor) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, e.logger)
	item.SetProgress("Extracting", "Extracting audio track", 0)
	logger.Debug("starting audio extraction preparation")
	return nil
}

func (e *Extractor) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, e.logger)
	stageStart := time.Now()

	source := strings.TrimSpace(item.SourcePath)
	if source == "" {
		return services.Wrap(
			services.ErrValidation,
			"extract",
			"validate inputs",
			"Queue item has no source path",
			nil,
		)
	}
	if _, err := os.Stat(source); err != nil {
		return services.Wrap(
			services.ErrValidation,
			"extract",
			"validate inputs",
			fmt.Sprintf("Source video %q is not readable", source),
			err,
		)
	}

	dest := AudioPath(source)
	params := e.cacheParams()
	if cache.Fresh(dest, source, params) {
		logger.Info("reusing extracted audio", logging.String("audio_file", dest))
		item.AudioFile = dest
		item.SetProgressComplete("Extracted", "Reused cached audio track")
		return nil
	}

	logger.Info("extracting audio",
		logging.String("source", source),
		logging.String("audio_file", dest),
	)
	if err := e.run(ctx, e.cfg.FFmpegBinary(), BuildExtractArgs(source, dest)...); err != nil {
		removePartial(dest)
		return services.Wrap(
			services.ErrExternalTool,
			"extract",
			"ffmpeg decode",
			"Audio extraction failed; check that ffmpeg can read the source container",
			err,
		)
	}
	if !fileutil.ExistsNonEmpty(dest) {
		return services.Wrap(
			services.ErrValidation,
			"extract",
			"validate output",
			fmt.Sprintf("Extraction produced no audio at %q", dest),
			nil,
		)
	}
	if err := cache.Write(dest, source, params); err != nil {
		logger.Warn("failed to record extraction cache stamp", logging.Error(err))
	}

	item.AudioFile = dest
	item.SetProgressComplete("Extracted", "Audio track extracted")
	logger.Info("extraction stage summary",
		logging.String("audio_file", dest),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	return nil
}

// HealthCheck verifies the ffmpeg binary is resolvable.
func (e *Extractor) HealthCheck(ctx context.Context) stage.Health {
	const name = "extractor"
	if e.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if _, err := exec.LookPath(e.cfg.FFmpegBinary()); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("ffmpeg binary %q not found", e.cfg.FFmpegBinary()))
	}
	return stage.Healthy(name)
}

func (e *Extractor) cacheParams() map[string]string {
	return map[string]string{
		"stage": "extract",
		"codec": "libmp3lame",
	}
}

func (e *Extractor) run(ctx context.Context, name string, args ...string) error {
	if e.commandRunner != nil {
		return e.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// removePartial drops the stamp before the artifact so a failed remove can
// never leave a stamped partial behind.
func removePartial(path string) {
	_ = cache.Invalidate(path)
	_ = os.Remove(path)
}
