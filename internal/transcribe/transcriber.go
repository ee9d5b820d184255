package transcribe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"karaoke/internal/cache"
	"karaoke/internal/config"
	"karaoke/internal/fileutil"
	"karaoke/internal/logging"
	"karaoke/internal/media/ffprobe"
	"karaoke/internal/queue"
	"karaoke/internal/services"
	"karaoke/internal/stage"
	"karaoke/internal/subtitles"
)

// Result is the typed outcome of a transcription run. NoSpeech is set when
// the model found nothing to transcribe; the subtitle file then carries a
// single full-length instrumental cue so the render stage always has a
// well-formed caption track to work from.
type Result struct {
	Path     string
	Segments []subtitles.Segment
	NoSpeech bool
}

// Transcriber turns the isolated vocal stem into a timed subtitle file.
type Transcriber struct {
	store   *queue.Store
	cfg     *config.Config
	logger  *slog.Logger
	service *Service
	probe   func(ctx context.Context, binary, path string) (ffprobe.Result, error)
}

// NewTranscriber constructs the transcription handler.
func NewTranscriber(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Transcriber {
	transcriber := &Transcriber{
		store:   store,
		cfg:     cfg,
		service: NewService(cfg.Transcription),
		probe:   ffprobe.Inspect,
	}
	transcriber.SetLogger(logger)
	return transcriber
}

// SetLogger updates the transcriber's logging destination while preserving component labeling.
func (t *Transcriber) SetLogger(logger *slog.Logger) {
	t.logger = logging.NewComponentLogger(logger, "transcriber")
}

// WithCommandRunner sets a custom command runner on the underlying service (for testing).
func (t *Transcriber) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	t.service.WithCommandRunner(runner)
}

// WithProber sets a custom media prober (for testing).
func (t *Transcriber) WithProber(probe func(ctx context.Context, binary, path string) (ffprobe.Result, error)) {
	t.probe = probe
}

// SubtitlePath returns the published subtitle location for a source base name.
func SubtitlePath(subtitlesDir, base string) string {
	return filepath.Join(subtitlesDir, base+".srt")
}

func (t *Transcriber) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, t.logger)
	item.SetProgress("Transcribing", "Transcribing vocals", 0)
	logger.Debug("starting transcription preparation")
	return nil
}

func (t *Transcriber) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, t.logger)

	vocals := strings.TrimSpace(item.VocalsFile)
	if vocals == "" || !fileutil.ExistsNonEmpty(vocals) {
		return services.Wrap(
			services.ErrValidation,
			"transcribe",
			"validate inputs",
			"No vocal stem available; ensure the separation stage completed",
			nil,
		)
	}

	result, err := t.Transcribe(ctx, vocals, item.SourceBase(), item.ID)
	if err != nil {
		return err
	}
	item.SubtitleFile = result.Path
	if result.NoSpeech {
		item.SetProgressComplete("Transcribed", "No speech detected; instrumental captions written")
		logger.Info("no speech detected", logging.String("subtitle_file", result.Path))
		return nil
	}
	item.SetProgressComplete("Transcribed", fmt.Sprintf("Transcribed %d segments", len(result.Segments)))
	return nil
}

// Transcribe runs the speech-to-text model once over the vocal stem and
// serializes the transcript as SRT. A fresh cached artifact short-circuits
// the model run.
func (t *Transcriber) Transcribe(ctx context.Context, vocals, base string, itemID int64) (Result, error) {
	logger := t.logger
	stageStart := time.Now()

	target := SubtitlePath(t.cfg.Paths.SubtitlesDir, base)
	params := t.cacheParams()
	if cache.Fresh(target, vocals, params) {
		logger.Info("reusing transcript", logging.String("subtitle_file", target))
		segments, err := subtitles.ParseSRT(target)
		if err != nil {
			return Result{}, services.Wrap(
				services.ErrTransient,
				"transcribe",
				"read cached transcript",
				"Cached subtitle file is unreadable",
				err,
			)
		}
		return Result{Path: target, Segments: segments, NoSpeech: onlyInstrumental(segments)}, nil
	}

	if err := os.MkdirAll(t.cfg.Paths.SubtitlesDir, 0o755); err != nil {
		return Result{}, services.Wrap(
			services.ErrConfiguration,
			"transcribe",
			"ensure subtitles dir",
			"Failed to create subtitles directory; set subtitles_dir to a writable path",
			err,
		)
	}
	workDir := filepath.Join(t.cfg.Paths.WorkspaceDir, fmt.Sprintf("transcribe-%d", itemID))
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Result{}, services.Wrap(
			services.ErrConfiguration,
			"transcribe",
			"ensure work dir",
			"Failed to create transcription working directory",
			err,
		)
	}
	defer os.RemoveAll(workDir)

	logger.Info("transcribing vocals",
		logging.String("vocals_file", vocals),
		logging.String("model", t.service.Model()),
	)
	segments, err := t.service.Transcribe(ctx, vocals, workDir)
	if err != nil {
		return Result{}, services.Wrap(
			services.ErrExternalTool,
			"transcribe",
			"whisperx",
			"Transcription failed; confirm uvx and the configured model are available",
			err,
		)
	}

	noSpeech := len(segments) == 0
	if noSpeech {
		cue, err := t.instrumentalCue(ctx, vocals)
		if err != nil {
			return Result{}, err
		}
		segments = []subtitles.Segment{cue}
	}

	if err := subtitles.WriteSRT(target, segments); err != nil {
		return Result{}, services.Wrap(
			services.ErrTransient,
			"transcribe",
			"write transcript",
			"Failed to write subtitle file",
			err,
		)
	}
	if err := cache.Write(target, vocals, params); err != nil {
		logger.Warn("failed to record transcription cache stamp", logging.Error(err))
	}

	span, err := subtitles.LastTimestamp(target)
	if err != nil {
		span = 0
	}
	logger.Info("transcription stage summary",
		logging.String("subtitle_file", target),
		logging.Int("segments", len(segments)),
		logging.Float64("transcript_span_seconds", span),
		logging.Bool("no_speech", noSpeech),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	return Result{Path: target, Segments: segments, NoSpeech: noSpeech}, nil
}

// HealthCheck verifies uvx is resolvable for WhisperX runs.
func (t *Transcriber) HealthCheck(ctx context.Context) stage.Health {
	const name = "transcriber"
	if t.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if _, err := exec.LookPath(UVXCommand); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("uvx binary %q not found", UVXCommand))
	}
	return stage.Healthy(name)
}

// instrumentalCue spans the whole vocal track so downstream styling can
// label the piece as instrumental.
func (t *Transcriber) instrumentalCue(ctx context.Context, vocals string) (subtitles.Segment, error) {
	probe, err := t.probe(ctx, t.cfg.FFprobeBinary(), vocals)
	if err != nil {
		return subtitles.Segment{}, services.Wrap(
			services.ErrExternalTool,
			"transcribe",
			"probe duration",
			"Failed to measure vocal track duration for instrumental captions",
			err,
		)
	}
	duration := probe.DurationSeconds()
	if duration <= 0 {
		return subtitles.Segment{}, services.Wrap(
			services.ErrValidation,
			"transcribe",
			"probe duration",
			"Vocal track duration could not be determined",
			nil,
		)
	}
	return subtitles.Segment{Start: 0, End: duration, Text: subtitles.InstrumentalLabel}, nil
}

func onlyInstrumental(segments []subtitles.Segment) bool {
	if len(segments) != 1 {
		return false
	}
	return subtitles.IsInstrumental(segments[0].Text)
}

func (t *Transcriber) cacheParams() map[string]string {
	return map[string]string{
		"stage":           "transcribe",
		"model":           t.cfg.Transcription.Model,
		"language":        t.cfg.Transcription.Language,
		"word_timestamps": strconv.FormatBool(t.cfg.Transcription.WordTimestamps),
	}
}
