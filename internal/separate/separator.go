package separate

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
	"karaoke/internal/queue"
	"karaoke/internal/services"
	"karaoke/internal/stage"
)

// rawStemNames are the tracks the separation model emits, in encode order.
var rawStemNames = []string{"vocals", "drums", "bass", "other"}

// musicStemName is the synthesized accompaniment track, the per-sample sum
// of every non-vocal stem.
const musicStemName = "music"

// Separator splits the extracted audio into stems and synthesizes the
// accompaniment track the final render mixes against.
type Separator struct {
	store         *queue.Store
	cfg           *config.Config
	logger        *slog.Logger
	commandRunner func(ctx context.Context, name string, args ...string) error
	mixStems      func(dest string, sources ...string) error
}

// NewSeparator constructs the stem separation handler.
func NewSeparator(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Separator {
	separator := &Separator{store: store, cfg: cfg, mixStems: SumWAV}
	separator.SetLogger(logger)
	return separator
}

// SetLogger updates the separator's logging destination while preserving component labeling.
func (s *Separator) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "separator")
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Separator) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// StemPath returns the published location of a stem for a given source base name.
func StemPath(stemsDir, stem, base string) string {
	return filepath.Join(stemsDir, fmt.Sprintf("%s_%s.mp3", stem, base))
}

// BuildSeparateArgs constructs the demucs invocation that writes per-stem
// WAV files under outDir/<model>/<track>/.
func BuildSeparateArgs(model string, jobs int, outDir, input string) []string {
	return []string{
		"-n", model,
		"-j", strconv.Itoa(jobs),
		"-o", outDir,
		input,
	}
}

func (s *Separator) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)
	item.SetProgress("Separating", "Separating audio stems", 0)
	logger.Debug("starting stem separation preparation")
	return nil
}

func (s *Separator) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)
	stageStart := time.Now()

	audioFile := strings.TrimSpace(item.AudioFile)
	if audioFile == "" || !fileutil.ExistsNonEmpty(audioFile) {
		return services.Wrap(
			services.ErrValidation,
			"separate",
			"validate inputs",
			"No extracted audio available; ensure the extraction stage completed",
			nil,
		)
	}

	base := item.SourceBase()
	vocalsTarget := StemPath(s.cfg.Paths.StemsDir, "vocals", base)
	musicTarget := StemPath(s.cfg.Paths.StemsDir, musicStemName, base)
	params := s.cacheParams()

	if cache.Fresh(vocalsTarget, audioFile, params) && cache.Fresh(musicTarget, audioFile, params) {
		logger.Info("reusing separated stems",
			logging.String("vocals_file", vocalsTarget),
			logging.String("music_file", musicTarget),
		)
		item.VocalsFile = vocalsTarget
		item.MusicFile = musicTarget
		item.SetProgressComplete("Separated", "Reused cached stems")
		return nil
	}

	if err := os.MkdirAll(s.cfg.Paths.StemsDir, 0o755); err != nil {
		return services.Wrap(
			services.ErrConfiguration,
			"separate",
			"ensure stems dir",
			"Failed to create stems directory; set stems_dir to a writable path",
			err,
		)
	}
	workDir := filepath.Join(s.cfg.Paths.WorkspaceDir, fmt.Sprintf("separate-%d", item.ID))
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return services.Wrap(
			services.ErrConfiguration,
			"separate",
			"ensure work dir",
			"Failed to create separation working directory",
			err,
		)
	}
	defer os.RemoveAll(workDir)

	model := s.cfg.Separation.Model
	logger.Info("separating stems",
		logging.String("audio_file", audioFile),
		logging.String("model", model),
		logging.Int("jobs", s.cfg.Separation.Jobs),
	)
	args := BuildSeparateArgs(model, s.cfg.Separation.Jobs, workDir, audioFile)
	if err := s.run(ctx, s.cfg.Separation.Command, args...); err != nil {
		return services.Wrap(
			services.ErrExternalTool,
			"separate",
			"demucs",
			"Stem separation failed; confirm the separation command and model in config",
			err,
		)
	}

	track := strings.TrimSuffix(filepath.Base(audioFile), filepath.Ext(audioFile))
	rawDir := filepath.Join(workDir, model, track)
	rawPaths := make(map[string]string, len(rawStemNames))
	for _, stemName := range rawStemNames {
		raw := filepath.Join(rawDir, stemName+".wav")
		if !fileutil.ExistsNonEmpty(raw) {
			return services.Wrap(
				services.ErrExternalTool,
				"separate",
				"collect stems",
				fmt.Sprintf("Separation produced no %s stem at %q", stemName, raw),
				nil,
			)
		}
		rawPaths[stemName] = raw
	}

	musicWAV := filepath.Join(rawDir, musicStemName+".wav")
	if err := s.mixStems(musicWAV, rawPaths["drums"], rawPaths["bass"], rawPaths["other"]); err != nil {
		return services.Wrap(
			services.ErrTransient,
			"separate",
			"mix accompaniment",
			"Failed to synthesize the accompaniment track from non-vocal stems",
			err,
		)
	}
	rawPaths[musicStemName] = musicWAV

	published := append(append([]string{}, rawStemNames...), musicStemName)
	for index, stemName := range published {
		target := StemPath(s.cfg.Paths.StemsDir, stemName, base)
		if err := s.run(ctx, s.cfg.FFmpegBinary(), buildEncodeArgs(rawPaths[stemName], target)...); err != nil {
			return services.Wrap(
				services.ErrExternalTool,
				"separate",
				"encode stem",
				fmt.Sprintf("Failed to encode %s stem", stemName),
				err,
			)
		}
		item.SetProgress("Separating", fmt.Sprintf("Encoded %s stem", stemName),
			float64(index+1)/float64(len(published))*100)
	}

	for _, target := range []string{vocalsTarget, musicTarget} {
		if err := cache.Write(target, audioFile, params); err != nil {
			logger.Warn("failed to record separation cache stamp", logging.Error(err))
		}
	}

	item.VocalsFile = vocalsTarget
	item.MusicFile = musicTarget
	item.SetProgressComplete("Separated", "Stems separated")
	logger.Info("separation stage summary",
		logging.String("vocals_file", vocalsTarget),
		logging.String("music_file", musicTarget),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	return nil
}

// HealthCheck verifies the separation command and ffmpeg are resolvable.
func (s *Separator) HealthCheck(ctx context.Context) stage.Health {
	const name = "separator"
	if s.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	command := strings.TrimSpace(s.cfg.Separation.Command)
	if command == "" {
		return stage.Unhealthy(name, "separation command not configured")
	}
	if _, err := exec.LookPath(command); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("separation command %q not found", command))
	}
	if _, err := exec.LookPath(s.cfg.FFmpegBinary()); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("ffmpeg binary %q not found", s.cfg.FFmpegBinary()))
	}
	return stage.Healthy(name)
}

func (s *Separator) cacheParams() map[string]string {
	return map[string]string{
		"stage": "separate",
		"model": s.cfg.Separation.Model,
		"jobs":  strconv.Itoa(s.cfg.Separation.Jobs),
	}
}

func buildEncodeArgs(source, dest string) []string {
	return []string{
		"-y",
		"-i", source,
		"-acodec", "libmp3lame",
		"-q:a", "2",
		dest,
	}
}

func (s *Separator) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
