package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSeparation()
	c.normalizeTranscription()
	if err := c.normalizeRender(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkspaceDir) == "" {
		c.Paths.WorkspaceDir = defaultWorkspaceDir
	}
	if c.Paths.WorkspaceDir, err = expandPath(c.Paths.WorkspaceDir); err != nil {
		return fmt.Errorf("paths.workspace_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StemsDir) == "" {
		c.Paths.StemsDir = filepath.Join(c.Paths.WorkspaceDir, defaultStemsSubdir)
	}
	if c.Paths.StemsDir, err = expandPath(c.Paths.StemsDir); err != nil {
		return fmt.Errorf("paths.stems_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SubtitlesDir) == "" {
		c.Paths.SubtitlesDir = filepath.Join(c.Paths.WorkspaceDir, defaultSubtitlesSubdir)
	}
	if c.Paths.SubtitlesDir, err = expandPath(c.Paths.SubtitlesDir); err != nil {
		return fmt.Errorf("paths.subtitles_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = filepath.Join(c.Paths.WorkspaceDir, defaultOutputSubdir)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSeparation() {
	c.Separation.Command = strings.TrimSpace(c.Separation.Command)
	if c.Separation.Command == "" {
		c.Separation.Command = defaultSeparationCommand
	}
	c.Separation.Model = strings.TrimSpace(c.Separation.Model)
	if c.Separation.Model == "" {
		c.Separation.Model = defaultSeparationModel
	}
	if c.Separation.Jobs <= 0 {
		c.Separation.Jobs = defaultSeparationJobs
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultTranscriptionModel
	}
	c.Transcription.Language = strings.TrimSpace(c.Transcription.Language)
	if c.Transcription.Language == "" {
		c.Transcription.Language = defaultTranscriptionLang
	}
}

func (c *Config) normalizeRender() error {
	if c.Render.Width <= 0 {
		c.Render.Width = defaultRenderWidth
	}
	if c.Render.Height <= 0 {
		c.Render.Height = defaultRenderHeight
	}
	if c.Render.FPS <= 0 {
		c.Render.FPS = defaultRenderFPS
	}
	if c.Render.SampleRate <= 0 {
		c.Render.SampleRate = defaultRenderSampleRate
	}
	if c.Render.VocalVolume <= 0 {
		c.Render.VocalVolume = defaultVocalVolume
	}
	if c.Render.DimFactor <= 0 {
		c.Render.DimFactor = defaultDimFactor
	}
	c.Render.Font = strings.TrimSpace(c.Render.Font)
	if c.Render.Font == "" {
		c.Render.Font = defaultFont
	}
	c.Render.FontsDir = strings.TrimSpace(c.Render.FontsDir)
	if c.Render.FontsDir != "" {
		expanded, err := expandPath(c.Render.FontsDir)
		if err != nil {
			return fmt.Errorf("render.fonts_dir: %w", err)
		}
		c.Render.FontsDir = expanded
	}
	if c.Render.FontSize <= 0 {
		c.Render.FontSize = defaultFontSize
	}
	c.Render.TextColor = strings.TrimSpace(c.Render.TextColor)
	if c.Render.TextColor == "" {
		c.Render.TextColor = defaultTextColor
	}
	c.Render.StrokeColor = strings.TrimSpace(c.Render.StrokeColor)
	if c.Render.StrokeColor == "" {
		c.Render.StrokeColor = defaultStrokeColor
	}
	if c.Render.StrokeWidth < 0 {
		c.Render.StrokeWidth = defaultStrokeWidth
	}
	if c.Render.TextWidth <= 0 || c.Render.TextWidth > c.Render.Width {
		c.Render.TextWidth = defaultTextWidth
		if c.Render.TextWidth > c.Render.Width {
			c.Render.TextWidth = c.Render.Width
		}
	}
	if c.Render.EncoderThreads <= 0 {
		c.Render.EncoderThreads = defaultEncoderThreads
	}
	if c.Render.MinFreeGiB < 0 {
		c.Render.MinFreeGiB = defaultMinFreeGiB
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
