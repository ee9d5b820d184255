package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSeparation(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSeparation() error {
	if c.Separation.Jobs > 16 {
		return fmt.Errorf("separation.jobs must be 16 or fewer, got %d", c.Separation.Jobs)
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if strings.ContainsAny(c.Transcription.Model, " \t") {
		return fmt.Errorf("transcription.model %q must not contain whitespace", c.Transcription.Model)
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.VocalVolume > 1 {
		return fmt.Errorf("render.vocal_volume must be in (0, 1], got %g", c.Render.VocalVolume)
	}
	if c.Render.DimFactor > 1 {
		return fmt.Errorf("render.dim_factor must be in (0, 1], got %g", c.Render.DimFactor)
	}
	if err := validateColor("render.text_color", c.Render.TextColor); err != nil {
		return err
	}
	if err := validateColor("render.stroke_color", c.Render.StrokeColor); err != nil {
		return err
	}
	if c.Render.FontsDir == "" {
		if _, ok := DefaultFontsDir(); !ok {
			return fmt.Errorf("unsupported platform %q for caption rendering: set render.fonts_dir to a directory containing the caption font", runtime.GOOS)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}

func validateColor(field, value string) error {
	if len(value) != 7 || !strings.HasPrefix(value, "#") {
		return fmt.Errorf("%s must be a #RRGGBB color, got %q", field, value)
	}
	for _, r := range value[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return fmt.Errorf("%s must be a #RRGGBB color, got %q", field, value)
		}
	}
	return nil
}
