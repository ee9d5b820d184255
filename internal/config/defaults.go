package config

import "runtime"

const (
	defaultWorkspaceDir       = "."
	defaultStemsSubdir        = "stems"
	defaultSubtitlesSubdir    = "subtitles"
	defaultOutputSubdir       = "output"
	defaultLogDir             = "~/.local/share/karaoke/logs"
	defaultSeparationCommand  = "demucs"
	defaultSeparationModel    = "htdemucs"
	defaultSeparationJobs     = 4
	defaultTranscriptionModel = "medium.en"
	defaultTranscriptionLang  = "en"
	defaultRenderWidth        = 1280
	defaultRenderHeight       = 720
	defaultRenderFPS          = 30
	defaultRenderSampleRate   = 44100
	defaultVocalVolume        = 0.05
	defaultDimFactor          = 0.3
	defaultFont               = "DejaVu Sans"
	defaultFontSize           = 40
	defaultTextColor          = "#FFFFFF"
	defaultStrokeColor        = "#000000"
	defaultStrokeWidth        = 0.5
	defaultTextWidth          = 1200
	defaultEncoderThreads     = 4
	defaultMinFreeGiB         = 2
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// platformFontsDirs enumerates the recognized platforms and the font
// directory the caption renderer searches on each. Platforms outside this
// set require an explicit render.fonts_dir (see Validate).
var platformFontsDirs = map[string]string{
	"linux":   "/usr/share/fonts",
	"darwin":  "/System/Library/Fonts",
	"windows": "C:/Windows/Fonts",
}

// DefaultFontsDir reports the caption font directory for the current
// platform, and whether the platform is recognized.
func DefaultFontsDir() (string, bool) {
	dir, ok := platformFontsDirs[runtime.GOOS]
	return dir, ok
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	fontsDir, _ := DefaultFontsDir()
	return Config{
		Paths: Paths{
			WorkspaceDir: defaultWorkspaceDir,
			LogDir:       defaultLogDir,
		},
		Separation: Separation{
			Command: defaultSeparationCommand,
			Model:   defaultSeparationModel,
			Jobs:    defaultSeparationJobs,
		},
		Transcription: Transcription{
			Model:          defaultTranscriptionModel,
			Language:       defaultTranscriptionLang,
			WordTimestamps: true,
		},
		Render: Render{
			Width:          defaultRenderWidth,
			Height:         defaultRenderHeight,
			FPS:            defaultRenderFPS,
			SampleRate:     defaultRenderSampleRate,
			VocalVolume:    defaultVocalVolume,
			DimFactor:      defaultDimFactor,
			Font:           defaultFont,
			FontsDir:       fontsDir,
			FontSize:       defaultFontSize,
			TextColor:      defaultTextColor,
			StrokeColor:    defaultStrokeColor,
			StrokeWidth:    defaultStrokeWidth,
			TextWidth:      defaultTextWidth,
			EncoderThreads: defaultEncoderThreads,
			MinFreeGiB:     defaultMinFreeGiB,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
