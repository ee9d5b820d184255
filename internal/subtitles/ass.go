package subtitles

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// InstrumentalLabel is the sentinel cue text for passages without vocals.
// Cues matching it (case and whitespace insensitive) render with the
// Instrumental style instead of the Lyric style.
const InstrumentalLabel = "instrumental"

const (
	lyricStyleName        = "Lyric"
	instrumentalStyleName = "Instrumental"

	// Instrumental cues are rendered smaller and dimmer than lyrics.
	instrumentalSizeNum   = 3
	instrumentalSizeDen   = 4
	instrumentalDimFactor = 0.7
)

// StyleOptions controls ASS style generation for the caption overlay.
type StyleOptions struct {
	PlayResX    int
	PlayResY    int
	Font        string
	FontSize    int
	TextColor   string
	StrokeColor string
	StrokeWidth float64
	TextWidth   int
}

// IsInstrumental reports whether a cue text selects the instrumental style.
func IsInstrumental(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), InstrumentalLabel)
}

// GenerateASS writes segments as an ASS subtitle file with a Lyric style for
// spoken cues and an Instrumental style for sentinel cues. Captions are
// centered over the frame with margins derived from the caption box width.
func GenerateASS(path string, segments []Segment, opts StyleOptions) error {
	content, err := RenderASS(segments, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write ass: %w", err)
	}
	return nil
}

// RenderASS produces the ASS document text for segments.
func RenderASS(segments []Segment, opts StyleOptions) (string, error) {
	lyricColor, err := assColor(opts.TextColor)
	if err != nil {
		return "", fmt.Errorf("text color: %w", err)
	}
	strokeColor, err := assColor(opts.StrokeColor)
	if err != nil {
		return "", fmt.Errorf("stroke color: %w", err)
	}
	instrumentalColor, err := assDimmedColor(opts.TextColor, instrumentalDimFactor)
	if err != nil {
		return "", fmt.Errorf("text color: %w", err)
	}

	margin := 0
	if opts.TextWidth > 0 && opts.TextWidth < opts.PlayResX {
		margin = (opts.PlayResX - opts.TextWidth) / 2
	}
	instrumentalSize := opts.FontSize * instrumentalSizeNum / instrumentalSizeDen

	var builder strings.Builder
	builder.WriteString("[Script Info]\n")
	builder.WriteString("ScriptType: v4.00+\n")
	fmt.Fprintf(&builder, "PlayResX: %d\n", opts.PlayResX)
	fmt.Fprintf(&builder, "PlayResY: %d\n", opts.PlayResY)
	builder.WriteString("WrapStyle: 0\n")
	builder.WriteString("ScaledBorderAndShadow: yes\n\n")

	builder.WriteString("[V4+ Styles]\n")
	builder.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, OutlineColour, BackColour, Bold, Italic, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV\n")
	fmt.Fprintf(&builder, "Style: %s,%s,%d,%s,%s,&H000000&,0,0,1,%s,0,5,%d,%d,0\n",
		lyricStyleName, opts.Font, opts.FontSize, lyricColor, strokeColor, formatFloat(opts.StrokeWidth), margin, margin)
	fmt.Fprintf(&builder, "Style: %s,%s,%d,%s,%s,&H000000&,0,0,1,%s,0,5,%d,%d,0\n\n",
		instrumentalStyleName, opts.Font, instrumentalSize, instrumentalColor, strokeColor, formatFloat(opts.StrokeWidth), margin, margin)

	builder.WriteString("[Events]\n")
	builder.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, segment := range segments {
		style := lyricStyleName
		if IsInstrumental(segment.Text) {
			style = instrumentalStyleName
		}
		text := strings.ReplaceAll(strings.TrimSpace(segment.Text), "\n", "\\N")
		fmt.Fprintf(&builder, "Dialogue: 0,%s,%s,%s,,0,0,0,,%s\n",
			assTimestamp(segment.Start), assTimestamp(segment.End), style, text)
	}
	return builder.String(), nil
}

// assTimestamp renders seconds in ASS form (H:MM:SS.cc).
func assTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	centis := int(seconds*100 + 0.5)
	hours := centis / 360000
	centis -= hours * 360000
	minutes := centis / 6000
	centis -= minutes * 6000
	secs := centis / 100
	centis -= secs * 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centis)
}

// assColor converts a #RRGGBB color to ASS &HBBGGRR& form.
func assColor(value string) (string, error) {
	r, g, b, err := parseHexColor(value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("&H%02X%02X%02X&", b, g, r), nil
}

func assDimmedColor(value string, factor float64) (string, error) {
	r, g, b, err := parseHexColor(value)
	if err != nil {
		return "", err
	}
	dim := func(channel uint8) uint8 {
		return uint8(float64(channel) * factor)
	}
	return fmt.Sprintf("&H%02X%02X%02X&", dim(b), dim(g), dim(r)), nil
}

func parseHexColor(value string) (uint8, uint8, uint8, error) {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) != 7 || trimmed[0] != '#' {
		return 0, 0, 0, fmt.Errorf("invalid color %q, expected #RRGGBB", value)
	}
	parsed, err := strconv.ParseUint(trimmed[1:], 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid color %q, expected #RRGGBB", value)
	}
	return uint8(parsed >> 16), uint8(parsed >> 8), uint8(parsed), nil
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
