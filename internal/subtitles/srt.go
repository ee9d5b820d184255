package subtitles

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Word carries word-level timing inside a segment.
type Word struct {
	Start float64
	End   float64
	Text  string
}

// Segment is one timed caption cue.
type Segment struct {
	Start float64
	End   float64
	Text  string
	Words []Word
}

// FormatTimestamp renders seconds in SRT form (HH:MM:SS,mmm).
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int(seconds*1000 + 0.5)
	hours := millis / 3600000
	millis -= hours * 3600000
	minutes := millis / 60000
	millis -= minutes * 60000
	secs := millis / 1000
	millis -= secs * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// WriteSRT serializes segments as a standard SRT file.
func WriteSRT(path string, segments []Segment) error {
	var builder strings.Builder
	for index, segment := range segments {
		fmt.Fprintf(&builder, "%d\n", index+1)
		fmt.Fprintf(&builder, "%s --> %s\n", FormatTimestamp(segment.Start), FormatTimestamp(segment.End))
		builder.WriteString(strings.TrimSpace(segment.Text))
		builder.WriteString("\n\n")
	}
	if err := os.WriteFile(path, []byte(builder.String()), 0o644); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	return nil
}

// ParseSRT reads an SRT file back into segments. Malformed blocks are skipped.
func ParseSRT(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	blocks := strings.Split(strings.TrimSpace(content), "\n\n")
	var segments []Segment
	for _, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			continue
		}
		timingIndex := 0
		if !strings.Contains(lines[0], "-->") {
			timingIndex = 1
		}
		if timingIndex >= len(lines) || !strings.Contains(lines[timingIndex], "-->") {
			continue
		}
		parts := strings.Split(lines[timingIndex], "-->")
		if len(parts) != 2 {
			continue
		}
		start, err := parseSRTTimestamp(parts[0])
		if err != nil {
			continue
		}
		end, err := parseSRTTimestamp(parts[1])
		if err != nil {
			continue
		}
		text := strings.TrimSpace(strings.Join(lines[timingIndex+1:], "\n"))
		segments = append(segments, Segment{Start: start, End: end, Text: text})
	}
	return segments, nil
}

// LastTimestamp returns the latest cue end time in the file.
func LastTimestamp(path string) (float64, error) {
	segments, err := ParseSRT(path)
	if err != nil {
		return 0, err
	}
	var last float64
	for _, segment := range segments {
		if segment.End > last {
			last = segment.End
		}
	}
	return last, nil
}

func parseSRTTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	// Normalize period to comma (SRT standard uses comma for milliseconds)
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}
