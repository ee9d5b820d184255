package compose

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"karaoke/internal/config"
)

// RenderPlan carries everything one ffmpeg invocation needs to produce the
// final karaoke video: the dimmed, caption-burned backdrop plus the
// accompaniment mix with the attenuated vocal guide track.
type RenderPlan struct {
	VideoPath    string
	MusicPath    string
	VocalsPath   string
	SubtitlePath string
	FontsDir     string
	OutputPath   string

	// VideoDuration and MixDuration drive trim/extend: the backdrop is
	// frozen on its last frame when shorter than the audio mix and cut
	// when longer.
	VideoDuration float64
	MixDuration   float64
}

// OutputPath returns the published location of the final video, named after
// the source video's basename.
func OutputPath(outputDir, sourcePath string) string {
	return filepath.Join(outputDir, "karaoke_"+filepath.Base(sourcePath))
}

// BuildRenderArgs constructs the full ffmpeg argument list for a render plan.
func BuildRenderArgs(plan RenderPlan, render config.Render) []string {
	args := []string{
		"-y",
		"-i", plan.VideoPath,
		"-i", plan.MusicPath,
		"-i", plan.VocalsPath,
		"-filter_complex", BuildFilterGraph(plan, render),
		"-map", "[v]",
		"-map", "[a]",
		"-t", formatSeconds(plan.MixDuration),
		"-r", strconv.Itoa(render.FPS),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-threads", strconv.Itoa(render.EncoderThreads),
		plan.OutputPath,
	}
	return args
}

// BuildFilterGraph assembles the filter_complex expression: the video chain
// scales to the target resolution, resamples the frame rate, darkens every
// pixel by the dim factor, freezes the last frame when the backdrop runs out
// before the audio, and burns in the styled captions; the audio chain
// attenuates the vocal guide track and mixes it with the accompaniment at a
// common sample rate.
func BuildFilterGraph(plan RenderPlan, render config.Render) string {
	video := []string{
		fmt.Sprintf("scale=%d:%d", render.Width, render.Height),
		fmt.Sprintf("fps=%d", render.FPS),
		fmt.Sprintf("colorchannelmixer=rr=%s:gg=%s:bb=%s",
			formatFactor(render.DimFactor), formatFactor(render.DimFactor), formatFactor(render.DimFactor)),
	}
	if plan.MixDuration > plan.VideoDuration {
		video = append(video, fmt.Sprintf("tpad=stop_mode=clone:stop_duration=%s",
			formatSeconds(plan.MixDuration-plan.VideoDuration)))
	}
	if plan.SubtitlePath != "" {
		subtitle := fmt.Sprintf("ass=filename='%s'", escapeFilterPath(plan.SubtitlePath))
		if plan.FontsDir != "" {
			subtitle += fmt.Sprintf(":fontsdir='%s'", escapeFilterPath(plan.FontsDir))
		}
		video = append(video, subtitle)
	}

	audio := fmt.Sprintf(
		"[2:a]volume=%s[vox];[1:a][vox]amix=inputs=2:duration=longest:normalize=0,aresample=%d[a]",
		formatFactor(render.VocalVolume), render.SampleRate)

	return fmt.Sprintf("[0:v]%s[v];%s", strings.Join(video, ","), audio)
}

// MixDuration returns the length of the combined audio track: the longer of
// the accompaniment and vocal stems, matching amix duration=longest.
func MixDuration(musicSeconds, vocalsSeconds float64) float64 {
	if vocalsSeconds > musicSeconds {
		return vocalsSeconds
	}
	return musicSeconds
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}

func formatFactor(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// escapeFilterPath quotes characters ffmpeg's filter parser treats specially.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`,`, `\,`,
		`[`, `\[`,
		`]`, `\]`,
	)
	return replacer.Replace(path)
}
