// Package subtitles reads and writes the caption formats used by the
// pipeline: SRT for the transcription artifact and ASS for the styled
// overlay burned into the final video.
package subtitles
