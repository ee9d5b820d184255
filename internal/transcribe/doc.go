// Package transcribe runs WhisperX over the isolated vocal stem and writes
// the timed transcript as an SRT file. A run that detects no speech still
// produces a subtitle file holding one full-length instrumental cue.
package transcribe
