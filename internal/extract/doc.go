// Package extract implements the first pipeline stage: decoding the source
// video's audio stream into an MP3 next to the source file.
package extract
