// Package compose implements the final pipeline stage: ffmpeg composites
// the dimmed, caption-burned backdrop with the accompaniment mix and writes
// the karaoke video into the output directory.
package compose
