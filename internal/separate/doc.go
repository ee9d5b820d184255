// Package separate implements the stem separation stage: demucs splits the
// extracted audio into vocal and instrument stems, and the accompaniment
// track is synthesized by summing the non-vocal stems sample by sample.
package separate
