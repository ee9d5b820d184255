// Package cache implements metadata-stamped artifact caching.
//
// Bare path-existence checks treat a half-written file from an interrupted
// run as a valid cache hit. Each pipeline artifact instead carries a sidecar
// stamp recording the source file identity (size, mtime, head digest) and a
// digest of the stage parameters; a stage is skipped only when the artifact
// and a matching stamp are both present.
package cache
