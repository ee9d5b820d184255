// Package config loads, normalizes, and validates the TOML configuration
// for the karaoke pipeline.
//
// Lookup order: an explicit --config path, then ~/.config/karaoke/config.toml,
// then ./karaoke.toml. Missing files yield defaults; a sample can be written
// with CreateSample.
//
// Normalization expands ~ and relative paths and backfills defaults;
// validation rejects unusable values early, including the
// unsupported-platform case for caption font resolution.
package config
