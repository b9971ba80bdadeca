// Package config loads, normalizes, and validates compressum configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the COMPRESSUM_FFMPEG environment
// override. The Config type centralizes every knob the runner and CLI need so
// transcoder resolution, output defaults, and logging are discovered in one
// pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, a known export format, and clear validation errors.
package config
