// Package services defines shared error markers and context helpers consumed
// by the transcode runner, the history store, and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs and correlation identifiers for
//     logging.
//   - Structured error markers plus the Wrap helper that let callers classify
//     failures (invalid request, spawn failure, non-zero exit, busy) without
//     string matching.
//
// Use these helpers when surfacing new failure modes so the CLI exit codes
// and history records stay consistent.
package services
