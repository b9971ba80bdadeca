// Package preflight provides readiness checks for the transcoder binary and
// the filesystem paths compressum writes to.
//
// `compressum doctor` prints every check. `compress` and `watch` run the
// same checks first and refuse to start when a required one fails, so a
// missing ffmpeg surfaces as a clear message instead of a spawn failure.
package preflight
