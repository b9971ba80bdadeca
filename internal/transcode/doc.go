// Package transcode turns a transcode request into a running ffmpeg child
// process and surfaces its outcome.
//
// A Runner owns the only in-flight job. Submit validates the request, rejects
// a second submission while a job is running, and starts the child with an
// explicit argument list (no shell). Output from stdout and stderr is merged,
// accumulated for diagnostics, and scanned for advisory progress samples.
// Completion is reported through Job.Wait and an optional state listener; the
// runner never retries and never deletes files.
//
// Progress and state callbacks run on the goroutine that drains the child's
// output. Callers that own UI state must hand the values over to their own
// goroutine before touching it.
package transcode
