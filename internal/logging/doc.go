// Package logging builds the slog loggers compressum writes through.
//
// Two handlers exist: a console format that folds component and job_id into a
// line subject, and JSON with short keys. NewRunLogger gives every process run
// its own file, keeps compressum.log pointing at the newest one and prunes old
// runs. Context helpers copy job and correlation IDs from a context.Context
// onto a logger.
package logging
