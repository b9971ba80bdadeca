// Package history persists a record of every transcode job in SQLite.
//
// The store lives at <state_dir>/history.db and implements
// transcode.Recorder: a row is written when a job starts and updated with its
// terminal state, exit code, and the tail of the captured transcoder output
// when it finishes. The CLI reads it back for `compressum history`.
package history
