// Package logs reads compressum's own log files back for the CLI.
//
// Tail returns the last lines of a log with bounded memory. Follow streams
// appended lines until the context ends and notices when compressum.log is
// relinked to a newer run file.
package logs
