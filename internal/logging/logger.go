package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"compressum/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string // console or json
	// OutputPaths lists "stdout", "stderr" or file paths. Empty means stderr.
	OutputPaths []string
	// AddSource forces caller locations. Debug level always includes them.
	AddSource bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := ParseLevel(opts.Level)
	w, err := openOutputs(opts.OutputPaths)
	if err != nil {
		return nil, err
	}
	addSource := opts.AddSource || level <= slog.LevelDebug

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console":
		return slog.New(newConsoleHandler(w, level, addSource)), nil
	case "json":
		return slog.New(newJSONHandler(w, level, addSource)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// ParseLevel maps debug/info/warn/error to a slog level. Anything else is info.
func ParseLevel(level string) slog.Level {
	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return parsed
}

// NewFromConfig creates the logger for a compressum run. Output goes to stderr
// so stdout stays free for command results, and is mirrored into a per-run
// file under the log directory.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	return NewRunLogger(cfg, true)
}

// NewRunLogger is NewFromConfig with control over the stderr copy. Commands
// that draw a live progress line turn it off; the run file still receives
// everything. compressum.log is relinked to the new run file and run files
// older than logging.retention_days are pruned.
func NewRunLogger(cfg *config.Config, console bool) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info"})
	}

	var outputs []string
	if console {
		outputs = append(outputs, "stderr")
	}
	opts := Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}

	logDir := cfg.Paths.LogDir
	if logDir == "" {
		if !console {
			return NewNop(), nil
		}
		opts.OutputPaths = outputs
		return New(opts)
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	runPath := filepath.Join(logDir, "compressum-"+time.Now().UTC().Format("20060102T150405.000Z")+".log")
	opts.OutputPaths = append(outputs, runPath)

	logger, err := New(opts)
	if err != nil {
		return nil, err
	}
	if err := linkCurrentLog(logDir, runPath); err != nil {
		logger.Warn("unable to update compressum.log link", Error(err))
	}
	CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		RetentionTarget{Dir: logDir, Pattern: RunLogPattern, Exclude: []string{runPath}},
	)
	return logger, nil
}

func openOutputs(paths []string) (io.Writer, error) {
	var writers []io.Writer
	seen := make(map[string]bool, len(paths))
	for _, raw := range paths {
		path := strings.TrimSpace(raw)
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true

		switch path {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("ensure log directory: %w", err)
			}
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", path, err)
			}
			writers = append(writers, file)
		}
	}

	switch len(writers) {
	case 0:
		return os.Stderr, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}
