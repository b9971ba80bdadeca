package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains state and output directory configuration.
type Paths struct {
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
	OutputDir string `toml:"output_dir"`
}

// FFmpeg controls how the transcoder executable is located and supervised.
type FFmpeg struct {
	// Binary, when set, wins over every other lookup.
	Binary string `toml:"binary"`
	// BundleDir is searched for an ffmpeg sidecar before the fallback path.
	// Empty means the directory holding the compressum executable.
	BundleDir      string `toml:"bundle_dir"`
	FallbackPath   string `toml:"fallback_path"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Compression contains defaults for new transcode requests.
type Compression struct {
	Format     string `toml:"format"`
	Fast       bool   `toml:"fast"`
	FastPreset string `toml:"fast_preset"`
	SlowPreset string `toml:"slow_preset"`
}

// Watch configures the watch-folder intake.
type Watch struct {
	Dir            string `toml:"dir"`
	DebounceMillis int    `toml:"debounce_ms"`
	Recursive      bool   `toml:"recursive"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// RetentionDays prunes per-run log files older than this; 0 keeps all.
	RetentionDays int `toml:"retention_days"`
}

// Config encapsulates all configuration values for compressum.
type Config struct {
	Paths       Paths       `toml:"paths"`
	FFmpeg      FFmpeg      `toml:"ffmpeg"`
	Compression Compression `toml:"compression"`
	Watch       Watch       `toml:"watch"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the per-user configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/compressum/config.toml")
}

// Load reads the configuration at path, or the first existing default
// location when path is empty. A missing file yields defaults. The returned
// path is where the configuration lives or would live, and exists reports
// whether a file was read.
func Load(path string) (cfg *Config, resolved string, exists bool, err error) {
	resolved, exists, err = locate(path)
	if err != nil {
		return nil, "", false, err
	}

	loaded := Default()
	if exists {
		data, err := os.ReadFile(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &loaded); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}
	if err := loaded.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := loaded.Validate(); err != nil {
		return nil, "", false, err
	}
	return &loaded, resolved, exists, nil
}

// locate picks the config file: an explicit path always wins, otherwise the
// per-user file, then ./compressum.toml.
func locate(explicit string) (string, bool, error) {
	var candidates []string
	if explicit != "" {
		candidates = []string{explicit}
	} else {
		candidates = []string{"~/.config/compressum/config.toml", "compressum.toml"}
	}

	var first string
	for _, candidate := range candidates {
		path, err := ExpandPath(candidate)
		if err != nil {
			return "", false, err
		}
		if first == "" {
			first = path
		}
		info, err := os.Stat(path)
		switch {
		case err == nil && !info.IsDir():
			return path, true, nil
		case err == nil:
			if explicit != "" {
				return "", false, fmt.Errorf("config path %s is a directory", path)
			}
		case !errors.Is(err, fs.ErrNotExist):
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}
	return first, false, nil
}

// EnsureDirectories creates the state and log directories. The output
// directory is left alone; ffmpeg creates the output file itself.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the SQLite job history location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the lock file guarding the single in-flight job.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "compressum.lock")
}

// Timeout returns the configured transcode timeout; zero disables it.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.FFmpeg.TimeoutSeconds) * time.Second
}

// WatchDebounce returns the watch-folder settle interval.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.Watch.DebounceMillis) * time.Millisecond
}

// ExpandPath resolves a leading ~ to the home directory and makes the result
// absolute. An empty value stays empty.
func ExpandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, strings.TrimPrefix(value, "~"))
	}
	absolute, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return absolute, nil
}

// ErrConfigExists is returned by WriteSample when it would replace a file.
var ErrConfigExists = errors.New("config file already exists")

// WriteSample writes the commented sample configuration to path, or to the
// per-user location when path is empty, and returns where it went. An
// existing file is only replaced when overwrite is set.
func WriteSample(path string, overwrite bool) (string, error) {
	if path == "" {
		path = "~/.config/compressum/config.toml"
	}
	target, err := ExpandPath(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(target, flags, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return target, fmt.Errorf("%w at %s (use --overwrite to replace it)", ErrConfigExists, target)
	}
	if err != nil {
		return target, fmt.Errorf("write sample config: %w", err)
	}
	if _, err := file.WriteString(sampleConfig); err != nil {
		file.Close()
		return target, fmt.Errorf("write sample config: %w", err)
	}
	return target, file.Close()
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}
