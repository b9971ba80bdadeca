package config

import (
	"fmt"
	"os"
	"strings"

	"compressum/internal/container"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeFFmpeg(); err != nil {
		return err
	}
	c.normalizeCompression()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = ExpandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = ExpandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.OutputDir, err = ExpandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Watch.Dir, err = ExpandPath(strings.TrimSpace(c.Watch.Dir)); err != nil {
		return fmt.Errorf("watch.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFFmpeg() error {
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	if c.FFmpeg.Binary == "" {
		if value, ok := os.LookupEnv("COMPRESSUM_FFMPEG"); ok {
			c.FFmpeg.Binary = strings.TrimSpace(value)
		}
	}
	var err error
	if c.FFmpeg.BundleDir, err = ExpandPath(strings.TrimSpace(c.FFmpeg.BundleDir)); err != nil {
		return fmt.Errorf("ffmpeg.bundle_dir: %w", err)
	}
	c.FFmpeg.FallbackPath = strings.TrimSpace(c.FFmpeg.FallbackPath)
	if c.FFmpeg.FallbackPath == "" {
		c.FFmpeg.FallbackPath = defaultFallbackFFmpeg
	}
	return nil
}

func (c *Config) normalizeCompression() {
	format := strings.TrimSpace(c.Compression.Format)
	if format == "" {
		format = defaultFormat
	}
	if parsed, err := container.Parse(format); err == nil {
		format = parsed.Extension()
	}
	c.Compression.Format = format
	c.Compression.FastPreset = strings.TrimSpace(c.Compression.FastPreset)
	if c.Compression.FastPreset == "" {
		c.Compression.FastPreset = defaultFastPreset
	}
	c.Compression.SlowPreset = strings.TrimSpace(c.Compression.SlowPreset)
	if c.Compression.SlowPreset == "" {
		c.Compression.SlowPreset = defaultSlowPreset
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
