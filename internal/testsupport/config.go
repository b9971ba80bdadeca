package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"compressum/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.FFmpeg.BundleDir = filepath.Join(base, "bundle")
	cfgVal.FFmpeg.FallbackPath = filepath.Join(base, "fallback", "ffmpeg")
	cfgVal.Watch.Dir = filepath.Join(base, "watch")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithFakeFFmpeg writes script as an executable named ffmpeg and configures it
// as the transcoder.
func WithFakeFFmpeg(script string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, "ffmpeg")
		if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
			b.t.Fatalf("write fake ffmpeg: %v", err)
		}
		b.cfg.FFmpeg.Binary = target
	}
}

// WithFFmpegOnPath puts a no-op ffmpeg in a fresh directory at the front of
// PATH for the rest of the test. The configured binary is left untouched.
func WithFFmpegOnPath() ConfigOption {
	return func(b *configBuilder) {
		dir := filepath.Join(b.baseDir, "path-bin")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			b.t.Fatalf("mkdir path dir: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "ffmpeg"), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			b.t.Fatalf("write path ffmpeg: %v", err)
		}
		b.t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
