package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"compressum/internal/config"
	"compressum/internal/testsupport"
)

const fakeFFmpegOK = `#!/bin/sh
if [ "$1" = "-version" ]; then
  echo "ffmpeg version 9.9-fake Copyright (c) the FFmpeg developers"
  exit 0
fi
echo "$@" >> "$(dirname "$0")/invocations"
echo "  Duration: 00:00:02.00, start: 0.000000, bitrate: 100 kb/s" >&2
echo "frame=48 fps=24 time=00:00:02.00 speed=2x" >&2
for last; do :; done
: > "$last"
`

const fakeFFmpegFail = `#!/bin/sh
echo "$@" >> "$(dirname "$0")/invocations"
echo "in.mov: Invalid data found when processing input" >&2
exit 1
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, script string) *cliTestEnv {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("sh not available")
	}

	cfg := testsupport.NewConfig(t, testsupport.WithFakeFFmpeg(script))
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("COMPRESSUM_FFMPEG", "")
	cfg.Logging.Level = "error"
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.StateDir, cfg.Watch.Dir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	env := &cliTestEnv{cfg: cfg, configPath: filepath.Join(base, "config.toml"), baseDir: base}
	env.rewriteConfig(t)
	return env
}

// rewriteConfig persists env.cfg so the next command sees any changes.
func (e *cliTestEnv) rewriteConfig(t *testing.T) {
	t.Helper()
	encoded, err := e.cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(e.configPath, []byte(encoded), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) invocations(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(filepath.Dir(e.cfg.FFmpeg.Binary), "invocations"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read invocations: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in output:\n%s", needle, haystack)
	}
}
