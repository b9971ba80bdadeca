package transcode

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"compressum/internal/container"
)

func requireShell(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

func TestCommandExecutorMergesStreamsAndReportsExitCode(t *testing.T) {
	sh := requireShell(t)
	var out strings.Builder
	err := commandExecutor{}.Run(context.Background(), sh, []string{"-c", "echo to-stdout; echo to-stderr >&2; exit 3"}, func(p []byte) {
		out.Write(p)
	})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 3 {
		t.Fatalf("expected exit code 3, got %v", err)
	}
	if !strings.Contains(out.String(), "to-stdout") || !strings.Contains(out.String(), "to-stderr") {
		t.Fatalf("streams not merged: %q", out.String())
	}
}

func TestCommandExecutorMissingBinaryIsNotExitError(t *testing.T) {
	err := commandExecutor{}.Run(context.Background(), filepath.Join(t.TempDir(), "ffmpeg"), nil, nil)
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		t.Fatalf("missing binary reported as exit error: %v", err)
	}
}

func TestCommandExecutorKillsOnCancel(t *testing.T) {
	sh := requireShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := commandExecutor{}.Run(ctx, sh, []string{"-c", "sleep 30"}, nil)
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("child not killed promptly (%s)", elapsed)
	}
}

// A shell script standing in for ffmpeg: prints progress to stderr and writes
// its last argument.
const fakeFFmpeg = `#!/bin/sh
echo "  Duration: 00:00:02.00, start: 0.000000" >&2
echo "frame=10 time=00:00:01.00 speed=1x" >&2
echo "frame=20 time=00:00:02.00 speed=1x" >&2
for last; do :; done
: > "$last"
`

func TestRunnerWithRealProcess(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	bin := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(bin, []byte(fakeFFmpeg), 0o755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}
	input := filepath.Join(dir, "in.mov")
	if err := os.WriteFile(input, []byte("x"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	runner, err := New(bin)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := runner.Run(context.Background(), Request{InputPath: input, Format: container.AVI}, nil)
	if err != nil {
		t.Fatalf("Run: %v (output %q)", err, result.CapturedOutput)
	}
	if _, err := os.Stat(filepath.Join(dir, "in_compressed.avi")); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	if snap := runner.Snapshot(); snap.Percent != 100 {
		t.Fatalf("percent = %v, want 100", snap.Percent)
	}
}
