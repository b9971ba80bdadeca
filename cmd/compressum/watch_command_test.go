package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"compressum/internal/testsupport"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchCompressesExistingAndNewFiles(t *testing.T) {
	env := setupCLITestEnv(t, fakeFFmpegOK)
	env.cfg.Watch.DebounceMillis = 50
	env.rewriteConfig(t)

	watchDir := env.cfg.Watch.Dir
	testsupport.WriteVideo(t, filepath.Join(watchDir, "before.mov"), 32)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var out syncBuffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", env.configPath, "watch", "--existing", "-f", "mkv"})
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	waitForFile(t, filepath.Join(env.cfg.Paths.OutputDir, "before_compressed.mkv"))
	testsupport.WriteVideo(t, filepath.Join(watchDir, "after.mp4"), 32)
	waitForFile(t, filepath.Join(env.cfg.Paths.OutputDir, "after_compressed.mkv"))

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch returned %v\n%s", err, out.String())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
	requireContains(t, out.String(), "ok      "+filepath.Join(watchDir, "before.mov"))

	if calls := env.invocations(t); len(calls) != 2 {
		t.Fatalf("expected two transcodes, got %q", calls)
	}
}

func TestWatchRequiresDirectory(t *testing.T) {
	env := setupCLITestEnv(t, fakeFFmpegOK)
	env.cfg.Watch.Dir = ""
	env.rewriteConfig(t)

	if _, _, err := runCLI(t, []string{"watch"}, env.configPath); err == nil {
		t.Fatal("expected an error without a watch directory")
	}
}

func waitForFile(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", path)
}
