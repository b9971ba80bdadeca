package transcode

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"
)

// waitDelay bounds how long Wait blocks for output pipes after the child is
// killed.
const waitDelay = 5 * time.Second

// Executor runs the transcoder binary. onChunk receives merged stdout and
// stderr data in arrival order and must not retain the slice.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onChunk func([]byte)) error
}

// ExitError reports a child that ran and exited with a non-zero status. A
// child killed by a signal reports Code -1.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("transcoder exited with status %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onChunk func([]byte)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	// The same pointer on both streams makes exec share one copy goroutine.
	w := &chunkWriter{fn: onChunk}
	cmd.Stdout = w
	cmd.Stderr = w
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", binary, err)
	}
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Code: exitErr.ExitCode(), Err: err}
		}
		return fmt.Errorf("wait %s: %w", binary, err)
	}
	return nil
}

type chunkWriter struct {
	mu sync.Mutex
	fn func([]byte)
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	if w.fn == nil || len(p) == 0 {
		return len(p), nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fn(p)
	return len(p), nil
}
