package transcode_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"compressum/internal/container"
	"compressum/internal/services"
	"compressum/internal/transcode"
)

type stubExecutor struct {
	chunks []string
	err    error
	calls  atomic.Int32

	mu   sync.Mutex
	args [][]string
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onChunk func([]byte)) error {
	s.calls.Add(1)
	s.mu.Lock()
	s.args = append(s.args, append([]string(nil), args...))
	s.mu.Unlock()
	for _, chunk := range s.chunks {
		onChunk([]byte(chunk))
	}
	return s.err
}

// blockingExecutor runs until released or until its context ends.
type blockingExecutor struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingExecutor() *blockingExecutor {
	return &blockingExecutor{started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingExecutor) Run(ctx context.Context, binary string, args []string, onChunk func([]byte)) error {
	b.calls.Add(1)
	b.once.Do(func() { close(b.started) })
	onChunk([]byte("Duration: 00:00:10.00, start: 0\n"))
	select {
	case <-ctx.Done():
		return &transcode.ExitError{Code: -1, Err: ctx.Err()}
	case <-b.release:
		return nil
	}
}

type recordingRecorder struct {
	mu       sync.Mutex
	started  []transcode.Result
	finished []transcode.Result
	errs     []error
}

func (r *recordingRecorder) Started(_ context.Context, result transcode.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, result)
	return nil
}

func (r *recordingRecorder) Finished(_ context.Context, result transcode.Result, runErr error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, result)
	r.errs = append(r.errs, runErr)
	return errors.New("disk full")
}

func newRunner(t *testing.T, opts ...transcode.Option) *transcode.Runner {
	t.Helper()
	runner, err := transcode.New("/opt/ffmpeg/ffmpeg", opts...)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return runner
}

func waitJob(t *testing.T, job *transcode.Job) (transcode.Result, error) {
	t.Helper()
	select {
	case <-job.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish")
	}
	return job.Wait()
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := transcode.New("  "); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestSubmitEmptyInputNeverSpawns(t *testing.T) {
	exec := &stubExecutor{}
	runner := newRunner(t, transcode.WithExecutor(exec))

	job, err := runner.Submit(context.Background(), transcode.Request{InputPath: "", Format: container.MP4}, nil)
	if !errors.Is(err, services.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if job != nil {
		t.Fatal("expected nil job on validation failure")
	}
	if exec.calls.Load() != 0 {
		t.Fatalf("executor invoked %d times", exec.calls.Load())
	}
	if runner.State() != transcode.StateIdle {
		t.Fatalf("state = %s, want idle", runner.State())
	}
}

func TestSubmitSuccessCapturesOutputAndProgress(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "trip.mov")
	outDir := filepath.Join(dir, "exports")
	exec := &stubExecutor{chunks: []string{
		"ffmpeg version 7.0\n  Dura",
		"tion: 00:00:10.00, start: 0.0\n",
		"frame=1 time=00:00:05.00 speed=1x\r",
		"frame=2 time=00:00:10.00 speed=1x\n",
	}}
	var (
		mu        sync.Mutex
		snapshots []transcode.Snapshot
		samples   []transcode.Sample
	)
	recorder := &recordingRecorder{}
	runner := newRunner(t,
		transcode.WithExecutor(exec),
		transcode.WithRecorder(recorder),
		transcode.WithStateListener(func(s transcode.Snapshot) {
			mu.Lock()
			snapshots = append(snapshots, s)
			mu.Unlock()
		}),
	)

	job, err := runner.Submit(context.Background(), transcode.Request{
		InputPath:       input,
		OutputDirectory: outDir,
		Format:          container.MKV,
		Speed:           transcode.SpeedFast,
	}, func(s transcode.Sample) {
		mu.Lock()
		samples = append(samples, s)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	result, err := waitJob(t, job)
	if err != nil {
		t.Fatalf("job error: %v", err)
	}

	wantOutput := filepath.Join(outDir, "trip_compressed.mkv")
	if !result.Succeeded || result.State != transcode.StateSucceeded || result.ExitCode != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.OutputPath != wantOutput || job.OutputPath != wantOutput {
		t.Fatalf("output = %q, want %q", result.OutputPath, wantOutput)
	}
	if !strings.Contains(result.CapturedOutput, "ffmpeg version 7.0") || !strings.Contains(result.CapturedOutput, "time=00:00:10.00") {
		t.Fatalf("captured output incomplete: %q", result.CapturedOutput)
	}
	wantArgs := []string{"-i", input, "-preset", "ultrafast", wantOutput}
	if !reflect.DeepEqual(exec.args[0], wantArgs) {
		t.Fatalf("args = %#v, want %#v", exec.args[0], wantArgs)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(samples) != 3 || samples[0].Kind != transcode.SampleDuration {
		t.Fatalf("unexpected samples %+v", samples)
	}
	if first, last := snapshots[0], snapshots[len(snapshots)-1]; first.State != transcode.StateRunning || last.State != transcode.StateSucceeded {
		t.Fatalf("unexpected snapshot sequence %+v", snapshots)
	}
	if snap := runner.Snapshot(); snap.Percent != 100 || snap.JobID != job.ID {
		t.Fatalf("unexpected final snapshot %+v", snap)
	}
	if len(recorder.started) != 1 || len(recorder.finished) != 1 || recorder.errs[0] != nil {
		t.Fatalf("recorder not called as expected: %+v", recorder)
	}
}

func TestSubmitNonZeroExitFails(t *testing.T) {
	input := writeInput(t, t.TempDir(), "bad.mov")
	exec := &stubExecutor{
		chunks: []string{"bad.mov: Invalid data found when processing input\n"},
		err:    &transcode.ExitError{Code: 1},
	}
	runner := newRunner(t, transcode.WithExecutor(exec))

	result, err := runner.Run(context.Background(), transcode.Request{InputPath: input, Format: container.MP4}, nil)
	if !errors.Is(err, services.ErrNonZeroExit) {
		t.Fatalf("expected ErrNonZeroExit, got %v", err)
	}
	if result.Succeeded || result.ExitCode != 1 || result.State != transcode.StateFailed {
		t.Fatalf("unexpected result %+v", result)
	}
	if !strings.Contains(result.CapturedOutput, "Invalid data found") {
		t.Fatalf("diagnostics not captured: %q", result.CapturedOutput)
	}
	if runner.State() != transcode.StateFailed {
		t.Fatalf("state = %s", runner.State())
	}
}

func TestSubmitSpawnFailureHasNoOutput(t *testing.T) {
	input := writeInput(t, t.TempDir(), "in.mov")
	exec := &stubExecutor{err: errors.New("fork/exec: no such file or directory")}
	runner := newRunner(t, transcode.WithExecutor(exec))

	result, err := runner.Run(context.Background(), transcode.Request{InputPath: input, Format: container.MP4}, nil)
	if !errors.Is(err, services.ErrSpawnFailure) {
		t.Fatalf("expected ErrSpawnFailure, got %v", err)
	}
	if result.CapturedOutput != "" || result.Succeeded {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestSubmitWhileRunningIsRejected(t *testing.T) {
	input := writeInput(t, t.TempDir(), "in.mov")
	exec := newBlockingExecutor()
	runner := newRunner(t, transcode.WithExecutor(exec))
	req := transcode.Request{InputPath: input, Format: container.MP4}

	first, err := runner.Submit(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	<-exec.started

	if _, err := runner.Submit(context.Background(), req, nil); !errors.Is(err, services.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if snap := runner.Snapshot(); snap.JobID != first.ID || snap.State != transcode.StateRunning {
		t.Fatalf("first job disturbed: %+v", snap)
	}

	close(exec.release)
	result, err := waitJob(t, first)
	if err != nil || !result.Succeeded {
		t.Fatalf("first job should succeed, got %+v err=%v", result, err)
	}
	if exec.calls.Load() != 1 {
		t.Fatalf("executor invoked %d times", exec.calls.Load())
	}

	// A terminal state accepts a new submission.
	stub := &stubExecutor{}
	again := newRunner(t, transcode.WithExecutor(stub))
	if _, err := again.Run(context.Background(), req, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := again.Run(context.Background(), req, nil); err != nil {
		t.Fatalf("second Run after terminal state: %v", err)
	}
	if stub.calls.Load() != 2 {
		t.Fatalf("expected 2 runs, got %d", stub.calls.Load())
	}
}

func TestCancelEndsInCancelledState(t *testing.T) {
	input := writeInput(t, t.TempDir(), "in.mov")
	exec := newBlockingExecutor()
	runner := newRunner(t, transcode.WithExecutor(exec))

	job, err := runner.Submit(context.Background(), transcode.Request{InputPath: input, Format: container.MP4}, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-exec.started
	job.Cancel()

	result, err := waitJob(t, job)
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if result.State != transcode.StateCancelled || runner.State() != transcode.StateCancelled {
		t.Fatalf("unexpected state %s / %s", result.State, runner.State())
	}
	if services.ExitStatus(err) != services.ExitCancelled {
		t.Fatalf("exit status = %d", services.ExitStatus(err))
	}
}

func TestParentContextCancellationCancelsJob(t *testing.T) {
	input := writeInput(t, t.TempDir(), "in.mov")
	exec := newBlockingExecutor()
	runner := newRunner(t, transcode.WithExecutor(exec))
	ctx, cancel := context.WithCancel(context.Background())

	job, err := runner.Submit(ctx, transcode.Request{InputPath: input, Format: container.MP4}, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-exec.started
	cancel()
	if _, err := waitJob(t, job); !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestTimeoutFailsJob(t *testing.T) {
	input := writeInput(t, t.TempDir(), "in.mov")
	exec := newBlockingExecutor()
	runner := newRunner(t, transcode.WithExecutor(exec), transcode.WithTimeout(20*time.Millisecond))

	job, err := runner.Submit(context.Background(), transcode.Request{InputPath: input, Format: container.MP4}, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	result, err := waitJob(t, job)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if result.State != transcode.StateFailed {
		t.Fatalf("state = %s, want failed", result.State)
	}
	if !strings.Contains(result.CapturedOutput, "Duration: 00:00:10.00") {
		t.Fatalf("partial output lost: %q", result.CapturedOutput)
	}
}

func TestLockRejectsSecondRunner(t *testing.T) {
	input := writeInput(t, t.TempDir(), "in.mov")
	lockPath := filepath.Join(t.TempDir(), "compressum.lock")
	exec := newBlockingExecutor()
	first := newRunner(t, transcode.WithExecutor(exec), transcode.WithLock(lockPath))
	second := newRunner(t, transcode.WithExecutor(&stubExecutor{}), transcode.WithLock(lockPath))
	req := transcode.Request{InputPath: input, Format: container.MP4}

	job, err := first.Submit(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-exec.started
	if _, err := second.Submit(context.Background(), req, nil); !errors.Is(err, services.ErrBusy) {
		t.Fatalf("expected ErrBusy from second runner, got %v", err)
	}
	close(exec.release)
	if _, err := waitJob(t, job); err != nil {
		t.Fatalf("first job: %v", err)
	}
	if _, err := second.Run(context.Background(), req, nil); err != nil {
		t.Fatalf("second runner after release: %v", err)
	}
}

func TestTail(t *testing.T) {
	if got := transcode.Tail("short", 10); got != "short" {
		t.Fatalf("Tail short = %q", got)
	}
	if got := transcode.Tail("line one\nline two\nend", 13); got != "line two\nend" {
		t.Fatalf("Tail = %q", got)
	}
}
