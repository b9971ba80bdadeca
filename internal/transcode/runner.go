package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"compressum/internal/logging"
	"compressum/internal/services"
)

// Recorder persists job lifecycle events. Failures are logged and otherwise
// ignored.
type Recorder interface {
	Started(ctx context.Context, result Result) error
	Finished(ctx context.Context, result Result, runErr error) error
}

// Option configures the runner.
type Option func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithLogger sets the base logger; the runner tags it with its component.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logging.NewComponentLogger(logger, "transcode")
		}
	}
}

// WithPresets overrides the encoder preset pair.
func WithPresets(p Presets) Option {
	return func(r *Runner) { r.presets = p }
}

// WithTimeout fails jobs that run longer than d. Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithStateListener registers fn to receive a Snapshot on every state change
// and progress sample.
func WithStateListener(fn func(Snapshot)) Option {
	return func(r *Runner) { r.listener = fn }
}

// WithRecorder registers a history recorder.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithLock guards job execution with an exclusive file lock at path so that
// only one compressum process transcodes at a time.
func WithLock(path string) Option {
	return func(r *Runner) {
		if path = strings.TrimSpace(path); path != "" {
			r.lock = flock.New(path)
		}
	}
}

// errJobTimeout is the cancellation cause recorded when the runner's own
// timeout fires.
var errJobTimeout = errors.New("job timeout")

// Runner executes at most one transcode job at a time.
type Runner struct {
	binary   string
	exec     Executor
	logger   *slog.Logger
	presets  Presets
	timeout  time.Duration
	listener func(Snapshot)
	recorder Recorder
	lock     *flock.Flock

	mu       sync.Mutex
	snapshot Snapshot
}

// New constructs a runner that invokes binary.
func New(binary string, opts ...Option) (*Runner, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, services.Wrap(services.ErrConfiguration, "transcode", "init", "transcoder binary required", nil)
	}
	r := &Runner{
		binary:   binary,
		exec:     commandExecutor{},
		logger:   logging.NewComponentLogger(nil, "transcode"),
		presets:  DefaultPresets,
		snapshot: Snapshot{State: StateIdle},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Binary returns the transcoder path the runner invokes.
func (r *Runner) Binary() string { return r.binary }

// State returns the current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot.State
}

// Snapshot returns the latest view of the current or last job.
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot
}

// Job is a handle on a submitted transcode.
type Job struct {
	ID         string
	Request    Request
	OutputPath string
	Preset     string

	cancel context.CancelCauseFunc
	done   chan struct{}
	result Result
	err    error
}

// Done is closed once the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job finishes and returns its result. The error is
// nil only for a successful job.
func (j *Job) Wait() (Result, error) {
	<-j.done
	return j.result, j.err
}

// Cancel asks the job to stop. The child process is killed and the job ends
// in StateCancelled unless it already finished.
func (j *Job) Cancel() {
	j.cancel(services.ErrCancelled)
}

// Run submits req and waits for it to finish.
func (r *Runner) Run(ctx context.Context, req Request, progress func(Sample)) (Result, error) {
	job, err := r.Submit(ctx, req, progress)
	if err != nil {
		return Result{}, err
	}
	return job.Wait()
}

// Submit validates req and starts the transcoder. It returns as soon as the
// child has been handed to a goroutine; validation and busy failures are
// returned synchronously and nothing is spawned.
func (r *Runner) Submit(ctx context.Context, req Request, progress func(Sample)) (*Job, error) {
	resolved, err := req.Resolve()
	if err != nil {
		return nil, err
	}
	preset := r.presets.Name(resolved.Speed)

	r.mu.Lock()
	if r.snapshot.State == StateRunning {
		r.mu.Unlock()
		return nil, services.Wrap(services.ErrBusy, "transcode", "submit", "a job is already running", nil)
	}
	if r.lock != nil {
		locked, lockErr := r.lock.TryLock()
		if lockErr != nil {
			r.mu.Unlock()
			return nil, services.Wrap(services.ErrBusy, "transcode", "submit", "acquire job lock", lockErr)
		}
		if !locked {
			r.mu.Unlock()
			return nil, services.Wrap(services.ErrBusy, "transcode", "submit", "another compressum process is transcoding", nil)
		}
	}

	jobCtx, cancel := context.WithCancelCause(ctx)
	job := &Job{
		ID:         uuid.NewString(),
		Request:    resolved,
		OutputPath: resolved.OutputPath(),
		Preset:     preset,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	job.result = Result{
		JobID:      job.ID,
		InputPath:  resolved.InputPath,
		OutputPath: job.OutputPath,
		Preset:     preset,
		State:      StateRunning,
		StartedAt:  time.Now().UTC(),
	}
	r.snapshot = Snapshot{
		JobID:      job.ID,
		State:      StateRunning,
		InputPath:  resolved.InputPath,
		OutputPath: job.OutputPath,
	}
	snap := r.snapshot
	r.mu.Unlock()

	jobCtx = services.WithJobID(jobCtx, job.ID)
	logger := logging.WithContext(jobCtx, r.logger)
	logger.Info("transcode started",
		logging.String(logging.FieldEventType, "transcode_start"),
		logging.String("input", resolved.InputPath),
		logging.String("output", job.OutputPath),
		logging.String("format", resolved.Format.Label()),
		logging.String("preset", preset),
		logging.String("binary", r.binary),
	)
	r.notify(snap)
	if r.recorder != nil {
		if err := r.recorder.Started(context.WithoutCancel(jobCtx), job.result); err != nil {
			logging.WarnWithContext(logger, "history record failed", "history_write",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check state_dir permissions"),
			)
		}
	}

	go r.run(jobCtx, job, logger, progress)
	return job, nil
}

func (r *Runner) run(ctx context.Context, job *Job, logger *slog.Logger, progress func(Sample)) {
	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeoutCause(ctx, r.timeout, errJobTimeout)
		defer cancel()
	}

	var (
		captured bytes.Buffer
		scanner  Scanner
		sampler  = logging.NewProgressSampler(5)
	)
	handle := func(samples []Sample) {
		for _, sample := range samples {
			r.applySample(sample, logger, sampler)
			if progress != nil {
				progress(sample)
			}
		}
	}
	runErr := r.exec.Run(runCtx, r.binary, job.Request.Args(job.Preset), func(chunk []byte) {
		captured.Write(chunk)
		handle(scanner.Feed(chunk))
	})
	handle(scanner.Flush())

	result := job.result
	result.FinishedAt = time.Now().UTC()
	result.CapturedOutput = captured.String()
	var err error
	var exitErr *ExitError
	switch {
	case runErr == nil:
		result.State = StateSucceeded
		result.Succeeded = true
	case runCtx.Err() != nil && isTimeout(runCtx):
		result.State = StateFailed
		result.ExitCode = exitCode(runErr)
		err = services.Wrap(services.ErrTimeout, "transcode", "run", "time limit exceeded", runErr)
	case runCtx.Err() != nil:
		result.State = StateCancelled
		result.ExitCode = exitCode(runErr)
		err = services.Wrap(services.ErrCancelled, "transcode", "run", "job cancelled", context.Cause(runCtx))
	case errors.As(runErr, &exitErr):
		result.State = StateFailed
		result.ExitCode = exitErr.Code
		err = services.Wrap(services.ErrNonZeroExit, "transcode", "run", fmt.Sprintf("ffmpeg exited with status %d", exitErr.Code), runErr)
	default:
		result.State = StateFailed
		result.ExitCode = -1
		result.CapturedOutput = ""
		err = services.Wrap(services.ErrSpawnFailure, "transcode", "run", "launch transcoder", runErr)
	}

	if r.lock != nil {
		if unlockErr := r.lock.Unlock(); unlockErr != nil {
			logger.Warn("release job lock failed", logging.Error(unlockErr))
		}
	}

	r.logResult(logger, result, err)
	if r.recorder != nil {
		if recErr := r.recorder.Finished(context.WithoutCancel(ctx), result, err); recErr != nil {
			logging.WarnWithContext(logger, "history record failed", "history_write",
				logging.Error(recErr),
				logging.String(logging.FieldErrorHint, "check state_dir permissions"),
			)
		}
	}

	r.mu.Lock()
	r.snapshot.State = result.State
	snap := r.snapshot
	r.mu.Unlock()

	job.result = result
	job.err = err
	job.cancel(nil)
	r.notify(snap)
	close(job.done)
}

func (r *Runner) applySample(sample Sample, logger *slog.Logger, sampler *logging.ProgressSampler) {
	r.mu.Lock()
	switch sample.Kind {
	case SampleDuration:
		r.snapshot.Duration = sample.Value
	case SamplePosition:
		r.snapshot.Position = sample.Value
	}
	r.snapshot.Percent = Percent(r.snapshot.Position, r.snapshot.Duration)
	snap := r.snapshot
	r.mu.Unlock()

	if sample.Kind == SamplePosition && snap.Duration > 0 && sampler.ShouldLog(snap.Percent, "transcoding") {
		logger.Info("transcode progress",
			logging.String(logging.FieldEventType, "transcode_progress"),
			logging.Float64("percent", snap.Percent),
			logging.Duration("position", snap.Position),
			logging.Duration("duration", snap.Duration),
		)
	}
	r.notify(snap)
}

func (r *Runner) logResult(logger *slog.Logger, result Result, err error) {
	attrs := []logging.Attr{
		logging.String("state", string(result.State)),
		logging.Int("exit_code", result.ExitCode),
		logging.Duration("elapsed", result.Elapsed()),
		logging.String("output", result.OutputPath),
	}
	switch result.State {
	case StateSucceeded:
		logger.Info("transcode finished", logging.Args(append(attrs, logging.String(logging.FieldEventType, "transcode_complete"))...)...)
	case StateCancelled:
		logger.Warn("transcode cancelled", logging.Args(append(attrs, logging.String(logging.FieldEventType, "transcode_cancelled"))...)...)
	default:
		attrs = append(attrs, logging.Error(err), logging.String("output_tail", Tail(result.CapturedOutput, 512)))
		hint := "inspect ffmpeg output for the failure reason"
		if errors.Is(err, services.ErrSpawnFailure) {
			hint = "run compressum doctor to verify the ffmpeg binary"
		}
		logging.ErrorWithContext(logger, "transcode failed", "transcode_failed",
			append(attrs, logging.String(logging.FieldErrorHint, hint))...)
	}
}

func (r *Runner) notify(snap Snapshot) {
	if r.listener != nil {
		r.listener(snap)
	}
}

func isTimeout(ctx context.Context) bool {
	cause := context.Cause(ctx)
	return errors.Is(cause, errJobTimeout) || errors.Is(cause, context.DeadlineExceeded)
}

func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if err == nil {
		return 0
	}
	return -1
}

// Tail returns at most the last n bytes of s, starting on a line boundary
// when one is available.
func Tail(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	tail := s[len(s)-n:]
	if idx := strings.IndexByte(tail, '\n'); idx >= 0 && idx < len(tail)-1 {
		return tail[idx+1:]
	}
	return tail
}
