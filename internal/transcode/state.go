package transcode

import "time"

// State is the runner's lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether s ends a job.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// Result is the outcome of one job. CapturedOutput holds everything the child
// wrote to stdout and stderr, merged in arrival order.
type Result struct {
	JobID          string
	InputPath      string
	OutputPath     string
	Preset         string
	ExitCode       int
	Succeeded      bool
	CapturedOutput string
	State          State
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Elapsed is the wall time between start and finish.
func (r Result) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Snapshot is a point-in-time view of the runner delivered to listeners.
type Snapshot struct {
	JobID      string
	State      State
	InputPath  string
	OutputPath string
	Duration   time.Duration
	Position   time.Duration
	Percent    float64
}
