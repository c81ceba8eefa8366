package shell

import (
	"context"
	"time"
)

// Attempt describes one execution inside a Run call.
type Attempt struct {
	RunID       string
	Command     string
	Number      int // 1-based
	ExitStatus  int
	StdoutBytes int
	StderrBytes int
	Err         string // spawn or context error, empty when the process ran
	StartedAt   time.Time
	Duration    time.Duration
}

// Recorder persists attempts, e.g. to the history journal.
// Record errors are logged by the runner and otherwise ignored.
type Recorder interface {
	Record(ctx context.Context, a Attempt) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, a Attempt) error

func (f RecorderFunc) Record(ctx context.Context, a Attempt) error {
	return f(ctx, a)
}
