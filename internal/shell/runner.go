package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/lipidong/dong/internal/logger"
)

// DefaultMaxRetries is the retry bound used by NewRunner.
const DefaultMaxRetries = 3

// Outcome is the full result of a Run call.
type Outcome struct {
	RunID    string
	Attempts int
	// Last is the result of the final attempt.
	Last CommandResult
	// OK is false when every attempt failed; Stdout is then nil.
	OK     bool
	Stdout []byte
	// Err holds the last spawn or context error, if any.
	Err error
}

// Runner executes a command line and retries on non-zero exit status.
//
// With MaxRetries = n a persistently failing command runs n+1 times; n <= 0
// means a single attempt. Retries are immediate unless Delay is set.
// A Runner holds no per-call state and may be shared between goroutines.
type Runner struct {
	Executor   CommandExecutor
	MaxRetries int
	Delay      time.Duration // pause between attempts, zero for none
	Timeout    time.Duration // per-attempt limit, zero for none

	// Stdout receives "run <cmd>" before every attempt; Stderr receives
	// "<cmd> Error" once all attempts failed. Nil writers default to
	// os.Stdout and os.Stderr; use io.Discard to silence them.
	Stdout io.Writer
	Stderr io.Writer

	Logger   *logger.Logger
	Recorder Recorder
	Metrics  *Metrics
}

// NewRunner creates a Runner backed by a ShellExecutor in the current
// directory with the given retry bound.
func NewRunner(maxRetries int) *Runner {
	return &Runner{
		Executor:   NewShellExecutor(""),
		MaxRetries: maxRetries,
	}
}

// Run executes commandLine and returns its stdout when some attempt exits 0.
// ok is false once the retry bound is exhausted or ctx is done; no error is
// raised in either case.
func (r *Runner) Run(ctx context.Context, commandLine string) (stdout []byte, ok bool) {
	out := r.RunResult(ctx, commandLine)
	return out.Stdout, out.OK
}

// RunResult is Run with the attempt count and last result exposed.
func (r *Runner) RunResult(ctx context.Context, commandLine string) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}

	maxAttempts := r.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	out := Outcome{RunID: uuid.NewString()}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 && r.Delay > 0 {
			if err := sleep(ctx, r.Delay); err != nil {
				out.Err = err
				break
			}
		}
		if err := ctx.Err(); err != nil {
			out.Err = err
			break
		}

		fmt.Fprintf(r.stdout(), "run %s\n", commandLine)
		r.Logger.Debugf("attempt %d/%d: %s", attempt, maxAttempts, commandLine)

		res, err := r.execute(ctx, out.RunID, commandLine, attempt)
		out.Attempts = attempt
		out.Last = res
		out.Err = err

		if err == nil && res.Success() {
			out.OK = true
			out.Stdout = res.Stdout
			if out.Stdout == nil {
				out.Stdout = []byte{}
			}
			r.Metrics.observeRun("success")
			return out
		}
		if err != nil && ctx.Err() != nil {
			break
		}
	}

	if ctx.Err() != nil {
		r.Metrics.observeRun("cancelled")
	} else {
		r.Metrics.observeRun("exhausted")
	}
	fmt.Fprintf(r.stderr(), "%s Error\n", commandLine)
	r.Logger.Errorf("%s failed after %d attempt(s), last exit status %d", commandLine, out.Attempts, out.Last.ExitStatus)
	return out
}

func (r *Runner) execute(ctx context.Context, runID, commandLine string, attempt int) (CommandResult, error) {
	execCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	executor := r.Executor
	if executor == nil {
		executor = NewShellExecutor("")
	}

	start := time.Now()
	res, err := executor.Execute(execCtx, commandLine)
	elapsed := time.Since(start)
	if err != nil && res.ExitStatus == 0 {
		res.ExitStatus = -1
	}

	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
		r.Logger.Warnf("attempt %d of %s could not run: %v", attempt, commandLine, err)
	case !res.Success():
		outcome = "failure"
		r.Logger.Debugf("attempt %d of %s exited %d", attempt, commandLine, res.ExitStatus)
	}
	r.Metrics.observeAttempt(outcome, elapsed.Seconds())

	if r.Recorder != nil {
		a := Attempt{
			RunID:       runID,
			Command:     commandLine,
			Number:      attempt,
			ExitStatus:  res.ExitStatus,
			StdoutBytes: len(res.Stdout),
			StderrBytes: len(res.Stderr),
			StartedAt:   start,
			Duration:    elapsed,
		}
		if err != nil {
			a.Err = err.Error()
		}
		// The parent context may be cancelled; the journal entry is still wanted.
		if recErr := r.Recorder.Record(context.WithoutCancel(ctx), a); recErr != nil {
			r.Logger.Warnf("record attempt: %v", recErr)
		}
	}

	return res, err
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr != nil {
		return r.Stderr
	}
	return os.Stderr
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
