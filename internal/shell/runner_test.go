package shell

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedExecutor replays queued results and counts calls.
type scriptedExecutor struct {
	mu      sync.Mutex
	results []CommandResult
	errs    []error
	calls   int
	lines   []string
}

func (s *scriptedExecutor) Execute(ctx context.Context, commandLine string) (CommandResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	s.lines = append(s.lines, commandLine)

	var res CommandResult
	var err error
	if len(s.results) > 0 {
		res = s.results[0]
		s.results = s.results[1:]
	} else {
		res = CommandResult{ExitStatus: 1}
	}
	if len(s.errs) > 0 {
		err = s.errs[0]
		s.errs = s.errs[1:]
	}
	return res, err
}

func newTestRunner(exec CommandExecutor, maxRetries int) (*Runner, *bytes.Buffer, *bytes.Buffer) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	return &Runner{
		Executor:   exec,
		MaxRetries: maxRetries,
		Stdout:     stdout,
		Stderr:     stderr,
	}, stdout, stderr
}

func TestRunAttemptCounts(t *testing.T) {
	tests := []struct {
		name         string
		maxRetries   int
		results      []CommandResult
		wantAttempts int
		wantOK       bool
	}{
		{
			name:         "success on first attempt",
			maxRetries:   3,
			results:      []CommandResult{{ExitStatus: 0, Stdout: []byte("ok\n")}},
			wantAttempts: 1,
			wantOK:       true,
		},
		{
			name:         "always failing runs retries plus one",
			maxRetries:   3,
			wantAttempts: 4,
		},
		{
			name:         "zero retries runs once",
			maxRetries:   0,
			wantAttempts: 1,
		},
		{
			name:         "negative retries runs once",
			maxRetries:   -2,
			wantAttempts: 1,
		},
		{
			name:       "succeeds on third attempt",
			maxRetries: 3,
			results: []CommandResult{
				{ExitStatus: 2},
				{ExitStatus: 2},
				{ExitStatus: 0, Stdout: []byte("late")},
			},
			wantAttempts: 3,
			wantOK:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &scriptedExecutor{results: tt.results}
			r, stdout, stderr := newTestRunner(exec, tt.maxRetries)

			out := r.RunResult(context.Background(), "do-thing")

			assert.Equal(t, tt.wantAttempts, exec.calls)
			assert.Equal(t, tt.wantAttempts, out.Attempts)
			assert.Equal(t, tt.wantOK, out.OK)
			assert.Equal(t, tt.wantAttempts, strings.Count(stdout.String(), "run do-thing\n"))
			if tt.wantOK {
				assert.Empty(t, stderr.String())
			} else {
				assert.Nil(t, out.Stdout)
				assert.Equal(t, "do-thing Error\n", stderr.String())
			}
		})
	}
}

func TestRunReturnsStdoutOfSuccessfulAttempt(t *testing.T) {
	exec := &scriptedExecutor{results: []CommandResult{
		{ExitStatus: 1, Stdout: []byte("nope")},
		{ExitStatus: 0, Stdout: []byte("payload"), Stderr: []byte("noise")},
	}}
	r, _, _ := newTestRunner(exec, 1)

	stdout, ok := r.Run(context.Background(), "cmd")
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), stdout)
}

func TestRunSpawnErrorCountsAsFailure(t *testing.T) {
	spawn := errors.New("exec: no such shell")
	exec := &scriptedExecutor{
		results: []CommandResult{{ExitStatus: -1}, {ExitStatus: 0}},
		errs:    []error{spawn, nil},
	}
	r, _, _ := newTestRunner(exec, 2)

	out := r.RunResult(context.Background(), "cmd")
	assert.True(t, out.OK)
	assert.Equal(t, 2, out.Attempts)
}

func TestRunCancelledContext(t *testing.T) {
	exec := &scriptedExecutor{}
	r, stdout, stderr := newTestRunner(exec, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := r.RunResult(ctx, "cmd")
	assert.False(t, out.OK)
	assert.Equal(t, 0, exec.calls)
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Empty(t, stdout.String())
	assert.Equal(t, "cmd Error\n", stderr.String())
}

func TestRunDelayIsInterruptible(t *testing.T) {
	exec := &scriptedExecutor{}
	r, _, _ := newTestRunner(exec, 3)
	r.Delay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	out := r.RunResult(ctx, "cmd")
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Equal(t, 1, exec.calls)
	assert.False(t, out.OK)
}

func TestRunRecordsEveryAttempt(t *testing.T) {
	var mu sync.Mutex
	var got []Attempt
	rec := RecorderFunc(func(ctx context.Context, a Attempt) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, a)
		return nil
	})

	exec := &scriptedExecutor{results: []CommandResult{
		{ExitStatus: 3, Stderr: []byte("bad")},
		{ExitStatus: 0, Stdout: []byte("good")},
	}}
	r, _, _ := newTestRunner(exec, 3)
	r.Recorder = rec

	out := r.RunResult(context.Background(), "cmd")
	require.Len(t, got, 2)
	assert.Equal(t, out.RunID, got[0].RunID)
	assert.Equal(t, out.RunID, got[1].RunID)
	assert.Equal(t, 1, got[0].Number)
	assert.Equal(t, 3, got[0].ExitStatus)
	assert.Equal(t, 3, got[0].StderrBytes)
	assert.Equal(t, 2, got[1].Number)
	assert.Equal(t, 4, got[1].StdoutBytes)
}

func TestRunDistinctRunIDs(t *testing.T) {
	r, _, _ := newTestRunner(&scriptedExecutor{results: []CommandResult{{}, {}}}, 0)
	a := r.RunResult(context.Background(), "x")
	b := r.RunResult(context.Background(), "x")
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRunMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	r, _, _ := newTestRunner(&scriptedExecutor{}, 2)
	r.Metrics = m
	r.RunResult(context.Background(), "fails")

	r.Executor = &scriptedExecutor{results: []CommandResult{{ExitStatus: 0}}}
	r.RunResult(context.Background(), "works")

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Attempts.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Attempts.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("exhausted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("success")))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "registering twice must fail")

	path := filepath.Join(t.TempDir(), "dong.prom")
	require.NoError(t, WriteTextfile(path, reg))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	m.observeAttempt("success", 1)
	m.observeRun("success")
}
