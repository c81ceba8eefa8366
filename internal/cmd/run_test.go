package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, home, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(body), 0644))
}

func TestRunCommand_Success(t *testing.T) {
	useHome(t)
	out, errOut, err := execute(t, "run", "--", "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out, "stdout carries only the command output")
	assert.Contains(t, errOut, "run echo hello\n")
}

func TestRunCommand_Exhausted(t *testing.T) {
	useHome(t)
	out, errOut, err := execute(t, "run", "--retries", "2", "--", "false")
	require.Error(t, err)
	assert.ErrorIs(t, err, errCommandFailed)
	assert.Contains(t, err.Error(), "command failed after 3 attempt(s)")
	assert.Empty(t, out)
	assert.Equal(t, 3, strings.Count(errOut, "run false\n"))
	assert.Contains(t, errOut, "false Error\n")
	assert.NotContains(t, errOut, "goroutine", "exhausted runs print no stack trace")
}

func TestRunCommand_ConfigRetries(t *testing.T) {
	home := useHome(t)
	writeConfig(t, home, "max_retries: 1\n")

	_, errOut, err := execute(t, "run", "--", "exit 4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 4")
	assert.Equal(t, 2, strings.Count(errOut, "run exit 4\n"))

	// The flag wins over the file.
	_, errOut, err = execute(t, "run", "--retries", "0", "--", "exit 4")
	require.Error(t, err)
	assert.Equal(t, 1, strings.Count(errOut, "run exit 4\n"))
}

func TestRunCommand_LogOnlyPolicySwallowsFailure(t *testing.T) {
	home := useHome(t)
	writeConfig(t, home, "max_retries: 0\nguard:\n  on_failure: log\n")

	_, errOut, err := execute(t, "run", "--", "false")
	require.NoError(t, err)
	assert.Contains(t, errOut, "false Error\n")
	assert.Contains(t, errOut, "command failed")
}

func TestRunCommand_HistoryAndListing(t *testing.T) {
	home := useHome(t)

	_, _, err := execute(t, "run", "--history", "--", "echo", "journal")
	require.NoError(t, err)
	_, _, err = execute(t, "run", "--history", "--retries", "1", "--", "false")
	require.Error(t, err)
	assert.FileExists(t, filepath.Join(home, "history.db"))

	out, _, err := execute(t, "history", "--output", "csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "started,command,attempts,exit,status,duration", lines[0])
	assert.Contains(t, out, ",echo journal,1,0,ok,")
	assert.Contains(t, out, ",false,2,1,failed,")
}

func TestHistoryCommand_Empty(t *testing.T) {
	useHome(t)
	out, _, err := execute(t, "history")
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded.\n", out)
}

func TestRunCommand_MetricsFile(t *testing.T) {
	useHome(t)
	metricsPath := filepath.Join(t.TempDir(), "dong.prom")

	_, _, err := execute(t, "run", "--metrics-file", metricsPath, "--retries", "1", "--", "false")
	require.Error(t, err)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `dong_shell_attempts_total{outcome="failure"} 2`)
	assert.Contains(t, text, `dong_shell_runs_total{outcome="exhausted"} 1`)
}

func TestRunCommand_RequiresCommand(t *testing.T) {
	useHome(t)
	_, _, err := execute(t, "run")
	assert.Error(t, err)
}

func TestGuardPostMortemHook(t *testing.T) {
	home := useHome(t)
	writeConfig(t, home, "guard:\n  post_mortem: goroutines\n")

	_, errOut, err := execute(t, "cat", filepath.Join(home, "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, errOut, "syscall.Errno:\n")
	assert.Contains(t, errOut, "goroutine dump")
}
