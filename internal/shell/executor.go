// Package shell runs shell command lines with a bounded number of retries.
//
// A Runner hands each command line verbatim to `sh -c`. The string is not
// parsed or escaped here, so anything the caller interpolates into it is
// executed by the shell.
package shell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"
)

// DefaultShell is the interpreter used when ShellExecutor.Shell is empty.
const DefaultShell = "/bin/sh"

// waitDelay bounds how long Execute waits for inherited pipes to close after
// the shell is killed; grandchildren may keep them open.
const waitDelay = time.Second

// CommandResult is the captured outcome of one process invocation.
type CommandResult struct {
	ExitStatus int
	Stdout     []byte
	Stderr     []byte
}

// Success reports whether the process exited with status zero.
func (r CommandResult) Success() bool {
	return r.ExitStatus == 0
}

// CommandExecutor abstracts process execution for testability.
//
// Execute must return a non-nil error only when the process could not be
// run at all (missing shell, cancelled context). A process that ran and
// exited non-zero is reported through CommandResult.ExitStatus.
type CommandExecutor interface {
	Execute(ctx context.Context, commandLine string) (CommandResult, error)
}

// ShellExecutor executes command lines through a shell interpreter.
type ShellExecutor struct {
	Shell   string   // interpreter path, DefaultShell when empty
	WorkDir string   // working directory, current dir when empty
	Env     []string // extra KEY=VALUE entries appended to os.Environ()
}

// NewShellExecutor creates an executor running commands in workDir.
func NewShellExecutor(workDir string) *ShellExecutor {
	return &ShellExecutor{WorkDir: workDir}
}

// Execute runs `<shell> -c commandLine` and blocks until it exits.
func (e *ShellExecutor) Execute(ctx context.Context, commandLine string) (CommandResult, error) {
	shell := e.Shell
	if shell == "" {
		shell = DefaultShell
	}

	cmd := exec.CommandContext(ctx, shell, "-c", commandLine)
	if e.WorkDir != "" {
		cmd.Dir = e.WorkDir
	}
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}

	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := CommandResult{
		ExitStatus: exitStatusFrom(err, cmd.ProcessState),
		Stdout:     stdout.Bytes(),
		Stderr:     stderr.Bytes(),
	}

	var exitErr *exec.ExitError
	if err != nil && errors.As(err, &exitErr) && ctx.Err() == nil {
		// The process ran; its status carries the failure.
		return res, nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		return res, err
	}
	return res, nil
}

func exitStatusFrom(waitErr error, state *os.ProcessState) int {
	if state != nil {
		if code := state.ExitCode(); code >= 0 || waitErr == nil {
			return code
		}
	}
	if waitErr == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) && exitErr.ProcessState != nil {
		if code := exitErr.ProcessState.ExitCode(); code >= 0 {
			return code
		}
	}
	return -1
}
