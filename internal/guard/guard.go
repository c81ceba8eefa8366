// Package guard wraps operations so that a failure, whether a returned error
// or a panic, is captured, printed, and handled according to a Policy.
//
// With the default LogOnly policy a failure never reaches the caller: the
// wrapped call returns the zero value and a nil error, and the only trace of
// the failure is the diagnostic block written to the policy's Out stream.
// That suits throwaway scripts; code that expects normal error propagation
// should use Rethrow.
package guard

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"

	pkgerrors "github.com/pkg/errors"
)

// Mode selects what happens after a failure is captured.
type Mode int

const (
	// LogOnly prints the diagnostic and swallows the failure.
	LogOnly Mode = iota
	// Rethrow prints the diagnostic and hands the failure back: the error
	// is returned, a panic is re-raised with its original value.
	Rethrow
	// InvokeHandler passes the failure to Policy.Handler instead of printing
	// it, then swallows it.
	InvokeHandler
)

// String returns the config spelling of m.
func (m Mode) String() string {
	switch m {
	case LogOnly:
		return "log"
	case Rethrow:
		return "rethrow"
	case InvokeHandler:
		return "handler"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts "log", "rethrow" or "handler" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "log", "log_only":
		return LogOnly, nil
	case "rethrow":
		return Rethrow, nil
	case "handler", "invoke_handler":
		return InvokeHandler, nil
	default:
		return LogOnly, fmt.Errorf("unknown failure mode %q", s)
	}
}

// CapturedFailure describes one intercepted failure.
type CapturedFailure struct {
	Kind           string // Go type of the error cause or panic value
	Message        string
	FormattedTrace string
	Panicked       bool

	err   error
	value any
}

// Err returns the captured error. For panics the value is wrapped in a
// *PanicError.
func (f *CapturedFailure) Err() error {
	if f.err != nil {
		return f.err
	}
	return &PanicError{Value: f.value, Stack: f.FormattedTrace}
}

// String renders the diagnostic block exactly as Report writes it.
func (f *CapturedFailure) String() string {
	return fmt.Sprintf("\n%s\n%s:\n%s", f.FormattedTrace, f.Kind, f.Message)
}

// PanicError carries a recovered panic value as an error.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Policy configures a wrapper.
type Policy struct {
	OnFailure Mode
	// Handler receives failures in InvokeHandler mode. A nil handler makes
	// InvokeHandler behave like LogOnly; a panicking handler is contained
	// and the failure is reported to Out instead.
	Handler func(*CapturedFailure)
	// DropIntoDebugger runs PostMortem after the failure is reported.
	DropIntoDebugger bool
	// PostMortem is a best-effort inspection hook; a nil hook means none is
	// available, and a panicking hook is contained.
	PostMortem func(*CapturedFailure)
	// Out receives diagnostics, os.Stderr when nil.
	Out io.Writer
}

// DefaultPolicy swallows failures, prints to stderr and asks for a
// post-mortem, which is a no-op until a PostMortem hook is installed.
func DefaultPolicy() Policy {
	return Policy{OnFailure: LogOnly, DropIntoDebugger: true}
}

func (p Policy) out() io.Writer {
	if p.Out != nil {
		return p.Out
	}
	return os.Stderr
}

// Call runs fn under p. See WrapValue.
func Call[T any](p Policy, fn func() (T, error)) (result T, err error) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		failure := capturePanic(v)
		p.handle(failure)
		if p.OnFailure == Rethrow {
			panic(v)
		}
		var zero T
		result, err = zero, nil
	}()

	result, err = fn()
	if err == nil {
		return result, nil
	}

	p.handle(captureError(err))
	var zero T
	if p.OnFailure == Rethrow {
		return zero, err
	}
	return zero, nil
}

// Wrap returns fn guarded by p.
func Wrap(p Policy, fn func() error) func() error {
	return func() error {
		_, err := Call(p, func() (struct{}, error) {
			return struct{}{}, fn()
		})
		return err
	}
}

// WrapValue returns fn guarded by p. On success the result passes through
// unchanged and nothing is written. On failure the result is the zero value.
func WrapValue[T any](p Policy, fn func() (T, error)) func() (T, error) {
	return func() (T, error) {
		return Call(p, fn)
	}
}

// WrapFunc is WrapValue for single-argument operations.
func WrapFunc[A, T any](p Policy, fn func(A) (T, error)) func(A) (T, error) {
	return func(arg A) (T, error) {
		return Call(p, func() (T, error) {
			return fn(arg)
		})
	}
}

func (p Policy) handle(f *CapturedFailure) {
	if p.OnFailure != InvokeHandler || p.Handler == nil || !runHook(p.Handler, f) {
		Report(p.out(), f)
	}
	if p.DropIntoDebugger && p.PostMortem != nil {
		runHook(p.PostMortem, f)
	}
}

// runHook calls hook with f, containing any panic. It reports whether the
// hook returned normally.
func runHook(hook func(*CapturedFailure), f *CapturedFailure) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	hook(f)
	return true
}

// Report writes the diagnostic block for f to w.
func Report(w io.Writer, f *CapturedFailure) {
	fmt.Fprintln(w, f.String())
}

// Capture builds a CapturedFailure from err without reporting it.
func Capture(err error) *CapturedFailure {
	if err == nil {
		return nil
	}
	return captureError(err)
}

func captureError(err error) *CapturedFailure {
	return &CapturedFailure{
		Kind:           fmt.Sprintf("%T", rootCause(err)),
		Message:        err.Error(),
		FormattedTrace: errorTrace(err),
		err:            err,
	}
}

func capturePanic(v any) *CapturedFailure {
	kind := fmt.Sprintf("%T", v)
	if err, ok := v.(error); ok {
		kind = fmt.Sprintf("%T", rootCause(err))
	}
	return &CapturedFailure{
		Kind:           kind,
		Message:        fmt.Sprint(v),
		FormattedTrace: string(debug.Stack()),
		Panicked:       true,
		value:          v,
	}
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// errorTrace prefers the stack recorded when the error was created by
// github.com/pkg/errors. Otherwise the current goroutine stack is used.
func errorTrace(err error) string {
	var deepest stackTracer
	for e := err; e != nil; e = errors.Unwrap(e) {
		if st, ok := e.(stackTracer); ok {
			deepest = st
		}
	}
	if deepest != nil {
		return fmt.Sprintf("%+v", deepest.StackTrace())
	}
	return string(debug.Stack())
}

// DumpGoroutines is a PostMortem hook that writes every goroutine's stack
// to w.
func DumpGoroutines(w io.Writer) func(*CapturedFailure) {
	return func(*CapturedFailure) {
		buf := make([]byte, 1<<16)
		for {
			n := runtime.Stack(buf, true)
			if n < len(buf) {
				buf = buf[:n]
				break
			}
			buf = make([]byte, 2*len(buf))
		}
		fmt.Fprintf(w, "\n--- goroutine dump ---\n%s\n", buf)
	}
}
