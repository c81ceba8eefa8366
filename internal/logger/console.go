package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Sink receives formatted records from a Logger.
type Sink interface {
	// Write emits one record. Records below the sink's level are dropped.
	Write(r Record) error
	// Level is the minimum level this sink accepts.
	Level() Level
	// Close releases any resources held by the sink.
	Close() error
}

// ConsoleSink writes records to a stream such as os.Stderr.
// The level name is coloured when the stream is a terminal.
type ConsoleSink struct {
	writer      io.Writer
	level       Level
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleSink creates a console sink writing to w at the given level.
// A nil writer discards everything.
func NewConsoleSink(w io.Writer, level Level) *ConsoleSink {
	return &ConsoleSink{
		writer:      w,
		level:       level,
		colorOutput: isTerminal(w),
	}
}

// isTerminal reports whether w is a TTY that should get colour.
// NO_COLOR disables colour through fatih/color.
func isTerminal(w io.Writer) bool {
	if w == nil || color.NoColor {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (cs *ConsoleSink) Level() Level {
	return cs.level
}

func (cs *ConsoleSink) Write(r Record) error {
	if cs.writer == nil || r.Level < cs.level {
		return nil
	}

	level := r.Level.String()
	if cs.colorOutput {
		level = levelColor(r.Level).Sprint(level)
	}

	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	_, err := fmt.Fprintln(cs.writer, r.format(level))
	return err
}

// Close is a no-op; the console stream belongs to the caller.
func (cs *ConsoleSink) Close() error {
	return nil
}

func levelColor(l Level) *color.Color {
	switch l {
	case LevelTrace:
		return color.New(color.FgHiBlack)
	case LevelDebug:
		return color.New(color.FgCyan)
	case LevelInfo:
		return color.New(color.FgBlue)
	case LevelWarn:
		return color.New(color.FgYellow)
	case LevelError:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.Reset)
	}
}
