// Package logger provides named loggers that fan records out to a console
// sink and an optional file sink.
//
// Every line has the form
//
//	2024-05-01 13:04:05,123 - name - LEVEL - message
//
// Loggers are obtained from a Registry, which hands back the same *Logger for
// the same name so sinks never pile up across repeated lookups.
package logger

import (
	"fmt"
	"sync"
	"time"
)

// TimestampLayout is the time format of the leading field of a log line.
const TimestampLayout = "2006-01-02 15:04:05,000"

// Record is a single log entry before formatting.
type Record struct {
	Time    time.Time
	Name    string
	Level   Level
	Message string
}

func (r Record) format(level string) string {
	return fmt.Sprintf("%s - %s - %s - %s", r.Time.Format(TimestampLayout), r.Name, level, r.Message)
}

// Logger writes records at or above its level to each of its sinks.
// It is safe for concurrent use.
type Logger struct {
	name  string
	level Level
	now   func() time.Time

	mu    sync.RWMutex
	sinks []Sink
	files map[string]struct{}
}

func newLogger(name string, level Level) *Logger {
	return &Logger{
		name:  name,
		level: level,
		now:   time.Now,
		files: make(map[string]struct{}),
	}
}

// Name returns the registry key of the logger.
func (l *Logger) Name() string {
	return l.name
}

// Sinks returns a snapshot of the attached sinks.
func (l *Logger) Sinks() []Sink {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Sink, len(l.sinks))
	copy(out, l.sinks)
	return out
}

func (l *Logger) addSink(s Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if fs, ok := s.(*FileSink); ok {
		l.files[fs.Path()] = struct{}{}
	}
	l.sinks = append(l.sinks, s)
}

func (l *Logger) hasFile(path string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.files[path]
	return ok
}

// Log emits message at level. Sink write errors are dropped; logging never
// fails the caller.
func (l *Logger) Log(level Level, message string) {
	if l == nil || level < l.level {
		return
	}
	r := Record{Time: l.now(), Name: l.name, Level: level, Message: message}

	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, s := range l.sinks {
		_ = s.Write(r)
	}
}

func (l *Logger) Trace(msg string) { l.Log(LevelTrace, msg) }
func (l *Logger) Debug(msg string) { l.Log(LevelDebug, msg) }
func (l *Logger) Info(msg string)  { l.Log(LevelInfo, msg) }
func (l *Logger) Warn(msg string)  { l.Log(LevelWarn, msg) }
func (l *Logger) Error(msg string) { l.Log(LevelError, msg) }

func (l *Logger) Debugf(format string, args ...any) { l.Log(LevelDebug, fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...any)  { l.Log(LevelInfo, fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...any)  { l.Log(LevelWarn, fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...any) { l.Log(LevelError, fmt.Sprintf(format, args...)) }

// Close closes every sink and detaches them.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, s := range l.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.sinks = nil
	l.files = make(map[string]struct{})
	return firstErr
}
