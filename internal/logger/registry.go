package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Options configure a logger on first creation.
type Options struct {
	// File, when set, adds a file sink appending to this path.
	File string
	// Quiet raises the console sink to ERROR.
	Quiet bool
	// Level is the logger's minimum level (default "info").
	Level string
	// Console is the console stream (default os.Stderr).
	Console io.Writer
}

// Registry owns named loggers. The zero value is not usable; call NewRegistry.
type Registry struct {
	mu      sync.Mutex
	loggers map[string]*Logger
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{loggers: make(map[string]*Logger)}
}

// GetOrCreate returns the logger registered under name, creating it with
// opts the first time. Later calls return the same *Logger and ignore
// opts, except that a File not yet attached to the logger is added once.
func (r *Registry) GetOrCreate(name string, opts Options) (*Logger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.loggers[name]; ok {
		if opts.File != "" && !l.hasFile(opts.File) {
			fs, err := NewFileSink(opts.File, LevelTrace)
			if err != nil {
				return l, err
			}
			l.addSink(fs)
		}
		return l, nil
	}

	level, _ := ParseLevel(opts.Level)
	l := newLogger(name, level)

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	consoleLevel := LevelTrace
	if opts.Quiet {
		consoleLevel = LevelError
	}
	l.addSink(NewConsoleSink(console, consoleLevel))

	if opts.File != "" {
		fs, err := NewFileSink(opts.File, LevelTrace)
		if err != nil {
			return nil, fmt.Errorf("logger %q: %w", name, err)
		}
		l.addSink(fs)
	}

	r.loggers[name] = l
	return l, nil
}

// Lookup returns an existing logger without creating one.
func (r *Registry) Lookup(name string) (*Logger, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loggers[name]
	return l, ok
}

// Len returns the number of registered loggers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.loggers)
}

// Close closes every registered logger and empties the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for name, l := range r.loggers {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.loggers, name)
	}
	return firstErr
}
