package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lipidong/dong/internal/filelock"
)

// FileSink appends records to a log file. Each append holds the file's
// flock so several processes may share one log file without interleaving
// partial lines.
type FileSink struct {
	path  string
	file  *os.File
	lock  *filelock.FileLock
	level Level
	mu    sync.Mutex
}

// NewFileSink opens (creating if needed) path for appending.
// Parent directories are created.
func NewFileSink(path string, level Level) (*FileSink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &FileSink{
		path:  path,
		file:  file,
		lock:  filelock.For(path),
		level: level,
	}, nil
}

// Path returns the log file path.
func (fs *FileSink) Path() string {
	return fs.path
}

func (fs *FileSink) Level() Level {
	return fs.level
}

func (fs *FileSink) Write(r Record) error {
	if r.Level < fs.level {
		return nil
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.file == nil {
		return os.ErrClosed
	}

	if err := fs.lock.Lock(); err != nil {
		return err
	}
	defer fs.lock.Unlock()

	_, err := fs.file.WriteString(r.format(r.Level.String()) + "\n")
	return err
}

// Close flushes and closes the file. Further writes return os.ErrClosed.
func (fs *FileSink) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.file == nil {
		return nil
	}
	if err := fs.file.Sync(); err != nil {
		fs.file.Close()
		fs.file = nil
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	err := fs.file.Close()
	fs.file = nil
	return err
}
