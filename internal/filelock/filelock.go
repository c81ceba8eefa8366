// Package filelock serialises file writes across goroutines and processes and
// provides temp-file-and-rename writes so readers never observe partial data.
package filelock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockSuffix is appended to a target path to derive its lock file.
const LockSuffix = ".lock"

// FileLock is an advisory exclusive lock backed by flock(2).
type FileLock struct {
	flock *flock.Flock
	path  string
}

// New returns a lock on the given lock-file path. The file is created on the
// first Lock or TryLock.
func New(path string) *FileLock {
	return &FileLock{
		flock: flock.New(path),
		path:  path,
	}
}

// For returns the lock guarding target, i.e. a lock on target+LockSuffix.
func For(target string) *FileLock {
	return New(target + LockSuffix)
}

// Path returns the lock file path.
func (fl *FileLock) Path() string {
	return fl.path
}

// Lock blocks until the exclusive lock is held.
func (fl *FileLock) Lock() error {
	if err := fl.flock.Lock(); err != nil {
		return fmt.Errorf("acquire lock %s: %w", fl.path, err)
	}
	return nil
}

// TryLock acquires the lock without blocking. It reports false when another
// holder owns it.
func (fl *FileLock) TryLock() (bool, error) {
	acquired, err := fl.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("try lock %s: %w", fl.path, err)
	}
	return acquired, nil
}

// Unlock releases the lock.
func (fl *FileLock) Unlock() error {
	if err := fl.flock.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", fl.path, err)
	}
	return nil
}

// WithLock runs fn while holding the lock for target.
func WithLock(target string, fn func() error) error {
	lock := For(target)
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()
	return fn()
}

// AtomicWrite replaces path with data. The bytes go to a temp file in the same
// directory which is synced and then renamed over path, so a crash leaves
// either the old content or the new content.
func AtomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file to %s: %w", path, err)
	}

	committed = true
	return nil
}

// LockedAtomicWrite is AtomicWrite performed while holding the target's lock.
func LockedAtomicWrite(path string, data []byte, perm os.FileMode) error {
	return WithLock(path, func() error {
		return AtomicWrite(path, data, perm)
	})
}
