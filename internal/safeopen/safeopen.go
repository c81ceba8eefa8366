// Package safeopen opens files for reading or writing with transparent gzip
// handling: compressed input is detected by its magic bytes and ".gz" output
// paths are compressed on the way out.
package safeopen

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/lipidong/dong/internal/filelock"
)

var gzipMagic = []byte{0x1f, 0x8b}

// IsGzipPath reports whether path names a gzip file by extension.
func IsGzipPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".gz")
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc *readCloser) Close() error {
	var errs []error
	for _, c := range rc.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open opens path for reading. Gzip content is decompressed whatever the
// file is called; "-" reads standard input.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		// Hide Close so the process's stdin stays open.
		return NewReader(struct{ io.Reader }{os.Stdin})
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	rc, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return rc, nil
}

// NewReader wraps r, decompressing it when it starts with the gzip magic.
// Closing the result closes r when r is an io.Closer.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	rc := &readCloser{Reader: br}
	if c, ok := r.(io.Closer); ok {
		rc.closers = append(rc.closers, c)
	}

	head, err := br.Peek(len(gzipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if !bytes.Equal(head, gzipMagic) {
		return rc, nil
	}

	zr, err := gzip.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("gzip header: %w", err)
	}
	rc.Reader = zr
	rc.closers = append([]io.Closer{zr}, rc.closers...)
	return rc, nil
}

// ReadFile reads the whole (possibly compressed) file.
func ReadFile(path string) ([]byte, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

type writeCloser struct {
	io.Writer
	closers []io.Closer
}

func (wc *writeCloser) Close() error {
	var errs []error
	for _, c := range wc.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Create truncates or creates path, making parent directories. A ".gz" path
// is written gzip-compressed; Close flushes the stream and closes the file.
func Create(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	if !IsGzipPath(path) {
		return f, nil
	}
	zw := gzip.NewWriter(f)
	return &writeCloser{Writer: zw, closers: []io.Closer{zw, f}}, nil
}

// WriteFile atomically replaces path with data, compressing for ".gz"
// paths. Concurrent writers to the same path are serialised.
func WriteFile(path string, data []byte) error {
	payload := data
	if IsGzipPath(path) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return fmt.Errorf("compress %s: %w", path, err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("compress %s: %w", path, err)
		}
		payload = buf.Bytes()
	}
	return filelock.LockedAtomicWrite(path, payload, 0644)
}
