package safeopen

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func writeTestFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func mustReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", path, err)
	}
	return string(data)
}

func TestOpenPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")
	writeTestFile(t, path, []byte("hello\n"))

	if got := mustReadFile(t, path); got != "hello\n" {
		t.Errorf("ReadFile = %q, want %q", got, "hello\n")
	}
}

func TestOpenDetectsGzipByContent(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"data.gz", "data.txt"} {
		path := filepath.Join(dir, name)
		writeTestFile(t, path, gzipBytes(t, "compressed body"))

		if got := mustReadFile(t, path); got != "compressed body" {
			t.Errorf("%s: ReadFile = %q, want decompressed body", name, got)
		}
	}
}

func TestOpenTinyAndEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{"empty": "", "one": "x"} {
		path := filepath.Join(dir, name)
		writeTestFile(t, path, []byte(content))
		if got := mustReadFile(t, path); got != content {
			t.Errorf("%s: ReadFile = %q, want %q", name, got, content)
		}
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open missing file error = %v, want os.ErrNotExist", err)
	}
}

func TestOpenCorruptGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.gz")
	writeTestFile(t, path, []byte{0x1f, 0x8b, 0x00})
	if _, err := Open(path); err == nil {
		t.Error("expected error for truncated gzip header")
	}
}

func TestCreateGzipRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "log.gz")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := io.Copy(w, strings.NewReader("line 1\nline 2\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(raw[:2], gzipMagic) {
		t.Errorf("file on disk starts with %x, want gzip magic", raw[:2])
	}

	if got := mustReadFile(t, path); got != "line 1\nline 2\n" {
		t.Errorf("ReadFile = %q", got)
	}
}

func TestCreatePlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := w.Write([]byte("plain")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "plain" {
		t.Errorf("file content = %q, want %q", raw, "plain")
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	gz := filepath.Join(dir, "a.gz")
	txt := filepath.Join(dir, "a.txt")

	if err := WriteFile(gz, []byte("zipped")); err != nil {
		t.Fatalf("WriteFile(%s): %v", gz, err)
	}
	if err := WriteFile(txt, []byte("plain")); err != nil {
		t.Fatalf("WriteFile(%s): %v", txt, err)
	}

	if got := mustReadFile(t, gz); got != "zipped" {
		t.Errorf("gz content = %q", got)
	}
	raw, err := os.ReadFile(txt)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "plain" {
		t.Errorf("txt content = %q", raw)
	}
}

func TestIsGzipPath(t *testing.T) {
	tests := map[string]bool{
		"x.gz":     true,
		"X.GZ":     true,
		"x.tgzip":  false,
		"gz":       false,
		"dir.gz/x": false,
	}
	for path, want := range tests {
		if got := IsGzipPath(path); got != want {
			t.Errorf("IsGzipPath(%q) = %v, want %v", path, got, want)
		}
	}
}
