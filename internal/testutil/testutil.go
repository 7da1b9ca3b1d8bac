// Package testutil provides shared test helpers for setting up content
// directories and access log databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/servemd/internal/accesslog"
	"github.com/starford/servemd/internal/content"
)

// BaseURL is the site URL used by TestLibrary.
const BaseURL = "https://example.com"

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestLog creates a temporary SQLite access log that is automatically cleaned up.
func TestLog(t *testing.T, opts ...accesslog.Option) *accesslog.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "servemd-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	s, err := accesslog.Open(dbFile.Name(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestLibrary writes files into a temporary content directory and returns a
// synced library over it together with the directory path.
func TestLibrary(t *testing.T, files map[string]string) (*content.Library, string) {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	fsys, err := content.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	lib := content.NewLibrary(fsys, BaseURL, Logger())
	if err := lib.Sync(); err != nil {
		t.Fatal(err)
	}
	return lib, dir
}
