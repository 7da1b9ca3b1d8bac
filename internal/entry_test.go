package internal

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/servemd/internal/accesslog"
	"github.com/starford/servemd/internal/pipeline"
	"github.com/starford/servemd/internal/settings"
	"github.com/starford/servemd/internal/testutil"
)

func testRouter(t *testing.T, token string) (http.Handler, *accesslog.Store) {
	t.Helper()
	lib, _ := testutil.TestLibrary(t, map[string]string{
		"hi.html": "---\nid: 7\ntitle: Hi\n---\n<p>Hello <strong>World</strong></p>",
	})
	log := testutil.TestLog(t)
	cfg := NewDefaultConfig()
	if token != "" {
		cfg.Auth = AuthConfig{Mode: AuthModeToken, Token: token}
	}
	st := settings.NewStore(cfg.Serve)
	pipe := pipeline.New(lib, st, log, testutil.Logger())
	return NewRouter(cfg, lib, st, log, pipe, testutil.Logger()), log
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	router, _ := testRouter(t, "")
	w := serve(router, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestRouter_ServesMarkdownAndLogs(t *testing.T) {
	router, log := testRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/hi.md", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; GPTBot/1.2)")
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	w := serve(router, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.HasSuffix(w.Body.String(), "# Hi\n\nHello **World**\n") {
		t.Errorf("body = %q", w.Body.String())
	}

	page, err := log.Query(context.Background(), 10, 1, "")
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 {
		t.Fatalf("log total = %d", page.Total)
	}
	e := page.Entries[0]
	if e.BotName != "GPTBot" || e.IP != "203.0.113.9" || e.Method != accesslog.MethodURL || e.ItemID != 7 {
		t.Errorf("entry = %+v", e)
	}

	// The HTML page is not logged.
	if w := serve(router, httptest.NewRequest(http.MethodGet, "/hi/", nil)); w.Code != http.StatusOK {
		t.Errorf("page status = %d", w.Code)
	}
	if page, _ := log.Query(context.Background(), 10, 1, ""); page.Total != 1 {
		t.Errorf("log total after page view = %d", page.Total)
	}
}

func TestRouter_APIMountedWithAuth(t *testing.T) {
	router, _ := testRouter(t, "secret")

	if w := serve(router, httptest.NewRequest(http.MethodGet, "/api/log/stats", nil)); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/items/7/markdown", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := serve(router, req)
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Body.String(), "---\n") {
		t.Errorf("preview status = %d, body = %q", w.Code, w.Body.String())
	}

	// Site pages stay public.
	if w := serve(router, httptest.NewRequest(http.MethodGet, "/hi.md", nil)); w.Code != http.StatusOK {
		t.Errorf("public markdown status = %d", w.Code)
	}
}

func TestReloadServe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("serve:\n  enable_md_url: false\n  log_retention_days: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := reloadServe(path)()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if s.EnableMDURL || s.LogRetentionDays != 7 || !s.EnableContentNegotiation {
		t.Errorf("settings = %+v", s)
	}

	if err := os.WriteFile(path, []byte("auth:\n  mode: magic\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := reloadServe(path)(); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestBootstrap(t *testing.T) {
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Content.Path = filepath.Join(dir, "content")
	cfg.SQLite.Path = filepath.Join(dir, "servemd.db")

	rt, err := bootstrap(&application{config: cfg}, io.Discard)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	defer rt.Close()

	if _, err := os.Stat(cfg.Content.Path); err != nil {
		t.Errorf("content dir not created: %v", err)
	}
	stats, err := rt.log.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 0 {
		t.Errorf("total = %d", stats.Total)
	}
}

func TestNewApplication_RequiresConfig(t *testing.T) {
	if _, err := newApplication(nil); err == nil {
		t.Error("expected error without config")
	}
}
