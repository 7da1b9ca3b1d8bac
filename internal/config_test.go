package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	pkgconfig "github.com/starford/servemd/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if !cfg.Serve.EnableMDURL || cfg.Serve.LogMaxEntries != 10000 {
		t.Errorf("serve defaults = %+v", cfg.Serve)
	}
}

func TestApplicationConfig_BaseURL(t *testing.T) {
	cfg := ApplicationConfig{HTTP: HTTPConfig{Port: 80}, BaseURL: "https://example.com/"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.BaseURL != "https://example.com" {
		t.Errorf("base url = %q, want trailing slash trimmed", cfg.BaseURL)
	}

	cfg.BaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty base url should fail")
	}
}

func TestFullConfig_ServeValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Serve.PostTypes = []string{strings.Repeat("x", 25)}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "serve") {
		t.Fatalf("err = %v, want serve validation error", err)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	t.Setenv("SERVEMD_TEST_TOKEN", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `app:
  base_url: https://blog.example.org
auth:
  mode: token
  token: ${SERVEMD_TEST_TOKEN}
serve:
  post_types: [post]
  log_max_entries: -5
  log_retention_days: forever
  log_max_size_mb: 99999999
  frontmatter:
    author: false
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.Token != "s3cret" {
		t.Errorf("token = %q, want env expansion", cfg.Auth.Token)
	}
	if cfg.App.HTTP.Port != 8080 {
		t.Errorf("port = %d, want default kept", cfg.App.HTTP.Port)
	}
	if len(cfg.Serve.PostTypes) != 1 || cfg.Serve.PostTypes[0] != "post" {
		t.Errorf("post types = %v", cfg.Serve.PostTypes)
	}
	if cfg.Serve.LogMaxEntries != 0 {
		t.Errorf("negative max entries = %d, want clamped to 0", cfg.Serve.LogMaxEntries)
	}
	if cfg.Serve.LogRetentionDays != 30 {
		t.Errorf("non-numeric retention = %d, want default 30", cfg.Serve.LogRetentionDays)
	}
	if cfg.Serve.LogMaxSizeMB != 99999999 {
		t.Errorf("max size = %d", cfg.Serve.LogMaxSizeMB)
	}
	if cfg.Serve.Frontmatter.Author || !cfg.Serve.Frontmatter.Title {
		t.Errorf("frontmatter toggles = %+v", cfg.Serve.Frontmatter)
	}
}
