package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Valid bool   `yaml:"valid"`
}

func (s *sample) Validate() error {
	if !s.Valid {
		return errors.New("not valid")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "blog")
	path := writeFile(t, "name: ${SAMPLE_NAME}\nvalid: true\n")

	s := sample{Port: 8080}
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "blog" || s.Port != 8080 {
		t.Errorf("got %+v", s)
	}
}

func TestLoad_Errors(t *testing.T) {
	var s sample
	if err := Load(filepath.Join(t.TempDir(), "missing.yaml"), &s); err == nil || !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("missing file err = %v", err)
	}
	if err := Load(writeFile(t, "name: [unclosed\n"), &s); err == nil || !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("bad yaml err = %v", err)
	}
	if err := Load(writeFile(t, "name: x\n"), &s); err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("invalid err = %v", err)
	}
}

func TestLoadFresh(t *testing.T) {
	defaults := func() *sample { return &sample{Port: 9000} }

	got, err := LoadFresh(writeFile(t, "name: a\nvalid: true\n"), defaults)
	if err != nil {
		t.Fatalf("LoadFresh: %v", err)
	}
	if got.Name != "a" || got.Port != 9000 {
		t.Errorf("got %+v", got)
	}

	if _, err := LoadFresh(writeFile(t, "name: b\n"), defaults); err == nil {
		t.Error("expected validation error")
	}
}
