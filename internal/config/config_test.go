package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Default()

	if cfg.Upstream.PageSize != 100 {
		t.Errorf("Upstream.PageSize = %d, want 100", cfg.Upstream.PageSize)
	}
	if cfg.Mode != ModeSequential {
		t.Errorf("Mode = %q, want sequential", cfg.Mode)
	}
	if cfg.Web.Port != 8085 {
		t.Errorf("Web.Port = %d, want 8085", cfg.Web.Port)
	}
	if cfg.Web.Host != "127.0.0.1" {
		t.Errorf("Web.Host = %q, want 127.0.0.1", cfg.Web.Host)
	}
	if len(cfg.Agents) == 0 {
		t.Fatal("default agent roster is empty")
	}
	if cfg.Agents[0].ID != "coderabbit" {
		t.Errorf("Agents[0].ID = %q, want coderabbit", cfg.Agents[0].ID)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	content := `
mode = "parallel"

[upstream]
page_size = 50
requests_per_sec = 2.5

[web]
port = 9000

[[agents]]
id = "coderabbit"
author_pattern = "^coderabbitai$"
invoke_pattern = "@coderabbitai review"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Mode != ModeParallel {
		t.Errorf("Mode = %q, want parallel", cfg.Mode)
	}
	if cfg.Upstream.PageSize != 50 {
		t.Errorf("Upstream.PageSize = %d, want 50", cfg.Upstream.PageSize)
	}
	if cfg.Upstream.RequestsPerSec != 2.5 {
		t.Errorf("Upstream.RequestsPerSec = %v, want 2.5", cfg.Upstream.RequestsPerSec)
	}
	if cfg.Web.Port != 9000 {
		t.Errorf("Web.Port = %d, want 9000", cfg.Web.Port)
	}
	if len(cfg.Agents) != 1 {
		t.Fatalf("len(Agents) = %d, want 1 (file replaces defaults)", len(cfg.Agents))
	}
	if cfg.Agents[0].AuthorPattern != "^coderabbitai$" {
		t.Errorf("AuthorPattern = %q", cfg.Agents[0].AuthorPattern)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Upstream.PageSize != 100 {
		t.Error("missing file should fall back to defaults")
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		input string
		want  string
	}{
		{"~/test", filepath.Join(home, "test")},
		{"/absolute/path", "/absolute/path"},
		{"relative", "relative"},
	}

	for _, tt := range tests {
		got := ExpandPath(tt.input)
		if got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLoadRepoConfig(t *testing.T) {
	dir := t.TempDir()
	content := `
agents:
  - coderabbit
  - codex
mode: parallel
`
	if err := os.WriteFile(filepath.Join(dir, RepoConfigName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	rc, err := LoadRepoConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	if rc == nil {
		t.Fatal("expected repo config, got nil")
	}
	if len(rc.Agents) != 2 || rc.Agents[0] != "coderabbit" {
		t.Errorf("Agents = %v", rc.Agents)
	}
	if rc.Mode != ModeParallel {
		t.Errorf("Mode = %q, want parallel", rc.Mode)
	}
}

func TestLoadRepoConfig_Missing(t *testing.T) {
	rc, err := LoadRepoConfig(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if rc != nil {
		t.Errorf("expected nil for missing file, got %+v", rc)
	}
}
