package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
server:
  port: 9090
llm:
  default_provider: anthropic
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.LLM.DefaultProvider != "anthropic" {
		t.Errorf("LLM.DefaultProvider = %q, want anthropic", cfg.LLM.DefaultProvider)
	}
	// Untouched defaults should survive the merge.
	if cfg.Tools.MaxHistoryMessages != 200 {
		t.Errorf("Tools.MaxHistoryMessages = %d, want 200 (default preserved)", cfg.Tools.MaxHistoryMessages)
	}
}

func TestLoad_Include(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "llm.yaml", `
llm:
  default_provider: openai
`)
	path := writeFile(t, dir, "config.yaml", `
$include: llm.yaml
server:
  port: 8081
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.LLM.DefaultProvider != "openai" {
		t.Errorf("LLM.DefaultProvider = %q, want openai (from include)", cfg.LLM.DefaultProvider)
	}
	if cfg.Server.Port != 8081 {
		t.Errorf("Server.Port = %d, want 8081", cfg.Server.Port)
	}
}

func TestLoad_IncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", `
$include: b.yaml
`)
	bPath := writeFile(t, dir, "b.yaml", `
$include: a.yaml
`)
	_ = bPath

	_, err := Load(filepath.Join(dir, "a.yaml"))
	if err == nil {
		t.Fatal("Load() with an include cycle should error")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_LLM_PROVIDER", "anthropic")
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
llm:
  default_provider: ${TEST_LLM_PROVIDER}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.LLM.DefaultProvider != "anthropic" {
		t.Errorf("LLM.DefaultProvider = %q, want anthropic", cfg.LLM.DefaultProvider)
	}
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
llm:
  not_a_real_field: true
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Load() with an unknown field should error (strict decoding)")
	}
}

func TestApplyEnvOverlay_ProviderKeys(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "key-1")
	t.Setenv("ANTHROPIC_API_KEY_2", "key-2")

	cfg := Default()
	applyEnvOverlay(cfg)

	keys := cfg.LLM.Providers["anthropic"].APIKeys
	if len(keys) != 2 || keys[0] != "key-1" || keys[1] != "key-2" {
		t.Errorf("Providers[anthropic].APIKeys = %v, want [key-1 key-2]", keys)
	}
}

func TestApplyEnvOverlay_ModelTierAndProjectsDir(t *testing.T) {
	t.Setenv("MODEL_TIER", "FREE")
	t.Setenv("PROJECTS_BASE_DIR", "/tmp/projects")

	cfg := Default()
	applyEnvOverlay(cfg)

	if cfg.LLM.ModelTier != "FREE" {
		t.Errorf("LLM.ModelTier = %q, want FREE", cfg.LLM.ModelTier)
	}
	if cfg.Session.ProjectsDir != "/tmp/projects" {
		t.Errorf("Session.ProjectsDir = %q, want /tmp/projects", cfg.Session.ProjectsDir)
	}
}

func TestLoad_VersionMismatch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
schema_version: 999
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Load() with a future schema_version should error")
	}
}
