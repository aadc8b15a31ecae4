package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadBootstrapAgents_Empty(t *testing.T) {
	agents, err := LoadBootstrapAgents("")
	if err != nil {
		t.Fatalf("LoadBootstrapAgents(\"\") error: %v", err)
	}
	if agents != nil {
		t.Errorf("agents = %v, want nil", agents)
	}
}

func TestLoadBootstrapAgents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bootstrap.yaml")
	content := `
- agent_id: admin
  provider: anthropic
  model: claude-3-opus
  persona: coordinator
- agent_id: researcher
  system_prompt: "You research things."
  temperature: 0.2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write bootstrap file: %v", err)
	}

	agents, err := LoadBootstrapAgents(path)
	if err != nil {
		t.Fatalf("LoadBootstrapAgents() error: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("len(agents) = %d, want 2", len(agents))
	}
	if agents[0].AgentID != "admin" || agents[0].Provider != "anthropic" {
		t.Errorf("agents[0] = %+v", agents[0])
	}
	if agents[1].Temperature == nil || *agents[1].Temperature != 0.2 {
		t.Errorf("agents[1].Temperature = %v, want 0.2", agents[1].Temperature)
	}
}

func TestLoadBootstrapAgents_MissingAgentID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bootstrap.yaml")
	if err := os.WriteFile(path, []byte("- persona: oops\n"), 0o644); err != nil {
		t.Fatalf("write bootstrap file: %v", err)
	}

	if _, err := LoadBootstrapAgents(path); err == nil {
		t.Fatal("LoadBootstrapAgents() with a missing agent_id should error")
	}
}
