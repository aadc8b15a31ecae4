package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BootstrapAgentConfig is one entry in the bootstrap-agent file (§6): the
// agents an orchestrator creates at startup, before any are spun up via
// create_agent.
type BootstrapAgentConfig struct {
	AgentID      string   `yaml:"agent_id"`
	Provider     string   `yaml:"provider,omitempty"`
	Model        string   `yaml:"model,omitempty"`
	SystemPrompt string   `yaml:"system_prompt,omitempty"`
	Temperature  *float64 `yaml:"temperature,omitempty"`
	Persona      string   `yaml:"persona,omitempty"`
}

// LoadBootstrapAgents reads the bootstrap-agent file: a YAML list of
// {agent_id, provider?, model?, system_prompt?, temperature?, persona} (§6).
// An empty path is not an error; it yields no bootstrap agents.
func LoadBootstrapAgents(path string) ([]BootstrapAgentConfig, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bootstrap agents file: %w", err)
	}

	var agents []BootstrapAgentConfig
	if err := yaml.Unmarshal(data, &agents); err != nil {
		return nil, fmt.Errorf("parse bootstrap agents file: %w", err)
	}

	for i, a := range agents {
		if a.AgentID == "" {
			return nil, fmt.Errorf("bootstrap agent at index %d is missing agent_id", i)
		}
	}
	return agents, nil
}
