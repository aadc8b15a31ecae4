package config

import "testing"

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.LLM.ModelTier != "ALL" {
		t.Errorf("LLM.ModelTier = %q, want ALL", cfg.LLM.ModelTier)
	}
	if cfg.Tools.MaxHistoryMessages != 200 {
		t.Errorf("Tools.MaxHistoryMessages = %d, want 200", cfg.Tools.MaxHistoryMessages)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}
}
