package providers

import (
	"testing"

	"github.com/nexus-orchestrator/core/internal/agent"
)

func TestAnthropicProvider_BuildParams(t *testing.T) {
	p := &AnthropicProvider{}
	req := agent.CompletionRequest{
		Model:       "claude-sonnet-4-20250514",
		Temperature: 0.5,
		Messages: []agent.CompletionMessage{
			{Role: "system", Content: "be terse"},
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "hi there"},
		},
	}

	params, err := p.buildParams(req)
	if err != nil {
		t.Fatalf("buildParams() error = %v", err)
	}
	if len(params.System) != 1 || params.System[0].Text != "be terse" {
		t.Errorf("System = %+v, want one block with %q", params.System, "be terse")
	}
	if len(params.Messages) != 2 {
		t.Fatalf("Messages = %d, want 2 (system extracted separately)", len(params.Messages))
	}
	if params.MaxTokens != 4096 {
		t.Errorf("MaxTokens = %d, want default 4096", params.MaxTokens)
	}
}

func TestAnthropicProvider_BuildParamsRejectsUnknownRole(t *testing.T) {
	p := &AnthropicProvider{}
	req := agent.CompletionRequest{
		Model:    "claude-sonnet-4-20250514",
		Messages: []agent.CompletionMessage{{Role: "narrator", Content: "???"}},
	}

	if _, err := p.buildParams(req); err == nil {
		t.Error("expected error for unknown message role")
	}
}

func TestAnthropicProvider_Name(t *testing.T) {
	p := &AnthropicProvider{}
	if p.Name() != "anthropic" || p.Provider() != "anthropic" {
		t.Errorf("Name/Provider = %q/%q, want anthropic/anthropic", p.Name(), p.Provider())
	}
}
