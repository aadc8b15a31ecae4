package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAssembler_DefaultTemplatesSubstituteParams(t *testing.T) {
	a := NewAssembler()
	out := a.ExecutionPrompt(Params{TeamID: "t1", ToolDescriptionsXML: "<file_system/>"})

	if !strings.Contains(out, "t1") {
		t.Errorf("output %q missing team_id substitution", out)
	}
	if !strings.Contains(out, "<file_system/>") {
		t.Errorf("output %q missing tool_descriptions_xml substitution", out)
	}
	if strings.Contains(out, "{team_id}") || strings.Contains(out, "{tool_descriptions_xml}") {
		t.Errorf("output %q still contains unsubstituted placeholders", out)
	}
}

func TestAssembler_LoadFileOverridesDefaults(t *testing.T) {
	a := NewAssembler()
	path := filepath.Join(t.TempDir(), "templates.yaml")
	os.WriteFile(path, []byte(`
admin_ai_planning: "PLAN for {team_id}"
`), 0o644)

	if err := a.LoadFile(path); err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}

	out := a.PlanningPrompt(Params{TeamID: "t1"})
	if out != "PLAN for t1" {
		t.Errorf("PlanningPrompt = %q, want %q", out, "PLAN for t1")
	}

	// A key absent from the file keeps its default value.
	if a.ExecutionPrompt(Params{}) == "" {
		t.Error("expected admin_ai_execution to keep its default after a partial override file")
	}
}

func TestAssembler_StandardAgentPromptComposesSections(t *testing.T) {
	a := NewAssembler()
	out := a.StandardAgentPrompt(Params{AgentID: "a1", TeamID: "t1", AvailableModels: "anthropic/claude-sonnet-4"}, "You are a meticulous researcher.")

	if !strings.Contains(out, "a1") || !strings.Contains(out, "t1") {
		t.Errorf("output %q missing agent_id/team_id substitution", out)
	}
	if !strings.Contains(out, "You are a meticulous researcher.") {
		t.Error("expected custom role prompt to appear in output")
	}
	if !strings.Contains(out, "anthropic/claude-sonnet-4") {
		t.Error("expected available models to appear in output")
	}
}

func TestAssembler_StandardAgentPromptFallsBackToDefaultPersona(t *testing.T) {
	a := NewAssembler()
	out := a.StandardAgentPrompt(Params{AgentID: "a1", TeamID: "t1"}, "")

	if !strings.Contains(out, defaultTemplates[KeyDefaultAgentPersona]) {
		t.Errorf("output %q missing fallback persona text", out)
	}
}

func TestAssembler_AgentSystemPromptHonorsCustomPrompt(t *testing.T) {
	a := NewAssembler()
	out := a.AgentSystemPrompt("a1", "Researcher", "t1", "Be terse.")

	if !strings.Contains(out, "Be terse.") {
		t.Errorf("output %q missing custom prompt", out)
	}
}
