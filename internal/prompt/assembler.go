// Package prompt implements PromptAssembler (C12): loading a templates file
// keyed by name and rendering the system prompt for a given agent state.
package prompt

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Template keys, matching the templates file's top-level keys (§6).
const (
	KeyStandardFrameworkInstructions = "standard_framework_instructions"
	KeyAdminPlanning                 = "admin_ai_planning"
	KeyAdminExecution                = "admin_ai_execution"
	KeyDefaultSystemPrompt           = "default_system_prompt"
	KeyDefaultAgentPersona           = "default_agent_persona"
)

// defaultTemplates is used when a templates file doesn't override a key, so
// a minimal bootstrap config still produces a working agent.
var defaultTemplates = map[string]string{
	KeyStandardFrameworkInstructions: "You are agent {agent_id} on team {team_id}. " +
		"Available tools:\n{tool_descriptions_xml}\n" +
		"Emit one or more tool calls as XML; a standard agent must send a " +
		"final send_message to its requester once its task is complete.",
	KeyAdminPlanning: "You are the Admin AI for team {team_id}, in the planning phase. " +
		"Available models:\n{available_models}\n" +
		"Respond with a <plan>...</plan> element describing the steps you will take.",
	KeyAdminExecution: "You are the Admin AI for team {team_id}, in the execution phase. " +
		"Available tools:\n{tool_descriptions_xml}\n" +
		"Emit tool calls to carry out your plan.",
	KeyDefaultSystemPrompt: "You are {agent_id}, a member of team {team_id}.",
	KeyDefaultAgentPersona: "a capable assistant",
}

// Assembler is PromptAssembler (C12): templates loaded at startup, keyed by
// name, with substitution of {agent_id}, {team_id}, {tool_descriptions_xml},
// {available_models}.
type Assembler struct {
	mu        sync.RWMutex
	templates map[string]string
}

// NewAssembler builds an assembler seeded with the built-in defaults.
func NewAssembler() *Assembler {
	templates := make(map[string]string, len(defaultTemplates))
	for k, v := range defaultTemplates {
		templates[k] = v
	}
	return &Assembler{templates: templates}
}

// LoadFile reads a YAML templates file (keyed by the constants above) and
// merges it over the built-in defaults; a key absent from the file keeps
// its default value.
func (a *Assembler) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read templates file: %w", err)
	}
	var loaded map[string]string
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parse templates file: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for k, v := range loaded {
		a.templates[k] = v
	}
	return nil
}

// Params are the substitution values for one render call. Any field left
// empty is simply rendered as an empty string.
type Params struct {
	AgentID            string
	TeamID             string
	ToolDescriptionsXML string
	AvailableModels    string
}

func (a *Assembler) render(key string, p Params) string {
	a.mu.RLock()
	tmpl, ok := a.templates[key]
	a.mu.RUnlock()
	if !ok {
		return ""
	}

	replacer := strings.NewReplacer(
		"{agent_id}", p.AgentID,
		"{team_id}", p.TeamID,
		"{tool_descriptions_xml}", p.ToolDescriptionsXML,
		"{available_models}", p.AvailableModels,
	)
	return replacer.Replace(tmpl)
}

// PlanningPrompt renders the Admin AI planning-phase template (must emit a
// <plan> element, §4.12).
func (a *Assembler) PlanningPrompt(p Params) string {
	return a.render(KeyAdminPlanning, p)
}

// ExecutionPrompt renders the Admin AI execution-phase template (must emit
// tool calls, §4.12).
func (a *Assembler) ExecutionPrompt(p Params) string {
	return a.render(KeyAdminExecution, p)
}

// StandardAgentPrompt renders the standard-agent system prompt: the
// framework instructions plus the agent's own persona/custom prompt,
// composed the way §4.9's createAgent does ("base template + standard
// framework instructions + role prompt + enumerated available models").
func (a *Assembler) StandardAgentPrompt(p Params, rolePrompt string) string {
	base := a.render(KeyDefaultSystemPrompt, p)
	framework := a.render(KeyStandardFrameworkInstructions, p)
	if rolePrompt == "" {
		rolePrompt = a.render(KeyDefaultAgentPersona, p)
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\n")
	b.WriteString(framework)
	b.WriteString("\n\n")
	b.WriteString(rolePrompt)
	if p.AvailableModels != "" {
		b.WriteString("\n\nAvailable models:\n")
		b.WriteString(p.AvailableModels)
	}
	return b.String()
}

// AgentSystemPrompt implements internal/multiagent's SystemPromptBuilder:
// the system prompt assembled for a newly created agent, honoring an
// explicit customPrompt (the create_agent system_prompt parameter) as the
// role prompt when given.
func (a *Assembler) AgentSystemPrompt(agentID, persona, teamID, customPrompt string) string {
	return a.StandardAgentPrompt(Params{AgentID: agentID, TeamID: teamID}, customPrompt)
}
