package multiagent

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nexus-orchestrator/core/internal/agent"
	modelreg "github.com/nexus-orchestrator/core/internal/models"
	"github.com/nexus-orchestrator/core/internal/tools"
)

// SystemPromptBuilder renders the system prompt for a newly created agent
// (C12 PromptAssembler's create_agent entry point). Implemented by
// internal/prompt.
type SystemPromptBuilder interface {
	AgentSystemPrompt(agentID, persona, teamID, customPrompt string) string
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// AgentLifecycle is C9: agent creation and teardown, including id
// validation/generation, auto-selected provider/model, sandbox directory
// management, and StateManager registration.
type AgentLifecycle struct {
	States      *StateManager
	Catalog     *modelreg.Catalog
	Tracker     *modelreg.PerformanceTracker
	Prompts     SystemPromptBuilder
	WorkspaceRoot string // root all per-agent sandboxes and the shared workspace live under
}

// CreateAgent implements internal/tools.TeamManager: validates or generates
// agent_id, auto-selects provider/model when omitted (§4.9), creates the
// agent's sandbox directory, and registers it with teamID.
func (l *AgentLifecycle) CreateAgent(teamID string, spec tools.NewAgentSpec) (string, error) {
	id := spec.AgentID
	if id == "" {
		var err error
		id, err = l.generateID(spec.Persona)
		if err != nil {
			return "", err
		}
	} else if !agent.ValidAgentID(id) {
		return "", fmt.Errorf("agent_id %q must match [A-Za-z0-9_-]+", id)
	} else if l.States.Exists(id) {
		return "", fmt.Errorf("agent_id %q already in use", id)
	}

	provider, model := spec.Provider, spec.Model
	if provider == "" || model == "" {
		chosen, err := modelreg.SelectBestAvailable(l.Catalog, l.Tracker, nil)
		if err != nil {
			return "", fmt.Errorf("auto-select model: %w", err)
		}
		if provider == "" {
			provider = chosen.Provider
		}
		if model == "" {
			model = chosen.ID
		}
	}

	temperature := 0.7
	if spec.Temperature != nil {
		temperature = *spec.Temperature
	}

	sandbox, err := l.SandboxRoot(id)
	if err != nil {
		return "", fmt.Errorf("create sandbox: %w", err)
	}
	if err := os.MkdirAll(sandbox, 0o755); err != nil {
		return "", fmt.Errorf("create sandbox: %w", err)
	}

	systemPrompt := spec.SystemPrompt
	if l.Prompts != nil {
		systemPrompt = l.Prompts.AgentSystemPrompt(id, spec.Persona, teamID, spec.SystemPrompt)
	}

	ag := agent.NewAgent(id, spec.Persona, agent.Config{
		Provider:     provider,
		Model:        model,
		Temperature:  temperature,
		SystemPrompt: systemPrompt,
	}, sandbox)

	if err := l.States.Register(teamID, ag); err != nil {
		return "", err
	}
	return id, nil
}

// DeleteAgent implements internal/tools.TeamManager: removes the agent from
// the registry. The sandbox directory is left on disk for post-mortem
// inspection; only the in-memory record is purged.
func (l *AgentLifecycle) DeleteAgent(agentID string) error {
	return l.States.Unregister(agentID)
}

// CreateTeam/DeleteTeam/ListTeams/ListAgents delegate straight to
// StateManager, completing internal/tools.TeamManager on AgentLifecycle so
// a single value can be handed to ManageTeamTool.
func (l *AgentLifecycle) CreateTeam(teamID string) (bool, error)    { return l.States.CreateTeam(teamID) }
func (l *AgentLifecycle) DeleteTeam(teamID string) error            { return l.States.DeleteTeam(teamID) }
func (l *AgentLifecycle) ListTeams() []string                       { return l.States.ListTeams() }
func (l *AgentLifecycle) ListAgents(teamID string) ([]string, error) { return l.States.ListAgents(teamID) }

// SandboxRoot implements internal/tools.SandboxRoots: the per-agent private
// filesystem root (§6 "Sandbox").
func (l *AgentLifecycle) SandboxRoot(agentID string) (string, error) {
	if agentID == "" {
		return "", fmt.Errorf("agent id is required")
	}
	return filepath.Join(l.WorkspaceRoot, "sandboxes", agentID), nil
}

// SharedRoot implements internal/tools.SandboxRoots: the per-session shared
// filesystem root (§6 "Shared workspace").
func (l *AgentLifecycle) SharedRoot() string {
	return filepath.Join(l.WorkspaceRoot, "shared")
}

// generateID builds a <persona_slug>_<rand> id (§4.9), retrying on the rare
// collision against an already-registered id.
func (l *AgentLifecycle) generateID(persona string) (string, error) {
	slug := slugify(persona)
	if slug == "" {
		slug = "agent"
	}
	for attempt := 0; attempt < 8; attempt++ {
		suffix, err := randomHex(4)
		if err != nil {
			return "", err
		}
		candidate := fmt.Sprintf("%s_%s", slug, suffix)
		if !l.States.Exists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique agent id for persona %q", persona)
}

func slugify(persona string) string {
	lower := strings.ToLower(strings.TrimSpace(persona))
	return strings.Trim(slugPattern.ReplaceAllString(lower, "_"), "_")
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
