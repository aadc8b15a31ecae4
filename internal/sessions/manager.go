// Package sessions implements SessionManager (C10): serialising teams,
// agents, and their histories to a single JSON snapshot per (project,
// session) and reversing the process on load.
package sessions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nexus-orchestrator/core/internal/agent"
	"github.com/nexus-orchestrator/core/pkg/models"
)

// SchemaVersion is bumped whenever the on-disk snapshot layout changes
// incompatibly.
const SchemaVersion = 1

// Snapshot is the on-disk representation of one session (§4.10, §6):
// {schema_version, created_at, teams, agents}. Providers and sandboxes are
// excluded — they are reconstructed fresh on load.
type Snapshot struct {
	SchemaVersion int            `json:"schema_version"`
	Project       string         `json:"project"`
	Session       string         `json:"session"`
	CreatedAt     time.Time      `json:"created_at"`
	Teams         []TeamSnapshot `json:"teams"`
	Agents        []AgentSnapshot `json:"agents"`
}

// TeamSnapshot captures one team's membership.
type TeamSnapshot struct {
	ID      string   `json:"id"`
	Members []string `json:"members"`
}

// AgentSnapshot captures one agent's identity, config, and history. Scratch
// state (pending tool calls, current plan) is not carried across a
// save/load cycle: a restored agent always starts idle (§4.10).
type AgentSnapshot struct {
	ID      string           `json:"id"`
	Persona string           `json:"persona"`
	Team    string           `json:"team"`
	Config  AgentConfigSnapshot `json:"config"`
	History []models.Message `json:"history"`
}

// AgentConfigSnapshot mirrors agent.Config for serialisation.
type AgentConfigSnapshot struct {
	Provider     string         `json:"provider"`
	Model        string         `json:"model"`
	Temperature  float64        `json:"temperature"`
	SystemPrompt string         `json:"system_prompt"`
	Extras       map[string]any `json:"extras,omitempty"`
}

// TeamSource is the subset of StateManager SessionManager needs to build a
// snapshot, kept narrow so this package never imports internal/multiagent.
type TeamSource interface {
	ListTeams() []string
	ListAgents(teamID string) ([]string, error)
	Get(agentID string) (*agent.Agent, bool)
}

// Manager implements SessionManager (C10): save serialises the current
// in-memory state to projects/<project>/<session>.json via write-temp +
// rename; Load reverses it.
type Manager struct {
	Root string // base directory under which projects/<project>/<session>.json live
}

// NewManager builds a SessionManager rooted at root.
func NewManager(root string) *Manager {
	return &Manager{Root: root}
}

// Path returns the snapshot file path for (project, session).
func (m *Manager) Path(project, session string) string {
	return filepath.Join(m.Root, "projects", project, session+".json")
}

// Save captures a consistent snapshot of every team and agent known to
// states and writes it via write-temp + rename (§4.10, §6's "consistent
// snapshot" note: Save copies each agent's history under that agent's own
// lock, since a cycle may still be appending to it during save).
func (m *Manager) Save(project, session string, states TeamSource) error {
	snap := Snapshot{
		SchemaVersion: SchemaVersion,
		Project:       project,
		Session:       session,
		CreatedAt:     time.Now(),
	}

	for _, teamID := range states.ListTeams() {
		members, err := states.ListAgents(teamID)
		if err != nil {
			return fmt.Errorf("list agents for team %s: %w", teamID, err)
		}
		snap.Teams = append(snap.Teams, TeamSnapshot{ID: teamID, Members: members})

		for _, agentID := range members {
			ag, ok := states.Get(agentID)
			if !ok {
				continue
			}
			snap.Agents = append(snap.Agents, snapshotAgent(ag))
		}
	}

	return m.writeAtomic(m.Path(project, session), snap)
}

func snapshotAgent(ag *agent.Agent) AgentSnapshot {
	ag.Lock()
	defer ag.Unlock()

	history := make([]models.Message, len(ag.History))
	copy(history, ag.History)

	return AgentSnapshot{
		ID:      ag.ID,
		Persona: ag.Persona,
		Team:    ag.TeamID,
		Config: AgentConfigSnapshot{
			Provider:     ag.Config.Provider,
			Model:        ag.Config.Model,
			Temperature:  ag.Config.Temperature,
			SystemPrompt: ag.Config.SystemPrompt,
			Extras:       ag.Config.Extras,
		},
		History: history,
	}
}

func (m *Manager) writeAtomic(path string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return m.writeAtomicBytes(path, data)
}

// writeAtomicBytes is the write-temp-then-rename primitive writeAtomic and
// branch.go's index persistence both build on.
func (m *Manager) writeAtomicBytes(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create project directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads the snapshot for (project, session) without mutating any
// in-memory state: it returns a parsed Snapshot so the caller (via
// AgentLifecycle/StateManager) can recreate agents in the idle state,
// restore histories, and rebuild team membership. A parse failure leaves
// the caller's existing state untouched, since nothing is applied until
// the caller acts on the returned value (§4.10 "load is atomic").
func (m *Manager) Load(project, session string) (*Snapshot, error) {
	path := m.Path(project, session)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	if snap.SchemaVersion == 0 {
		return nil, fmt.Errorf("snapshot missing schema_version")
	}
	for _, as := range snap.Agents {
		if as.ID == "" {
			return nil, fmt.Errorf("snapshot has an agent with no id")
		}
	}
	return &snap, nil
}
