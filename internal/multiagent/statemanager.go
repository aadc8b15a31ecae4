// Package multiagent implements StateManager (C6), InteractionHandler (C7),
// AgentLifecycle (C9) and the Orchestrator (C11): the team/agent registry,
// the framework-level side effects of tool results, agent creation and
// teardown, and the activation-queue event loop that drives one cycle per
// agent at a time.
package multiagent

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nexus-orchestrator/core/internal/agent"
)

// StateManager is the in-memory registry of teams and agents (C6): pure
// bookkeeping, no LLM or filesystem side effects. Grounded on the teacher's
// registry idiom (a single RWMutex guarding a handful of maps, compound ops
// taking the lock once).
type StateManager struct {
	mu sync.RWMutex

	agents map[string]*agent.Agent

	// teams preserves creation order per team, since list_agents is
	// expected to read back deterministically (§4.13 S1).
	teams      map[string][]string
	teamExists map[string]bool
}

// NewStateManager builds an empty registry.
func NewStateManager() *StateManager {
	return &StateManager{
		agents:     make(map[string]*agent.Agent),
		teams:      make(map[string][]string),
		teamExists: make(map[string]bool),
	}
}

// CreateTeam registers teamID if absent. Idempotent: a second call for the
// same id reports created=false rather than erroring (§4.5).
func (s *StateManager) CreateTeam(teamID string) (created bool, err error) {
	if teamID == "" {
		return false, fmt.Errorf("team_id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.teamExists[teamID] {
		return false, nil
	}
	s.teamExists[teamID] = true
	s.teams[teamID] = nil
	return true, nil
}

// DeleteTeam removes teamID and every agent assigned to it from the
// registry. Callers that also need sandbox/provider teardown should delete
// the agents individually via AgentLifecycle first.
func (s *StateManager) DeleteTeam(teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.teamExists[teamID] {
		return fmt.Errorf("team %s does not exist", teamID)
	}
	for _, id := range s.teams[teamID] {
		delete(s.agents, id)
	}
	delete(s.teams, teamID)
	delete(s.teamExists, teamID)
	return nil
}

// ListTeams returns every registered team id, sorted for deterministic
// output.
func (s *StateManager) ListTeams() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.teamExists))
	for id := range s.teamExists {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ListAgents returns the agent ids assigned to teamID, in creation order.
func (s *StateManager) ListAgents(teamID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.teamExists[teamID] {
		return nil, fmt.Errorf("team %s does not exist", teamID)
	}
	out := make([]string, len(s.teams[teamID]))
	copy(out, s.teams[teamID])
	return out, nil
}

// Register adds ag to the registry under teamID (which must already exist).
func (s *StateManager) Register(teamID string, ag *agent.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.teamExists[teamID] {
		return fmt.Errorf("team %s does not exist", teamID)
	}
	if _, exists := s.agents[ag.ID]; exists {
		return fmt.Errorf("agent id %s already in use", ag.ID)
	}
	ag.TeamID = teamID
	s.agents[ag.ID] = ag
	s.teams[teamID] = append(s.teams[teamID], ag.ID)
	return nil
}

// Unregister removes agentID from the registry and its team's member list.
func (s *StateManager) Unregister(agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ag, ok := s.agents[agentID]
	if !ok {
		return fmt.Errorf("agent %s does not exist", agentID)
	}
	delete(s.agents, agentID)
	members := s.teams[ag.TeamID]
	for i, id := range members {
		if id == agentID {
			s.teams[ag.TeamID] = append(members[:i], members[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns the agent registered under id.
func (s *StateManager) Get(id string) (*agent.Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ag, ok := s.agents[id]
	return ag, ok
}

// Exists reports whether id names a registered agent.
func (s *StateManager) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.agents[id]
	return ok
}

// ResolvePersona returns the ids of every registered agent whose persona
// equals persona (§4.5, persona-fallback routing for send_message).
func (s *StateManager) ResolvePersona(persona string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matches []string
	for id, ag := range s.agents {
		if ag.Persona == persona {
			matches = append(matches, id)
		}
	}
	sort.Strings(matches)
	return matches
}

// All returns every registered agent, for shutdown/iteration purposes.
func (s *StateManager) All() []*agent.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*agent.Agent, 0, len(s.agents))
	for _, ag := range s.agents {
		out = append(out, ag)
	}
	return out
}
