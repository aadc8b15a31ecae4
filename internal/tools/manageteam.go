package tools

import (
	"context"
	"fmt"
	"strconv"
)

// NewAgentSpec carries the optional parameters of a create_agent call;
// empty fields mean "auto-select" or "use the template default".
type NewAgentSpec struct {
	AgentID      string
	Provider     string
	Model        string
	Persona      string
	SystemPrompt string
	Temperature  *float64
}

// TeamManager performs the side effects of manage_team (§4.5, C7/C9):
// team membership and agent lifecycle. Implemented by internal/multiagent's
// StateManager + AgentLifecycle.
type TeamManager interface {
	CreateTeam(teamID string) (created bool, err error)
	DeleteTeam(teamID string) error
	CreateAgent(teamID string, spec NewAgentSpec) (agentID string, err error)
	DeleteAgent(agentID string) error
	ListTeams() []string
	ListAgents(teamID string) ([]string, error)
}

// ManageTeamTool implements manage_team: create_team, delete_team,
// create_agent, delete_agent, list_teams, list_agents. The tool only
// produces the structured result; the framework performs the side effect by
// reading it (§4.5).
type ManageTeamTool struct {
	Teams TeamManager
}

func (t *ManageTeamTool) Name() string { return "manage_team" }

func (t *ManageTeamTool) Run(_ context.Context, _ string, args map[string]string) (string, bool, []string) {
	if err := validateArgs(manageTeamSchema, t.Name(), args); err != nil {
		return toolError(err)
	}

	switch action := args["action"]; action {
	case "create_team":
		return t.createTeam(args)
	case "delete_team":
		return t.deleteTeam(args)
	case "create_agent":
		return t.createAgent(args)
	case "delete_agent":
		return t.deleteAgent(args)
	case "list_teams":
		return t.listTeams()
	case "list_agents":
		return t.listAgents(args)
	default:
		return toolError(fmt.Errorf("unknown manage_team action %q", action))
	}
}

func (t *ManageTeamTool) createTeam(args map[string]string) (string, bool, []string) {
	teamID := args["team_id"]
	if teamID == "" {
		return toolError(fmt.Errorf("team_id is required"))
	}
	created, err := t.Teams.CreateTeam(teamID)
	if err != nil {
		return toolError(err)
	}
	if created {
		return fmt.Sprintf("team %s created", teamID), false, nil
	}
	return fmt.Sprintf("team %s already exists", teamID), false, nil
}

func (t *ManageTeamTool) deleteTeam(args map[string]string) (string, bool, []string) {
	teamID := args["team_id"]
	if teamID == "" {
		return toolError(fmt.Errorf("team_id is required"))
	}
	if err := t.Teams.DeleteTeam(teamID); err != nil {
		return toolError(err)
	}
	return fmt.Sprintf("team %s deleted", teamID), false, nil
}

func (t *ManageTeamTool) createAgent(args map[string]string) (string, bool, []string) {
	teamID := args["team_id"]
	if teamID == "" {
		return toolError(fmt.Errorf("team_id is required"))
	}
	spec := NewAgentSpec{
		AgentID:      args["agent_id"],
		Provider:     args["provider"],
		Model:        args["model"],
		Persona:      args["persona"],
		SystemPrompt: args["system_prompt"],
	}
	if raw := args["temperature"]; raw != "" {
		temp, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return toolError(fmt.Errorf("temperature must be a number: %w", err))
		}
		spec.Temperature = &temp
	}

	agentID, err := t.Teams.CreateAgent(teamID, spec)
	if err != nil {
		return toolError(err)
	}
	return fmt.Sprintf("agent %s created in team %s", agentID, teamID), false, nil
}

func (t *ManageTeamTool) deleteAgent(args map[string]string) (string, bool, []string) {
	agentID := args["agent_id"]
	if agentID == "" {
		return toolError(fmt.Errorf("agent_id is required"))
	}
	if err := t.Teams.DeleteAgent(agentID); err != nil {
		return toolError(err)
	}
	return fmt.Sprintf("agent %s deleted", agentID), false, nil
}

func (t *ManageTeamTool) listTeams() (string, bool, []string) {
	teams := t.Teams.ListTeams()
	if len(teams) == 0 {
		return "no teams", false, nil
	}
	out := ""
	for i, id := range teams {
		if i > 0 {
			out += "\n"
		}
		out += id
	}
	return out, false, nil
}

func (t *ManageTeamTool) listAgents(args map[string]string) (string, bool, []string) {
	teamID := args["team_id"]
	if teamID == "" {
		return toolError(fmt.Errorf("team_id is required"))
	}
	agents, err := t.Teams.ListAgents(teamID)
	if err != nil {
		return toolError(err)
	}
	if len(agents) == 0 {
		return fmt.Sprintf("team %s has no agents", teamID), false, nil
	}
	out := ""
	for i, id := range agents {
		if i > 0 {
			out += "\n"
		}
		out += id
	}
	return out, false, nil
}
