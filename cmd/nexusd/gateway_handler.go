package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nexus-orchestrator/core/internal/agent"
	"github.com/nexus-orchestrator/core/internal/multiagent"
	"github.com/nexus-orchestrator/core/internal/sessions"
	"github.com/nexus-orchestrator/core/pkg/models"
)

// gatewayHandler implements internal/gateway's IngressHandler: it applies
// user_message, user_override, and session_command ingress events against
// the running orchestrator and state registry (§6 "Process-wide control
// surface").
type gatewayHandler struct {
	orchestrator *multiagent.Orchestrator
	states       *multiagent.StateManager
	lifecycle    *multiagent.AgentLifecycle
	sessionsMgr  *sessions.Manager
	projectsDir  string
}

func (h gatewayHandler) UserMessage(agentID, content string) error {
	ag, ok := h.states.Get(agentID)
	if !ok {
		return fmt.Errorf("agent %s does not exist", agentID)
	}
	ag.Lock()
	ag.Append(models.Message{Role: models.RoleUser, Content: content, CreatedAt: time.Now()})
	ag.Unlock()

	// Each inbound user_message starts a new user-visible request (§4.8 step
	// 7, invariant 6): every cycle the orchestrator spawns while chasing this
	// message's reactivations shares the one FailoverState minted here.
	requestID := uuid.NewString()
	h.orchestrator.Activate(agentID, requestID)
	return nil
}

func (h gatewayHandler) UserOverride(agentID, newProvider, newModel string) error {
	ag, ok := h.states.Get(agentID)
	if !ok {
		return fmt.Errorf("agent %s does not exist", agentID)
	}
	ag.Lock()
	if newProvider != "" {
		ag.Config.Provider = newProvider
	}
	if newModel != "" {
		ag.Config.Model = newModel
	}
	ag.Unlock()
	return nil
}

func (h gatewayHandler) SessionCommand(command, project, session string) error {
	switch command {
	case "save_session":
		return h.sessionsMgr.Save(project, session, h.states)
	case "load_session":
		snap, err := h.sessionsMgr.Load(project, session)
		if err != nil {
			return err
		}
		return restoreSnapshot(h.states, h.lifecycle, snap)
	default:
		return fmt.Errorf("unknown session command %q", command)
	}
}

// restoreSnapshot rebuilds StateManager's in-memory teams and agents from a
// loaded session snapshot (§4.10: "a restored agent always starts idle").
// Providers and sandboxes are not part of the snapshot; sandboxes are
// recreated here and providers are resolved afresh from each agent's
// Config.Provider/Model on its next cycle.
func restoreSnapshot(states *multiagent.StateManager, lifecycle *multiagent.AgentLifecycle, snap *sessions.Snapshot) error {
	for _, team := range snap.Teams {
		if _, err := states.CreateTeam(team.ID); err != nil {
			return err
		}
	}

	for _, as := range snap.Agents {
		sandbox, err := lifecycle.SandboxRoot(as.ID)
		if err != nil {
			return err
		}
		ag := agentFromSnapshot(as, sandbox)
		if err := states.Register(as.Team, ag); err != nil {
			return err
		}
	}
	return nil
}

func agentFromSnapshot(as sessions.AgentSnapshot, sandbox string) *agent.Agent {
	ag := agent.NewAgent(as.ID, as.Persona, agent.Config{
		Provider:     as.Config.Provider,
		Model:        as.Config.Model,
		Temperature:  as.Config.Temperature,
		SystemPrompt: as.Config.SystemPrompt,
		Extras:       as.Config.Extras,
	}, sandbox)
	for _, m := range as.History {
		ag.Append(m)
	}
	return ag
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}
