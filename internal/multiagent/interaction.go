package multiagent

import (
	"fmt"
	"time"

	"github.com/nexus-orchestrator/core/pkg/models"
)

// InteractionHandler is the framework side of send_message delivery (C7):
// it appends the delivered message to the target agent's own history under
// the target's lock, never the sender's. Satisfies internal/tools'
// AgentDirectory on its own; its Exists/ResolvePersona delegate to
// StateManager.
type InteractionHandler struct {
	States *StateManager
}

// Deliver appends a user-role message to target's history, prefixed with
// "[From @sender]" (§4.5). The caller (SendMessageTool) is responsible for
// having already resolved target from a raw id or persona.
func (h *InteractionHandler) Deliver(sender, target, content string) error {
	ag, ok := h.States.Get(target)
	if !ok {
		return fmt.Errorf("agent %s does not exist", target)
	}

	ag.Lock()
	defer ag.Unlock()
	ag.Append(models.Message{
		Role:      models.RoleUser,
		Content:   fmt.Sprintf("[From @%s] %s", sender, content),
		CreatedAt: time.Now(),
	})
	return nil
}

// Exists delegates to StateManager, completing the AgentDirectory contract.
func (h *InteractionHandler) Exists(agentID string) bool { return h.States.Exists(agentID) }

// ResolvePersona delegates to StateManager, completing the AgentDirectory
// contract.
func (h *InteractionHandler) ResolvePersona(persona string) []string {
	return h.States.ResolvePersona(persona)
}
