package tools

import (
	"context"
	"fmt"
)

// AgentDirectory resolves agent ids and personas for message routing
// (§4.5). Implemented by internal/multiagent's InteractionHandler.
type AgentDirectory interface {
	// Exists reports whether agentID is a known agent id.
	Exists(agentID string) bool
	// ResolvePersona returns the ids of every agent whose persona equals
	// persona.
	ResolvePersona(persona string) []string
	// Deliver appends a user-role message to target's history, prefixed
	// with "[From @sender]", and returns an error if target does not exist.
	Deliver(sender, target, content string) error
}

// SendMessageTool implements send_message: deliver to target_agent_id if it
// names a real agent; otherwise resolve it as a persona, routing only when
// exactly one agent matches. Ambiguous or unknown targets are reported as
// an error in the sender's own history, never the target's (§4.5, §4.13 S2).
type SendMessageTool struct {
	Directory AgentDirectory
}

func (t *SendMessageTool) Name() string { return "send_message" }

func (t *SendMessageTool) Run(_ context.Context, callerID string, args map[string]string) (string, bool, []string) {
	target := args["target_agent_id"]
	content := args["message_content"]
	if target == "" {
		return toolError(fmt.Errorf("target_agent_id is required"))
	}

	resolved := target
	if !t.Directory.Exists(target) {
		matches := t.Directory.ResolvePersona(target)
		switch len(matches) {
		case 1:
			resolved = matches[0]
		case 0:
			return toolError(fmt.Errorf("no agent with id or persona %q", target))
		default:
			return toolError(fmt.Errorf("ambiguous persona %q matches %d agents", target, len(matches)))
		}
	}

	if err := t.Directory.Deliver(callerID, resolved, content); err != nil {
		return toolError(err)
	}
	return fmt.Sprintf("delivered to %s", resolved), false, []string{resolved}
}
