// Package agent implements the per-agent execution cycle: the Agent state
// machine (§3), the LLMProvider contract (§4.4), and CycleHandler (§4.8),
// the component that assembles a prompt, streams one LLM generation, parses
// any tool calls out of it, and applies the retry/key-rotation/model-
// failover policy on failure.
package agent

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/nexus-orchestrator/core/pkg/models"
)

// State is one of the agent state-machine states (§3, §4.13).
type State string

const (
	StateIdle              State = "idle"
	StatePlanning          State = "planning"
	StateProcessing        State = "processing"
	StateExecutingTool     State = "executing_tool"
	StateAwaitingToolResult State = "awaiting_tool_result"
	StateError             State = "error"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidAgentID reports whether id satisfies the agent_id character set (§3).
func ValidAgentID(id string) bool {
	return id != "" && idPattern.MatchString(id)
}

// Config is an agent's provider/model configuration (§3).
type Config struct {
	Provider       string
	Model          string
	Temperature    float64
	SystemPrompt   string
	Extras         map[string]any
}

// Agent is a logical LLM-backed worker: identity, configuration, state, and
// history (§3). Histories are mutated only by CycleHandler and
// InteractionHandler, and never concurrently for the same agent — callers
// must hold Lock for the duration of any mutation.
type Agent struct {
	mu sync.Mutex

	ID      string
	Persona string
	TeamID  string // empty if unassigned

	Config Config
	State  State

	History []models.Message

	// CurrentPlan is set when a planning-phase turn emits a <plan> and is
	// kept after the agent moves on to StateProcessing; it holds the
	// verbatim body of the most recent <plan> element.
	CurrentPlan string

	// Pending holds the tool calls still awaiting sequential execution for
	// the current turn; non-empty only in StateExecutingTool or
	// StateAwaitingToolResult (§3 invariant).
	Pending []models.ToolCall

	SandboxPath string

	// malformedRetries counts corrective reactivations for a missing <plan>
	// in the planning phase this task, bounded by CycleOptions.MaxMalformedRetries.
	malformedRetries int
}

// NewAgent constructs an agent in the idle state with an empty history.
func NewAgent(id, persona string, cfg Config, sandboxPath string) *Agent {
	return &Agent{
		ID:          id,
		Persona:     persona,
		Config:      cfg,
		State:       StateIdle,
		SandboxPath: sandboxPath,
	}
}

// Lock acquires the agent's exclusive lock, serialising cycles (§5: at most
// one cycle per agent runs at a time).
func (a *Agent) Lock() { a.mu.Lock() }

// Unlock releases the agent's exclusive lock.
func (a *Agent) Unlock() { a.mu.Unlock() }

// Append adds a message to the end of the agent's history. Must be called
// with the agent locked.
func (a *Agent) Append(m models.Message) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	a.History = append(a.History, m)
}

// SetState transitions the agent to a new state. Must be called with the
// agent locked.
func (a *Agent) SetState(s State) {
	a.State = s
}

// HasUnresolvedToolCalls reports whether the agent's invariant for
// executing_tool/awaiting_tool_result (at least one unresolved pending tool
// call) holds.
func (a *Agent) HasUnresolvedToolCalls() bool {
	return len(a.Pending) > 0
}

// IncMalformedRetries increments and returns the corrective-reactivation
// counter, bounded by maxRetries (§7's "up to 2 times per task").
func (a *Agent) IncMalformedRetries(maxRetries int) (count int, exceeded bool) {
	a.malformedRetries++
	return a.malformedRetries, a.malformedRetries > maxRetries
}

// String implements fmt.Stringer for logging.
func (a *Agent) String() string {
	return fmt.Sprintf("agent(%s persona=%s state=%s)", a.ID, a.Persona, a.State)
}
