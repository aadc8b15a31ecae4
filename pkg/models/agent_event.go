package models

import "time"

// AgentEvent is the unified event model emitted by a cycle for a given
// agent. CycleHandler emits these; the UI gateway and the observability
// layer are two independent consumers of the same stream.
//
// Design principles:
//   - Versioned and forward-compatible (add fields, don't rename/remove)
//   - Single Type discriminator with optional payload pointers
//   - Monotonic Sequence for ordering guarantees across goroutines
type AgentEvent struct {
	Version int            `json:"version"`
	Type    AgentEventType `json:"type"`
	Time    time.Time      `json:"time"`

	// Sequence is monotonic within a cycle for ordering guarantees.
	Sequence uint64 `json:"seq"`

	AgentID string `json:"agent_id,omitempty"`
	CycleID string `json:"cycle_id,omitempty"`

	// IterIndex is the 0-based tool-execution iteration within the cycle.
	IterIndex int `json:"iter_index,omitempty"`

	// Exactly one payload should be non-nil for a given Type.
	Text    *TextEventPayload    `json:"text,omitempty"`
	Tool    *ToolEventPayload    `json:"tool,omitempty"`
	Stream  *StreamEventPayload  `json:"stream,omitempty"`
	Error   *ErrorEventPayload   `json:"error,omitempty"`
	Status  *StatusEventPayload  `json:"status,omitempty"`
	Context *ContextEventPayload `json:"context,omitempty"`
}

// AgentEventType identifies the kind of agent event.
type AgentEventType string

const (
	// Cycle lifecycle.
	AgentEventCycleStarted  AgentEventType = "cycle.started"
	AgentEventCycleFinished AgentEventType = "cycle.finished"
	AgentEventCycleError    AgentEventType = "run.error"
	AgentEventCycleTimedOut AgentEventType = "run.timed_out"

	AgentEventIterStarted  AgentEventType = "iter.started"
	AgentEventIterFinished AgentEventType = "iter.finished"

	// Model streaming, surfaced to the UI gateway as content_chunk.
	AgentEventModelDelta     AgentEventType = "model.delta"
	AgentEventModelCompleted AgentEventType = "model.completed"

	// Tool execution.
	AgentEventToolStarted  AgentEventType = "tool.started"
	AgentEventToolStdout   AgentEventType = "tool.stdout"
	AgentEventToolStderr   AgentEventType = "tool.stderr"
	AgentEventToolFinished AgentEventType = "tool.finished"
	AgentEventToolTimedOut AgentEventType = "tool.timed_out"

	// Context packing diagnostics (truncation/compaction, see SPEC_FULL §D).
	AgentEventContextPacked AgentEventType = "context.packed"

	// Surfaced verbatim to the UI gateway (§4.13).
	AgentEventAgentStatus      AgentEventType = "agent_status"
	AgentEventMessageAppended  AgentEventType = "message_appended"
	AgentEventOverrideRequired AgentEventType = "override_required"
)

// TextEventPayload is generic human-readable text (logs, status messages).
type TextEventPayload struct {
	Text string `json:"text"`
}

// StreamEventPayload represents model streaming deltas and completion metadata.
type StreamEventPayload struct {
	Delta string `json:"delta,omitempty"`
	Final string `json:"final,omitempty"`

	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
}

// ToolEventPayload describes tool calls and their streamed outputs.
type ToolEventPayload struct {
	CallID string `json:"call_id,omitempty"`
	Name   string `json:"name,omitempty"`

	ArgsJSON []byte `json:"args_json,omitempty"`
	Chunk    string `json:"chunk,omitempty"`

	Success    bool          `json:"success,omitempty"`
	ResultJSON []byte        `json:"result_json,omitempty"`
	Elapsed    time.Duration `json:"elapsed,omitempty"`
}

// ErrorEventPayload standardizes errors for streaming.
type ErrorEventPayload struct {
	Message   string `json:"message"`
	Kind      string `json:"kind,omitempty"`
	Retriable bool   `json:"retriable,omitempty"`

	// Err is the original error (runtime only, not serialized). Preserves
	// error identity for errors.Is/errors.As across the event boundary.
	Err error `json:"-"`
}

// StatusEventPayload carries an agent's new state-machine state (§4.13).
type StatusEventPayload struct {
	State string `json:"state"`
}

// ContextEventPayload contains context packing diagnostics: why certain
// messages were included or dropped during history truncation.
type ContextEventPayload struct {
	BudgetMessages int `json:"budget_messages"`
	UsedMessages   int `json:"used_messages"`

	Candidates int `json:"candidates"`
	Included   int `json:"included"`
	Dropped    int `json:"dropped"`
}
