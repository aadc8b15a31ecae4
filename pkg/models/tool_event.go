package models

import "time"

// ToolEventStage describes the lifecycle stage of a tool invocation for observability.
type ToolEventStage string

const (
	ToolEventRequested ToolEventStage = "requested"
	ToolEventStarted   ToolEventStage = "started"
	ToolEventSucceeded ToolEventStage = "succeeded"
	ToolEventFailed    ToolEventStage = "failed"
	ToolEventTimedOut  ToolEventStage = "timed_out"
)

// ToolEvent is a diagnostic lifecycle event for one tool call, distinct from
// the user-facing ToolResult appended to the agent's history.
type ToolEvent struct {
	ToolCallID string         `json:"tool_call_id"`
	ToolName   string         `json:"tool_name"`
	Stage      ToolEventStage `json:"stage"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at,omitempty"`
	FinishedAt time.Time      `json:"finished_at,omitempty"`
}
