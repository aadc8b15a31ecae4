// Package observability provides diagnostic event types and emission.
package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// DiagnosticEventType identifies the type of diagnostic event.
type DiagnosticEventType string

const (
	EventTypeModelUsage          DiagnosticEventType = "model.usage"
	EventTypeCycleStarted        DiagnosticEventType = "cycle.started"
	EventTypeCycleFinished       DiagnosticEventType = "cycle.finished"
	EventTypeToolExecuted        DiagnosticEventType = "tool.executed"
	EventTypeKeyQuarantined      DiagnosticEventType = "key.quarantined"
	EventTypeModelFailover       DiagnosticEventType = "model.failover"
	EventTypeSessionSnapshot     DiagnosticEventType = "session.snapshot"
	EventTypeLaneEnqueue         DiagnosticEventType = "queue.lane.enqueue"
	EventTypeLaneDequeue         DiagnosticEventType = "queue.lane.dequeue"
	EventTypeRunAttempt          DiagnosticEventType = "run.attempt"
	EventTypeDiagnosticHeartbeat DiagnosticEventType = "diagnostic.heartbeat"
)

// DiagnosticEvent is the base event structure embedded by every event type.
type DiagnosticEvent struct {
	Type DiagnosticEventType `json:"type"`
	Seq  int64               `json:"seq"`
	Ts   int64               `json:"ts"`
}

// ModelUsageEvent tracks token usage and cost for one LLM request.
type ModelUsageEvent struct {
	DiagnosticEvent
	AgentID    string          `json:"agent_id,omitempty"`
	Provider   string          `json:"provider,omitempty"`
	Model      string          `json:"model,omitempty"`
	Usage      UsageDetails    `json:"usage"`
	Context    *ContextDetails `json:"context,omitempty"`
	CostUSD    float64         `json:"cost_usd,omitempty"`
	DurationMs int64           `json:"duration_ms,omitempty"`
}

// UsageDetails contains token usage breakdown.
type UsageDetails struct {
	Input      int64 `json:"input,omitempty"`
	Output     int64 `json:"output,omitempty"`
	CacheRead  int64 `json:"cache_read,omitempty"`
	CacheWrite int64 `json:"cache_write,omitempty"`
	Total      int64 `json:"total,omitempty"`
}

// ContextDetails contains context window information.
type ContextDetails struct {
	Limit int64 `json:"limit,omitempty"`
	Used  int64 `json:"used,omitempty"`
}

// CycleStartedEvent marks the start of one agent cycle (C8).
type CycleStartedEvent struct {
	DiagnosticEvent
	AgentID string `json:"agent_id"`
	CycleID string `json:"cycle_id"`
}

// CycleFinishedEvent marks the end of one agent cycle.
type CycleFinishedEvent struct {
	DiagnosticEvent
	AgentID    string `json:"agent_id"`
	CycleID    string `json:"cycle_id"`
	Outcome    string `json:"outcome"` // "success", "error"
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// ToolExecutedEvent tracks one tool call execution (C5).
type ToolExecutedEvent struct {
	DiagnosticEvent
	AgentID    string `json:"agent_id"`
	CallID     string `json:"call_id,omitempty"`
	ToolName   string `json:"tool_name"`
	Success    bool   `json:"success"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	Error      string `json:"error,omitempty"`
}

// KeyQuarantinedEvent tracks a provider key entering quarantine (C2).
type KeyQuarantinedEvent struct {
	DiagnosticEvent
	Provider   string `json:"provider"`
	Reason     string `json:"reason"` // "rate_limit", "auth_fail"
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// ModelFailoverEvent tracks a failover transition away from a model (C3).
type ModelFailoverEvent struct {
	DiagnosticEvent
	AgentID      string `json:"agent_id"`
	FromProvider string `json:"from_provider"`
	FromModel    string `json:"from_model"`
	ToProvider   string `json:"to_provider"`
	ToModel      string `json:"to_model"`
	Reason       string `json:"reason,omitempty"`
}

// SessionSnapshotEvent tracks a session save or load (C10).
type SessionSnapshotEvent struct {
	DiagnosticEvent
	SessionID  string `json:"session_id"`
	AgentCount int    `json:"agent_count"`
	Op         string `json:"op"` // "save", "load"
}

// LaneEnqueueEvent tracks a UI gateway backpressure lane enqueue (C13).
type LaneEnqueueEvent struct {
	DiagnosticEvent
	Lane      string `json:"lane"`
	QueueSize int    `json:"queue_size"`
}

// LaneDequeueEvent tracks a UI gateway backpressure lane dequeue.
type LaneDequeueEvent struct {
	DiagnosticEvent
	Lane      string `json:"lane"`
	QueueSize int    `json:"queue_size"`
	WaitMs    int64  `json:"wait_ms"`
}

// RunAttemptEvent tracks one attempt in the retry/key-rotation/failover
// cascade (§4.8 step 7).
type RunAttemptEvent struct {
	DiagnosticEvent
	AgentID string `json:"agent_id"`
	CycleID string `json:"cycle_id"`
	Attempt int    `json:"attempt"`
	Kind    string `json:"kind"` // error kind that triggered this attempt
}

// DiagnosticHeartbeatEvent is a periodic snapshot of orchestrator load.
type DiagnosticHeartbeatEvent struct {
	DiagnosticEvent
	ActiveAgents int `json:"active_agents"`
	Queued       int `json:"queued"`
}

// DiagnosticEventPayload is a union type for all diagnostic events.
type DiagnosticEventPayload interface {
	EventType() DiagnosticEventType
	Sequence() int64
	Timestamp() int64
}

func (e *DiagnosticEvent) EventType() DiagnosticEventType { return e.Type }
func (e *DiagnosticEvent) Sequence() int64                { return e.Seq }
func (e *DiagnosticEvent) Timestamp() int64               { return e.Ts }

// DiagnosticListener receives diagnostic events.
type DiagnosticListener func(event DiagnosticEventPayload)

// DiagnosticEmitter fans diagnostic events out to registered listeners.
type DiagnosticEmitter struct {
	mu        sync.RWMutex
	seq       int64
	enabled   bool
	listeners []DiagnosticListener
}

var globalEmitter = &DiagnosticEmitter{}

// SetDiagnosticsEnabled enables or disables diagnostic event emission.
func SetDiagnosticsEnabled(enabled bool) {
	globalEmitter.mu.Lock()
	defer globalEmitter.mu.Unlock()
	globalEmitter.enabled = enabled
}

// IsDiagnosticsEnabled reports whether diagnostics are enabled.
func IsDiagnosticsEnabled() bool {
	globalEmitter.mu.RLock()
	defer globalEmitter.mu.RUnlock()
	return globalEmitter.enabled
}

// OnDiagnosticEvent registers a listener and returns an unsubscribe func.
func OnDiagnosticEvent(listener DiagnosticListener) func() {
	globalEmitter.mu.Lock()
	defer globalEmitter.mu.Unlock()
	globalEmitter.listeners = append(globalEmitter.listeners, listener)

	idx := len(globalEmitter.listeners) - 1
	return func() {
		globalEmitter.mu.Lock()
		defer globalEmitter.mu.Unlock()
		if idx < len(globalEmitter.listeners) {
			globalEmitter.listeners = append(globalEmitter.listeners[:idx], globalEmitter.listeners[idx+1:]...)
		}
	}
}

func nextSeq() int64 {
	return atomic.AddInt64(&globalEmitter.seq, 1)
}

func emit(event DiagnosticEventPayload) {
	globalEmitter.mu.RLock()
	if !globalEmitter.enabled {
		globalEmitter.mu.RUnlock()
		return
	}
	listeners := make([]DiagnosticListener, len(globalEmitter.listeners))
	copy(listeners, globalEmitter.listeners)
	globalEmitter.mu.RUnlock()

	for _, listener := range listeners {
		func() {
			defer func() { recover() }()
			listener(event)
		}()
	}
}

// EmitModelUsage emits a model usage event.
func EmitModelUsage(e *ModelUsageEvent) {
	e.Type = EventTypeModelUsage
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitCycleStarted emits a cycle started event.
func EmitCycleStarted(e *CycleStartedEvent) {
	e.Type = EventTypeCycleStarted
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitCycleFinished emits a cycle finished event.
func EmitCycleFinished(e *CycleFinishedEvent) {
	e.Type = EventTypeCycleFinished
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitToolExecuted emits a tool executed event.
func EmitToolExecuted(e *ToolExecutedEvent) {
	e.Type = EventTypeToolExecuted
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitKeyQuarantined emits a key quarantined event.
func EmitKeyQuarantined(e *KeyQuarantinedEvent) {
	e.Type = EventTypeKeyQuarantined
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitModelFailover emits a model failover event.
func EmitModelFailover(e *ModelFailoverEvent) {
	e.Type = EventTypeModelFailover
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitSessionSnapshot emits a session snapshot event.
func EmitSessionSnapshot(e *SessionSnapshotEvent) {
	e.Type = EventTypeSessionSnapshot
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitLaneEnqueue emits a lane enqueue event.
func EmitLaneEnqueue(e *LaneEnqueueEvent) {
	e.Type = EventTypeLaneEnqueue
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitLaneDequeue emits a lane dequeue event.
func EmitLaneDequeue(e *LaneDequeueEvent) {
	e.Type = EventTypeLaneDequeue
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitRunAttempt emits a run attempt event.
func EmitRunAttempt(e *RunAttemptEvent) {
	e.Type = EventTypeRunAttempt
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitDiagnosticHeartbeat emits a diagnostic heartbeat event.
func EmitDiagnosticHeartbeat(e *DiagnosticHeartbeatEvent) {
	e.Type = EventTypeDiagnosticHeartbeat
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// ResetDiagnosticsForTest resets diagnostic state between test cases.
func ResetDiagnosticsForTest() {
	globalEmitter.mu.Lock()
	defer globalEmitter.mu.Unlock()
	atomic.StoreInt64(&globalEmitter.seq, 0)
	globalEmitter.listeners = nil
}
