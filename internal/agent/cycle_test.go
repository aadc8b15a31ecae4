package agent

import (
	"context"
	"testing"
	"time"

	modelreg "github.com/nexus-orchestrator/core/internal/models"
	"github.com/nexus-orchestrator/core/internal/retry"
	"github.com/nexus-orchestrator/core/pkg/models"
)

type scriptedProvider struct {
	name   string
	events [][]StreamEvent // one slice per call, consumed in order
	calls  int
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error) {
	idx := p.calls
	if idx >= len(p.events) {
		idx = len(p.events) - 1
	}
	p.calls++

	ch := make(chan StreamEvent, len(p.events[idx]))
	for _, e := range p.events[idx] {
		ch <- e
	}
	close(ch)
	return ch, nil
}

type fakeTools struct {
	parsed    []models.ToolCall
	results   map[string]models.ToolResult
	reactivate map[string][]string
}

func (f *fakeTools) ParseToolCalls(text string) []models.ToolCall { return f.parsed }

func (f *fakeTools) Execute(ctx context.Context, callerID string, call models.ToolCall) (models.ToolResult, []string) {
	return f.results[call.CallID], f.reactivate[call.CallID]
}

type recordingActivator struct {
	activated  []string
	requestIDs []string
}

func (r *recordingActivator) Activate(id, requestID string) {
	r.activated = append(r.activated, id)
	r.requestIDs = append(r.requestIDs, requestID)
}

func newTestCatalog() (*modelreg.Catalog, *modelreg.PerformanceTracker) {
	catalog := modelreg.NewCatalog(modelreg.TierAll)
	catalog.Register(&fakeReacher{provider: "primary", models: []modelreg.Model{{Provider: "primary", ID: "model-a"}}})
	catalog.Register(&fakeReacher{provider: "backup", models: []modelreg.Model{{Provider: "backup", ID: "model-b"}}})
	catalog.Refresh(context.Background())
	return catalog, modelreg.NewPerformanceTracker("")
}

type fakeReacher struct {
	provider string
	models   []modelreg.Model
}

func (f *fakeReacher) Provider() string                                   { return f.provider }
func (f *fakeReacher) Ping(ctx context.Context) error                     { return nil }
func (f *fakeReacher) Models(ctx context.Context) ([]modelreg.Model, error) { return f.models, nil }

func TestCycleHandler_RunSimpleCompletionGoesIdle(t *testing.T) {
	provider := &scriptedProvider{name: "primary", events: [][]StreamEvent{
		{{Kind: StreamEventDelta, Delta: "hello"}, {Kind: StreamEventDone}},
	}}
	catalog, tracker := newTestCatalog()
	keys := retry.NewProviderKeyManager(map[string][]string{"primary": {"k1"}}, "")
	tools := &fakeTools{}
	act := &recordingActivator{}

	h := NewCycleHandler(map[string]LLMProvider{"primary": provider}, keys, catalog, tracker, tools, NopSink{}, act)
	ag := NewAgent("agent-1", "coder", Config{Provider: "primary", Model: "model-a"}, "/tmp/sandbox")

	if err := h.Run(context.Background(), ag, "system prompt", "cycle-1", "req-1", modelreg.NewFailoverState()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if ag.State != StateIdle {
		t.Errorf("State = %v, want idle", ag.State)
	}
	if len(act.activated) != 0 {
		t.Errorf("expected no reactivation, got %v", act.activated)
	}
	if len(ag.History) != 1 || ag.History[0].Content != "hello" {
		t.Fatalf("History = %+v", ag.History)
	}
}

func TestCycleHandler_RunExecutesToolCallsThenReactivates(t *testing.T) {
	provider := &scriptedProvider{name: "primary", events: [][]StreamEvent{
		{{Kind: StreamEventDelta, Delta: "<tool>x</tool>"}, {Kind: StreamEventDone}},
	}}
	catalog, tracker := newTestCatalog()
	keys := retry.NewProviderKeyManager(map[string][]string{"primary": {"k1"}}, "")
	tools := &fakeTools{
		parsed:  []models.ToolCall{{CallID: "c1", ToolName: "file_system"}},
		results: map[string]models.ToolResult{"c1": {ToolCallID: "c1", Content: "ok"}},
	}
	act := &recordingActivator{}

	h := NewCycleHandler(map[string]LLMProvider{"primary": provider}, keys, catalog, tracker, tools, NopSink{}, act)
	ag := NewAgent("agent-1", "coder", Config{Provider: "primary", Model: "model-a"}, "/tmp/sandbox")

	if err := h.Run(context.Background(), ag, "system prompt", "cycle-1", "req-1", modelreg.NewFailoverState()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if ag.State != StateAwaitingToolResult {
		t.Errorf("State = %v, want awaiting_tool_result", ag.State)
	}
	if len(act.activated) != 1 || act.activated[0] != "agent-1" {
		t.Errorf("activated = %v, want [agent-1]", act.activated)
	}
}

func TestCycleHandler_RunFailsOverOnModelUnavailable(t *testing.T) {
	provider := &scriptedProvider{name: "primary", events: [][]StreamEvent{
		{{Kind: StreamEventError, Err: &StreamError{Kind: ErrModelUnavailable, Detail: "model retired"}}},
	}}
	backup := &scriptedProvider{name: "backup", events: [][]StreamEvent{
		{{Kind: StreamEventDelta, Delta: "done via backup"}, {Kind: StreamEventDone}},
	}}
	catalog, tracker := newTestCatalog()
	keys := retry.NewProviderKeyManager(map[string][]string{"primary": {"k1"}, "backup": {"k2"}}, "")
	tools := &fakeTools{}
	act := &recordingActivator{}

	h := NewCycleHandler(map[string]LLMProvider{"primary": provider, "backup": backup}, keys, catalog, tracker, tools, NopSink{}, act)
	ag := NewAgent("agent-1", "coder", Config{Provider: "primary", Model: "model-a"}, "/tmp/sandbox")

	if err := h.Run(context.Background(), ag, "system prompt", "cycle-1", "req-1", modelreg.NewFailoverState()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if ag.Config.Provider != "backup" || ag.Config.Model != "model-b" {
		t.Errorf("Config = %+v, want failed over to backup/model-b", ag.Config)
	}
}

func TestCycleHandler_RunPlanningPhaseExtractsPlan(t *testing.T) {
	provider := &scriptedProvider{name: "primary", events: [][]StreamEvent{
		{{Kind: StreamEventDelta, Delta: "<plan>step one</plan>"}, {Kind: StreamEventDone}},
	}}
	catalog, tracker := newTestCatalog()
	keys := retry.NewProviderKeyManager(map[string][]string{"primary": {"k1"}}, "")
	act := &recordingActivator{}

	h := NewCycleHandler(map[string]LLMProvider{"primary": provider}, keys, catalog, tracker, &fakeTools{}, NopSink{}, act)
	ag := NewAgent("admin", "admin_ai", Config{Provider: "primary", Model: "model-a"}, "/tmp/sandbox")
	ag.SetState(StatePlanning)

	if err := h.Run(context.Background(), ag, "planning prompt", "cycle-1", "req-1", modelreg.NewFailoverState()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if ag.CurrentPlan != "step one" {
		t.Errorf("CurrentPlan = %q, want %q", ag.CurrentPlan, "step one")
	}
	if ag.State != StateProcessing {
		t.Errorf("State = %v, want processing", ag.State)
	}
}

func TestCycleHandler_RunIdleTimeoutIsRetried(t *testing.T) {
	provider := &scriptedProvider{name: "primary", events: [][]StreamEvent{
		{{Kind: StreamEventError, Err: &StreamError{Kind: ErrTransientNetwork, Retryable: true, Detail: "timeout"}}},
		{{Kind: StreamEventDelta, Delta: "recovered"}, {Kind: StreamEventDone}},
	}}
	catalog, tracker := newTestCatalog()
	keys := retry.NewProviderKeyManager(map[string][]string{"primary": {"k1"}}, "")
	act := &recordingActivator{}

	h := NewCycleHandler(map[string]LLMProvider{"primary": provider}, keys, catalog, tracker, &fakeTools{}, NopSink{}, act)
	h.Options.StreamIdleTimeout = time.Second
	ag := NewAgent("agent-1", "coder", Config{Provider: "primary", Model: "model-a"}, "/tmp/sandbox")

	start := time.Now()
	if err := h.Run(context.Background(), ag, "system prompt", "cycle-1", "req-1", modelreg.NewFailoverState()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Errorf("retry took too long: %v", time.Since(start))
	}
	if ag.State != StateIdle {
		t.Errorf("State = %v, want idle after recovery", ag.State)
	}
}
