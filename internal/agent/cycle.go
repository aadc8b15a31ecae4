package agent

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	agentcontext "github.com/nexus-orchestrator/core/internal/agent/context"
	modelreg "github.com/nexus-orchestrator/core/internal/models"
	"github.com/nexus-orchestrator/core/internal/retry"
	"github.com/nexus-orchestrator/core/pkg/models"
)

// ToolRunner is the ToolExecutor + InteractionHandler boundary CycleHandler
// depends on (C5/C7): parse tool calls out of one assistant turn, then
// execute each sequentially, in document order, against in-memory state.
// internal/tools and internal/multiagent together satisfy this interface;
// agent stays free of a direct import on either.
type ToolRunner interface {
	// ParseToolCalls extracts tool calls embedded as XML in assistant text,
	// in document order (§6).
	ParseToolCalls(assistantText string) []models.ToolCall

	// Execute runs one tool call for callerID and returns the tool message
	// to append plus the set of agent IDs (if any) that should be
	// reactivated as a side effect (e.g. a send_message recipient, §4.5).
	Execute(ctx context.Context, callerID string, call models.ToolCall) (models.ToolResult, []string)
}

// Activator enqueues an agent for a new cycle (§5: "activation"). requestID
// identifies the user-visible request the reactivation belongs to, so the
// orchestrator can keep routing every cycle it spawns through the same
// FailoverState (invariant 6: total failover attempts per request, not per
// cycle).
type Activator interface {
	Activate(agentID, requestID string)
}

var planPattern = regexp.MustCompile(`(?s)<plan>(.*?)</plan>`)

// CycleHandler runs one generation cycle for one agent (C8): assemble the
// prompt, stream the model, parse and sequentially execute any tool calls,
// and apply the retry -> key-rotation -> model-failover cascade on failure.
type CycleHandler struct {
	Providers map[string]LLMProvider
	Keys      *retry.ProviderKeyManager
	Catalog   *modelreg.Catalog
	Tracker   *modelreg.PerformanceTracker
	Tools     ToolRunner
	Events    EventSink
	Activator Activator
	Options   CycleOptions
}

// NewCycleHandler constructs a handler with default options.
func NewCycleHandler(providers map[string]LLMProvider, keys *retry.ProviderKeyManager, catalog *modelreg.Catalog, tracker *modelreg.PerformanceTracker, tools ToolRunner, events EventSink, activator Activator) *CycleHandler {
	return &CycleHandler{
		Providers: providers,
		Keys:      keys,
		Catalog:   catalog,
		Tracker:   tracker,
		Tools:     tools,
		Events:    events,
		Activator: activator,
		Options:   DefaultCycleOptions(),
	}
}

// assembleMessages builds the request messages: system prompt + history,
// truncated to maxHistory messages when positive (§4.8 step 1). systemPrompt
// is produced by PromptAssembler (C12) and passed in rather than rendered
// here, keeping CycleHandler template-agnostic.
func assembleMessages(systemPrompt string, history []models.Message, maxHistory int) []CompletionMessage {
	if maxHistory > 0 {
		history, _ = agentcontext.NewTruncator(maxHistory).Truncate(history)
	}

	out := make([]CompletionMessage, 0, len(history)+1)
	out = append(out, CompletionMessage{Role: string(models.RoleSystem), Content: systemPrompt})
	for _, m := range history {
		out = append(out, CompletionMessage{Role: string(m.Role), Content: m.Content, ToolCallID: m.ToolCallID, Name: m.Name})
	}
	return out
}

// Run executes one cycle for agent using systemPrompt as the rendered
// system message. cycleID identifies this cycle for tracing/events; requestID
// identifies the user-visible request this cycle belongs to, and failover is
// that request's shared FailoverState (the caller owns its lifetime — one
// instance per request, not per cycle, per invariant 6).
func (h *CycleHandler) Run(ctx context.Context, ag *Agent, systemPrompt, cycleID, requestID string, failover *modelreg.FailoverState) error {
	h.emit(ctx, ag.ID, cycleID, models.AgentEvent{Type: models.AgentEventCycleStarted})
	defer h.emit(ctx, ag.ID, cycleID, models.AgentEvent{Type: models.AgentEventCycleFinished})

	retryConfig := retry.CycleRetryConfig()
	netAttempt := 0

	for {
		text, err := h.runOneAttempt(ctx, ag, systemPrompt, cycleID)
		if err == nil {
			return h.onSuccess(ctx, ag, cycleID, requestID, text)
		}

		var sErr *StreamError
		if !errors.As(err, &sErr) {
			ag.SetState(StateError)
			h.emitStatus(ctx, ag)
			return err
		}

		cont, waitErr := h.handleFailure(ctx, ag, sErr, failover, retryConfig, &netAttempt)
		if waitErr != nil {
			ag.SetState(StateError)
			h.emitStatus(ctx, ag)
			h.emit(ctx, ag.ID, cycleID, models.AgentEvent{Type: models.AgentEventOverrideRequired, Error: &models.ErrorEventPayload{Message: waitErr.Error()}})
			return waitErr
		}
		if !cont {
			return sErr
		}
		// loop: retried/rotated/failed-over, try again
	}
}

// runOneAttempt opens one provider stream and consumes it to completion,
// returning the full assistant text or a *StreamError.
func (h *CycleHandler) runOneAttempt(ctx context.Context, ag *Agent, systemPrompt string, cycleID string) (string, error) {
	provider, ok := h.Providers[ag.Config.Provider]
	if !ok {
		return "", &StreamError{Kind: ErrInvalidRequest, Detail: "unknown provider " + ag.Config.Provider}
	}

	key, lease, ok := h.Keys.Acquire(ag.Config.Provider)
	if !ok {
		return "", &StreamError{Kind: ErrAuthFailed, Detail: "no available key for " + ag.Config.Provider}
	}

	req := CompletionRequest{
		Model:       ag.Config.Model,
		Messages:    assembleMessages(systemPrompt, ag.History, h.Options.MaxHistoryMessages),
		Temperature: ag.Config.Temperature,
		Extras:      map[string]any{"api_key": key},
	}

	start := time.Now()
	stream, err := provider.Stream(ctx, req)
	if err != nil {
		var sErr *StreamError
		if errors.As(err, &sErr) {
			return "", sErr
		}
		return "", &StreamError{Kind: ErrProviderInternal, Detail: err.Error(), Err: err}
	}

	var sb strings.Builder
	idle := time.NewTimer(h.Options.StreamIdleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", &StreamError{Kind: ErrTransientNetwork, Detail: "cycle cancelled", Err: ctx.Err()}
		case <-idle.C:
			return "", &StreamError{Kind: ErrTransientNetwork, Retryable: true, Detail: "stream idle timeout"}
		case ev, open := <-stream:
			if !open {
				return "", &StreamError{Kind: ErrProviderInternal, Detail: "stream closed without Done"}
			}
			switch ev.Kind {
			case StreamEventDelta:
				sb.WriteString(ev.Delta)
				h.emit(ctx, ag.ID, cycleID, models.AgentEvent{Type: models.AgentEventModelDelta, Stream: &models.StreamEventPayload{Delta: ev.Delta}})
				if !idle.Stop() {
					<-idle.C
				}
				idle.Reset(h.Options.StreamIdleTimeout)
			case StreamEventDone:
				h.Tracker.Record(ag.Config.Provider, ag.Config.Model, true, time.Since(start))
				_ = lease
				h.emit(ctx, ag.ID, cycleID, models.AgentEvent{Type: models.AgentEventModelCompleted, Stream: &models.StreamEventPayload{Final: sb.String(), Provider: ag.Config.Provider, Model: ag.Config.Model}})
				return sb.String(), nil
			case StreamEventError:
				h.Tracker.Record(ag.Config.Provider, ag.Config.Model, false, time.Since(start))
				return "", ev.Err
			}
		}
	}
}

// handleFailure applies §4.8 step 7's policy cascade. Returns (true, nil) to
// retry the cycle, (false, nil) if the error is not handled by this layer
// (bubble as-is), or a non-nil error once every recourse is exhausted.
func (h *CycleHandler) handleFailure(ctx context.Context, ag *Agent, sErr *StreamError, failover *modelreg.FailoverState, retryConfig retry.Config, netAttempt *int) (bool, error) {
	switch sErr.Kind {
	case ErrTransientNetwork, ErrProviderInternal:
		*netAttempt++
		if *netAttempt > retryConfig.MaxAttempts {
			return false, nil
		}
		wait := retry.BackoffWithJitter(*netAttempt, retryConfig.InitialDelay, retryConfig.MaxDelay, retryConfig.Factor)
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(wait):
		}
		return true, nil

	case ErrRateLimited, ErrAuthFailed:
		if _, lease, ok := h.Keys.Acquire(ag.Config.Provider); ok {
			d := retry.RateLimitQuarantine
			if sErr.Kind == ErrAuthFailed {
				d = retry.AuthFailQuarantine
			}
			h.Keys.Quarantine(lease, d)
			return true, nil
		}
		// No key left for this provider: cascade to model failover.
		fallthrough

	case ErrModelUnavailable, ErrInvalidRequest:
		next, err := failover.Next(h.Catalog, h.Tracker, ag.Config.Provider, ag.Config.Model)
		if err != nil {
			return false, err
		}
		ag.Config.Provider = next.Provider
		ag.Config.Model = next.ID
		return true, nil

	default:
		return false, sErr
	}
}

// onSuccess appends the assistant message, parses tool calls, and either
// ends the cycle or runs them sequentially (§4.8 step 5). requestID is
// threaded into every reactivation so the cycles it spawns keep sharing this
// request's FailoverState.
func (h *CycleHandler) onSuccess(ctx context.Context, ag *Agent, cycleID, requestID, text string) error {
	ag.Append(models.Message{Role: models.RoleAssistant, Content: text})

	if ag.State == StatePlanning {
		if m := planPattern.FindStringSubmatch(text); m != nil {
			ag.CurrentPlan = strings.TrimSpace(m[1])
			ag.Append(models.Message{Role: models.RoleUser, Content: "Plan approved. Proceed with execution."})
			ag.SetState(StateProcessing)
			h.Activator.Activate(ag.ID, requestID)
			return nil
		}
		if count, exceeded := ag.IncMalformedRetries(h.Options.MaxMalformedRetries); exceeded {
			ag.SetState(StateError)
			return errors.New("planning phase produced no <plan> after corrective retries")
		} else {
			ag.Append(models.Message{Role: models.RoleUser, Content: "Your previous turn did not include a <plan> element. Emit exactly one <plan>...</plan> before proceeding."})
			_ = count
			h.Activator.Activate(ag.ID, requestID)
			return nil
		}
	}

	calls := h.Tools.ParseToolCalls(text)
	if limit := h.Options.MaxToolCallsPerTurn; limit > 0 && len(calls) > limit {
		calls = calls[:limit]
	}
	if len(calls) == 0 {
		ag.SetState(StateIdle)
		h.emitStatus(ctx, ag)
		return nil
	}

	ag.Pending = calls
	ag.SetState(StateExecutingTool)
	h.emitStatus(ctx, ag)

	reactivateCaller := false
	var toReactivate []string

	for i, call := range calls {
		h.emit(ctx, ag.ID, cycleID, models.AgentEvent{Type: models.AgentEventToolStarted, IterIndex: i, Tool: &models.ToolEventPayload{CallID: call.CallID, Name: call.ToolName}})
		result, reactivated := h.Tools.Execute(ctx, ag.ID, call)
		h.emit(ctx, ag.ID, cycleID, models.AgentEvent{Type: models.AgentEventToolFinished, IterIndex: i, Tool: &models.ToolEventPayload{CallID: call.CallID, Name: call.ToolName, Success: !result.IsError}})

		ag.Append(models.Message{Role: models.RoleTool, Content: result.Content, ToolCallID: result.ToolCallID})
		ag.Pending = ag.Pending[1:]

		if call.ToolName != "send_message" || result.IsError {
			reactivateCaller = true
		}
		toReactivate = append(toReactivate, reactivated...)
	}

	ag.SetState(StateAwaitingToolResult)
	h.emitStatus(ctx, ag)

	for _, id := range toReactivate {
		h.Activator.Activate(id, requestID)
	}
	if reactivateCaller {
		h.Activator.Activate(ag.ID, requestID)
	} else {
		ag.SetState(StateIdle)
		h.emitStatus(ctx, ag)
	}

	return nil
}

func (h *CycleHandler) emit(ctx context.Context, agentID, cycleID string, e models.AgentEvent) {
	if h.Events == nil {
		return
	}
	e.AgentID = agentID
	e.CycleID = cycleID
	e.Time = time.Now()
	h.Events.Emit(ctx, e)
}

func (h *CycleHandler) emitStatus(ctx context.Context, ag *Agent) {
	h.emit(ctx, ag.ID, "", models.AgentEvent{Type: models.AgentEventAgentStatus, Status: &models.StatusEventPayload{State: string(ag.State)}})
}
