package agent

import (
	"context"
	"sync/atomic"

	"github.com/nexus-orchestrator/core/pkg/models"
)

// EventSink receives agent events during cycle processing.
// Implementations must be safe to call from multiple goroutines and should
// be non-blocking or handle backpressure gracefully.
type EventSink interface {
	Emit(ctx context.Context, e models.AgentEvent)
}

// ChanSink sends events to a channel with non-blocking behavior when the channel is full.
type ChanSink struct {
	ch chan<- models.AgentEvent
}

// NewChanSink creates a sink that sends to a channel.
// The channel should be buffered to avoid blocking.
func NewChanSink(ch chan<- models.AgentEvent) *ChanSink {
	return &ChanSink{ch: ch}
}

// Emit sends the event to the channel (non-blocking if full or context cancelled).
func (s *ChanSink) Emit(ctx context.Context, e models.AgentEvent) {
	select {
	case s.ch <- e:
	case <-ctx.Done():
	default:
		// Channel full - drop event rather than block
	}
}

// MultiSink fans out events to multiple sinks.
type MultiSink struct {
	sinks []EventSink
}

// NewMultiSink creates a sink that dispatches events to multiple sinks.
// Nil sinks are filtered out automatically.
func NewMultiSink(sinks ...EventSink) *MultiSink {
	filtered := make([]EventSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return &MultiSink{sinks: filtered}
}

// Emit dispatches the event to all sinks.
func (s *MultiSink) Emit(ctx context.Context, e models.AgentEvent) {
	for _, sink := range s.sinks {
		sink.Emit(ctx, e)
	}
}

// CallbackSink wraps a function as an EventSink for inline event handling.
type CallbackSink struct {
	fn func(ctx context.Context, e models.AgentEvent)
}

// NewCallbackSink creates a sink that calls the provided function for each event.
func NewCallbackSink(fn func(ctx context.Context, e models.AgentEvent)) *CallbackSink {
	return &CallbackSink{fn: fn}
}

// Emit calls the wrapped function.
func (s *CallbackSink) Emit(ctx context.Context, e models.AgentEvent) {
	if s.fn != nil {
		s.fn(ctx, e)
	}
}

// NopSink discards all events silently. Useful for testing.
type NopSink struct{}

// Emit does nothing.
func (NopSink) Emit(ctx context.Context, e models.AgentEvent) {}

// BackpressureConfig configures the backpressure sink buffer sizes for
// high-priority and low-priority event lanes. These defaults are also the
// ones the UI gateway (C13) uses for its per-client queue: depth 256 for the
// droppable lane per §4.13.
type BackpressureConfig struct {
	// HighPriBuffer is the buffer size for non-droppable events. Default: 32.
	HighPriBuffer int

	// LowPriBuffer is the buffer size for droppable events. Default: 256.
	LowPriBuffer int
}

// DefaultBackpressureConfig returns sensible defaults.
func DefaultBackpressureConfig() BackpressureConfig {
	return BackpressureConfig{
		HighPriBuffer: 32,
		LowPriBuffer:  256,
	}
}

// BackpressureSink implements two-lane backpressure for event streaming.
// High-priority events (cycle lifecycle, tool lifecycle, agent_status,
// message_appended, override_required) wait for room in their lane and are
// dropped only if the emitting context is cancelled while that lane is full.
// Low-priority events (model deltas, stdout/stderr, context.packed) are
// dropped when the buffer is full.
type BackpressureSink struct {
	highPri chan models.AgentEvent
	lowPri  chan models.AgentEvent
	merged  chan models.AgentEvent
	dropped uint64
	closed  uint32
}

// NewBackpressureSink creates a backpressure-aware sink with merged output channel.
// The returned channel should be consumed by the caller.
func NewBackpressureSink(config BackpressureConfig) (*BackpressureSink, <-chan models.AgentEvent) {
	if config.HighPriBuffer <= 0 {
		config.HighPriBuffer = 32
	}
	if config.LowPriBuffer <= 0 {
		config.LowPriBuffer = 256
	}

	s := &BackpressureSink{
		highPri: make(chan models.AgentEvent, config.HighPriBuffer),
		lowPri:  make(chan models.AgentEvent, config.LowPriBuffer),
		merged:  make(chan models.AgentEvent, config.HighPriBuffer),
	}

	go s.mergeLoop()

	return s, s.merged
}

// mergeLoop reads from both channels, prioritizing high-priority events.
func (s *BackpressureSink) mergeLoop() {
	defer close(s.merged)

	for {
		select {
		case e, ok := <-s.highPri:
			if ok {
				s.merged <- e
				continue
			}
			for e := range s.lowPri {
				s.merged <- e
			}
			return
		default:
		}

		select {
		case e, ok := <-s.highPri:
			if ok {
				s.merged <- e
			} else {
				for e := range s.lowPri {
					s.merged <- e
				}
				return
			}
		case e, ok := <-s.lowPri:
			if ok {
				s.merged <- e
			}
		}
	}
}

// Emit sends an event through the appropriate lane. Non-droppable events
// block if the buffer is full, and are dropped only once ctx is done and the
// lane is still full; droppable events are dropped. Returns immediately if
// the sink is closed.
func (s *BackpressureSink) Emit(ctx context.Context, e models.AgentEvent) {
	if atomic.LoadUint32(&s.closed) == 1 {
		return
	}
	if isDroppableEvent(e.Type) {
		select {
		case s.lowPri <- e:
		default:
			atomic.AddUint64(&s.dropped, 1)
		}
		return
	}

	select {
	case s.highPri <- e:
	case <-ctx.Done():
		select {
		case s.highPri <- e:
		default:
			atomic.AddUint64(&s.dropped, 1)
		}
	}
}

// DroppedCount returns the number of events dropped: low-priority events
// dropped due to backpressure plus high-priority events dropped on context
// cancellation.
func (s *BackpressureSink) DroppedCount() uint64 {
	return atomic.LoadUint64(&s.dropped)
}

// Close signals the sink to stop and closes the output channel.
func (s *BackpressureSink) Close() {
	if !atomic.CompareAndSwapUint32(&s.closed, 0, 1) {
		return
	}
	close(s.highPri)
	close(s.lowPri)
}

// droppableEventTypes is the declared low-priority lane: high-volume or
// diagnostic-only events that a slow UI client can lose without losing
// correctness, because nothing downstream reconstructs state from them.
// model.delta is re-derivable from the next model.completed's Final text;
// tool.stdout/stderr are a live tail, not the tool's recorded result
// (tool.finished carries ResultJSON and is never in this set); context.packed
// is packing telemetry (SPEC_FULL §D) that the UI gateway never surfaces and
// no consumer acts on synchronously.
//
// Everything else — cycle/iter lifecycle, tool.started/finished/timed_out,
// and the three events §4.13 surfaces to the UI verbatim (agent_status,
// message_appended, override_required) — is load-bearing for a client
// rebuilding agent state and must never be silently dropped.
var droppableEventTypes = map[models.AgentEventType]bool{
	models.AgentEventModelDelta:    true,
	models.AgentEventToolStdout:    true,
	models.AgentEventToolStderr:    true,
	models.AgentEventContextPacked: true,
}

func isDroppableEvent(t models.AgentEventType) bool {
	return droppableEventTypes[t]
}
