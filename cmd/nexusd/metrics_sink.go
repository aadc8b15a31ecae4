package main

import (
	"context"
	"sync"
	"time"

	"github.com/nexus-orchestrator/core/internal/observability"
	"github.com/nexus-orchestrator/core/pkg/models"
)

// metricsSink translates the agent-event stream CycleHandler already emits
// into Prometheus observations, so every running agent's cycles, model
// calls, and tool executions show up on /metrics without CycleHandler
// itself importing internal/observability. Composed alongside the UI
// gateway via agent.NewMultiSink (§5's fan-out idiom).
type metricsSink struct {
	metrics *observability.Metrics

	mu          sync.Mutex
	cycleStarts map[string]time.Time // agentID+cycleID -> start
}

func newMetricsSink(m *observability.Metrics) *metricsSink {
	return &metricsSink{metrics: m, cycleStarts: make(map[string]time.Time)}
}

func (s *metricsSink) Emit(_ context.Context, e models.AgentEvent) {
	key := e.AgentID + "/" + e.CycleID

	switch e.Type {
	case models.AgentEventCycleStarted:
		s.mu.Lock()
		s.cycleStarts[key] = time.Now()
		s.mu.Unlock()

	case models.AgentEventCycleFinished, models.AgentEventCycleError, models.AgentEventCycleTimedOut:
		s.mu.Lock()
		start, ok := s.cycleStarts[key]
		delete(s.cycleStarts, key)
		s.mu.Unlock()
		if ok {
			outcome := "ok"
			if e.Type != models.AgentEventCycleFinished {
				outcome = "error"
			}
			s.metrics.RecordCycle(e.AgentID, outcome, time.Since(start).Seconds())
		}

	case models.AgentEventModelCompleted:
		if e.Stream != nil {
			s.metrics.RecordLLMRequest(e.Stream.Provider, e.Stream.Model, "ok", 0)
		}

	case models.AgentEventToolFinished:
		if e.Tool != nil {
			status := "ok"
			if !e.Tool.Success {
				status = "error"
			}
			s.metrics.RecordToolExecution(e.Tool.Name, status, e.Tool.Elapsed.Seconds())
		}
	}
}
