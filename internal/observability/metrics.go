package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is a centralized set of Prometheus collectors for the
// orchestration core: LLM request performance, tool execution, cycle
// outcomes, and the retry/key-rotation/failover cascade.
type Metrics struct {
	// LLMRequestDuration measures LLM API call latency.
	// Labels: provider, model.
	LLMRequestDuration *prometheus.HistogramVec

	// LLMRequestCounter counts LLM requests by outcome.
	// Labels: provider, model, status (success|error).
	LLMRequestCounter *prometheus.CounterVec

	// ToolExecutionCounter counts tool invocations.
	// Labels: tool_name, status (success|error).
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution time.
	// Labels: tool_name.
	ToolExecutionDuration *prometheus.HistogramVec

	// ErrorCounter tracks errors by component and kind (§7's error taxonomy).
	// Labels: component, error_kind.
	ErrorCounter *prometheus.CounterVec

	// ActiveAgents is a gauge of agents currently registered.
	ActiveAgents prometheus.Gauge

	// CycleDuration measures one CycleHandler.Run invocation end to end.
	CycleDuration *prometheus.HistogramVec

	// CyclesTotal counts completed cycles by outcome.
	// Labels: outcome (success|error).
	CyclesTotal *prometheus.CounterVec

	// KeyQuarantined counts provider keys quarantined by reason.
	// Labels: provider, reason (rate_limit|auth_fail).
	KeyQuarantined *prometheus.CounterVec

	// ModelFailover counts failover transitions away from a model.
	// Labels: provider, model.
	ModelFailover *prometheus.CounterVec
}

// NewMetrics registers all collectors with Prometheus's default registry.
// Call once at process startup.
func NewMetrics() *Metrics {
	return &Metrics{
		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nexus_llm_request_duration_seconds",
				Help:    "Duration of LLM API requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),
		LLMRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexus_llm_requests_total",
				Help: "Total number of LLM requests by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),
		ToolExecutionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexus_tool_executions_total",
				Help: "Total number of tool executions by tool name and status",
			},
			[]string{"tool_name", "status"},
		),
		ToolExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nexus_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool_name"},
		),
		ErrorCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexus_errors_total",
				Help: "Total number of errors by component and kind",
			},
			[]string{"component", "error_kind"},
		),
		ActiveAgents: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "nexus_active_agents",
				Help: "Current number of registered agents",
			},
		),
		CycleDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nexus_cycle_duration_seconds",
				Help:    "Duration of one agent cycle",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"agent_id"},
		),
		CyclesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexus_cycles_total",
				Help: "Total number of completed cycles by outcome",
			},
			[]string{"outcome"},
		),
		KeyQuarantined: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexus_key_quarantined_total",
				Help: "Total number of provider keys quarantined",
			},
			[]string{"provider", "reason"},
		),
		ModelFailover: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexus_model_failover_total",
				Help: "Total number of model failover transitions",
			},
			[]string{"provider", "model"},
		),
	}
}

// RecordLLMRequest records the outcome and latency of one LLM API call.
func (m *Metrics) RecordLLMRequest(provider, model, status string, durationSeconds float64) {
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	m.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
}

// RecordToolExecution records the outcome and latency of one tool call.
func (m *Metrics) RecordToolExecution(toolName, status string, durationSeconds float64) {
	m.ToolExecutionCounter.WithLabelValues(toolName, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// RecordError increments the error counter for component/kind.
func (m *Metrics) RecordError(component, errorKind string) {
	m.ErrorCounter.WithLabelValues(component, errorKind).Inc()
}

// RecordCycle records one completed cycle's duration and outcome.
func (m *Metrics) RecordCycle(agentID, outcome string, durationSeconds float64) {
	m.CycleDuration.WithLabelValues(agentID).Observe(durationSeconds)
	m.CyclesTotal.WithLabelValues(outcome).Inc()
}

// RecordKeyQuarantined records one provider key entering quarantine.
func (m *Metrics) RecordKeyQuarantined(provider, reason string) {
	m.KeyQuarantined.WithLabelValues(provider, reason).Inc()
}

// RecordModelFailover records one model failover transition.
func (m *Metrics) RecordModelFailover(provider, model string) {
	m.ModelFailover.WithLabelValues(provider, model).Inc()
}
