package observability

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	// NewMetrics registers with the default registry via promauto; calling it
	// more than once across the test binary would panic on duplicate
	// registration, so individual metric behavior is exercised below against
	// isolated local registries instead.
	t.Log("Metrics collectors are exercised via isolated registries below")
}

func TestRecordLLMRequest(t *testing.T) {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "test_llm_requests_total", Help: "Test LLM request counter"},
		[]string{"provider", "model", "status"},
	)
	registry.MustRegister(counter)

	counter.WithLabelValues("anthropic", "claude-3-opus", "success").Inc()
	counter.WithLabelValues("openai", "gpt-4", "success").Inc()
	counter.WithLabelValues("anthropic", "claude-3-opus", "error").Inc()

	if count := testutil.CollectAndCount(counter); count != 3 {
		t.Errorf("expected 3 label combinations, got %d", count)
	}
}

func TestRecordToolExecution(t *testing.T) {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "test_tool_executions_total", Help: "Test tool execution counter"},
		[]string{"tool_name", "status"},
	)
	registry.MustRegister(counter)

	counter.WithLabelValues("file_system", "success").Inc()
	counter.WithLabelValues("file_system", "success").Inc()
	counter.WithLabelValues("manage_team", "error").Inc()

	expected := `
		# HELP test_tool_executions_total Test tool execution counter
		# TYPE test_tool_executions_total counter
		test_tool_executions_total{status="success",tool_name="file_system"} 2
		test_tool_executions_total{status="error",tool_name="manage_team"} 1
	`
	if err := testutil.CollectAndCompare(counter, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metric value: %v", err)
	}
}

func TestRecordKeyQuarantined(t *testing.T) {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "test_key_quarantined_total", Help: "Test key quarantine counter"},
		[]string{"provider", "reason"},
	)
	registry.MustRegister(counter)

	counter.WithLabelValues("anthropic", "rate_limit").Inc()

	expected := `
		# HELP test_key_quarantined_total Test key quarantine counter
		# TYPE test_key_quarantined_total counter
		test_key_quarantined_total{provider="anthropic",reason="rate_limit"} 1
	`
	if err := testutil.CollectAndCompare(counter, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metric value: %v", err)
	}
}

func TestMetrics_RecordHelpers(t *testing.T) {
	// Exercise the Metrics convenience methods end to end against a fresh
	// instance so this test doesn't collide with other tests' registrations.
	reg := prometheus.NewPedanticRegistry()
	m := &Metrics{
		LLMRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "m_llm_duration"}, []string{"provider", "model"}),
		LLMRequestCounter:  prometheus.NewCounterVec(prometheus.CounterOpts{Name: "m_llm_total"}, []string{"provider", "model", "status"}),

		ToolExecutionCounter:  prometheus.NewCounterVec(prometheus.CounterOpts{Name: "m_tool_total"}, []string{"tool_name", "status"}),
		ToolExecutionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "m_tool_duration"}, []string{"tool_name"}),

		ErrorCounter: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "m_errors_total"}, []string{"component", "error_kind"}),

		ActiveAgents: prometheus.NewGauge(prometheus.GaugeOpts{Name: "m_active_agents"}),

		CycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "m_cycle_duration"}, []string{"agent_id"}),
		CyclesTotal:   prometheus.NewCounterVec(prometheus.CounterOpts{Name: "m_cycles_total"}, []string{"outcome"}),

		KeyQuarantined: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "m_key_quarantined_total"}, []string{"provider", "reason"}),
		ModelFailover:  prometheus.NewCounterVec(prometheus.CounterOpts{Name: "m_model_failover_total"}, []string{"provider", "model"}),
	}
	reg.MustRegister(
		m.LLMRequestDuration, m.LLMRequestCounter, m.ToolExecutionCounter, m.ToolExecutionDuration,
		m.ErrorCounter, m.ActiveAgents, m.CycleDuration, m.CyclesTotal, m.KeyQuarantined, m.ModelFailover,
	)

	m.RecordLLMRequest("anthropic", "claude-3-opus", "success", 1.2)
	m.RecordToolExecution("file_system", "success", 0.05)
	m.RecordError("cycle", "transient_network")
	m.RecordCycle("agent-1", "success", 3.4)
	m.RecordKeyQuarantined("anthropic", "rate_limit")
	m.RecordModelFailover("anthropic", "claude-3-opus")

	if got := testutil.CollectAndCount(m.LLMRequestCounter); got != 1 {
		t.Errorf("LLMRequestCounter count = %d, want 1", got)
	}
	if got := testutil.CollectAndCount(m.CyclesTotal); got != 1 {
		t.Errorf("CyclesTotal count = %d, want 1", got)
	}
	if got := testutil.CollectAndCount(m.KeyQuarantined); got != 1 {
		t.Errorf("KeyQuarantined count = %d, want 1", got)
	}
	if got := testutil.CollectAndCount(m.ModelFailover); got != 1 {
		t.Errorf("ModelFailover count = %d, want 1", got)
	}
}
