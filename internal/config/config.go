// Package config loads the typed Config this runtime boots from: server
// listen address, LLM providers/keys, session/projects storage, tool
// sandbox/timeout limits, and logging, plus the separate bootstrap-agent
// and prompt-template documents (§6).
package config

import "time"

// Config is the top-level configuration struct, decoded from YAML (or
// JSON5) by Load and then overlaid with environment variables.
type Config struct {
	// SchemaVersion declares the config schema this file was written
	// against; 0 (omitted) is treated as CurrentVersion.
	SchemaVersion int `yaml:"schema_version"`

	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Session  SessionConfig  `yaml:"session"`
	Tools    ToolsConfig    `yaml:"tools"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Metrics  MetricsConfig  `yaml:"metrics"`

	// TemplatesFile points at the prompt-templates document (§6):
	// standard_framework_instructions, admin_ai_planning,
	// admin_ai_execution, default_system_prompt, default_agent_persona.
	TemplatesFile string `yaml:"templates_file"`

	// BootstrapAgentsFile points at the bootstrap-agent-list document
	// (§6), loaded separately via LoadBootstrapAgents.
	BootstrapAgentsFile string `yaml:"bootstrap_agents_file"`
}

// ServerConfig configures the UI Gateway's WebSocket listener (C13).
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LLMConfig configures providers, their keys, and Bedrock auto-discovery.
type LLMConfig struct {
	DefaultProvider string                         `yaml:"default_provider"`
	Providers       map[string]LLMProviderConfig   `yaml:"providers"`
	Bedrock         BedrockConfig                  `yaml:"bedrock"`

	// ModelTier selects ModelRegistry's Tier filter: "FREE" or "ALL".
	ModelTier string `yaml:"model_tier"`

	// ProxyURL holds the proxy URL from the config file or PROXY_URL. It is
	// not passed to the provider clients, so outbound provider HTTP traffic
	// does not go through it.
	ProxyURL string `yaml:"proxy_url"`

	// KeyQuarantineFile persists ProviderKeyManager's quarantine state
	// (the spec's "Quarantine file").
	KeyQuarantineFile string `yaml:"key_quarantine_file"`

	// ModelMetricsFile persists PerformanceTracker's per-(provider,model)
	// outcome history (the spec's "Metrics file").
	ModelMetricsFile string `yaml:"model_metrics_file"`
}

// LLMProviderConfig configures one provider's keys, base URL, and default
// model. APIKeys supports multiple keys per provider for round-robin
// rotation (<PROVIDER>_API_KEY, <PROVIDER>_API_KEY_2, ...).
type LLMProviderConfig struct {
	APIKeys      []string `yaml:"api_keys"`
	BaseURL      string   `yaml:"base_url"`
	DefaultModel string   `yaml:"default_model"`
}

// BedrockConfig configures AWS Bedrock model auto-discovery.
type BedrockConfig struct {
	Enabled              bool          `yaml:"enabled"`
	Region               string        `yaml:"region"`
	RefreshInterval      time.Duration `yaml:"refresh_interval"`
	DefaultContextWindow int           `yaml:"default_context_window"`
	DefaultMaxTokens     int           `yaml:"default_max_tokens"`
}

// SessionConfig configures session persistence (C10).
type SessionConfig struct {
	// ProjectsDir is the base directory under which
	// projects/<project>/<session>.json snapshots live.
	ProjectsDir string `yaml:"projects_dir"`

	// DefaultAgentID is loaded from config (default "admin"); nothing in the
	// runtime reads it when creating a session or its agents.
	DefaultAgentID string `yaml:"default_agent_id"`
}

// ToolsConfig configures the sandboxed tool surface (C5) and per-cycle
// limits (C8).
type ToolsConfig struct {
	// SandboxRoot is the filesystem root every file_system tool call is
	// confined beneath (§4.6's path-confinement requirement).
	SandboxRoot string `yaml:"sandbox_root"`

	FileSystemTimeout   time.Duration `yaml:"file_system_timeout"`
	ManageTeamTimeout   time.Duration `yaml:"manage_team_timeout"`
	StreamIdleTimeout   time.Duration `yaml:"stream_idle_timeout"`
	MaxToolCallsPerTurn int           `yaml:"max_tool_calls_per_turn"`
	MaxMalformedRetries int           `yaml:"max_malformed_retries"`
	MaxHistoryMessages  int           `yaml:"max_history_messages"`
}

// LoggingConfig configures the structured logger (observability.Logger).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig configures OpenTelemetry export (observability.Tracer).
type TracingConfig struct {
	Enabled        bool              `yaml:"enabled"`
	Endpoint       string            `yaml:"endpoint"`
	ServiceName    string            `yaml:"service_name"`
	ServiceVersion string            `yaml:"service_version"`
	Environment    string            `yaml:"environment"`
	SamplingRate   float64           `yaml:"sampling_rate"`
	Insecure       bool              `yaml:"insecure"`
	Attributes     map[string]string `yaml:"attributes"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns baseline configuration matching agent.DefaultCycleOptions
// and the teacher's convention of a fully-populated, runnable default.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		LLM: LLMConfig{
			ModelTier:         "ALL",
			KeyQuarantineFile: "data/key_quarantine.json",
			ModelMetricsFile:  "data/model_metrics.json",
			Providers:         map[string]LLMProviderConfig{},
		},
		Session: SessionConfig{
			ProjectsDir:    "data",
			DefaultAgentID: "admin",
		},
		Tools: ToolsConfig{
			SandboxRoot:         "workspace",
			FileSystemTimeout:   30 * time.Second,
			ManageTeamTimeout:   10 * time.Second,
			StreamIdleTimeout:   60 * time.Second,
			MaxMalformedRetries: 2,
			MaxHistoryMessages:  200,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Metrics: MetricsConfig{Enabled: true, Addr: ":9090"},
	}
}
