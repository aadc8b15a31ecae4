// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing, and a lightweight diagnostic event bus shared
// across the orchestration core.
package observability

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// Logger wraps log/slog with request correlation (agent/cycle/tool IDs
// pulled automatically from context) and redaction of sensitive data
// (API keys, tokens, passwords) before it ever reaches a sink.
type Logger struct {
	logger  *slog.Logger
	config  LogConfig
	redacts []*regexp.Regexp
}

// LogConfig configures Logger.
type LogConfig struct {
	// Level sets the minimum log level: "debug", "info", "warn", "error".
	Level string

	// Format is "json" or "text". JSON is recommended for production.
	Format string

	// Output is the writer for log output (defaults to os.Stdout).
	Output io.Writer

	// AddSource includes file and line number in log records.
	AddSource bool

	// RedactPatterns are additional regex patterns for sensitive data,
	// layered on top of DefaultRedactPatterns.
	RedactPatterns []string
}

// ContextKey is the type for context keys this package recognizes.
type ContextKey string

const (
	AgentIDKey  ContextKey = "agent_id"
	CycleIDKey  ContextKey = "cycle_id"
	ToolCallKey ContextKey = "tool_call_id"
	SessionKey  ContextKey = "session_id"
)

// DefaultRedactPatterns covers provider API keys, bearer tokens, generic
// secrets, and JWTs.
var DefaultRedactPatterns = []string{
	`(?i)(api[_-]?key|apikey)[\s:=]+["\']?([a-zA-Z0-9_\-]{16,})["\']?`,
	`(?i)(bearer|token)[\s:]+([a-zA-Z0-9_\-\.]{16,})`,
	`(?i)(secret|password|passwd|pwd)[\s:=]+["\']?([^\s"']{8,})["\']?`,
	`sk-ant-[a-zA-Z0-9_-]{95,}`,
	`sk-[a-zA-Z0-9]{48,}`,
	`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`,
	`(?i)(secret|key|token)[\s:=]+["\']?([a-fA-F0-9]{32,})["\']?`,
}

// NewLogger builds a Logger. An empty Level defaults to "info", an empty
// Format defaults to "json", a nil Output defaults to os.Stdout.
func NewLogger(config LogConfig) *Logger {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Level == "" {
		config.Level = "info"
	}
	if config.Format == "" {
		config.Format = "json"
	}

	opts := &slog.HandlerOptions{Level: LogLevelFromString(config.Level), AddSource: config.AddSource}

	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(config.Output, opts)
	} else {
		handler = slog.NewTextHandler(config.Output, opts)
	}

	redacts := make([]*regexp.Regexp, 0)
	for _, pattern := range append(DefaultRedactPatterns, config.RedactPatterns...) {
		if re, err := regexp.Compile(pattern); err == nil {
			redacts = append(redacts, re)
		}
	}

	return &Logger{logger: slog.New(handler), config: config, redacts: redacts}
}

// WithContext returns a logger that includes agent/cycle/tool-call/session
// IDs pulled from ctx in every subsequent record.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	attrs := make([]any, 0, 4)
	if v, ok := ctx.Value(AgentIDKey).(string); ok && v != "" {
		attrs = append(attrs, "agent_id", v)
	}
	if v, ok := ctx.Value(CycleIDKey).(string); ok && v != "" {
		attrs = append(attrs, "cycle_id", v)
	}
	if v, ok := ctx.Value(ToolCallKey).(string); ok && v != "" {
		attrs = append(attrs, "tool_call_id", v)
	}
	if v, ok := ctx.Value(SessionKey).(string); ok && v != "" {
		attrs = append(attrs, "session_id", v)
	}
	if len(attrs) == 0 {
		return l
	}
	return &Logger{logger: l.logger.With(attrs...), config: l.config, redacts: l.redacts}
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) { l.log(ctx, slog.LevelDebug, msg, args...) }
func (l *Logger) Info(ctx context.Context, msg string, args ...any)  { l.log(ctx, slog.LevelInfo, msg, args...) }
func (l *Logger) Warn(ctx context.Context, msg string, args ...any)  { l.log(ctx, slog.LevelWarn, msg, args...) }
func (l *Logger) Error(ctx context.Context, msg string, args ...any) { l.log(ctx, slog.LevelError, msg, args...) }

func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	msg = l.redactString(msg)

	redactedArgs := make([]any, len(args))
	for i, arg := range args {
		redactedArgs[i] = l.redactValue(arg)
	}

	attrs := make([]any, 0, len(redactedArgs)+8)
	if v, ok := ctx.Value(AgentIDKey).(string); ok && v != "" {
		attrs = append(attrs, "agent_id", v)
	}
	if v, ok := ctx.Value(CycleIDKey).(string); ok && v != "" {
		attrs = append(attrs, "cycle_id", v)
	}
	if v, ok := ctx.Value(ToolCallKey).(string); ok && v != "" {
		attrs = append(attrs, "tool_call_id", v)
	}
	if v, ok := ctx.Value(SessionKey).(string); ok && v != "" {
		attrs = append(attrs, "session_id", v)
	}
	if traceID := GetTraceID(ctx); traceID != "" {
		attrs = append(attrs, "trace_id", traceID, "span_id", GetSpanID(ctx))
	}
	attrs = append(attrs, redactedArgs...)

	l.logger.Log(ctx, level, msg, attrs...)
}

func (l *Logger) redactValue(v any) any {
	switch val := v.(type) {
	case string:
		return l.redactString(val)
	case error:
		return l.redactString(val.Error())
	case []byte:
		return l.redactString(string(val))
	case map[string]any:
		return l.redactMap(val)
	case map[string]string:
		m := make(map[string]any, len(val))
		for k, v := range val {
			m[k] = v
		}
		return l.redactMap(m)
	default:
		if b, err := json.Marshal(v); err == nil {
			return l.redactString(string(b))
		}
		return v
	}
}

func (l *Logger) redactString(s string) string {
	for _, re := range l.redacts {
		s = re.ReplaceAllString(s, "[REDACTED]")
	}
	return s
}

func (l *Logger) redactMap(m map[string]any) map[string]any {
	sensitive := map[string]bool{
		"password": true, "passwd": true, "secret": true, "token": true,
		"api_key": true, "apikey": true, "private_key": true, "privatekey": true,
		"auth": true, "authorization": true,
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		key := strings.ToLower(strings.ReplaceAll(k, "-", "_"))
		if sensitive[key] {
			result[k] = "[REDACTED]"
		} else {
			result[k] = l.redactValue(v)
		}
	}
	return result
}

// WithFields returns a logger with the given fields added to every record.
func (l *Logger) WithFields(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...), config: l.config, redacts: l.redacts}
}

// MustNewLogger is NewLogger but panics on a nil result; useful at startup.
func MustNewLogger(config LogConfig) *Logger {
	logger := NewLogger(config)
	if logger == nil {
		panic("failed to create logger")
	}
	return logger
}

func AddAgentID(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, AgentIDKey, agentID)
}

func AddCycleID(ctx context.Context, cycleID string) context.Context {
	return context.WithValue(ctx, CycleIDKey, cycleID)
}

func AddSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionKey, sessionID)
}

func GetAgentID(ctx context.Context) string {
	v, _ := ctx.Value(AgentIDKey).(string)
	return v
}

func GetSessionID(ctx context.Context) string {
	v, _ := ctx.Value(SessionKey).(string)
	return v
}

// LogLevelFromString converts a string to a slog.Level, defaulting to info.
func LogLevelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
