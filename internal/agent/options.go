package agent

import (
	"log/slog"
	"time"
)

// CycleOptions configures CycleHandler behavior (§4.8, §5).
type CycleOptions struct {
	// StreamIdleTimeout is the LLM stream idle timeout (§5): no delta for
	// this long is treated as TransientNetwork.
	StreamIdleTimeout time.Duration

	// FileSystemTimeout is the file_system tool execution budget (§5).
	// CycleHandler does not apply it when it executes tool calls.
	FileSystemTimeout time.Duration

	// ManageTeamTimeout is the manage_team tool execution budget (§5).
	// CycleHandler does not apply it when it executes tool calls.
	ManageTeamTimeout time.Duration

	// MaxToolCallsPerTurn caps sequential tool calls parsed from one
	// assistant turn. 0 means unlimited, matching the spec's adopted
	// reading of "(a) unlimited, all executed sequentially".
	MaxToolCallsPerTurn int

	// MaxMalformedRetries bounds corrective reactivation attempts when a
	// planning-phase turn has no <plan> element (§7). A turn that lacks a
	// tool call outside the planning phase is not corrected or counted.
	MaxMalformedRetries int

	// MaxHistoryMessages bounds how many history messages are assembled
	// into a request once an agent's history grows past it; the oldest
	// non-system messages are dropped from the assembled view only. 0
	// disables truncation.
	MaxHistoryMessages int

	// Logger receives cycle diagnostics.
	Logger *slog.Logger
}

// DefaultCycleOptions returns the baseline cycle options per §5/§7.
func DefaultCycleOptions() CycleOptions {
	return CycleOptions{
		StreamIdleTimeout:   60 * time.Second,
		FileSystemTimeout:   30 * time.Second,
		ManageTeamTimeout:   10 * time.Second,
		MaxToolCallsPerTurn: 0,
		MaxMalformedRetries: 2,
		MaxHistoryMessages:  200,
		Logger:              slog.Default(),
	}
}
