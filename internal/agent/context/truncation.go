// Package context implements the in-memory history truncation CycleHandler
// applies at assembly time: when an agent's history exceeds a configurable
// message-count budget, the oldest non-system messages are dropped from the
// assembled view. The on-disk/full in-memory history is never mutated —
// only the slice handed to the provider is trimmed.
package context

import "github.com/nexus-orchestrator/core/pkg/models"

// Truncator bounds the message count passed to assembleMessages. Grounded
// on the teacher's token-budget Truncator (keep-first/keep-last pinning,
// drop-oldest-candidate-first), adapted from a token budget to the plain
// message-count budget the specification calls for.
type Truncator struct {
	// MaxMessages is the budget; 0 disables truncation.
	MaxMessages int

	// KeepFirst preserves the oldest N messages unconditionally (typically
	// 1, for the system/task-setup message).
	KeepFirst int

	// KeepLast preserves the most recent N messages unconditionally, since
	// those are what the model most needs to continue coherently.
	KeepLast int
}

// NewTruncator builds a Truncator with the given message-count budget and
// the teacher's default pinning (keep the first message and the most
// recent 20).
func NewTruncator(maxMessages int) *Truncator {
	return &Truncator{MaxMessages: maxMessages, KeepFirst: 1, KeepLast: 20}
}

// Result reports what Truncate did, for diagnostic logging.
type Result struct {
	OriginalCount int
	NewCount      int
	RemovedCount  int
}

// Truncate returns the (possibly trimmed) slice of messages to assemble.
// System-role messages are always kept regardless of position.
func (t *Truncator) Truncate(messages []models.Message) ([]models.Message, Result) {
	result := Result{OriginalCount: len(messages), NewCount: len(messages)}

	if t.MaxMessages <= 0 || len(messages) <= t.MaxMessages {
		return messages, result
	}

	keepFirst := t.KeepFirst
	keepLast := t.KeepLast
	if keepFirst+keepLast >= len(messages) {
		return messages, result
	}

	var kept, candidates []models.Message
	for i, m := range messages {
		switch {
		case i < keepFirst, i >= len(messages)-keepLast, m.Role == models.RoleSystem:
			kept = append(kept, m)
		default:
			candidates = append(candidates, m)
		}
	}

	budget := t.MaxMessages - len(kept)
	if budget < 0 {
		budget = 0
	}
	if len(candidates) > budget {
		dropped := len(candidates) - budget
		result.RemovedCount = dropped
		candidates = candidates[dropped:]
	}

	final := make([]models.Message, 0, len(kept)+len(candidates))
	candidateIdx := 0
	for i, m := range messages {
		switch {
		case i < keepFirst, i >= len(messages)-keepLast, m.Role == models.RoleSystem:
			final = append(final, m)
		default:
			if candidateIdx < len(candidates) && candidates[candidateIdx].CreatedAt.Equal(m.CreatedAt) && candidates[candidateIdx].Content == m.Content {
				final = append(final, candidates[candidateIdx])
				candidateIdx++
			}
		}
	}

	result.NewCount = len(final)
	return final, result
}
