// Package tools implements the ToolExecutor (C5): parsing tool calls out of
// assistant text and running the built-in tools (file_system, send_message,
// manage_team) sequentially, in document order (§4.5, §6).
package tools

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/nexus-orchestrator/core/pkg/models"
)

var paramPattern = regexp.MustCompile(`(?s)<(\w+)>(.*?)</\s*\w+\s*>`)

// Parser extracts tool calls from assistant text: a tool call is a
// top-level element whose tag equals a registered tool name; its children
// are string parameters, HTML-unescaped. The parser tolerates surrounding
// prose and multiple calls per turn, and preserves document order.
type Parser struct {
	callPattern *regexp.Regexp
}

// NewParser builds a parser that only recognizes the given tool names as
// top-level elements, so incidental angle brackets in prose (or a tool's own
// parameter names) are never mistaken for a call.
func NewParser(toolNames []string) *Parser {
	escaped := make([]string, len(toolNames))
	for i, n := range toolNames {
		escaped[i] = regexp.QuoteMeta(n)
	}
	alt := strings.Join(escaped, "|")
	return &Parser{
		callPattern: regexp.MustCompile(fmt.Sprintf(`(?s)<(%s)\b[^>]*>(.*?)</\s*(?:%s)\s*>`, alt, alt)),
	}
}

// Parse returns every tool call found in text, in document order.
func (p *Parser) Parse(text string) []models.ToolCall {
	matches := p.callPattern.FindAllStringSubmatch(text, -1)
	calls := make([]models.ToolCall, 0, len(matches))
	for _, m := range matches {
		name, body := m[1], m[2]
		calls = append(calls, models.ToolCall{
			CallID:    uuid.NewString(),
			ToolName:  name,
			Arguments: parseParams(body),
		})
	}
	return calls
}

func parseParams(body string) map[string]string {
	params := make(map[string]string)
	for _, m := range paramPattern.FindAllStringSubmatch(body, -1) {
		key, value := m[1], m[2]
		params[key] = html.UnescapeString(strings.TrimSpace(value))
	}
	return params
}
