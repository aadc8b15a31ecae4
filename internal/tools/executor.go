package tools

import (
	"context"
	"fmt"

	"github.com/nexus-orchestrator/core/pkg/models"
)

// Tool is one built-in tool: file_system, send_message, or manage_team
// (§4.5). Run never panics; failures are reported as an error ToolResult so
// the calling agent sees the failure as tool output, not a crash.
type Tool interface {
	Name() string
	Run(ctx context.Context, callerID string, args map[string]string) (content string, isError bool, reactivate []string)
}

// Executor implements internal/agent.ToolRunner: it parses tool calls out of
// assistant text and runs each one sequentially, in document order (§4.5,
// §6). Unregistered tool names produce a literal "ERROR: unknown tool X"
// result rather than being dropped silently, so the agent sees the mistake
// and can correct its next turn.
type Executor struct {
	parser *Parser
	tools  map[string]Tool
}

// NewExecutor builds an executor over the given tools, keyed by Name().
func NewExecutor(tools ...Tool) *Executor {
	byName := make(map[string]Tool, len(tools))
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		byName[t.Name()] = t
		names = append(names, t.Name())
	}
	return &Executor{parser: NewParser(names), tools: byName}
}

// ParseToolCalls extracts tool calls embedded as XML in assistantText.
func (e *Executor) ParseToolCalls(assistantText string) []models.ToolCall {
	return e.parser.Parse(assistantText)
}

// Execute runs one tool call for callerID.
func (e *Executor) Execute(ctx context.Context, callerID string, call models.ToolCall) (models.ToolResult, []string) {
	t, ok := e.tools[call.ToolName]
	if !ok {
		return models.ToolResult{
			ToolCallID: call.CallID,
			Content:    fmt.Sprintf("ERROR: unknown tool %s", call.ToolName),
			IsError:    true,
		}, nil
	}

	content, isError, reactivate := t.Run(ctx, callerID, call.Arguments)
	return models.ToolResult{
		ToolCallID: call.CallID,
		Content:    content,
		IsError:    isError,
	}, reactivate
}
