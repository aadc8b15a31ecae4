package providers

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nexus-orchestrator/core/internal/agent"
	modelreg "github.com/nexus-orchestrator/core/internal/models"
)

// AnthropicProvider implements agent.LLMProvider and modelreg.Reacher for
// Anthropic's Claude API, using anthropic-sdk-go's SSE streaming client.
type AnthropicProvider struct {
	client      anthropic.Client
	knownModels []modelreg.Model
}

// AnthropicConfig configures an AnthropicProvider.
type AnthropicConfig struct {
	APIKey string
	// KnownModels is the static model list exposed by Models(), since the
	// Anthropic API has no models-list endpoint usable for reachability probing.
	KnownModels []modelreg.Model
}

// NewAnthropicProvider constructs a provider bound to one API key.
func NewAnthropicProvider(cfg AnthropicConfig) *AnthropicProvider {
	return &AnthropicProvider{
		client:      anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		knownModels: cfg.KnownModels,
	}
}

func (p *AnthropicProvider) Name() string     { return "anthropic" }
func (p *AnthropicProvider) Provider() string { return "anthropic" }

// Ping verifies the key is usable by issuing a minimal, cheap request.
func (p *AnthropicProvider) Ping(ctx context.Context) error {
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.ModelClaude3_5HaikuLatest,
		MaxTokens: 1,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock("ping"))},
	})
	if err != nil {
		return AsStreamError(p.Name(), err)
	}
	return nil
}

// Models returns the statically configured model list (§4.1: Anthropic
// exposes no discovery endpoint, so the catalog's Reacher relies on config).
func (p *AnthropicProvider) Models(ctx context.Context) ([]modelreg.Model, error) {
	return p.knownModels, nil
}

// Stream opens a streaming completion against the Anthropic Messages API.
func (p *AnthropicProvider) Stream(ctx context.Context, req agent.CompletionRequest) (<-chan agent.StreamEvent, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, &agent.StreamError{Kind: agent.ErrInvalidRequest, Detail: err.Error(), Err: err}
	}

	sdkStream := p.client.Messages.NewStreaming(ctx, params)

	out := make(chan agent.StreamEvent, 16)
	go p.pump(sdkStream, out)
	return out, nil
}

func (p *AnthropicProvider) buildParams(req agent.CompletionRequest) (anthropic.MessageNewParams, error) {
	var system []anthropic.TextBlockParam
	var messages []anthropic.MessageParam

	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case "user", "tool":
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			return anthropic.MessageNewParams{}, fmt.Errorf("anthropic: unknown message role %q", m.Role)
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if len(system) > 0 {
		params.System = system
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	return params, nil
}

// pump drains the SSE stream into the StreamEvent channel and always
// terminates with exactly one Done or Error event, never both.
func (p *AnthropicProvider) pump(stream interface {
	Next() bool
	Current() anthropic.MessageStreamEventUnion
	Err() error
	Close() error
}, out chan<- agent.StreamEvent) {
	defer close(out)
	defer stream.Close()

	for stream.Next() {
		event := stream.Current()
		if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			if text := delta.Delta.Text; text != "" {
				out <- agent.StreamEvent{Kind: agent.StreamEventDelta, Delta: text}
			}
		}
	}

	if err := stream.Err(); err != nil {
		out <- agent.StreamEvent{Kind: agent.StreamEventError, Err: AsStreamError(p.Name(), err)}
		return
	}
	out <- agent.StreamEvent{Kind: agent.StreamEventDone}
}
