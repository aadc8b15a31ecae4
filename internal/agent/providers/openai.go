package providers

import (
	"context"
	"errors"
	"io"

	"github.com/sashabaranov/go-openai"

	"github.com/nexus-orchestrator/core/internal/agent"
	modelreg "github.com/nexus-orchestrator/core/internal/models"
)

// OpenAIProvider implements agent.LLMProvider and modelreg.Reacher against
// the OpenAI-compatible chat completions API via sashabaranov/go-openai.
// The same client also serves OpenRouter/local OpenAI-compatible endpoints
// when constructed with a BaseURL override (§4.4's provider-agnostic contract).
type OpenAIProvider struct {
	client *openai.Client
	name   string
}

// OpenAIConfig configures an OpenAIProvider.
type OpenAIConfig struct {
	// Name distinguishes this instance in the provider registry, e.g.
	// "openai" or "openrouter" when BaseURL points elsewhere.
	Name    string
	APIKey  string
	BaseURL string
}

// NewOpenAIProvider constructs a provider bound to one API key/base URL.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	name := cfg.Name
	if name == "" {
		name = "openai"
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		name:   name,
	}
}

func (p *OpenAIProvider) Name() string     { return p.name }
func (p *OpenAIProvider) Provider() string { return p.name }

// Ping lists models as a cheap reachability probe.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	_, err := p.client.ListModels(ctx)
	if err != nil {
		return AsStreamError(p.name, err)
	}
	return nil
}

// Models enumerates models from the provider's /models endpoint.
func (p *OpenAIProvider) Models(ctx context.Context) ([]modelreg.Model, error) {
	list, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]modelreg.Model, 0, len(list.Models))
	for _, m := range list.Models {
		out = append(out, modelreg.Model{Provider: p.name, ID: m.ID})
	}
	return out, nil
}

// Stream opens a streaming chat completion.
func (p *OpenAIProvider) Stream(ctx context.Context, req agent.CompletionRequest) (<-chan agent.StreamEvent, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		})
	}

	sdkReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		Stream:      true,
	}
	if req.MaxTokens > 0 {
		sdkReq.MaxTokens = req.MaxTokens
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, sdkReq)
	if err != nil {
		return nil, AsStreamError(p.name, err)
	}

	out := make(chan agent.StreamEvent, 16)
	go p.pump(stream, out)
	return out, nil
}

func (p *OpenAIProvider) pump(stream *openai.ChatCompletionStream, out chan<- agent.StreamEvent) {
	defer close(out)
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				out <- agent.StreamEvent{Kind: agent.StreamEventDone}
				return
			}
			out <- agent.StreamEvent{Kind: agent.StreamEventError, Err: AsStreamError(p.name, err)}
			return
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			out <- agent.StreamEvent{Kind: agent.StreamEventDelta, Delta: delta}
		}
		if resp.Choices[0].FinishReason != "" {
			out <- agent.StreamEvent{Kind: agent.StreamEventDone}
			return
		}
	}
}
