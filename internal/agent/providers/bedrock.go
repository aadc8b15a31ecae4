package providers

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/nexus-orchestrator/core/internal/agent"
	modelreg "github.com/nexus-orchestrator/core/internal/models"
)

// BedrockProvider implements agent.LLMProvider and modelreg.Reacher against
// Amazon Bedrock's Converse/ConverseStream API, covering any Bedrock-hosted
// foundation model (Claude, Llama, Titan, ...) through one uniform contract.
type BedrockProvider struct {
	runtime *bedrockruntime.Client
	control *bedrock.Client
}

// BedrockConfig configures a BedrockProvider. Region follows the AWS SDK's
// standard credential chain (env vars, shared config, IAM role) per §6.
type BedrockConfig struct {
	Region string
}

// NewBedrockProvider constructs a provider from the default AWS config chain.
func NewBedrockProvider(ctx context.Context, cfg BedrockConfig) (*BedrockProvider, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("bedrock: load AWS config: %w", err)
	}
	return &BedrockProvider{
		runtime: bedrockruntime.NewFromConfig(awsCfg),
		control: bedrock.NewFromConfig(awsCfg),
	}, nil
}

func (p *BedrockProvider) Name() string     { return "bedrock" }
func (p *BedrockProvider) Provider() string { return "bedrock" }

// Ping lists foundation models as a cheap reachability probe.
func (p *BedrockProvider) Ping(ctx context.Context) error {
	_, err := p.control.ListFoundationModels(ctx, &bedrock.ListFoundationModelsInput{})
	if err != nil {
		return AsStreamError(p.Name(), err)
	}
	return nil
}

// Models enumerates text-output foundation models available in this region.
func (p *BedrockProvider) Models(ctx context.Context) ([]modelreg.Model, error) {
	resp, err := p.control.ListFoundationModels(ctx, &bedrock.ListFoundationModelsInput{})
	if err != nil {
		return nil, err
	}
	out := make([]modelreg.Model, 0, len(resp.ModelSummaries))
	for _, m := range resp.ModelSummaries {
		out = append(out, modelreg.Model{Provider: p.Name(), ID: aws.ToString(m.ModelId)})
	}
	return out, nil
}

// Stream opens a ConverseStream request.
func (p *BedrockProvider) Stream(ctx context.Context, req agent.CompletionRequest) (<-chan agent.StreamEvent, error) {
	input, err := p.buildInput(req)
	if err != nil {
		return nil, &agent.StreamError{Kind: agent.ErrInvalidRequest, Detail: err.Error(), Err: err}
	}

	resp, err := p.runtime.ConverseStream(ctx, input)
	if err != nil {
		return nil, AsStreamError(p.Name(), err)
	}

	out := make(chan agent.StreamEvent, 16)
	go p.pump(resp.GetStream(), out)
	return out, nil
}

func (p *BedrockProvider) buildInput(req agent.CompletionRequest) (*bedrockruntime.ConverseStreamInput, error) {
	var system []types.SystemContentBlock
	var messages []types.Message

	for _, m := range req.Messages {
		block := types.ContentBlockMemberText{Value: m.Content}
		switch m.Role {
		case "system":
			system = append(system, &types.SystemContentBlockMemberText{Value: m.Content})
		case "user", "tool":
			messages = append(messages, types.Message{Role: types.ConversationRoleUser, Content: []types.ContentBlock{&block}})
		case "assistant":
			messages = append(messages, types.Message{Role: types.ConversationRoleAssistant, Content: []types.ContentBlock{&block}})
		default:
			return nil, fmt.Errorf("bedrock: unknown message role %q", m.Role)
		}
	}

	input := &bedrockruntime.ConverseStreamInput{
		ModelId:  aws.String(req.Model),
		Messages: messages,
		System:   system,
	}
	if req.MaxTokens > 0 || req.Temperature > 0 {
		cfg := &types.InferenceConfiguration{}
		if req.MaxTokens > 0 {
			mt := int32(req.MaxTokens)
			cfg.MaxTokens = &mt
		}
		if req.Temperature > 0 {
			t := float32(req.Temperature)
			cfg.Temperature = &t
		}
		input.InferenceConfig = cfg
	}
	return input, nil
}

func (p *BedrockProvider) pump(stream *bedrockruntime.ConverseStreamEventStream, out chan<- agent.StreamEvent) {
	defer close(out)
	defer stream.Close()

	for event := range stream.Events() {
		switch v := event.(type) {
		case *types.ConverseStreamOutputMemberContentBlockDelta:
			if text, ok := v.Value.Delta.(*types.ContentBlockDeltaMemberText); ok {
				out <- agent.StreamEvent{Kind: agent.StreamEventDelta, Delta: text.Value}
			}
		case *types.ConverseStreamOutputMemberMessageStop:
			out <- agent.StreamEvent{Kind: agent.StreamEventDone}
			return
		}
	}

	if err := stream.Err(); err != nil {
		out <- agent.StreamEvent{Kind: agent.StreamEventError, Err: AsStreamError(p.Name(), err)}
		return
	}
	out <- agent.StreamEvent{Kind: agent.StreamEventDone}
}
