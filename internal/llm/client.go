// Package llm provides the LLM gateway: coach reply generation and structured
// outcome extraction over a finished conversation.
package llm

import (
	"context"
	"fmt"

	"github.com/purposepath-ai/coaching-engine/internal/apperrors"
	"github.com/purposepath-ai/coaching-engine/internal/model"
)

// Reply is one coach turn produced by the gateway.
type Reply struct {
	Content          string
	FollowUpQuestion string
	Insights         []string
	IsComplete       bool
	TokenUsage       model.TokenUsage
	ModelID          string
	LatencyMs        int64
}

// Gateway is the interface for LLM providers.
type Gateway interface {
	// GenerateReply produces the next coach turn for a conversation, grounded
	// in the tenant's business context.
	GenerateReply(ctx context.Context, history []model.Message, spec model.TopicSpec, businessContext, language string) (*Reply, error)

	// ExtractOutcomes summarizes a finished conversation into structured field
	// values plus a confidence score, scoped to the conversation's topic.
	ExtractOutcomes(ctx context.Context, history []model.Message, spec model.TopicSpec) (*model.SessionOutcomes, error)

	// Name returns the provider name.
	Name() string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// NewGateway creates a gateway for the given provider. An empty model id
// selects the provider default.
func NewGateway(provider Provider, apiKey, modelID string) (Gateway, error) {
	var c completer
	var err error
	switch provider {
	case ProviderOpenAI:
		c, err = newOpenAICompleter(apiKey)
	case ProviderAnthropic, "":
		c, err = newAnthropicCompleter(apiKey)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
	if err != nil {
		return nil, err
	}
	if modelID == "" {
		modelID = c.defaultModel()
	}
	return &gateway{completer: c, model: modelID}, nil
}

// chatMessage is the provider-neutral chat turn.
type chatMessage struct {
	Role    string
	Content string
}

// completionRequest is a single completion call against a provider.
type completionRequest struct {
	Model       string
	System      string
	Messages    []chatMessage
	MaxTokens   int
	Temperature float64
}

// completionResponse is the raw provider result before coaching-level parsing.
type completionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// completer is the low-level provider surface shared by both SDK adapters.
type completer interface {
	complete(ctx context.Context, req *completionRequest) (*completionResponse, error)
	name() string
	defaultModel() string
}

// gateway layers the coaching protocol (structured JSON replies, outcome
// extraction) over a provider completer.
type gateway struct {
	completer completer
	model     string
}

func (g *gateway) Name() string {
	return g.completer.name()
}

func (g *gateway) GenerateReply(ctx context.Context, history []model.Message, spec model.TopicSpec, businessContext, language string) (*Reply, error) {
	resp, err := g.completer.complete(ctx, &completionRequest{
		Model:       g.model,
		System:      coachSystemPrompt(spec, businessContext, language),
		Messages:    historyToChat(history),
		MaxTokens:   2048,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("reply generation failed: %w", err)
	}

	payload := parseReplyPayload(resp.Content)
	return &Reply{
		Content:          payload.Message,
		FollowUpQuestion: payload.FollowUpQuestion,
		Insights:         payload.Insights,
		IsComplete:       payload.IsComplete,
		TokenUsage:       model.TokenUsage{Input: resp.TokensIn, Output: resp.TokensOut},
		ModelID:          resp.Model,
		LatencyMs:        resp.LatencyMs,
	}, nil
}

func (g *gateway) ExtractOutcomes(ctx context.Context, history []model.Message, spec model.TopicSpec) (*model.SessionOutcomes, error) {
	resp, err := g.completer.complete(ctx, &completionRequest{
		Model:     g.model,
		System:    extractionSystemPrompt(spec),
		Messages:  []chatMessage{{Role: "user", Content: extractionPrompt(spec, history)}},
		MaxTokens: 1024,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrExtraction, err)
	}

	outcomes, err := parseOutcomes(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrExtraction, err)
	}
	return outcomes, nil
}
