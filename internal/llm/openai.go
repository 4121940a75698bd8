package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sashabaranov/go-openai"
)

// openaiCompleter adapts the OpenAI SDK to the completer surface.
type openaiCompleter struct {
	client *openai.Client
}

func newOpenAICompleter(apiKey string) (*openaiCompleter, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	return &openaiCompleter{client: openai.NewClient(apiKey)}, nil
}

func (c *openaiCompleter) name() string {
	return "openai"
}

func (c *openaiCompleter) defaultModel() string {
	return "gpt-4o"
}

func (c *openaiCompleter) complete(ctx context.Context, req *completionRequest) (*completionResponse, error) {
	start := time.Now()

	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel()
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       modelID,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return nil, err
	}

	var content, stopReason string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		stopReason = string(resp.Choices[0].FinishReason)
	}

	return &completionResponse{
		Content:    content,
		Model:      resp.Model,
		TokensIn:   resp.Usage.PromptTokens,
		TokensOut:  resp.Usage.CompletionTokens,
		StopReason: stopReason,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}
