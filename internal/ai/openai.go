package ai

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Options configures a hosted reply model.
type Options struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	// BaseURL overrides the service endpoint; empty keeps the default.
	BaseURL string
}

// OpenAIGenerator replies through the Chat Completions API.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

func NewOpenAIGenerator(opts Options, logger *zap.Logger) *OpenAIGenerator {
	config := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}

	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(config),
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		logger:      logger,
	}
}

func (g *OpenAIGenerator) Name() string {
	return "openai"
}

func (g *OpenAIGenerator) GenerateReply(ctx context.Context, prompt string) (string, error) {
	return guard(ctx, g.Name(), func(ctx context.Context) (string, error) {
		resp, err := g.client.CreateChatCompletion(
			ctx,
			openai.ChatCompletionRequest{
				Model: g.model,
				Messages: []openai.ChatCompletionMessage{
					{
						Role:    openai.ChatMessageRoleUser,
						Content: prompt,
					},
				},
				MaxTokens:   g.maxTokens,
				Temperature: float32(g.temperature),
			},
		)
		if err != nil {
			g.logger.Error("Failed to get chat completion", zap.Error(err), zap.String("model", g.model))
			return "", err
		}

		if len(resp.Choices) == 0 {
			return "", errors.New("no choices in response")
		}

		g.logger.Debug("Chat completion received",
			zap.String("model", resp.Model),
			zap.Int("prompt_tokens", resp.Usage.PromptTokens),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens))
		return resp.Choices[0].Message.Content, nil
	})
}
