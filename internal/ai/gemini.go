package ai

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiGenerator replies through Google's Gemini API.
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
	logger      *zap.Logger
}

func NewGeminiGenerator(ctx context.Context, opts Options, logger *zap.Logger) (*GeminiGenerator, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if opts.Model == "" {
		opts.Model = "gemini-flash-latest"
	}

	config := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		config.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiGenerator{
		client:      client,
		model:       opts.Model,
		maxTokens:   int32(opts.MaxTokens),
		temperature: float32(opts.Temperature),
		logger:      logger,
	}, nil
}

func (g *GeminiGenerator) Name() string {
	return "gemini"
}

func (g *GeminiGenerator) GenerateReply(ctx context.Context, prompt string) (string, error) {
	return guard(ctx, g.Name(), func(ctx context.Context) (string, error) {
		result, err := g.client.Models.GenerateContent(ctx,
			g.model,
			genai.Text(prompt),
			&genai.GenerateContentConfig{
				Temperature:     genai.Ptr(g.temperature),
				MaxOutputTokens: g.maxTokens,
			},
		)
		if err != nil {
			g.logger.Error("Failed to generate content", zap.Error(err), zap.String("model", g.model))
			return "", err
		}

		return result.Text(), nil
	})
}
