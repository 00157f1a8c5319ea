package ai

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"go.uber.org/zap"
)

// ResponsesGenerator replies through the OpenAI Responses API.
type ResponsesGenerator struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
	logger      *zap.Logger
}

func NewResponsesGenerator(opts Options, logger *zap.Logger) *ResponsesGenerator {
	clientOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		// Retries belong to the caller; one attempt per save.
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &ResponsesGenerator{
		client:      openai.NewClient(clientOpts...),
		model:       opts.Model,
		maxTokens:   int64(opts.MaxTokens),
		temperature: opts.Temperature,
		logger:      logger,
	}
}

func (g *ResponsesGenerator) Name() string {
	return "openai-responses"
}

func (g *ResponsesGenerator) GenerateReply(ctx context.Context, prompt string) (string, error) {
	return guard(ctx, g.Name(), func(ctx context.Context) (string, error) {
		params := responses.ResponseNewParams{
			Model: g.model,
			Input: responses.ResponseNewParamsInputUnion{
				OfString: openai.String(prompt),
			},
			Temperature: openai.Float(g.temperature),
		}
		if g.maxTokens > 0 {
			params.MaxOutputTokens = openai.Int(g.maxTokens)
		}

		resp, err := g.client.Responses.New(ctx, params)
		if err != nil {
			g.logger.Error("Failed to create response", zap.Error(err), zap.String("model", g.model))
			return "", err
		}

		g.logger.Debug("Response received",
			zap.String("response_id", resp.ID),
			zap.Int64("output_tokens", resp.Usage.OutputTokens))
		return resp.OutputText(), nil
	})
}
