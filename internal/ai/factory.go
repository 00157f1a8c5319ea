package ai

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const (
	ProviderOpenAI    = "openai"
	ProviderResponses = "openai-responses"
	ProviderGemini    = "gemini"
	ProviderOffline   = "offline"
)

// New builds the generator for provider.
func New(ctx context.Context, provider string, opts Options, logger *zap.Logger) (Generator, error) {
	switch provider {
	case ProviderOpenAI:
		return NewOpenAIGenerator(opts, logger), nil
	case ProviderResponses:
		return NewResponsesGenerator(opts, logger), nil
	case ProviderGemini:
		g, err := NewGeminiGenerator(ctx, opts, logger)
		if err != nil {
			return nil, err
		}
		return g, nil
	case ProviderOffline:
		return NewOfflineGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", provider)
	}
}
