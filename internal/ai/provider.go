package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Provider extracts invoice data from a prompt and an optional page image.
type Provider interface {
	Name() string
	Model() string
	Extract(ctx context.Context, req ExtractionRequest) (*ExtractionResult, error)
}

// NewProvider returns the single provider selected by config. There is no
// fallback to the other provider when a call fails.
func NewProvider(config *Config, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(config.Provider) {
	case "", ProviderOpenAI:
		if config.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		logger.Info("AI provider enabled", zap.String("provider", ProviderOpenAI), zap.String("model", config.OpenAIModel))
		return NewOpenAIProvider(config), nil
	case ProviderAnthropic:
		if config.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
		logger.Info("AI provider enabled", zap.String("provider", ProviderAnthropic), zap.String("model", config.AnthropicModel))
		return NewAnthropicProvider(config), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", config.Provider)
	}
}

func withTimeout(ctx context.Context, config *Config) (context.Context, context.CancelFunc) {
	if config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, config.Timeout)
}

func dataURI(req ExtractionRequest) string {
	mediaType := req.MediaType
	if mediaType == "" {
		mediaType = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mediaType, req.ImageBase64)
}
