package ai

import (
	"time"

	"github.com/kdimtricp/budgetmanager/internal/models"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	Provider string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string

	MaxTokens int
	Timeout   time.Duration
}

func NewConfig() *Config {
	return &Config{
		Provider:       ProviderOpenAI,
		OpenAIModel:    "gpt-4o",
		AnthropicModel: "claude-3-5-sonnet-20241022",
		MaxTokens:      4000,
		Timeout:        120 * time.Second,
	}
}

// ExtractionRequest carries the synthesized prompt and, when available, a
// base64 encoded page image.
type ExtractionRequest struct {
	Prompt      string
	ImageBase64 string
	MediaType   string
}

type ExtractionResult struct {
	Invoice *models.ExtractedInvoice
	Content string
	Model   string
}
