package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	anthropicAPIURL  = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

type AnthropicProvider struct {
	config     *Config
	baseURL    string
	httpClient *http.Client
}

func NewAnthropicProvider(config *Config) *AnthropicProvider {
	baseURL := config.AnthropicBaseURL
	if baseURL == "" {
		baseURL = anthropicAPIURL
	}
	return &AnthropicProvider{
		config:     config,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

func (p *AnthropicProvider) Name() string  { return ProviderAnthropic }
func (p *AnthropicProvider) Model() string { return p.config.AnthropicModel }

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string                 `json:"role"`
	Content []anthropicContentPart `json:"content"`
}

type anthropicContentPart struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *AnthropicProvider) Extract(ctx context.Context, req ExtractionRequest) (*ExtractionResult, error) {
	ctx, cancel := withTimeout(ctx, p.config)
	defer cancel()

	parts := make([]anthropicContentPart, 0, 2)
	if req.ImageBase64 != "" {
		mediaType := req.MediaType
		if mediaType == "" {
			mediaType = "image/jpeg"
		}
		parts = append(parts, anthropicContentPart{
			Type: "image",
			Source: &anthropicSource{
				Type:      "base64",
				MediaType: mediaType,
				Data:      req.ImageBase64,
			},
		})
	}
	parts = append(parts, anthropicContentPart{Type: "text", Text: req.Prompt})

	body, err := json.Marshal(anthropicRequest{
		Model:     p.config.AnthropicModel,
		MaxTokens: p.config.MaxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: parts}},
	})
	if err != nil {
		return nil, &ExtractionError{Provider: ProviderAnthropic, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, &ExtractionError{Provider: ProviderAnthropic, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	httpReq.Header.Set("x-api-key", p.config.AnthropicAPIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, &ExtractionError{Provider: ProviderAnthropic, Err: fmt.Errorf("failed to make request: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ExtractionError{Provider: ProviderAnthropic, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &ExtractionError{Provider: ProviderAnthropic, Err: fmt.Errorf("failed to unmarshal response (status %d): %w", resp.StatusCode, err)}
	}
	if parsed.Error != nil {
		return nil, &ExtractionError{Provider: ProviderAnthropic, Err: fmt.Errorf("API error %s: %s", parsed.Error.Type, parsed.Error.Message)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ExtractionError{Provider: ProviderAnthropic, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var content strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if content.Len() == 0 {
		return nil, &ExtractionError{Provider: ProviderAnthropic, Err: errors.New("no text content in response")}
	}

	invoice, err := parseReply(ProviderAnthropic, content.String())
	if err != nil {
		return nil, err
	}

	model := parsed.Model
	if model == "" {
		model = p.config.AnthropicModel
	}
	return &ExtractionResult{Invoice: invoice, Content: content.String(), Model: model}, nil
}
