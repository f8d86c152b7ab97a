package ai

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIProvider struct {
	client *openai.Client
	config *Config
}

func NewOpenAIProvider(config *Config) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(config.OpenAIAPIKey)
	if config.OpenAIBaseURL != "" {
		clientConfig.BaseURL = config.OpenAIBaseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

func (p *OpenAIProvider) Name() string  { return ProviderOpenAI }
func (p *OpenAIProvider) Model() string { return p.config.OpenAIModel }

func (p *OpenAIProvider) Extract(ctx context.Context, req ExtractionRequest) (*ExtractionResult, error) {
	ctx, cancel := withTimeout(ctx, p.config)
	defer cancel()

	message := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if req.ImageBase64 != "" {
		message.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURI(req),
					Detail: openai.ImageURLDetailHigh,
				},
			},
		}
	} else {
		message.Content = req.Prompt
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.config.OpenAIModel,
		MaxTokens:   p.config.MaxTokens,
		Temperature: 0.1,
		Messages:    []openai.ChatCompletionMessage{message},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, &ExtractionError{Provider: ProviderOpenAI, Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &ExtractionError{Provider: ProviderOpenAI, Err: errors.New("no choices in response")}
	}

	content := resp.Choices[0].Message.Content
	invoice, err := parseReply(ProviderOpenAI, content)
	if err != nil {
		return nil, err
	}

	model := resp.Model
	if model == "" {
		model = p.config.OpenAIModel
	}
	return &ExtractionResult{Invoice: invoice, Content: content, Model: model}, nil
}
