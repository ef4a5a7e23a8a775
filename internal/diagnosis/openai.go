package diagnosis

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// OpenAIGenerator asks a chat completion model for the content in JSON mode.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
}

// OpenAIOption configures an OpenAIGenerator
type OpenAIOption func(*openai.ClientConfig, *OpenAIGenerator)

// WithModel selects the chat model
func WithModel(model string) OpenAIOption {
	return func(_ *openai.ClientConfig, g *OpenAIGenerator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithBaseURL points the client at a compatible endpoint
func WithBaseURL(url string) OpenAIOption {
	return func(cfg *openai.ClientConfig, _ *OpenAIGenerator) {
		if url != "" {
			cfg.BaseURL = url
		}
	}
}

// NewOpenAIGenerator creates a generator authenticated with apiKey.
func NewOpenAIGenerator(apiKey string, opts ...OpenAIOption) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	g := &OpenAIGenerator{model: DefaultModel, temperature: 0.7}
	for _, opt := range opts {
		opt(&cfg, g)
	}
	g.client = openai.NewClientWithConfig(cfg)
	return g
}

// Generate implements Generator.
func (g *OpenAIGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string, _ Request) (Content, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: g.temperature,
	})
	if err != nil {
		return Content{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return Content{}, errors.New("chat completion returned an empty response")
	}
	return ParseContent([]byte(resp.Choices[0].Message.Content))
}
