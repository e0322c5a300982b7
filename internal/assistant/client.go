package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Client produces a completion for a single prompt. The concrete
// implementation talks to an OpenAI-compatible chat endpoint; tests substitute
// a fake.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

var (
	errEmptyCompletion = errors.New("assistant: completion had no choices")
	// ErrUnavailable is returned when no generation backend is configured.
	ErrUnavailable = errors.New("assistant: no generation backend configured")
)

// UnavailableClient stands in when no API key is configured. Every request
// fails, which makes the generator fall back to its fixed text.
type UnavailableClient struct{}

// Complete always reports the backend as unavailable.
func (UnavailableClient) Complete(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

// OpenAIClientConfig configures the chat-completions client. BaseURL points at
// any OpenAI-compatible endpoint, including Gemini's compatibility surface.
type OpenAIClientConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIClient implements Client over go-openai chat completions.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient constructs the chat-completions client.
func NewOpenAIClient(cfg OpenAIClientConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("assistant: api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("assistant: model is required")
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}, nil
}

// Complete sends the prompt as a single user message and returns the reply.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	response, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("assistant: chat completion failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", errEmptyCompletion
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
