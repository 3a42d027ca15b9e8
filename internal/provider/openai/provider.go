// Package openai talks to the OpenAI API through the go-openai SDK. The SDK
// parses error envelopes itself, so only the status mapping lives here.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"aitexgen/internal/models"
	"aitexgen/internal/provider"
)

const temperature = 0.2

// Client implements provider.Client on top of the go-openai SDK.
type Client struct {
	name string
	cli  *openai.Client
}

// New constructs an OpenAI client.
func New(name, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key must not be empty")
	}
	return &Client{name: name, cli: openai.NewClient(apiKey)}, nil
}

func (c *Client) Name() string {
	return c.name
}

// Generate sends one prompt to model and returns the first choice.
func (c *Client) Generate(ctx context.Context, prompt models.Prompt, model string) (*models.Completion, error) {
	if strings.TrimSpace(prompt.User) == "" {
		return nil, errors.New("prompt must not be empty")
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: prompt.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt.User,
	})

	resp, err := c.cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   models.MaxCompletionTokens,
		Temperature: temperature,
	})
	if err != nil {
		return nil, c.mapError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, provider.ErrEmptyCompletion
	}

	return &models.Completion{
		Text: resp.Choices[0].Message.Content,
		Usage: models.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// Close is a no-op; the SDK client holds no long-lived resources.
func (c *Client) Close() error {
	return nil
}

// mapError lifts SDK errors into the shared status error shape.
func (c *Client) mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &provider.StatusError{
			Provider:   c.name,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
		}
	}
	return fmt.Errorf("%s chat request failed: %w", c.name, err)
}
