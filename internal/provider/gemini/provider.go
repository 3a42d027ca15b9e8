// Package gemini talks to Google's Gemini API through the official genai
// SDK. Gemini does not speak the chat-completions schema at all: content is
// a list of typed parts and the system prompt rides a separate config field.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	genai "google.golang.org/genai"

	"aitexgen/internal/models"
	"aitexgen/internal/provider"
)

const temperature = 0.2

// Client implements provider.Client on top of the genai SDK.
type Client struct {
	name string
	cli  *genai.Client
}

// New constructs a Gemini client. The SDK validates the key lazily, so a
// bad key surfaces on the first Generate call rather than here.
func New(ctx context.Context, name, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key must not be empty")
	}

	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{name: name, cli: cli}, nil
}

func (c *Client) Name() string {
	return c.name
}

// Generate sends one prompt to model and collects the text parts of the
// first candidate.
func (c *Client) Generate(ctx context.Context, prompt models.Prompt, model string) (*models.Completion, error) {
	if strings.TrimSpace(prompt.User) == "" {
		return nil, errors.New("prompt must not be empty")
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(temperature)),
		MaxOutputTokens: models.MaxCompletionTokens,
	}
	if prompt.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: prompt.System}}}
	}

	resp, err := c.cli.Models.GenerateContent(ctx, model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt.User}}}},
		cfg,
	)
	if err != nil {
		return nil, c.mapError(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, provider.ErrEmptyCompletion
	}

	text := strings.Builder{}
	for _, part := range resp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, provider.ErrEmptyCompletion
	}

	completion := &models.Completion{Text: text.String()}
	if usage := resp.UsageMetadata; usage != nil {
		completion.Usage = models.Usage{
			PromptTokens:     int(usage.PromptTokenCount),
			CompletionTokens: int(usage.CandidatesTokenCount),
			TotalTokens:      int(usage.TotalTokenCount),
		}
	}
	return completion, nil
}

// Close is a no-op; the genai client holds no long-lived resources.
func (c *Client) Close() error {
	return nil
}

// mapError lifts SDK errors into the shared status error shape so that 429
// handling works the same as for the HTTP adapters.
func (c *Client) mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &provider.StatusError{
			Provider:   c.name,
			StatusCode: apiErr.Code,
			Message:    apiErr.Message,
		}
	}
	return fmt.Errorf("%s generate request failed: %w", c.name, err)
}
