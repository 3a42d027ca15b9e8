// Package anthropic talks to the Anthropic messages API, which differs from
// the OpenAI shape on both ends: custom auth headers, a top-level system
// field, content blocks instead of a string, and split usage counters.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"aitexgen/internal/models"
	"aitexgen/internal/provider"
)

const (
	contentTypeJSON = "application/json"
	userAgent       = "aitexgen/0.1"
	apiVersion      = "2023-06-01"
	temperature     = 0.2
)

// Client implements provider.Client against the Anthropic messages API.
type Client struct {
	name        string
	apiKey      string
	client      *http.Client
	messagesURL string
}

// New constructs an Anthropic client.
func New(name, baseURL, apiKey string, client *http.Client) (*Client, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return nil, errors.New("base url must not be empty")
	}
	if apiKey == "" {
		return nil, errors.New("api key must not be empty")
	}

	return &Client{
		name:        name,
		apiKey:      apiKey,
		client:      client,
		messagesURL: baseURL + "/messages",
	}, nil
}

func (c *Client) Name() string {
	return c.name
}

// Generate sends one prompt to model. The messages API requires max_tokens,
// so the shared response cap is always sent.
func (c *Client) Generate(ctx context.Context, prompt models.Prompt, model string) (*models.Completion, error) {
	if strings.TrimSpace(prompt.User) == "" {
		return nil, errors.New("prompt must not be empty")
	}

	httpReq, err := c.newRequest(ctx, buildPayload(prompt, model))
	if err != nil {
		return nil, err
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s message request failed: %w", c.name, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return nil, c.parseAPIError(httpResp)
	}

	var resp messageResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	return resp.toCompletion()
}

// Close releases idle connections held for this provider.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *Client) newRequest(ctx context.Context, payload messagePayload) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.messagesURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}

	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	return req, nil
}

type messagePayload struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	System      string    `json:"system,omitempty"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func buildPayload(prompt models.Prompt, model string) messagePayload {
	return messagePayload{
		Model: model,
		Messages: []message{
			{Role: "user", Content: []contentBlock{{Type: "text", Text: prompt.User}}},
		},
		System:      prompt.System,
		MaxTokens:   models.MaxCompletionTokens,
		Temperature: temperature,
	}
}

type messageResponse struct {
	ID         string         `json:"id"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	Usage      usageBlock     `json:"usage"`
	StopReason string         `json:"stop_reason"`
}

type usageBlock struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (r messageResponse) toCompletion() (*models.Completion, error) {
	text := strings.Builder{}
	for _, block := range r.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, provider.ErrEmptyCompletion
	}

	return &models.Completion{
		Text: text.String(),
		Usage: models.Usage{
			PromptTokens:     r.Usage.InputTokens,
			CompletionTokens: r.Usage.OutputTokens,
			TotalTokens:      r.Usage.InputTokens + r.Usage.OutputTokens,
		},
	}, nil
}

type apiErrorResponse struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (c *Client) parseAPIError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("upstream error status %d and failed to read body: %w", resp.StatusCode, err)
	}

	message := strings.TrimSpace(string(body))
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}

	return &provider.StatusError{
		Provider:   c.name,
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}
