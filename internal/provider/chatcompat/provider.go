// Package chatcompat talks to any provider exposing an OpenAI-compatible
// /chat/completions endpoint. Groq, OpenRouter, Together and Mistral all
// share this wire shape and differ only in base URL and extra headers.
package chatcompat

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
	// temperature stays low so generated documents compile reproducibly.
	temperature = 0.2
)

// Client implements provider.Client for OpenAI-compatible APIs.
type Client struct {
	name    string
	apiKey  string
	headers map[string]string
	client  *http.Client
	chatURL string
}

// New creates a chat-completions client. Extra headers are sent verbatim on
// every request, which covers OpenRouter's referer attribution scheme.
func New(name, baseURL, apiKey string, headers map[string]string, client *http.Client) (*Client, error) {
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
		name:    name,
		apiKey:  apiKey,
		headers: headers,
		client:  client,
		chatURL: baseURL + "/chat/completions",
	}, nil
}

func (c *Client) Name() string {
	return c.name
}

// Generate sends one prompt to model and returns the completion text along
// with whatever usage the provider reported.
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
		return nil, fmt.Errorf("%s chat request failed: %w", c.name, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return nil, c.parseAPIError(httpResp)
	}

	var resp chatResponse
	if err := decodeJSON(httpResp.Body, &resp); err != nil {
		return nil, err
	}
	return resp.toCompletion()
}

// Close releases idle connections held for this provider.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *Client) newRequest(ctx context.Context, payload chatPayload) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}

	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

type chatPayload struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func buildPayload(prompt models.Prompt, model string) chatPayload {
	messages := make([]chatMessage, 0, 2)
	if prompt.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: prompt.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt.User})

	return chatPayload{
		Model:       model,
		Messages:    messages,
		MaxTokens:   models.MaxCompletionTokens,
		Temperature: temperature,
	}
}

type chatResponse struct {
	ID      string       `json:"id"`
	Choices []chatChoice `json:"choices"`
	Usage   *usageBlock  `json:"usage,omitempty"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type usageBlock struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (r chatResponse) toCompletion() (*models.Completion, error) {
	if len(r.Choices) == 0 || strings.TrimSpace(r.Choices[0].Message.Content) == "" {
		return nil, provider.ErrEmptyCompletion
	}

	completion := &models.Completion{Text: r.Choices[0].Message.Content}
	if r.Usage != nil {
		completion.Usage = models.Usage{
			PromptTokens:     r.Usage.PromptTokens,
			CompletionTokens: r.Usage.CompletionTokens,
			TotalTokens:      r.Usage.TotalTokens,
		}
	}
	return completion, nil
}

type apiErrorResponse struct {
	Error apiErrorObject `json:"error"`
}

type apiErrorObject struct {
	Message string `json:"message"`
	Type    string `json:"type"`
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

func decodeJSON(reader io.Reader, target any) error {
	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}
