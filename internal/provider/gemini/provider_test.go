package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	genai "google.golang.org/genai"

	"aitexgen/internal/provider"
)

func TestNewRequiresKey(t *testing.T) {
	_, err := New(context.Background(), "gemini", "")
	assert.Error(t, err)
}

func TestMapError(t *testing.T) {
	c := &Client{name: "gemini"}

	err := c.mapError(genai.APIError{Code: 429, Message: "Resource has been exhausted"})
	var statusErr *provider.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 429, statusErr.StatusCode)
	assert.Equal(t, "gemini", statusErr.Provider)
	assert.True(t, provider.IsRateLimit(err))

	plain := c.mapError(errors.New("connection reset"))
	assert.False(t, provider.IsRateLimit(plain))
	assert.Contains(t, plain.Error(), "gemini generate request failed")
}
