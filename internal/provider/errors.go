package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnknownProvider indicates the named provider is not registered.
var ErrUnknownProvider = errors.New("unknown provider")

// ErrUnknownModel indicates no registered provider owns the requested model.
var ErrUnknownModel = errors.New("unknown model")

// ErrNotConfigured indicates the provider is registered but has no usable
// client, usually because its API key is missing.
var ErrNotConfigured = errors.New("provider not configured")

// ErrRateLimited indicates the provider is inside a rate-limit cool-down.
var ErrRateLimited = errors.New("provider rate limited")

// ErrBudgetExhausted indicates the call would push the provider past its
// token budget.
var ErrBudgetExhausted = errors.New("token budget exhausted")

// ErrEmptyCompletion indicates the provider replied without usable text.
var ErrEmptyCompletion = errors.New("empty completion")

// StatusError is a non-2xx reply from a provider API.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// IsRateLimit reports whether err looks like upstream throttling: an HTTP 429
// or an error message mentioning rate limits.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "rate limit")
}
