// Package factory builds the provider registry from configuration: one
// adapter per provider kind, with credential presence deciding availability
// rather than causing startup failure.
package factory

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"aitexgen/internal/config"
	"aitexgen/internal/models"
	"aitexgen/internal/provider"
	anthropicProvider "aitexgen/internal/provider/anthropic"
	"aitexgen/internal/provider/chatcompat"
	geminiProvider "aitexgen/internal/provider/gemini"
	openaiProvider "aitexgen/internal/provider/openai"
)

const (
	// defaultHTTPTimeout is a hard transport bound; the per-call context
	// timeout below it is what normally fires first.
	defaultHTTPTimeout     = 120 * time.Second
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// Build constructs the registry with every built-in provider registered in
// chain order. Providers without a credential, disabled by config, or whose
// client cannot be constructed are registered as unavailable.
func Build(ctx context.Context, cfg config.Config) (*provider.Registry, error) {
	registry := provider.NewRegistry()

	for _, desc := range models.DefaultProviders() {
		override := cfg.Providers[desc.Name]
		desc = applyOverride(desc, override)

		apiKey := cfg.Credentials[desc.Name]
		switch {
		case override.Disabled:
			slog.Info("provider disabled by config", "provider", desc.Name)
			apiKey = ""
		case apiKey == "":
			slog.Warn("provider unavailable", "provider", desc.Name, "reason", "missing "+desc.EnvKey)
		}

		var client provider.Client
		if apiKey != "" {
			built, err := buildClient(ctx, desc, apiKey, cfg.Domain)
			if err != nil {
				slog.Warn("provider unavailable", "provider", desc.Name, "error", err)
			} else {
				client = built
				slog.Info("provider registered", "provider", desc.Name, "kind", string(desc.Kind), "models", len(desc.Models))
			}
		}

		if err := registry.Register(desc, client); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

func applyOverride(desc models.Descriptor, override config.ProviderOverride) models.Descriptor {
	if override.BaseURL != "" {
		desc.BaseURL = override.BaseURL
	}
	if override.TokenBudget > 0 {
		desc.TokenBudget = override.TokenBudget
	}
	return desc
}

func buildClient(ctx context.Context, desc models.Descriptor, apiKey, domain string) (provider.Client, error) {
	switch {
	case desc.Name == models.ProviderOpenAI:
		return openaiProvider.New(desc.Name, apiKey)
	case desc.Kind == models.KindRawGeneration:
		return geminiProvider.New(ctx, desc.Name, apiKey)
	case desc.Kind == models.KindMessageAPI:
		return anthropicProvider.New(desc.Name, desc.BaseURL, apiKey, newHTTPClient(defaultHTTPTimeout))
	default:
		var headers map[string]string
		if desc.SendReferer && domain != "" {
			headers = map[string]string{
				"HTTP-Referer": domain,
				"X-Title":      "aitexgen",
			}
		}
		return chatcompat.New(desc.Name, desc.BaseURL, apiKey, headers, newHTTPClient(defaultHTTPTimeout))
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
