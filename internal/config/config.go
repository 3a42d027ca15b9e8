package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"aitexgen/internal/models"
)

const (
	defaultPort           = 8080
	defaultTimeoutSeconds = 90
	defaultCacheSize      = 256
)

// Config is the full application configuration. Credentials come exclusively
// from the environment; the optional YAML file tunes everything else.
type Config struct {
	Server    ServerConfig                `yaml:"server"`
	Request   RequestConfig               `yaml:"request"`
	Cache     CacheConfig                 `yaml:"cache"`
	Providers map[string]ProviderOverride `yaml:"providers"`

	// Credentials maps provider name to API key, read from each provider's
	// env var at load time. A missing key leaves the provider unavailable.
	Credentials map[string]string `yaml:"-"`
	// Domain is sent as the referer for providers that attribute traffic.
	Domain string `yaml:"-"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// RequestConfig bounds a single provider call.
type RequestConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// CacheConfig sizes the finished-document cache.
type CacheConfig struct {
	Size int `yaml:"size"`
}

// ProviderOverride adjusts one built-in provider without redefining it.
type ProviderOverride struct {
	BaseURL     string `yaml:"base_url"`
	TokenBudget int64  `yaml:"token_budget"`
	Disabled    bool   `yaml:"disabled"`
}

// Load assembles the configuration: defaults, then the optional YAML file at
// path, then the environment. A .env file is honored when present.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Server:  ServerConfig{Port: defaultPort},
		Request: RequestConfig{TimeoutSeconds: defaultTimeoutSeconds},
		Cache:   CacheConfig{Size: defaultCacheSize},
	}

	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return Config{}, fmt.Errorf("resolve config path: %w", err)
		}
		data, err := os.ReadFile(absPath)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
		}
	}

	// Platform convention: PORT may arrive as "8080" or ":8080".
	if port := strings.TrimPrefix(os.Getenv("PORT"), ":"); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return Config{}, fmt.Errorf("parse PORT %q: %w", port, err)
		}
		cfg.Server.Port = n
	}

	cfg.Domain = strings.TrimSpace(os.Getenv("DOMAIN"))

	cfg.Credentials = make(map[string]string)
	for _, d := range models.DefaultProviders() {
		if key := strings.TrimSpace(os.Getenv(d.EnvKey)); key != "" {
			cfg.Credentials[d.Name] = key
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}
	if c.Request.TimeoutSeconds <= 0 {
		return fmt.Errorf("request.timeout_seconds must be positive, got %d", c.Request.TimeoutSeconds)
	}
	if c.Cache.Size <= 0 {
		return fmt.Errorf("cache.size must be positive, got %d", c.Cache.Size)
	}

	known := make(map[string]bool)
	for _, d := range models.DefaultProviders() {
		known[d.Name] = true
	}
	for name, override := range c.Providers {
		if !known[name] {
			return fmt.Errorf("providers.%s: unknown provider", name)
		}
		if override.TokenBudget < 0 {
			return fmt.Errorf("providers.%s: token_budget must not be negative", name)
		}
	}

	return nil
}

// Timeout returns the per-call provider timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Request.TimeoutSeconds) * time.Second
}
