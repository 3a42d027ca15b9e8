// Package orchestrator walks the provider chain for one request: try the
// explicit override first if any, then each ready provider in priority
// order, and return the first extracted document. Exhausting the chain is a
// normal outcome carried in the result, not an error.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"aitexgen/internal/latex"
	"aitexgen/internal/models"
	"aitexgen/internal/provider"
)

// exhaustedMessage is what callers show when no provider produced a document.
const exhaustedMessage = "All AI providers failed. Please try again later."

const (
	defaultTimeout   = 90 * time.Second
	defaultCacheSize = 256
)

// Orchestrator owns the fallback flow between the HTTP layer and the
// provider registry.
type Orchestrator struct {
	registry *provider.Registry
	cache    *latex.Cache
	timeout  time.Duration
}

// Config tunes an Orchestrator; zero values select defaults.
type Config struct {
	// Timeout bounds each individual provider call, not the whole chain.
	Timeout   time.Duration
	CacheSize int
}

// New constructs an orchestrator backed by the provided registry.
func New(registry *provider.Registry, cfg Config) (*Orchestrator, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}

	cache, err := latex.NewCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		registry: registry,
		cache:    cache,
		timeout:  cfg.Timeout,
	}, nil
}

// Generate produces a LaTeX document from plain text. Identical requests are
// served from the document cache without touching any provider.
func (o *Orchestrator) Generate(ctx context.Context, req models.GenerateRequest) models.LatexResult {
	key := latex.GenerateKey(req)
	if doc, ok := o.cache.Get(key); ok {
		slog.Info("document served from cache", "request_id", req.ID)
		return models.LatexResult{Success: true, Latex: doc}
	}

	result := o.run(ctx, req.ID, latex.BuildGeneratePrompt(req), req.Options.Model)
	if result.Success {
		o.cache.Add(key, result.Latex)
	}
	return result
}

// Modify edits an existing LaTeX document per the caller's notes. A pure
// date-removal request against a document with an implicit title date is
// answered by a textual edit, skipping the providers entirely.
func (o *Orchestrator) Modify(ctx context.Context, req models.ModifyRequest) models.LatexResult {
	if latex.IsDateRemovalRequest(req.Notes, req.Omit) && latex.HasImplicitTitleDate(req.Latex) {
		slog.Info("date removal handled textually", "request_id", req.ID)
		return models.LatexResult{Success: true, Latex: latex.SuppressTitleDate(req.Latex)}
	}

	return o.run(ctx, req.ID, latex.BuildModifyPrompt(req), req.Options.Model)
}

func (o *Orchestrator) run(ctx context.Context, requestID string, prompt models.Prompt, overrideModel string) models.LatexResult {
	tried := make(map[string]bool)

	// An explicit override is attempted once, never retried.
	if overrideModel != "" {
		if name, err := o.registry.ProviderForModel(overrideModel); err != nil {
			slog.Warn("ignoring unknown model override", "request_id", requestID, "model", overrideModel)
		} else {
			if doc, ok := o.attempt(ctx, requestID, name, overrideModel, prompt); ok {
				return models.LatexResult{Success: true, Latex: doc, Provider: name, Model: overrideModel}
			}
			tried[name+"/"+overrideModel] = true
		}
	}

	for _, name := range o.registry.Chain() {
		desc, err := o.registry.Descriptor(name)
		if err != nil {
			continue
		}
		model := desc.DefaultModel()
		if model == "" || tried[name+"/"+model] {
			continue
		}
		if doc, ok := o.attempt(ctx, requestID, name, model, prompt); ok {
			return models.LatexResult{Success: true, Latex: doc, Provider: name, Model: model}
		}
	}

	slog.Warn("provider chain exhausted", "request_id", requestID)
	return models.LatexResult{Success: false, Error: exhaustedMessage}
}

// attempt runs one provider call end to end. A false return means the
// caller should move on to the next provider.
func (o *Orchestrator) attempt(ctx context.Context, requestID, name, model string, prompt models.Prompt) (string, bool) {
	client, err := o.registry.Client(name)
	if err != nil {
		slog.Info("provider skipped", "request_id", requestID, "provider", name, "reason", err.Error())
		return "", false
	}

	estimate := provider.EstimateTokens(prompt.User)
	if err := o.registry.ReserveTokens(name, estimate); err != nil {
		slog.Warn("provider skipped", "request_id", requestID, "provider", name, "reason", err.Error())
		return "", false
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	completion, err := client.Generate(callCtx, prompt, model)
	if err != nil {
		o.registry.RecordFailure(name, err)
		slog.Warn("provider call failed",
			"request_id", requestID,
			"provider", name,
			"model", model,
			"duration", time.Since(start),
			"error", err)
		return "", false
	}

	o.registry.CommitUsage(name, estimate, completion.Usage)

	doc := latex.Extract(completion.Text)
	if doc == "" {
		o.registry.RecordFailure(name, provider.ErrEmptyCompletion)
		slog.Warn("provider returned no usable text", "request_id", requestID, "provider", name, "model", model)
		return "", false
	}

	slog.Info("provider call succeeded",
		"request_id", requestID,
		"provider", name,
		"model", model,
		"duration", time.Since(start),
		"tokens", completion.Usage.TotalTokens)
	return doc, true
}
