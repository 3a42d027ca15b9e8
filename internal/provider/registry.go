package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"aitexgen/internal/models"
)

// rateLimitCooldown is how long a provider sits out after upstream throttling.
const rateLimitCooldown = 5 * time.Minute

// Client defines the behaviour required to turn one prompt into one
// completion against a single provider.
type Client interface {
	Name() string
	Generate(ctx context.Context, prompt models.Prompt, model string) (*models.Completion, error)
	Close() error
}

// State is the mutable runtime record of one provider. The registry owns all
// mutation; callers only ever see copies.
type State struct {
	Available        bool
	RateLimitedUntil time.Time
	TokensUsed       int64
	LastError        string
}

// Status pairs a provider name with a point-in-time view of its state.
type Status struct {
	Name        string
	Available   bool
	RateLimited bool
	TokensUsed  int64
}

type entry struct {
	descriptor models.Descriptor
	client     Client
	state      State
}

// Registry holds every configured provider in fallback priority order along
// with its runtime state. All methods are safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	order   []string
	entries map[string]*entry
	now     func() time.Time
}

// NewRegistry constructs an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Register adds a provider in chain order. A nil client registers the
// provider as unavailable so that status reporting still sees it.
func (r *Registry) Register(desc models.Descriptor, client Client) error {
	if desc.Name == "" {
		return errors.New("descriptor must have a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[desc.Name]; exists {
		return fmt.Errorf("provider %q already registered", desc.Name)
	}

	r.order = append(r.order, desc.Name)
	r.entries[desc.Name] = &entry{
		descriptor: desc,
		client:     client,
		state:      State{Available: client != nil},
	}
	return nil
}

// Chain returns the names of providers ready to serve a call right now, in
// priority order. Unconfigured providers and providers inside a rate-limit
// cool-down are skipped.
func (r *Registry) Chain() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	chain := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if r.entries[name].ready(now) {
			chain = append(chain, name)
		}
	}
	return chain
}

// Client returns the client for name, or an error describing why the
// provider cannot take a call right now.
func (r *Registry) Client(name string) (Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	if !e.state.Available {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, name)
	}
	if until := e.state.RateLimitedUntil; r.now().Before(until) {
		return nil, fmt.Errorf("%w: %s until %s", ErrRateLimited, name, until.Format(time.RFC3339))
	}
	return e.client, nil
}

// Descriptor returns the static descriptor registered under name.
func (r *Registry) Descriptor(name string) (models.Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return models.Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return e.descriptor, nil
}

// ProviderForModel returns the name of the provider owning modelID.
func (r *Registry) ProviderForModel(modelID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		for _, m := range r.entries[name].descriptor.Models {
			if m.ID == modelID {
				return name, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
}

// ReserveTokens charges estimate against the provider's budget before a call
// is made. Calls that would cross the budget are rejected without mutating
// the counter. Unmetered providers still accumulate usage for reporting.
func (r *Registry) ReserveTokens(name string, estimate int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	if budget := e.descriptor.TokenBudget; budget > 0 && e.state.TokensUsed+int64(estimate) > budget {
		return fmt.Errorf("%w: %s used %d of %d", ErrBudgetExhausted, name, e.state.TokensUsed, budget)
	}
	e.state.TokensUsed += int64(estimate)
	return nil
}

// CommitUsage replaces the reserved estimate with the provider's reported
// usage once a call succeeds. Providers that report nothing keep the
// estimate.
func (r *Registry) CommitUsage(name string, estimate int, usage models.Usage) {
	if usage.TotalTokens == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return
	}
	e.state.TokensUsed += int64(usage.TotalTokens) - int64(estimate)
	if e.state.TokensUsed < 0 {
		e.state.TokensUsed = 0
	}
}

// RecordFailure stores the error on the provider's runtime state and starts
// a cool-down when the error looks like upstream throttling.
func (r *Registry) RecordFailure(name string, err error) {
	if err == nil {
		return
	}
	if IsRateLimit(err) {
		r.MarkRateLimited(name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[name]; ok {
		e.state.LastError = err.Error()
	}
}

// MarkRateLimited starts the rate-limit cool-down for name. The provider
// rejoins the chain once the cool-down expires; no timer is involved.
func (r *Registry) MarkRateLimited(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[name]; ok {
		e.state.RateLimitedUntil = r.now().Add(rateLimitCooldown)
	}
}

// ModelsForTier lists every model of every available provider whose minimum
// tier is at or below tier, in chain order. Rate-limit cool-downs do not
// hide models; they only affect call routing.
func (r *Registry) ModelsForTier(tier models.Tier) []models.ModelInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.ModelInfo
	for _, name := range r.order {
		e := r.entries[name]
		if !e.state.Available {
			continue
		}
		for _, m := range e.descriptor.Models {
			if tier.Includes(m.MinTier) {
				out = append(out, models.ModelInfo{ID: m.ID, Provider: name, MinTier: m.MinTier})
			}
		}
	}
	return out
}

// Snapshot returns a point-in-time view of every registered provider in
// chain order.
func (r *Registry) Snapshot() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	out := make([]Status, 0, len(r.order))
	for _, name := range r.order {
		e := r.entries[name]
		out = append(out, Status{
			Name:        name,
			Available:   e.state.Available,
			RateLimited: now.Before(e.state.RateLimitedUntil),
			TokensUsed:  e.state.TokensUsed,
		})
	}
	return out
}

// Close releases every registered client.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, name := range r.order {
		if c := r.entries[name].client; c != nil {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (e *entry) ready(now time.Time) bool {
	return e.state.Available && !now.Before(e.state.RateLimitedUntil)
}
