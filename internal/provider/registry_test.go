package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aitexgen/internal/models"
)

type stubClient struct {
	name     string
	closeErr error
}

func (s *stubClient) Name() string { return s.name }

func (s *stubClient) Generate(ctx context.Context, prompt models.Prompt, model string) (*models.Completion, error) {
	return &models.Completion{Text: "ok"}, nil
}

func (s *stubClient) Close() error { return s.closeErr }

func testDescriptor(name string, budget int64) models.Descriptor {
	return models.Descriptor{
		Name:        name,
		Kind:        models.KindChatCompletions,
		EnvKey:      "TEST_KEY",
		Models:      []models.ModelSpec{{ID: name + "-small", MinTier: models.TierFree}},
		TokenBudget: budget,
	}
}

func newTestRegistry(t *testing.T, names ...string) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, name := range names {
		require.NoError(t, r.Register(testDescriptor(name, 0), &stubClient{name: name}))
	}
	return r
}

func TestRegistryChainSkipsUnconfigured(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(testDescriptor("first", 0), &stubClient{name: "first"}))
	require.NoError(t, r.Register(testDescriptor("second", 0), nil))
	require.NoError(t, r.Register(testDescriptor("third", 0), &stubClient{name: "third"}))

	assert.Equal(t, []string{"first", "third"}, r.Chain())

	_, err := r.Client("second")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := newTestRegistry(t, "alpha")
	err := r.Register(testDescriptor("alpha", 0), &stubClient{name: "alpha"})
	assert.Error(t, err)
}

func TestRegistryClientUnknown(t *testing.T) {
	r := newTestRegistry(t, "alpha")
	_, err := r.Client("missing")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestRegistryRateLimitCooldown(t *testing.T) {
	r := newTestRegistry(t, "alpha", "beta")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	r.now = func() time.Time { return current }

	r.MarkRateLimited("alpha")

	assert.Equal(t, []string{"beta"}, r.Chain())
	_, err := r.Client("alpha")
	assert.ErrorIs(t, err, ErrRateLimited)

	// Still cooling down one second before expiry.
	current = base.Add(rateLimitCooldown - time.Second)
	assert.Equal(t, []string{"beta"}, r.Chain())

	// The provider rejoins the chain the moment the window ends.
	current = base.Add(rateLimitCooldown)
	assert.Equal(t, []string{"alpha", "beta"}, r.Chain())

	_, err = r.Client("alpha")
	assert.NoError(t, err)
}

func TestRegistryRecordFailure(t *testing.T) {
	r := newTestRegistry(t, "alpha")

	r.RecordFailure("alpha", errors.New("connection refused"))
	assert.Equal(t, []string{"alpha"}, r.Chain(), "ordinary failures must not bench the provider")
	assert.Equal(t, "connection refused", r.entries["alpha"].state.LastError)

	r.RecordFailure("alpha", &StatusError{Provider: "alpha", StatusCode: 429, Message: "too many requests"})
	assert.Empty(t, r.Chain())
}

func TestRegistryReserveTokens(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(testDescriptor("metered", 100), &stubClient{name: "metered"}))

	require.NoError(t, r.ReserveTokens("metered", 60))

	// Crossing the budget is rejected and leaves the counter untouched.
	err := r.ReserveTokens("metered", 50)
	assert.ErrorIs(t, err, ErrBudgetExhausted)
	assert.Equal(t, int64(60), r.Snapshot()[0].TokensUsed)

	// Landing exactly on the budget is allowed.
	require.NoError(t, r.ReserveTokens("metered", 40))
	assert.Equal(t, int64(100), r.Snapshot()[0].TokensUsed)
}

func TestRegistryReserveTokensUnmetered(t *testing.T) {
	r := newTestRegistry(t, "open")

	// No budget means no rejection, but spend is still tracked.
	require.NoError(t, r.ReserveTokens("open", 1_000_000))
	assert.Equal(t, int64(1_000_000), r.Snapshot()[0].TokensUsed)
}

func TestRegistryCommitUsage(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(testDescriptor("metered", 10_000), &stubClient{name: "metered"}))

	require.NoError(t, r.ReserveTokens("metered", 500))

	// Reported usage replaces the reserved estimate.
	r.CommitUsage("metered", 500, models.Usage{TotalTokens: 320})
	assert.Equal(t, int64(320), r.Snapshot()[0].TokensUsed)

	// A provider that reports nothing keeps the estimate.
	require.NoError(t, r.ReserveTokens("metered", 100))
	r.CommitUsage("metered", 100, models.Usage{})
	assert.Equal(t, int64(420), r.Snapshot()[0].TokensUsed)
}

func TestRegistryCommitUsageClampsAtZero(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(testDescriptor("metered", 10_000), &stubClient{name: "metered"}))

	require.NoError(t, r.ReserveTokens("metered", 10))
	r.CommitUsage("metered", 50, models.Usage{TotalTokens: 5})
	assert.Equal(t, int64(0), r.Snapshot()[0].TokensUsed)
}

func TestRegistryProviderForModel(t *testing.T) {
	r := newTestRegistry(t, "alpha", "beta")

	name, err := r.ProviderForModel("beta-small")
	require.NoError(t, err)
	assert.Equal(t, "beta", name)

	_, err = r.ProviderForModel("nonexistent")
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestRegistryModelsForTier(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(models.Descriptor{
		Name: "alpha",
		Models: []models.ModelSpec{
			{ID: "alpha-free", MinTier: models.TierFree},
			{ID: "alpha-pro", MinTier: models.TierPro},
		},
	}, &stubClient{name: "alpha"}))
	require.NoError(t, r.Register(models.Descriptor{
		Name:   "beta",
		Models: []models.ModelSpec{{ID: "beta-free", MinTier: models.TierFree}},
	}, nil))

	free := r.ModelsForTier(models.TierFree)
	require.Len(t, free, 1, "unavailable providers must not advertise models")
	assert.Equal(t, "alpha-free", free[0].ID)
	assert.Equal(t, "alpha", free[0].Provider)

	pro := r.ModelsForTier(models.TierPro)
	assert.Len(t, pro, 2)

	// A cool-down hides the provider from routing but not from the catalog.
	r.MarkRateLimited("alpha")
	assert.Len(t, r.ModelsForTier(models.TierFree), 1)
}

func TestRegistryClose(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(testDescriptor("ok", 0), &stubClient{name: "ok"}))
	require.NoError(t, r.Register(testDescriptor("bad", 0), &stubClient{name: "bad", closeErr: errors.New("close failed")}))

	err := r.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close bad")
}
