package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aitexgen/internal/models"
	"aitexgen/internal/provider"
)

const fencedDoc = "```latex\n\\documentclass{article}\n\\begin{document}\nHi\n\\end{document}\n```"
const plainDoc = "\\documentclass{article}\n\\begin{document}\nHi\n\\end{document}"

type fakeClient struct {
	name        string
	text        string
	usage       models.Usage
	err         error
	calls       int
	seenModels  []string
	sawDeadline bool
}

func (f *fakeClient) Name() string { return f.name }

func (f *fakeClient) Generate(ctx context.Context, prompt models.Prompt, model string) (*models.Completion, error) {
	f.calls++
	f.seenModels = append(f.seenModels, model)
	_, f.sawDeadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return &models.Completion{Text: f.text, Usage: f.usage}, nil
}

func (f *fakeClient) Close() error { return nil }

func descriptorFor(name string, budget int64) models.Descriptor {
	return models.Descriptor{
		Name: name,
		Kind: models.KindChatCompletions,
		Models: []models.ModelSpec{
			{ID: name + "-default", MinTier: models.TierFree},
			{ID: name + "-alt", MinTier: models.TierPro},
		},
		TokenBudget: budget,
	}
}

func buildOrchestrator(t *testing.T, clients ...*fakeClient) (*Orchestrator, *provider.Registry) {
	t.Helper()
	registry := provider.NewRegistry()
	for _, c := range clients {
		require.NoError(t, registry.Register(descriptorFor(c.name, 0), c))
	}
	o, err := New(registry, Config{})
	require.NoError(t, err)
	return o, registry
}

func generateReq(content string) models.GenerateRequest {
	return models.NewGenerateRequest(content, "article", models.Options{})
}

func TestGenerateFirstProviderWins(t *testing.T) {
	first := &fakeClient{name: "first", text: fencedDoc, usage: models.Usage{TotalTokens: 200}}
	second := &fakeClient{name: "second", text: fencedDoc}
	o, registry := buildOrchestrator(t, first, second)

	result := o.Generate(context.Background(), generateReq("write about go"))

	require.True(t, result.Success)
	assert.Equal(t, plainDoc, result.Latex, "fences are stripped before returning")
	assert.Equal(t, "first", result.Provider)
	assert.Equal(t, "first-default", result.Model)
	assert.Empty(t, result.Error)

	assert.Equal(t, 1, first.calls)
	assert.Zero(t, second.calls, "the chain stops at the first success")
	assert.True(t, first.sawDeadline, "provider calls must carry a deadline")

	// Reported usage replaces the pre-flight estimate.
	assert.Equal(t, int64(200), registry.Snapshot()[0].TokensUsed)
}

func TestGenerateFallsThroughOnFailure(t *testing.T) {
	first := &fakeClient{name: "first", err: errors.New("connection refused")}
	second := &fakeClient{name: "second", text: fencedDoc}
	o, registry := buildOrchestrator(t, first, second)

	result := o.Generate(context.Background(), generateReq("write about go"))

	require.True(t, result.Success)
	assert.Equal(t, "second", result.Provider)
	assert.Equal(t, 1, first.calls)

	// A plain failure does not bench the provider for later requests.
	assert.Contains(t, registry.Chain(), "first")
}

func TestGenerateRateLimitBenchesProvider(t *testing.T) {
	first := &fakeClient{name: "first", err: &provider.StatusError{Provider: "first", StatusCode: 429, Message: "too many requests"}}
	second := &fakeClient{name: "second", text: fencedDoc}
	o, registry := buildOrchestrator(t, first, second)

	result := o.Generate(context.Background(), generateReq("write about go"))
	require.True(t, result.Success)
	assert.Equal(t, "second", result.Provider)
	assert.NotContains(t, registry.Chain(), "first")

	// The benched provider is skipped without another call.
	o.Generate(context.Background(), generateReq("write about rust"))
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 2, second.calls)
}

func TestGenerateOverrideAttemptedFirst(t *testing.T) {
	first := &fakeClient{name: "first", text: fencedDoc}
	second := &fakeClient{name: "second", text: fencedDoc}
	o, _ := buildOrchestrator(t, first, second)

	req := models.NewGenerateRequest("write about go", "article", models.Options{Model: "second-alt"})
	result := o.Generate(context.Background(), req)

	require.True(t, result.Success)
	assert.Equal(t, "second", result.Provider)
	assert.Equal(t, "second-alt", result.Model)
	assert.Equal(t, []string{"second-alt"}, second.seenModels)
	assert.Zero(t, first.calls, "a healthy override bypasses the chain")
}

func TestGenerateOverrideFailureFallsThrough(t *testing.T) {
	first := &fakeClient{name: "first", text: fencedDoc}
	second := &fakeClient{name: "second", err: errors.New("boom")}
	o, _ := buildOrchestrator(t, first, second)

	req := models.NewGenerateRequest("write about go", "article", models.Options{Model: "second-alt"})
	result := o.Generate(context.Background(), req)

	require.True(t, result.Success)
	assert.Equal(t, "first", result.Provider)
	assert.Equal(t, 1, second.calls, "the override is attempted exactly once")
}

func TestGenerateOverrideNotRetriedInChain(t *testing.T) {
	first := &fakeClient{name: "first", err: errors.New("boom")}
	second := &fakeClient{name: "second", err: errors.New("boom")}
	o, _ := buildOrchestrator(t, first, second)

	// Overriding with second's default model must not lead to a second
	// attempt against the same provider/model pair during the chain walk.
	req := models.NewGenerateRequest("write about go", "article", models.Options{Model: "second-default"})
	result := o.Generate(context.Background(), req)

	assert.False(t, result.Success)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 1, first.calls)
}

func TestGenerateUnknownOverrideIgnored(t *testing.T) {
	first := &fakeClient{name: "first", text: fencedDoc}
	o, _ := buildOrchestrator(t, first)

	req := models.NewGenerateRequest("write about go", "article", models.Options{Model: "gpt-99"})
	result := o.Generate(context.Background(), req)

	require.True(t, result.Success)
	assert.Equal(t, "first", result.Provider)
}

func TestGenerateExhaustedChain(t *testing.T) {
	first := &fakeClient{name: "first", err: errors.New("boom")}
	second := &fakeClient{name: "second", err: errors.New("boom")}
	o, _ := buildOrchestrator(t, first, second)

	result := o.Generate(context.Background(), generateReq("write about go"))

	assert.False(t, result.Success)
	assert.Equal(t, exhaustedMessage, result.Error)
	assert.Empty(t, result.Latex)
}

func TestGenerateNoProvidersConfigured(t *testing.T) {
	registry := provider.NewRegistry()
	for _, desc := range models.DefaultProviders() {
		require.NoError(t, registry.Register(desc, nil))
	}
	o, err := New(registry, Config{})
	require.NoError(t, err)

	result := o.Generate(context.Background(), generateReq("write about go"))

	assert.False(t, result.Success)
	assert.Equal(t, exhaustedMessage, result.Error)
}

func TestGenerateBudgetRejectedBeforeCall(t *testing.T) {
	metered := &fakeClient{name: "metered", text: fencedDoc}
	fallback := &fakeClient{name: "fallback", text: fencedDoc}

	registry := provider.NewRegistry()
	require.NoError(t, registry.Register(descriptorFor("metered", 10), metered))
	require.NoError(t, registry.Register(descriptorFor("fallback", 0), fallback))
	o, err := New(registry, Config{})
	require.NoError(t, err)

	result := o.Generate(context.Background(), generateReq("write about go"))

	require.True(t, result.Success)
	assert.Equal(t, "fallback", result.Provider)
	assert.Zero(t, metered.calls, "over-budget calls must be rejected pre-flight")
}

func TestGenerateServedFromCache(t *testing.T) {
	first := &fakeClient{name: "first", text: fencedDoc}
	o, _ := buildOrchestrator(t, first)

	a := o.Generate(context.Background(), generateReq("write about go"))
	b := o.Generate(context.Background(), generateReq("write about go"))
	require.True(t, a.Success)
	require.True(t, b.Success)
	assert.Equal(t, a.Latex, b.Latex)
	assert.Equal(t, 1, first.calls, "identical requests must hit the cache")

	o.Generate(context.Background(), generateReq("write about rust"))
	assert.Equal(t, 2, first.calls)
}

func TestGenerateFailureNotCached(t *testing.T) {
	flaky := &fakeClient{name: "flaky", err: errors.New("boom")}
	o, _ := buildOrchestrator(t, flaky)

	assert.False(t, o.Generate(context.Background(), generateReq("write about go")).Success)

	flaky.err = nil
	flaky.text = fencedDoc
	assert.True(t, o.Generate(context.Background(), generateReq("write about go")).Success)
	assert.Equal(t, 2, flaky.calls)
}

func TestGenerateEmptyExtractionAdvancesChain(t *testing.T) {
	hollow := &fakeClient{name: "hollow", text: "``````"}
	solid := &fakeClient{name: "solid", text: fencedDoc}
	o, _ := buildOrchestrator(t, hollow, solid)

	result := o.Generate(context.Background(), generateReq("write about go"))

	require.True(t, result.Success)
	assert.Equal(t, "solid", result.Provider)
	assert.Equal(t, 1, hollow.calls)
}

func TestModifyDateRemovalShortcut(t *testing.T) {
	client := &fakeClient{name: "first", text: fencedDoc}
	o, _ := buildOrchestrator(t, client)

	doc := "\\documentclass{article}\n\\begin{document}\n\\maketitle\nBody\n\\end{document}"
	req := models.NewModifyRequest(doc, "remove the date", false, models.Options{})

	result := o.Modify(context.Background(), req)

	require.True(t, result.Success)
	assert.Contains(t, result.Latex, "\\date{}\n\\maketitle")
	assert.Zero(t, client.calls, "the shortcut must not touch any provider")
}

func TestModifyShortcutNeedsImplicitDate(t *testing.T) {
	client := &fakeClient{name: "first", text: fencedDoc}
	o, _ := buildOrchestrator(t, client)

	// The document already sets a date, so the edit goes to a model.
	doc := "\\documentclass{article}\\date{2024}\\begin{document}\\maketitle\\end{document}"
	req := models.NewModifyRequest(doc, "remove the date", false, models.Options{})

	result := o.Modify(context.Background(), req)

	require.True(t, result.Success)
	assert.Equal(t, 1, client.calls)
}

func TestModifyCallsProviders(t *testing.T) {
	client := &fakeClient{name: "first", text: fencedDoc}
	o, _ := buildOrchestrator(t, client)

	req := models.NewModifyRequest(plainDoc, "make the headings blue", false, models.Options{})
	result := o.Modify(context.Background(), req)

	require.True(t, result.Success)
	assert.Equal(t, plainDoc, result.Latex)
	assert.Equal(t, 1, client.calls)
}

func TestModifyNeverCached(t *testing.T) {
	client := &fakeClient{name: "first", text: fencedDoc}
	o, _ := buildOrchestrator(t, client)

	req := models.NewModifyRequest(plainDoc, "make the headings blue", false, models.Options{})
	o.Modify(context.Background(), req)
	o.Modify(context.Background(), req)

	assert.Equal(t, 2, client.calls)
}
