package latex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aitexgen/internal/models"
)

func TestGenerateKeyStable(t *testing.T) {
	first := models.NewGenerateRequest("resume for Jane", "resume", models.Options{SplitTables: true})
	second := models.NewGenerateRequest("resume for Jane", "resume", models.Options{SplitTables: true})

	// Request IDs differ, keys must not.
	require.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, GenerateKey(first), GenerateKey(second))
}

func TestGenerateKeyDiscriminates(t *testing.T) {
	base := models.NewGenerateRequest("resume for Jane", "resume", models.Options{})

	variants := []models.GenerateRequest{
		models.NewGenerateRequest("resume for John", "resume", models.Options{}),
		models.NewGenerateRequest("resume for Jane", "letter", models.Options{}),
		models.NewGenerateRequest("resume for Jane", "resume", models.Options{SplitTables: true}),
		models.NewGenerateRequest("resume for Jane", "resume", models.Options{MathMode: true}),
		models.NewGenerateRequest("resume for Jane", "resume", models.Options{Model: "gpt-4o"}),
	}

	for _, v := range variants {
		assert.NotEqual(t, GenerateKey(base), GenerateKey(v))
	}
}

func TestCacheRoundTrip(t *testing.T) {
	cache, err := NewCache(2)
	require.NoError(t, err)

	_, ok := cache.Get("missing")
	assert.False(t, ok)

	cache.Add("a", "doc-a")
	got, ok := cache.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "doc-a", got)

	// Oldest entry falls out once the bound is hit.
	cache.Add("b", "doc-b")
	cache.Add("c", "doc-c")
	_, ok = cache.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 2, cache.Len())
}

func TestNewCacheRejectsNonPositiveSize(t *testing.T) {
	_, err := NewCache(0)
	assert.Error(t, err)
}
