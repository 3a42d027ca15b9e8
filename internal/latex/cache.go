package latex

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"

	"aitexgen/internal/models"
)

// Cache remembers finished documents for repeated generation requests so an
// identical prompt does not spend provider tokens twice. Only successful
// generations are stored; modifications are never cached.
type Cache struct {
	entries *lru.Cache[string, string]
}

// NewCache creates a cache bounded to size entries.
func NewCache(size int) (*Cache, error) {
	entries, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("create document cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Get returns the cached document for key.
func (c *Cache) Get(key string) (string, bool) {
	return c.entries.Get(key)
}

// Add stores a finished document under key.
func (c *Cache) Add(key, document string) {
	c.entries.Add(key, document)
}

// Len reports how many documents are currently cached.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// GenerateKey derives a stable cache key from everything that influences the
// generated document. The request ID is not part of the key: two calls with
// identical content must share it.
func GenerateKey(req models.GenerateRequest) string {
	h := sha256.New()
	io.WriteString(h, req.Content)
	h.Write([]byte{0})
	io.WriteString(h, req.DocumentType)
	h.Write([]byte{0})
	fmt.Fprintf(h, "split=%t;math=%t;model=%s", req.Options.SplitTables, req.Options.MathMode, req.Options.Model)
	return hex.EncodeToString(h.Sum(nil))
}
