package index

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/maypok86/otter"

	"github.com/mvp-joe/hackdecl/internal/decl"
)

// DeclCache memoizes successful extractions by content. The key covers the
// scanner backend and the full file text, so identical files anywhere in the
// tree share one entry. A nil *DeclCache is a valid, always-missing cache.
type DeclCache struct {
	cache otter.Cache[string, *decl.Decls]
}

// NewDeclCache creates a cache holding up to capacity entries. A capacity of
// zero disables caching and returns nil.
func NewDeclCache(capacity int) (*DeclCache, error) {
	if capacity <= 0 {
		return nil, nil
	}

	c, err := otter.MustBuilder[string, *decl.Decls](capacity).
		CollectStats().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build decl cache: %w", err)
	}
	return &DeclCache{cache: c}, nil
}

// Key returns the cache key for text scanned by backend.
func Key(backend string, text []byte) string {
	h := sha256.New()
	h.Write([]byte(backend))
	h.Write([]byte{0})
	h.Write(text)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached declarations for key. The result is shared and
// must not be modified.
func (c *DeclCache) Get(key string) (*decl.Decls, bool) {
	if c == nil {
		return nil, false
	}
	return c.cache.Get(key)
}

// Set stores declarations under key.
func (c *DeclCache) Set(key string, d *decl.Decls) {
	if c == nil || d == nil {
		return
	}
	c.cache.Set(key, d)
}

// Hits returns the number of successful lookups so far.
func (c *DeclCache) Hits() int64 {
	if c == nil {
		return 0
	}
	return c.cache.Stats().Hits()
}

// Misses returns the number of failed lookups so far.
func (c *DeclCache) Misses() int64 {
	if c == nil {
		return 0
	}
	return c.cache.Stats().Misses()
}

// Close releases the cache's background resources.
func (c *DeclCache) Close() {
	if c == nil {
		return
	}
	c.cache.Close()
}
