package verifier

import (
	"context"
	"sync"
	"time"
)

// Entry is a cached positive verification result. CachedUntil is always
// bounded by both the local freshness window and the token's own expiry, so
// a hit is never served past either.
type Entry struct {
	Subject     string    `json:"subject"`
	TokenID     string    `json:"token_id"`
	CachedUntil time.Time `json:"cached_until"`
}

// Cache is the relying-party-side store of verified tokens. It is purely a
// performance optimization: a miss always falls back to the authority.
type Cache interface {
	Lookup(ctx context.Context, token string) (*Entry, bool)
	Store(ctx context.Context, token string, entry Entry) error
	// Invalidate drops the entry whose token ID matches. Keying on the
	// token ID rather than the subject means a delayed revocation event
	// cannot evict a newer, still-valid session for the same subject.
	Invalidate(ctx context.Context, tokenID string) error
}

// MemoryCache is a mutex-guarded in-process Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]Entry
	byID    map[string]string
}

// NewMemoryCache constructs an empty in-process verification cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]Entry),
		byID:    make(map[string]string),
	}
}

// Lookup returns the cached entry while it is still fresh. Stale entries
// are dropped on touch.
func (c *MemoryCache) Lookup(ctx context.Context, token string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[token]
	if !ok {
		return nil, false
	}
	if !time.Now().UTC().Before(entry.CachedUntil) {
		delete(c.entries, token)
		delete(c.byID, entry.TokenID)
		return nil, false
	}
	return &entry, true
}

// Store inserts or overwrites the entry for token.
func (c *MemoryCache) Store(ctx context.Context, token string, entry Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[token]; ok {
		delete(c.byID, old.TokenID)
	}
	c.entries[token] = entry
	c.byID[entry.TokenID] = token
	return nil
}

// Invalidate removes the entry with the given token ID, if cached.
func (c *MemoryCache) Invalidate(ctx context.Context, tokenID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token, ok := c.byID[tokenID]
	if !ok {
		return nil
	}
	delete(c.entries, token)
	delete(c.byID, tokenID)
	return nil
}
