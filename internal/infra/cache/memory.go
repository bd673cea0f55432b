package cache

import (
	"context"
	"sync"
	"time"

	"timed_trading_server/internal/domain"
)

// MemoryQuoteCache is the in-process fallback used when no Redis address
// is configured. Expiry is checked lazily on read.
type MemoryQuoteCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	quotes    map[string]domain.Quote
	expiresAt time.Time
}

func NewMemoryQuoteCache(now func() time.Time) *MemoryQuoteCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryQuoteCache{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

func (c *MemoryQuoteCache) Get(_ context.Context, key string) (map[string]domain.Quote, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false, nil
	}

	out := make(map[string]domain.Quote, len(entry.quotes))
	for id, quote := range entry.quotes {
		out[id] = quote
	}
	return out, true, nil
}

func (c *MemoryQuoteCache) Set(_ context.Context, key string, quotes map[string]domain.Quote, ttl time.Duration) error {
	stored := make(map[string]domain.Quote, len(quotes))
	for id, quote := range quotes {
		stored[id] = quote
	}

	c.mu.Lock()
	c.entries[key] = memoryEntry{
		quotes:    stored,
		expiresAt: c.now().Add(ttl),
	}
	c.mu.Unlock()
	return nil
}

func (c *MemoryQuoteCache) Reset(context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}
