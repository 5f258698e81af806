package memstore

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"recipe_server/core/port/out"
)

// MemCache is an in-memory out.Cache. TTLs are ignored; tests control
// contents through Set/Delete and the hit counters.
type MemCache struct {
	mu      sync.Mutex
	entries map[string][]byte

	Hits   int
	Misses int
}

func NewMemCache() *MemCache {
	return &MemCache{entries: make(map[string][]byte)}
}

func (c *MemCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		c.Misses++
		return false, nil
	}
	c.Hits++
	return true, json.Unmarshal(raw, dest)
}

func (c *MemCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *MemCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

// Has reports whether a key is cached.
func (c *MemCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

var _ out.Cache = (*MemCache)(nil)
