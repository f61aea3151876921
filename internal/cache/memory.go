package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is the in-process TTL cache layer. A zero ttl on Set falls back to
// the default TTL the cache was constructed with.
type Memory struct {
	store *gocache.Cache
}

// NewMemory creates a memory cache with the given default TTL. Expired
// entries are swept every cleanupInterval.
func NewMemory(defaultTTL, cleanupInterval time.Duration) *Memory {
	return &Memory{store: gocache.New(defaultTTL, cleanupInterval)}
}

func (c *Memory) Get(key string) ([]byte, bool) {
	val, found := c.store.Get(key)
	if !found {
		return nil, false
	}
	b, ok := val.([]byte)
	if !ok {
		return nil, false
	}
	return b, true
}

func (c *Memory) Set(key string, value []byte, ttl time.Duration) error {
	c.store.Set(key, value, ttl)
	return nil
}

func (c *Memory) Delete(key string) error {
	c.store.Delete(key)
	return nil
}

func (c *Memory) Clear() error {
	c.store.Flush()
	return nil
}
