package cache

import "time"

// Layered reads through memory into disk and promotes disk hits. Used when a
// cache directory is configured; otherwise callers construct Memory alone.
type Layered struct {
	memory Cache
	disk   Cache
}

// NewLayered builds the memory+disk pair from config values.
func NewLayered(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *Layered {
	return &Layered{
		memory: NewMemory(memoryTTL, 10*time.Minute),
		disk:   NewDisk(diskDir, diskTTL),
	}
}

func (c *Layered) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		return val, true
	}
	if val, found := c.disk.Get(key); found {
		_ = c.memory.Set(key, val, 0) // promote with default TTL
		return val, true
	}
	return nil, false
}

func (c *Layered) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, ttl); err != nil {
		return err
	}
	return c.disk.Set(key, value, ttl)
}

func (c *Layered) Delete(key string) error {
	_ = c.memory.Delete(key)
	return c.disk.Delete(key)
}

func (c *Layered) Clear() error {
	_ = c.memory.Clear()
	return c.disk.Clear()
}

// FromConfig builds the cache stack a run should use: disabled, memory-only,
// or layered with a disk directory.
func FromConfig(enabled bool, memoryTTL time.Duration, diskDir string, diskTTL time.Duration) Cache {
	if !enabled {
		return Disabled{}
	}
	if diskDir == "" {
		return NewMemory(memoryTTL, 10*time.Minute)
	}
	return NewLayered(memoryTTL, diskDir, diskTTL)
}
