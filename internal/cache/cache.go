// Package cache provides the injected TTL caches used by the market clients.
// Region-code lookups and (region, month) transaction windows are the only
// cached subjects; callers construct a cache explicitly and pass it in, there
// is no package-level state.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Cache is the minimal store the market clients depend on.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

const keyVersion = "jipcheck:v1"

// RegionKey keys a resolved region code by the address keyword that produced it.
func RegionKey(addressKeyword string) string {
	return keyVersion + ":region:" + digest(addressKeyword)
}

// WindowKey keys one (region, kind, month) transaction window.
func WindowKey(regionCode, kind, yearMonth string) string {
	return fmt.Sprintf("%s:txn:%s:%s:%s", keyVersion, regionCode, kind, yearMonth)
}

// GetJSON unmarshals a cached value into dst. Returns false on miss or on a
// stale encoding that no longer unmarshals.
func GetJSON(c Cache, key string, dst interface{}) bool {
	if c == nil {
		return false
	}
	raw, ok := c.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		_ = c.Delete(key)
		return false
	}
	return true
}

// SetJSON marshals v and stores it under key. Cache write failures are
// returned for logging but are never fatal to a pipeline run.
func SetJSON(c Cache, key string, v interface{}, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	return c.Set(key, raw, ttl)
}

// digest hashes free-text key material (addresses contain Korean text and
// spaces) into a fixed filesystem-safe token.
func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}

// Disabled is a no-op cache for runs with caching turned off.
type Disabled struct{}

func (Disabled) Get(string) ([]byte, bool)               { return nil, false }
func (Disabled) Set(string, []byte, time.Duration) error { return nil }
func (Disabled) Delete(string) error                     { return nil }
func (Disabled) Clear() error                            { return nil }
