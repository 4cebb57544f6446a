// Package cache keeps per-key values for a TTL and loads only what is
// missing or expired.
package cache

import (
	"context"
	"sync"
	"time"
)

// entry stores one cached value with expiry.
type entry[V any] struct {
	expiresAt time.Time
	value     V
}

// Loader fetches values for keys that are not cached.
type Loader[V any] func(ctx context.Context, keys []string) (map[string]V, error)

// Store caches values per key for a TTL.
type Store[V any] struct {
	TTL      time.Duration
	MaxItems int
	Now      func() time.Time

	mu    sync.RWMutex
	items map[string]entry[V] // key: provider symbol
}

func New[V any](ttl time.Duration, maxItems int) *Store[V] {
	return &Store[V]{TTL: ttl, MaxItems: maxItems}
}

func (c *Store[V]) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Get returns a live value.
func (c *Store[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	if !ok || !c.now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores values with a fresh expiry.
func (c *Store[V]) Set(values map[string]V) {
	if c.TTL <= 0 || len(values) == 0 {
		return
	}
	now := c.now()
	expiry := now.Add(c.TTL)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[string]entry[V], len(values))
	}
	for k, v := range values {
		c.items[k] = entry[V]{expiresAt: expiry, value: v}
	}
	c.evictLocked(now)
}

// Len counts stored entries, expired ones included.
func (c *Store[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Fetch returns values for keys using the cache when valid and load for the
// rest. When load fails but some keys were cached, the cached subset is
// returned without error.
func (c *Store[V]) Fetch(ctx context.Context, keys []string, load Loader[V]) (map[string]V, error) {
	if c.TTL <= 0 {
		return load(ctx, keys)
	}

	out := make(map[string]V, len(keys))
	missing := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if v, ok := c.Get(k); ok {
			out[k] = v
			continue
		}
		missing = append(missing, k)
	}
	if len(missing) == 0 {
		return out, nil
	}

	fresh, err := load(ctx, missing)
	if err != nil {
		if len(out) > 0 {
			return out, nil
		}
		return nil, err
	}
	c.Set(fresh)
	for k, v := range fresh {
		out[k] = v
	}
	return out, nil
}

// evictLocked caps the store size: expired entries go first, then arbitrary.
func (c *Store[V]) evictLocked(now time.Time) {
	if c.MaxItems <= 0 || len(c.items) <= c.MaxItems {
		return
	}
	for k, v := range c.items {
		if !now.Before(v.expiresAt) {
			delete(c.items, k)
		}
	}
	for k := range c.items {
		if len(c.items) <= c.MaxItems {
			break
		}
		delete(c.items, k)
	}
}
