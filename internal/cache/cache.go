// Package cache is a small in-process TTL map. It fronts the anonymous
// materials listing, where a burst of identical reads is common and a
// few seconds of staleness is acceptable.
package cache

import (
	"sync"
	"time"
)

const sweepEvery = 64

type item struct {
	val      any
	deadline time.Time
}

type Cache struct {
	ttl time.Duration

	mu    sync.Mutex
	items map[string]item
	sets  int
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Cache{
		ttl:   ttl,
		items: make(map[string]item),
	}
}

// Get returns the cached value when present and not yet expired.
// Expired entries are removed on sight.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]

	if !ok {
		return nil, false
	}

	if time.Now().After(it.deadline) {
		delete(c.items, key)
		return nil, false
	}

	return it.val, true
}

// Set stores val under key for the cache's TTL. Every sweepEvery-th
// write walks the map and drops dead entries, which keeps a cache fed
// by unbounded query permutations from growing without limit.
func (c *Cache) Set(key string, val any) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = item{val: val, deadline: now.Add(c.ttl)}

	c.sets++

	if c.sets%sweepEvery != 0 {
		return
	}

	for k, it := range c.items {
		if now.After(it.deadline) {
			delete(c.items, k)
		}
	}
}
