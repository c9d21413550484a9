// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// ShardCount is the number of shards. Must be a power of 2.
	ShardCount = 16

	// DefaultCapacity is the per-shard entry limit when none is given.
	DefaultCapacity = 32

	// DefaultTTL is how long an entry stays valid when no TTL is given.
	DefaultTTL = 24 * time.Hour

	shardMask = ShardCount - 1
)

// Config sets the cache size and lifetime. Now is the clock used for
// expiry; nil means time.Now.
type Config struct {
	Capacity int
	TTL      time.Duration
	Now      func() time.Time
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Len         int
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Expirations uint64
	HitRate     float64
}

// Cache is a sharded LRU cache with expiry.
type Cache[V any] struct {
	shards   [ShardCount]*shard[V]
	capacity int
	ttl      time.Duration
	now      func() time.Time

	hits        atomic.Uint64
	misses      atomic.Uint64
	evictions   atomic.Uint64
	expirations atomic.Uint64
}

type shard[V any] struct {
	mu      sync.Mutex
	entries map[string]*node[V]
	lru     recency[V]
}

// New creates a cache. Zero Capacity and TTL select the defaults.
func New[V any](cfg Config) *Cache[V] {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	c := &Cache[V]{capacity: cfg.Capacity, ttl: cfg.TTL, now: cfg.Now}
	for i := range c.shards {
		c.shards[i] = &shard[V]{entries: make(map[string]*node[V])}
	}
	return c
}

func (c *Cache[V]) shardFor(key string) *shard[V] {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return c.shards[h.Sum64()&shardMask]
}

// Get returns the live value for key. Expired entries are dropped and
// count as misses.
func (c *Cache[V]) Get(key string) (V, bool) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.entries[key]
	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	if !c.now().Before(n.expires) {
		s.lru.remove(n)
		delete(s.entries, key)
		c.expirations.Add(1)
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	s.lru.moveToFront(n)
	c.hits.Add(1)
	return n.value, true
}

// Set stores value under key with a fresh TTL, evicting the least
// recently used entries of the shard when it is full.
func (c *Cache[V]) Set(key string, value V) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	expires := c.now().Add(c.ttl)
	if n, ok := s.entries[key]; ok {
		n.value = value
		n.expires = expires
		s.lru.moveToFront(n)
		return
	}
	for s.lru.len >= c.capacity {
		old := s.lru.oldest()
		if old == nil {
			break
		}
		s.lru.remove(old)
		delete(s.entries, old.key)
		c.evictions.Add(1)
	}
	n := &node[V]{key: key, value: value, expires: expires}
	s.lru.pushFront(n)
	s.entries[key] = n
}

// Delete removes key and reports whether it was present.
func (c *Cache[V]) Delete(key string) bool {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.entries[key]
	if !ok {
		return false
	}
	s.lru.remove(n)
	delete(s.entries, key)
	return true
}

// Purge drops every expired entry and returns how many were removed.
func (c *Cache[V]) Purge() int {
	now := c.now()
	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for key, n := range s.entries {
			if !now.Before(n.expires) {
				s.lru.remove(n)
				delete(s.entries, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	c.expirations.Add(uint64(removed))
	return removed
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.entries = make(map[string]*node[V])
		s.lru.clear()
		s.mu.Unlock()
	}
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[V]) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.Lock()
		total += len(s.entries)
		s.mu.Unlock()
	}
	return total
}

// Stats returns the current counters.
func (c *Cache[V]) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	var rate float64
	if hits+misses > 0 {
		rate = float64(hits) / float64(hits+misses)
	}
	return Stats{
		Len:         c.Len(),
		Hits:        hits,
		Misses:      misses,
		Evictions:   c.evictions.Load(),
		Expirations: c.expirations.Load(),
		HitRate:     rate,
	}
}

// Key derives a cache key from document bytes and a parameter string.
func Key(doc []byte, params string) string {
	h := sha256.New()
	_, _ = h.Write(doc)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(params))
	return hex.EncodeToString(h.Sum(nil))
}
