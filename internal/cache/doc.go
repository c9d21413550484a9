// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package cache keeps rendered pages and thumbnails in memory.
//
// Cache is a sharded LRU with a per-entry time to live. Keys are strings;
// Key derives one from the document bytes and the render parameters so
// that identical requests for the same document share an entry.
//
//	c := cache.New[*Page](cache.Config{Capacity: 64, TTL: 24 * time.Hour})
//	c.Set(cache.Key(pdf, "page=1 q=medium"), page)
//	page, ok := c.Get(cache.Key(pdf, "page=1 q=medium"))
//
// # Thread Safety
//
// Cache is safe for concurrent use. Each of the 16 shards has its own
// lock and its own LRU list, so eviction is per shard.
package cache
