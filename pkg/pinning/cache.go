// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinning

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// ValidationCache memoizes pin verdicts by chain identity. Implementations
// must be safe for concurrent use, and Clear racing with Put must leave the
// cache either cleared or holding the new entry.
type ValidationCache interface {
	Get(id ChainIdentity) (Verdict, bool)
	Put(id ChainIdentity, v Verdict)
	Clear()
	Len() int
}

// CacheStats reports cache activity since creation.
type CacheStats struct {
	Entries int
	Hits    uint64
	Misses  uint64
}

// MemoryCache is an unbounded in-memory ValidationCache. Entries never
// expire; they are removed only by Clear.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[ChainIdentity]Verdict
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[ChainIdentity]Verdict)}
}

// Get returns a copy of the verdict recorded for id.
func (c *MemoryCache) Get(id ChainIdentity) (Verdict, bool) {
	c.mu.RLock()
	v, ok := c.entries[id]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v.clone(), ok
}

// Put records a copy of v for id, replacing any earlier verdict.
func (c *MemoryCache) Put(id ChainIdentity, v Verdict) {
	v = v.clone()
	c.mu.Lock()
	c.entries[id] = v
	c.mu.Unlock()
}

// Clear removes every entry. Counters are kept.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[ChainIdentity]Verdict)
	c.mu.Unlock()
}

// Len returns the number of entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns the entry count and hit and miss counters.
func (c *MemoryCache) Stats() CacheStats {
	return CacheStats{
		Entries: c.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

// clone detaches the matched fingerprint from the caller's backing array.
func (v Verdict) clone() Verdict {
	v.Matched = bytes.Clone(v.Matched)
	return v
}
