// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

package state

// seenCache is a bounded FIFO of status identifiers (ids and URLs) with a
// set index for O(1) membership. When the cap is exceeded the oldest entries
// are evicted in insertion order.
type seenCache struct {
	order []string
	index map[string]int
	cap   int
}

func newSeenCache(capacity int, entries []string) *seenCache {
	c := &seenCache{
		order: make([]string, 0, len(entries)),
		index: make(map[string]int, len(entries)),
		cap:   capacity,
	}
	for _, e := range entries {
		c.Add(e)
	}
	return c
}

// Contains reports whether the key is in the cache.
func (c *seenCache) Contains(key string) bool {
	return c.index[key] > 0
}

// setCap changes the bound and evicts down to it.
func (c *seenCache) setCap(n int) {
	c.cap = n
	c.evict()
}

// Add appends the key, evicting from the front when over capacity.
// Duplicate adds bump the refcount so eviction of an older duplicate does
// not erase membership established by a newer one.
func (c *seenCache) Add(key string) {
	if key == "" {
		return
	}
	c.order = append(c.order, key)
	c.index[key]++
	c.evict()
}

func (c *seenCache) evict() {
	for c.cap > 0 && len(c.order) > c.cap {
		oldest := c.order[0]
		c.order = c.order[1:]
		if c.index[oldest] <= 1 {
			delete(c.index, oldest)
		} else {
			c.index[oldest]--
		}
	}
}

// Entries returns the cache contents in insertion order.
func (c *seenCache) Entries() []string {
	return c.order
}

// Len returns the number of stored entries, duplicates included.
func (c *seenCache) Len() int {
	return len(c.order)
}
