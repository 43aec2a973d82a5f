// Package cache tracks symbols across consecutive video frames. A symbol is
// withheld until a second frame confirms it; later sightings are reported
// as duplicates with a growing count.
package cache

import (
	"log/slog"

	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

// DefaultEvictAfter is the number of consecutive frames an entry may be
// missing before it is forgotten.
const DefaultEvictAfter = 4

type entry struct {
	count int // <0 unverified, 0 verified, >0 duplicates
	last  int // frame the symbol was last seen in
}

// Cache is not safe for concurrent use; it belongs to one frame pipeline.
type Cache struct {
	EvictAfter int

	frame   int
	entries map[string]*entry
}

// New returns an empty cache with the default eviction window.
func New() *Cache {
	return &Cache{EvictAfter: DefaultEvictAfter, entries: make(map[string]*entry)}
}

// Observe feeds the symbols decoded from the next frame and returns the ones
// to report, annotated with their cache count. Unverified symbols are dropped.
func (c *Cache) Observe(set *symbol.Set) *symbol.Set {
	if c.entries == nil {
		c.entries = make(map[string]*entry)
	}
	c.frame++
	out := symbol.NewSet()
	seen := make(map[string]int)
	for sym := range set.All() {
		key := sym.Key()
		if count, ok := seen[key]; ok {
			// another instance in the same frame shares the first one's state
			if count >= 0 {
				out.Add(sym.WithCount(count))
			}
			continue
		}
		e, ok := c.entries[key]
		switch {
		case !ok:
			e = &entry{count: -1}
			c.entries[key] = e
		case e.count < 0:
			e.count = 0
		default:
			e.count++
		}
		e.last = c.frame
		seen[key] = e.count
		if e.count >= 0 {
			out.Add(sym.WithCount(e.count))
		}
	}
	c.evict()
	return out
}

func (c *Cache) evict() {
	window := c.EvictAfter
	if window <= 0 {
		window = DefaultEvictAfter
	}
	for key, e := range c.entries {
		if c.frame-e.last >= window {
			slog.Debug("cache entry evicted", "key", key, "count", e.count)
			delete(c.entries, key)
		}
	}
}

// Len returns the number of tracked symbols.
func (c *Cache) Len() int { return len(c.entries) }

// Reset forgets every tracked symbol.
func (c *Cache) Reset() {
	c.frame = 0
	clear(c.entries)
}
