/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ttlcache

import "time"

// Stats is a read-only snapshot of the cache occupancy.
// OldestItem and NewestItem are zero time values when the cache has no live entries.
type Stats struct {
	Size       int       `json:"size"`
	OldestItem time.Time `json:"oldestItem"`
	NewestItem time.Time `json:"newestItem"`

	// Cumulative counters since the cache creation.
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// IsEmpty reports whether the snapshot was taken from a cache without live entries.
func (s Stats) IsEmpty() bool {
	return s.Size == 0
}

// Stats computes a snapshot over all non-expired entries.
func (c *Cache[V]) Stats() Stats {
	var stats Stats
	for _, s := range c.shards {
		s.mu.RLock()
		for _, entry := range s.entries {
			if c.isExpired(entry) {
				continue
			}
			if stats.Size == 0 || entry.storedAt.Before(stats.OldestItem) {
				stats.OldestItem = entry.storedAt
			}
			if stats.Size == 0 || entry.storedAt.After(stats.NewestItem) {
				stats.NewestItem = entry.storedAt
			}
			stats.Size++
		}
		s.mu.RUnlock()
	}
	stats.Hits = c.hits.Load()
	stats.Misses = c.misses.Load()
	stats.Evictions = c.evictions.Load()
	return stats
}
