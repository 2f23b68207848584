/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package ttlcache provides a sharded in-memory cache with time-based expiration,
// a background sweeper, occupancy statistics and Prometheus metrics.
//
// Entries are keyed by string and expire once their age reaches the cache-wide timeout.
// Freshness is checked on every read, so an expired value is never returned,
// even if the sweeper has not removed it yet.
// The sweeper runs periodically and immediately after every timeout change,
// which makes lowering the timeout at runtime retroactive for already cached entries.
//
// GetOrLoad implements cache-aside reads: concurrent misses for the same key share one load call.
package ttlcache
