/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ttlcache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/atomic"

	"github.com/jasondb/jasondb/log"
)

// Default values used when the corresponding Options fields are not set.
const (
	DefaultTimeout       = time.Minute
	DefaultSweepInterval = time.Second
	DefaultShards        = 16
)

// ErrNegativeTimeout is returned when a negative timeout is passed to the constructor or SetTimeout.
var ErrNegativeTimeout = errors.New("timeout must be greater or equal to 0")

type cacheEntry[V any] struct {
	value    V
	storedAt time.Time
}

type shard[V any] struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry[V]
}

// Cache represents a sharded in-memory cache with time-based expiration.
// All entries share the same timeout which may be changed at runtime.
type Cache[V any] struct {
	shards  []*shard[V]
	timeout atomic.Duration
	clock   Clock

	amountMu  sync.Mutex
	amount    atomic.Int64
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64

	metricsCollector MetricsCollector
	logger           log.FieldLogger

	loads loadGroup[V]

	sweepKick   chan struct{}
	sweeperStop context.CancelFunc
	sweeperDone chan struct{}
	closeOnce   sync.Once
}

// Options represents options for the cache.
type Options struct {
	// SweepInterval is an interval between periodic sweeps of expired entries.
	// Zero means DefaultSweepInterval, negative value disables periodic sweeps
	// (sweeps triggered by timeout changes are still performed).
	SweepInterval time.Duration

	// Shards is a number of independently locked partitions of the cache.
	// Zero means DefaultShards.
	Shards int

	// Clock is used for timestamping entries and checking freshness. System clock is used if nil.
	Clock Clock

	// MetricsCollector is used to collect statistics about cache usage. Metrics are disabled if nil.
	MetricsCollector MetricsCollector

	// Logger is used for reporting background sweeper activity. Nothing is logged if nil.
	Logger log.FieldLogger
}

// New creates a new Cache with the provided timeout and default options.
func New[V any](timeout time.Duration) (*Cache[V], error) {
	return NewWithOpts[V](timeout, Options{})
}

// NewDefault creates a new Cache with DefaultTimeout and default options.
func NewDefault[V any]() (*Cache[V], error) {
	return NewWithOpts[V](DefaultTimeout, Options{})
}

// NewWithOpts creates a new Cache with the provided timeout and options.
// It starts a background sweeper which lives until Close is called.
func NewWithOpts[V any](timeout time.Duration, opts Options) (*Cache[V], error) {
	if timeout < 0 {
		return nil, ErrNegativeTimeout
	}
	if opts.Shards < 0 {
		return nil, fmt.Errorf("shards must be greater or equal to 0 (default)")
	}

	shardsNum := opts.Shards
	if shardsNum == 0 {
		shardsNum = DefaultShards
	}
	sweepInterval := opts.SweepInterval
	if sweepInterval == 0 {
		sweepInterval = DefaultSweepInterval
	}
	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}
	metricsCollector := opts.MetricsCollector
	if metricsCollector == nil {
		metricsCollector = disabledMetrics{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewDisabledLogger()
	}

	c := &Cache[V]{
		shards:           make([]*shard[V], shardsNum),
		clock:            clock,
		metricsCollector: metricsCollector,
		logger:           logger,
		sweepKick:        make(chan struct{}, 1),
		sweeperDone:      make(chan struct{}),
	}
	for i := range c.shards {
		c.shards[i] = &shard[V]{entries: make(map[string]cacheEntry[V])}
	}
	c.timeout.Store(timeout)

	ctx, cancel := context.WithCancel(context.Background())
	c.sweeperStop = cancel
	go c.runSweeper(ctx, sweepInterval)

	return c, nil
}

// Timeout returns the current timeout after which entries are considered expired.
func (c *Cache[V]) Timeout() time.Duration {
	return c.timeout.Load()
}

// SetTimeout changes the timeout for all entries, including already cached ones.
// If the value is changed, a sweep is scheduled immediately.
func (c *Cache[V]) SetTimeout(timeout time.Duration) error {
	if timeout < 0 {
		return ErrNegativeTimeout
	}
	if c.timeout.Swap(timeout) != timeout {
		c.kickSweep()
	}
	return nil
}

// Update inserts a value or overwrites an existing one. The age of the entry is reset to zero.
func (c *Cache[V]) Update(id string, value V) {
	s := c.shardFor(id)
	s.mu.Lock()
	_, existed := s.entries[id]
	s.entries[id] = cacheEntry[V]{value: value, storedAt: c.clock.Now()}
	s.mu.Unlock()

	if !existed {
		c.changeAmount(1)
	}
}

// GetOrLoad returns a value by the provided id. On a miss the value is obtained via load and stored in the cache.
// Concurrent misses for the same id share a single load call. Errors returned by load are not cached.
func (c *Cache[V]) GetOrLoad(id string, load func() (V, error)) (V, error) {
	if value, ok := c.Get(id); ok {
		return value, nil
	}
	return c.loads.Do(id, func() (V, error) {
		value, err := load()
		if err != nil {
			return value, err
		}
		c.Update(id, value)
		return value, nil
	})
}

// Get returns a value by the provided id.
// Expired entry is reported as not found and removed from the cache.
func (c *Cache[V]) Get(id string) (value V, ok bool) {
	s := c.shardFor(id)
	s.mu.RLock()
	entry, found := s.entries[id]
	expired := found && c.isExpired(entry)
	s.mu.RUnlock()

	if !found {
		c.miss()
		return value, false
	}
	if expired {
		c.removeIfExpired(s, id)
		c.miss()
		return value, false
	}
	c.hits.Inc()
	c.metricsCollector.IncHits()
	return entry.value, true
}

// Has reports whether Get would return a value for the provided id.
// It doesn't affect hits/misses statistics.
func (c *Cache[V]) Has(id string) bool {
	s := c.shardFor(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, found := s.entries[id]
	return found && !c.isExpired(entry)
}

// Delete removes an entry by the provided id. Deleting a missing id is a no-op.
func (c *Cache[V]) Delete(id string) {
	s := c.shardFor(id)
	s.mu.Lock()
	_, found := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()

	if found {
		c.removed(1, false)
	}
}

// Purge removes all entries from the cache.
// Removed entries are not counted as evictions.
func (c *Cache[V]) Purge() {
	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		removed += len(s.entries)
		s.entries = make(map[string]cacheEntry[V])
		s.mu.Unlock()
	}
	if removed > 0 {
		c.removed(removed, false)
	}
}

// Len returns the number of entries physically stored in the cache.
// It may include expired entries which haven't been swept yet.
func (c *Cache[V]) Len() int {
	return int(c.amount.Load())
}

// Keys returns sorted ids of all non-expired entries.
func (c *Cache[V]) Keys() []string {
	var keys []string
	for _, s := range c.shards {
		s.mu.RLock()
		for id, entry := range s.entries {
			if !c.isExpired(entry) {
				keys = append(keys, id)
			}
		}
		s.mu.RUnlock()
	}
	sort.Strings(keys)
	return keys
}

// Sweep removes all expired entries and returns the number of removed ones.
// It's called by the background sweeper, but may be called directly as well.
func (c *Cache[V]) Sweep() int {
	evicted := 0
	for _, s := range c.shards {
		evicted += c.sweepShard(s)
	}
	return evicted
}

func (c *Cache[V]) sweepShard(s *shard[V]) (evicted int) {
	s.mu.Lock()
	// Entries removed before a panic are accounted as well.
	defer func() {
		s.mu.Unlock()
		if evicted > 0 {
			c.removed(evicted, true)
		}
	}()
	// Freshness is checked under the lock, so an update that has won the lock earlier is kept.
	for id, entry := range s.entries {
		if c.isExpired(entry) {
			delete(s.entries, id)
			evicted++
		}
	}
	return evicted
}

// Close stops the background sweeper and waits until it exits.
// The cache remains usable after Close, but expired entries are removed only on access.
func (c *Cache[V]) Close() error {
	c.closeOnce.Do(func() {
		c.sweeperStop()
		<-c.sweeperDone
	})
	return nil
}

func (c *Cache[V]) runSweeper(ctx context.Context, interval time.Duration) {
	defer close(c.sweeperDone)

	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
		case <-c.sweepKick:
		}
		c.sweepSafely()
	}
}

func (c *Cache[V]) sweepSafely() {
	defer func() {
		if p := recover(); p != nil {
			c.logger.Error(fmt.Sprintf("panic during expired cache entries sweep: %+v", p))
		}
	}()
	if evicted := c.Sweep(); evicted > 0 {
		c.logger.Debug("expired cache entries swept",
			log.Int("evicted", evicted), log.Duration("timeout", c.Timeout()))
	}
}

func (c *Cache[V]) kickSweep() {
	select {
	case c.sweepKick <- struct{}{}:
	default: // A sweep is already pending.
	}
}

func (c *Cache[V]) removeIfExpired(s *shard[V], id string) {
	s.mu.Lock()
	entry, found := s.entries[id]
	expired := found && c.isExpired(entry)
	if expired {
		delete(s.entries, id)
	}
	s.mu.Unlock()

	if expired {
		c.removed(1, true)
	}
}

func (c *Cache[V]) removed(n int, evicted bool) {
	c.changeAmount(-int64(n))
	if evicted {
		c.evictions.Add(uint64(n))
		c.metricsCollector.AddEvictions(n)
	}
}

// changeAmount serializes gauge updates, so the published value is never older than the counter.
func (c *Cache[V]) changeAmount(delta int64) {
	c.amountMu.Lock()
	c.metricsCollector.SetAmount(int(c.amount.Add(delta)))
	c.amountMu.Unlock()
}

func (c *Cache[V]) miss() {
	c.misses.Inc()
	c.metricsCollector.IncMisses()
}

// isExpired must be called with the shard lock held.
func (c *Cache[V]) isExpired(entry cacheEntry[V]) bool {
	return c.clock.Now().Sub(entry.storedAt) >= c.timeout.Load()
}

func (c *Cache[V]) shardFor(id string) *shard[V] {
	return c.shards[xxhash.Sum64String(id)%uint64(len(c.shards))]
}
