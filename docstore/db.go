/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package docstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jasondb/jasondb/log"
	"github.com/jasondb/jasondb/retry"
	"github.com/jasondb/jasondb/ttlcache"
)

// MetricsLabelCollection is a label name which distinguishes cache metrics of different collections.
const MetricsLabelCollection = "collection"

// NewPrometheusMetrics creates cache metrics suitable for Options.CacheMetrics.
func NewPrometheusMetrics(namespace string) *ttlcache.PrometheusMetrics {
	return ttlcache.NewPrometheusMetricsWithOpts(ttlcache.PrometheusMetricsOpts{
		Namespace:         namespace,
		CurriedLabelNames: []string{MetricsLabelCollection},
	})
}

// Options represents options for the DB.
type Options struct {
	// CacheTimeout is a default cache timeout for all collections. ttlcache.DefaultTimeout is used if nil.
	CacheTimeout *time.Duration

	// Cache contains options for caches of all collections.
	// MetricsCollector and Logger fields are ignored, CacheMetrics and Logger of the DB are used instead.
	Cache ttlcache.Options

	// CacheMetrics must be created with MetricsLabelCollection as a curried label (see NewPrometheusMetrics).
	CacheMetrics *ttlcache.PrometheusMetrics

	// IORetryPolicy is used for file operations. Config.IO.RetryPolicy() is used if nil.
	IORetryPolicy retry.Policy

	Logger log.FieldLogger
}

// DB is a set of document collections stored under a base directory.
type DB struct {
	dir         string
	opts        Options
	logger      log.FieldLogger
	mu          sync.Mutex
	collections map[string]*Collection
	closed      bool
}

// Open opens (and creates if needed) the database directory and all collections listed in the config.
func Open(cfg *Config, opts Options) (*DB, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("database directory cannot be empty")
	}
	if opts.CacheTimeout != nil && *opts.CacheTimeout < 0 {
		return nil, ttlcache.ErrNegativeTimeout
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	if opts.IORetryPolicy == nil {
		opts.IORetryPolicy = cfg.IO.RetryPolicy()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewDisabledLogger()
	}

	db := &DB{dir: cfg.Dir, opts: opts, logger: logger, collections: make(map[string]*Collection)}
	for _, name := range cfg.Collections {
		if _, err := db.Collection(name); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// Collection returns the collection with the given name, creating its directory if needed.
// Options are applied only when the collection is opened for the first time.
func (db *DB) Collection(name string, options ...CollectionOption) (*Collection, error) {
	if err := validateName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil, ErrClosed
	}
	if coll, ok := db.collections[name]; ok {
		return coll, nil
	}

	var opts collectionOptions
	for _, opt := range options {
		opt(&opts)
	}

	dir := filepath.Join(db.dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create collection directory: %w", err)
	}

	timeout := ttlcache.DefaultTimeout
	if db.opts.CacheTimeout != nil {
		timeout = *db.opts.CacheTimeout
	}
	if opts.cacheTimeout != nil {
		timeout = *opts.cacheTimeout
	}

	logger := db.logger.With(log.String("collection", name))
	cacheOpts := db.opts.Cache
	cacheOpts.Logger = logger
	cacheOpts.MetricsCollector = nil
	if db.opts.CacheMetrics != nil {
		cacheOpts.MetricsCollector = db.opts.CacheMetrics.MustCurryWith(prometheus.Labels{MetricsLabelCollection: name})
	}
	cache, err := ttlcache.NewWithOpts[Document](timeout, cacheOpts)
	if err != nil {
		return nil, fmt.Errorf("create cache for collection %q: %w", name, err)
	}

	coll := &Collection{
		name:    name,
		storage: &fileStorage{dir: dir, retryPolicy: db.opts.IORetryPolicy, logger: logger},
		cache:   cache,
		schema:  opts.schema,
		logger:  logger,
	}
	db.collections[name] = coll
	logger.Info("collection opened", log.Duration("cache_timeout", timeout))
	return coll, nil
}

// CollectionNames returns sorted names of the opened collections.
func (db *DB) CollectionNames() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	names := make([]string, 0, len(db.collections))
	for name := range db.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CacheStats returns cache statistics of every opened collection.
func (db *DB) CacheStats() map[string]ttlcache.Stats {
	db.mu.Lock()
	defer db.mu.Unlock()
	stats := make(map[string]ttlcache.Stats, len(db.collections))
	for name, coll := range db.collections {
		stats[name] = coll.cache.Stats()
	}
	return stats
}

// Ping checks that the database is open and its directory is accessible.
func (db *DB) Ping() error {
	db.mu.Lock()
	closed := db.closed
	db.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if _, err := os.Stat(db.dir); err != nil {
		return fmt.Errorf("stat database directory: %w", err)
	}
	return nil
}

// Close stops background work of all collection caches. Collections must not be used after Close.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	for _, coll := range db.collections {
		_ = coll.cache.Close()
	}
	return nil
}
