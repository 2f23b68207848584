/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package docstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jasondb/jasondb/log/logtest"
	"github.com/jasondb/jasondb/testutil"
	"github.com/jasondb/jasondb/ttlcache"
)

func TestOpen(t *testing.T) {
	t.Run("empty dir", func(t *testing.T) {
		_, err := Open(&Config{}, Options{})
		require.Error(t, err)
	})

	t.Run("negative cache timeout", func(t *testing.T) {
		timeout := -time.Second
		_, err := Open(&Config{Dir: t.TempDir()}, Options{CacheTimeout: &timeout})
		require.ErrorIs(t, err, ttlcache.ErrNegativeTimeout)
	})

	t.Run("collections from config", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "db")
		logRecorder := logtest.NewRecorder()
		db, err := Open(&Config{Dir: dir, Collections: []string{"users", "orders"}}, Options{Logger: logRecorder})
		require.NoError(t, err)
		defer func() { require.NoError(t, db.Close()) }()

		require.DirExists(t, filepath.Join(dir, "users"))
		require.DirExists(t, filepath.Join(dir, "orders"))
		require.Equal(t, []string{"orders", "users"}, db.CollectionNames())

		entry, found := logRecorder.FindEntry("collection opened")
		require.True(t, found)
		_, found = entry.FindField("cache_timeout")
		require.True(t, found)
	})

	t.Run("invalid collection name", func(t *testing.T) {
		_, err := Open(&Config{Dir: t.TempDir(), Collections: []string{"a/b"}}, Options{})
		require.ErrorIs(t, err, ErrInvalidName)
	})
}

func TestDB_Collection(t *testing.T) {
	timeout := 5 * time.Minute
	db, err := Open(&Config{Dir: t.TempDir()}, Options{CacheTimeout: &timeout, Cache: ttlcache.Options{SweepInterval: -1}})
	require.NoError(t, err)

	users, err := db.Collection("users")
	require.NoError(t, err)
	require.Equal(t, "users", users.Name())
	require.Equal(t, timeout, users.Cache().Timeout())

	again, err := db.Collection("users", WithCacheTimeout(time.Second))
	require.NoError(t, err)
	require.Same(t, users, again)
	require.Equal(t, timeout, again.Cache().Timeout(), "options are applied only on the first opening")

	orders, err := db.Collection("orders", WithCacheTimeout(time.Second))
	require.NoError(t, err)
	require.Equal(t, time.Second, orders.Cache().Timeout())

	for _, name := range []string{"", "..", "a/b", `a\b`} {
		_, err = db.Collection(name)
		require.ErrorIs(t, err, ErrInvalidName, name)
	}

	require.NoError(t, db.Ping())
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())
	require.ErrorIs(t, db.Ping(), ErrClosed)
	_, err = db.Collection("items")
	require.ErrorIs(t, err, ErrClosed)
}

func TestDB_Reopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db := openTestDB(t, dir)
	users, err := db.Collection("users")
	require.NoError(t, err)
	created, err := users.Create(ctx, Document{"name": "alice"})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened := openTestDB(t, dir)
	users, err = reopened.Collection("users")
	require.NoError(t, err)
	require.False(t, users.Cache().Has(created.ID()))

	doc, err := users.Read(ctx, created.ID())
	require.NoError(t, err)
	require.Equal(t, created, doc)
}

func TestDB_CacheStats(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, t.TempDir())

	users, err := db.Collection("users")
	require.NoError(t, err)
	_, err = db.Collection("orders")
	require.NoError(t, err)

	before := time.Now()
	_, err = users.Create(ctx, Document{"id": "u1"})
	require.NoError(t, err)
	_, err = users.Create(ctx, Document{"id": "u2"})
	require.NoError(t, err)
	_, err = users.Read(ctx, "u1")
	require.NoError(t, err)

	stats := db.CacheStats()
	require.Len(t, stats, 2)
	require.True(t, stats["orders"].IsEmpty())
	require.Equal(t, 2, stats["users"].Size)
	require.Equal(t, uint64(1), stats["users"].Hits)
	require.False(t, stats["users"].OldestItem.Before(before))
	require.False(t, stats["users"].NewestItem.Before(stats["users"].OldestItem))
}

func TestDB_Metrics(t *testing.T) {
	ctx := context.Background()
	metrics := NewPrometheusMetrics("docstore_test")
	db, err := Open(&Config{Dir: t.TempDir()}, Options{CacheMetrics: metrics, Cache: ttlcache.Options{SweepInterval: -1}})
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close()) }()

	users, err := db.Collection("users")
	require.NoError(t, err)
	orders, err := db.Collection("orders")
	require.NoError(t, err)

	_, err = users.Create(ctx, Document{"id": "u1"})
	require.NoError(t, err)
	_, err = orders.Create(ctx, Document{"id": "o1"})
	require.NoError(t, err)
	_, err = orders.Create(ctx, Document{"id": "o2"})
	require.NoError(t, err)
	_, err = orders.Read(ctx, "o1")
	require.NoError(t, err)
	_, err = orders.Read(ctx, "o3")
	require.ErrorIs(t, err, ErrNotFound)

	testutil.RequireGaugeValue(t, metrics.EntriesAmount.WithLabelValues("users"), 1)
	testutil.RequireGaugeValue(t, metrics.EntriesAmount.WithLabelValues("orders"), 2)
	testutil.RequireCounterValue(t, metrics.HitsTotal.WithLabelValues("orders"), 1)
	testutil.RequireCounterValue(t, metrics.MissesTotal.WithLabelValues("orders"), 1)
	testutil.RequireCounterValue(t, metrics.MissesTotal.WithLabelValues("users"), 0)
}
