/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ttlcache

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/jasondb/jasondb/testutil"
)

func TestPrometheusMetrics(t *testing.T) {
	clock := newFakeClock()
	metrics := NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{Namespace: "test"})
	cache, err := NewWithOpts[string](time.Second, Options{SweepInterval: -1, Clock: clock, MetricsCollector: metrics})
	require.NoError(t, err)
	defer func() { require.NoError(t, cache.Close()) }()

	cache.Update("a", "x")
	cache.Update("b", "y")
	cache.Update("b", "z")
	testutil.RequireGaugeValue(t, metrics.EntriesAmount.With(nil), 2)

	_, _ = cache.Get("a")
	_, _ = cache.Get("c")
	testutil.RequireCounterValue(t, metrics.HitsTotal.With(nil), 1)
	testutil.RequireCounterValue(t, metrics.MissesTotal.With(nil), 1)

	cache.Delete("b")
	testutil.RequireGaugeValue(t, metrics.EntriesAmount.With(nil), 1)
	testutil.RequireCounterValue(t, metrics.EvictionsTotal.With(nil), 0)

	clock.Advance(time.Second)
	require.Equal(t, 1, cache.Sweep())
	testutil.RequireGaugeValue(t, metrics.EntriesAmount.With(nil), 0)
	testutil.RequireCounterValue(t, metrics.EvictionsTotal.With(nil), 1)
}

func TestPrometheusMetrics_CurriedLabels(t *testing.T) {
	metrics := NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{CurriedLabelNames: []string{"collection"}})

	usersCache, err := NewWithOpts[string](time.Minute, Options{
		SweepInterval:    -1,
		MetricsCollector: metrics.MustCurryWith(prometheus.Labels{"collection": "users"}),
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, usersCache.Close()) }()

	ordersCache, err := NewWithOpts[string](time.Minute, Options{
		SweepInterval:    -1,
		MetricsCollector: metrics.MustCurryWith(prometheus.Labels{"collection": "orders"}),
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, ordersCache.Close()) }()

	usersCache.Update("u1", "alice")
	ordersCache.Update("o1", "book")
	ordersCache.Update("o2", "pen")
	_, _ = ordersCache.Get("o1")

	testutil.RequireGaugeValue(t, metrics.EntriesAmount.WithLabelValues("users"), 1)
	testutil.RequireGaugeValue(t, metrics.EntriesAmount.WithLabelValues("orders"), 2)
	testutil.RequireCounterValue(t, metrics.HitsTotal.WithLabelValues("users"), 0)
	testutil.RequireCounterValue(t, metrics.HitsTotal.WithLabelValues("orders"), 1)
}

func TestPrometheusMetrics_Register(t *testing.T) {
	metrics := NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{Namespace: "ttlcache_register_test"})
	require.NotPanics(t, metrics.MustRegister)
	metrics.Unregister()
	require.NotPanics(t, metrics.MustRegister)
	metrics.Unregister()
}

func TestPrometheusMetrics_AmountUnderConcurrency(t *testing.T) {
	metrics := NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{Namespace: "test"})
	cache, err := NewWithOpts[int](time.Minute, Options{SweepInterval: -1, MetricsCollector: metrics})
	require.NoError(t, err)
	defer func() { require.NoError(t, cache.Close()) }()

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				id := strconv.Itoa(w*1000 + i%50)
				if i%3 == 0 {
					cache.Delete(id)
				} else {
					cache.Update(id, i)
				}
			}
		}(w)
	}
	wg.Wait()

	testutil.RequireGaugeValue(t, metrics.EntriesAmount.With(nil), float64(cache.Len()))
	require.Equal(t, len(cache.Keys()), cache.Len())
}
