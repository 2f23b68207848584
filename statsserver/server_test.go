/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package statsserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/jasondb/jasondb/log/logtest"
	"github.com/jasondb/jasondb/testutil"
	"github.com/jasondb/jasondb/ttlcache"
)

type staticStatsProvider map[string]ttlcache.Stats

func (p staticStatsProvider) CacheStats() map[string]ttlcache.Stats {
	return p
}

func doGet(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRouter_Stats(t *testing.T) {
	storedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	provider := staticStatsProvider{
		"users":  {Size: 2, OldestItem: storedAt, NewestItem: storedAt.Add(time.Second), Hits: 5, Misses: 1, Evictions: 3},
		"orders": {},
	}
	logRecorder := logtest.NewRecorder()
	router := NewRouter(NewDefaultConfig(), provider, logRecorder, Opts{})

	rec := doGet(t, router, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, ContentTypeAppJSON, rec.Header().Get("Content-Type"))
	var got map[string]ttlcache.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, map[string]ttlcache.Stats(provider), got)
	require.True(t, got["orders"].IsEmpty())

	rec = doGet(t, router, "/stats/users")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{
		"size": 2,
		"oldestItem": "2024-01-01T12:00:00Z",
		"newestItem": "2024-01-01T12:00:01Z",
		"hits": 5,
		"misses": 1,
		"evictions": 3
	}`, rec.Body.String())

	rec = doGet(t, router, "/stats/unknown")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t,
		`{"error": {"domain": "JasonDB", "code": "notFound", "message": "collection \"unknown\" is not opened"}}`,
		rec.Body.String())

	entry, found := logRecorder.FindEntry("error in response")
	require.True(t, found)
	field, found := entry.FindField("error_code")
	require.True(t, found)
	require.Equal(t, ErrCodeNotFound, string(field.Bytes))

	var completed int
	for _, e := range logRecorder.Entries() {
		if strings.HasPrefix(e.Text, "response completed in ") {
			completed++
		}
	}
	require.Equal(t, 3, completed)
}

func TestRouter_Health(t *testing.T) {
	tests := []struct {
		name       string
		check      HealthCheck
		wantStatus int
		wantBody   string
	}{
		{
			name:       "no check",
			wantStatus: http.StatusOK,
			wantBody:   `{"components": {}}`,
		},
		{
			name: "healthy",
			check: func(ctx context.Context) (map[string]bool, error) {
				return map[string]bool{"docstore": true}, nil
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"components": {"docstore": true}}`,
		},
		{
			name: "unhealthy",
			check: func(ctx context.Context) (map[string]bool, error) {
				return map[string]bool{"docstore": false}, nil
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"components": {"docstore": false}}`,
		},
		{
			name: "error",
			check: func(ctx context.Context) (map[string]bool, error) {
				return nil, errors.New("broken")
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error": {"domain": "JasonDB", "code": "internalError"}}`,
		},
	}
	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(NewDefaultConfig(), staticStatsProvider{}, logtest.NewRecorder(), Opts{HealthCheck: tt.check})
			rec := doGet(t, router, "/healthz")
			require.Equal(t, tt.wantStatus, rec.Code)
			require.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestRouter_Metrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := ttlcache.NewPrometheusMetricsWithOpts(ttlcache.PrometheusMetricsOpts{Namespace: "statsserver_test"})
	registry.MustRegister(metrics.EntriesAmount, metrics.HitsTotal, metrics.MissesTotal, metrics.EvictionsTotal)
	metrics.SetAmount(7)

	router := NewRouter(NewDefaultConfig(), staticStatsProvider{}, logtest.NewRecorder(), Opts{Gatherer: registry})
	rec := doGet(t, router, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "statsserver_test_ttl_cache_entries_amount 7")
}

func TestRouter_Pprof(t *testing.T) {
	rec := doGet(t, NewRouter(NewDefaultConfig(), staticStatsProvider{}, logtest.NewRecorder(), Opts{}), "/debug/pprof/")
	require.Equal(t, http.StatusNotFound, rec.Code)

	cfg := NewDefaultConfig()
	cfg.Pprof = true
	rec = doGet(t, NewRouter(cfg, staticStatsProvider{}, logtest.NewRecorder(), Opts{}), "/debug/pprof/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Body.String())
}

func TestStatsServer_StartStop(t *testing.T) {
	for _, gracefully := range []bool{false, true} {
		addr := testutil.GetLocalAddrWithFreeTCPPort()
		cfg := NewDefaultConfig()
		cfg.Address = addr

		statsServer := New(cfg, staticStatsProvider{"users": {}}, logtest.NewRecorder(), Opts{})
		fatalErr := make(chan error, 1)
		go statsServer.Start(fatalErr)
		require.NoError(t, testutil.WaitListeningServer(addr, time.Second*3))

		resp, err := http.Get(statsServer.URL + "/stats")
		require.NoError(t, err)
		respBody, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, string(respBody), `"users"`)

		require.NoError(t, statsServer.Stop(gracefully))
		testutil.RequireNoErrorInChannel(t, fatalErr)
	}
}

func TestStatsServer_StartError(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Address = "256.0.0.1:bad-port"
	statsServer := New(cfg, staticStatsProvider{}, logtest.NewRecorder(), Opts{})
	fatalErr := make(chan error, 1)
	statsServer.Start(fatalErr)
	testutil.RequireErrorInChannel(t, fatalErr, time.Second)
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.RateLimit = RateLimitConfig{RPS: 1, Burst: 1}
	router := NewRouter(cfg, staticStatsProvider{}, logtest.NewRecorder(), Opts{})

	rec := doGet(t, router, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doGet(t, router, "/stats")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "1", rec.Header().Get("Retry-After"))
	require.JSONEq(t, `{"error": {"domain": "JasonDB", "code": "tooManyRequests", "message": "Too many requests"}}`,
		rec.Body.String())
}
