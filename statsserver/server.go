/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package statsserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jasondb/jasondb/log"
	"github.com/jasondb/jasondb/service"
	"github.com/jasondb/jasondb/ttlcache"
)

// StatsProvider returns cache statistics grouped by collection name.
type StatsProvider interface {
	CacheStats() map[string]ttlcache.Stats
}

// HealthCheck returns health statuses of service components (true means healthy).
type HealthCheck func(ctx context.Context) (map[string]bool, error)

// Opts represents options for the StatsServer.
type Opts struct {
	// HealthCheck is called by /healthz. All components are considered healthy if nil.
	HealthCheck HealthCheck

	// Gatherer is used by /metrics. prometheus.DefaultGatherer is used if nil.
	Gatherer prometheus.Gatherer
}

// StatsServer represents HTTP server which exposes cache statistics, Prometheus metrics and (optionally) pprof.
// It implements service.Unit interface.
type StatsServer struct {
	URL             string
	HTTPServer      *http.Server
	Logger          log.FieldLogger
	ShutdownTimeout time.Duration
	httpServerDone  chan struct{}
}

var _ service.Unit = (*StatsServer)(nil)

// New creates a new stats server.
func New(cfg *Config, provider StatsProvider, logger log.FieldLogger, opts Opts) *StatsServer {
	httpServer := &http.Server{
		Addr:              cfg.Address,
		Handler:           NewRouter(cfg, provider, logger, opts),
		ReadHeaderTimeout: time.Second * 5,
	}
	return &StatsServer{
		URL:             "http://" + httpServer.Addr,
		HTTPServer:      httpServer,
		Logger:          logger,
		ShutdownTimeout: cfg.ShutdownTimeout,
		httpServerDone:  make(chan struct{}),
	}
}

// NewRouter creates a router with all endpoints of the stats server.
func NewRouter(cfg *Config, provider StatsProvider, logger log.FieldLogger, opts Opts) chi.Router {
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	router := chi.NewRouter()
	router.Use(
		chimiddleware.RequestID,
		requestLogging(logger),
		chimiddleware.Recoverer,
	)
	if cfg.RateLimit.RPS > 0 {
		router.Use(rateLimiting(cfg.RateLimit, logger))
	}
	router.Get("/healthz", (&healthHandler{check: opts.HealthCheck, logger: logger}).ServeHTTP)
	router.Get("/stats", (&statsHandler{provider: provider, logger: logger}).serveAll)
	router.Get("/stats/{collection}", (&statsHandler{provider: provider, logger: logger}).serveCollection)
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	if cfg.Pprof {
		router.Mount("/debug", chimiddleware.Profiler())
	}
	return router
}

// Start starts stats HTTP server in a blocking way. Supposed this methods will be called in a separate goroutine.
// If a fatal error occurs, it's sent into passed fatalError channel and should be processed outside.
func (s *StatsServer) Start(fatalError chan<- error) {
	defer close(s.httpServerDone)

	logger := s.Logger.With(log.String("address", s.HTTPServer.Addr))

	logger.Info("starting stats HTTP server...")
	if err := s.HTTPServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("stats HTTP server closed")
			return
		}
		logger.Error("stats HTTP server error", log.Error(err))
		fatalError <- err
	}
}

// Stop stops stats HTTP server. Active requests are waited for (no longer than ShutdownTimeout) if gracefully is true.
func (s *StatsServer) Stop(gracefully bool) error {
	if !gracefully {
		s.Logger.Info("closing stats HTTP server...")
		if err := s.HTTPServer.Close(); err != nil {
			s.Logger.Error("stats HTTP server closing error", log.Error(err))
			return err
		}
		<-s.httpServerDone
		return nil
	}

	s.Logger.Info("shutting down stats HTTP server...")
	ctx := context.Background()
	if s.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ShutdownTimeout)
		defer cancel()
	}
	if err := s.HTTPServer.Shutdown(ctx); err != nil {
		s.Logger.Error("stats HTTP server shutdown error", log.Error(err))
		return err
	}
	<-s.httpServerDone
	return nil
}
