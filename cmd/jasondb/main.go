/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Command jasondb opens a file-backed document store with TTL-cached collections
// and serves cache statistics over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/jasondb/jasondb/config"
	"github.com/jasondb/jasondb/docstore"
	"github.com/jasondb/jasondb/log"
	"github.com/jasondb/jasondb/service"
	"github.com/jasondb/jasondb/statsserver"
	"github.com/jasondb/jasondb/ttlcache"
)

const (
	envVarsPrefix    = "jasondb"
	metricsNamespace = "jasondb"
)

type appConfig struct {
	Log      *log.Config
	Cache    *ttlcache.Config
	DocStore *docstore.Config
	Stats    *statsserver.Config
}

func main() {
	cfgPath := flag.String("config", "", "path to the configuration file (.yaml, .yml or .json)")
	flag.Parse()

	if err := run(*cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, closeLog := log.NewLogger(cfg.Log)
	defer closeLog()

	cacheMetrics := docstore.NewPrometheusMetrics(metricsNamespace)
	cacheMetrics.MustRegister()
	defer cacheMetrics.Unregister()

	cacheTimeout := cfg.Cache.Timeout
	db, err := docstore.Open(cfg.DocStore, docstore.Options{
		CacheTimeout: &cacheTimeout,
		Cache:        cfg.Cache.Options(),
		CacheMetrics: cacheMetrics,
		Logger:       logger,
	})
	if err != nil {
		logger.Error("failed to open document store", log.Error(err))
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("failed to close document store", log.Error(closeErr))
		}
	}()

	units := makeUnits(cfg.Stats, db, logger)
	if len(units) == 0 {
		return errors.New("nothing to run: both stats server and stats reporting are disabled")
	}
	return service.New(logger, service.NewCompositeUnit(units...)).Start()
}

func loadConfig(cfgPath string) (*appConfig, error) {
	cfg := &appConfig{
		Log:      log.NewConfig(""),
		Cache:    ttlcache.NewConfig(""),
		DocStore: docstore.NewConfig(""),
		Stats:    statsserver.NewConfig(""),
	}
	loader := config.NewDefaultLoader(envVarsPrefix)
	var err error
	if cfgPath != "" {
		err = loader.LoadFromFile(cfgPath, "", cfg.Log, cfg.Cache, cfg.DocStore, cfg.Stats)
	} else {
		err = loader.Load(cfg.Log, cfg.Cache, cfg.DocStore, cfg.Stats)
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func makeUnits(cfg *statsserver.Config, db *docstore.DB, logger log.FieldLogger) []service.Unit {
	var units []service.Unit
	if cfg.Enabled {
		healthCheck := func(ctx context.Context) (map[string]bool, error) {
			pingErr := db.Ping()
			if pingErr != nil {
				logger.Warn("document store is unhealthy", log.Error(pingErr))
			}
			return map[string]bool{"docstore": pingErr == nil}, nil
		}
		units = append(units, statsserver.New(cfg, db, logger, statsserver.Opts{HealthCheck: healthCheck}))
	}
	if cfg.ReportInterval > 0 {
		reporterLogger := logger.With(log.String("worker", "cache_stats_reporter"))
		reporter := service.NewPeriodicWorkerWithOpts(
			statsserver.NewReporter(db, reporterLogger), cfg.ReportInterval, reporterLogger,
			service.PeriodicWorkerOpts{InitialDelay: cfg.ReportInterval},
		)
		units = append(units, service.NewWorkerUnitWithOpts(reporter, service.WorkerUnitOpts{
			GracefulStopTimeout: cfg.ShutdownTimeout,
		}))
	}
	return units
}
