/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package statsserver

import (
	"context"
	"sort"

	"github.com/jasondb/jasondb/log"
	"github.com/jasondb/jasondb/service"
)

// Reporter logs cache statistics of every collection on each run.
// It's supposed to be wrapped into service.PeriodicWorker.
type Reporter struct {
	provider StatsProvider
	logger   log.FieldLogger
}

var _ service.Worker = (*Reporter)(nil)

// NewReporter creates a new Reporter.
func NewReporter(provider StatsProvider, logger log.FieldLogger) *Reporter {
	return &Reporter{provider: provider, logger: logger}
}

// Run implements service.Worker interface.
func (r *Reporter) Run(ctx context.Context) error {
	stats := r.provider.CacheStats()
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if ctx.Err() != nil {
			return nil
		}
		s := stats[name]
		fields := []log.Field{
			log.String("collection", name),
			log.Int("size", s.Size),
			log.Uint64("hits", s.Hits),
			log.Uint64("misses", s.Misses),
			log.Uint64("evictions", s.Evictions),
		}
		if !s.IsEmpty() {
			fields = append(fields, log.Time("oldest_item", s.OldestItem), log.Time("newest_item", s.NewestItem))
		}
		r.logger.Info("cache stats", fields...)
	}
	return nil
}
