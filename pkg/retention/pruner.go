// Package retention implements optional, scheduled housekeeping of the
// cache collection.
//
// Cache expiration itself is lazy: the cache controller treats stale
// entries as absent and leaves them in place. The pruner is storage
// housekeeping only, deleting rows that have been stale for several TTLs
// and can no longer ever be served. It is disabled unless a schedule is
// configured.
package retention

import (
	"context"
	"log/slog"
	"time"

	"emberhq/ember/pkg/store"
)

// Config contains configuration for the pruner.
type Config struct {
	// PruneSchedule is a cron expression (e.g., "0 3 * * *").
	// Empty disables scheduled pruning.
	PruneSchedule string

	// TTL is the cache freshness TTL; entries older than
	// StaleMultiple * TTL are deleted.
	TTL time.Duration

	// StaleMultiple scales the TTL into the deletion horizon.
	// Values below 1 are treated as 1.
	StaleMultiple int
}

// Pruner deletes cache rows that are far past their TTL.
type Pruner struct {
	store  store.Store
	config Config
	logger *slog.Logger
}

// NewPruner creates a pruner.
func NewPruner(s store.Store, cfg Config) *Pruner {
	if cfg.StaleMultiple < 1 {
		cfg.StaleMultiple = 1
	}
	return &Pruner{
		store:  s,
		config: cfg,
		logger: slog.Default().With("component", "retention"),
	}
}

// Prune deletes entries created before now - StaleMultiple*TTL and
// returns how many were removed.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	horizon := time.Duration(p.config.StaleMultiple) * p.config.TTL
	cutoff := time.Now().Add(-horizon)

	removed, err := p.store.PruneCacheBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		p.logger.Info("pruned stale cache entries",
			"removed", removed,
			"horizon", horizon.String(),
		)
	}
	return removed, nil
}
