package workers

import (
	"context"
	"time"

	clickhouserepo "midas/internal/repository/clickhouse"
	redisrepo "midas/internal/repository/redis"
	"midas/pkg/errors"
)

// SnapshotRefresherWorker keeps the Redis snapshot cache warm for a
// configured set of hot tickers, so document processing rarely has to
// touch ClickHouse on the critical path.
type SnapshotRefresherWorker struct {
	*BaseWorker

	store   *clickhouserepo.MarketSnapshotRepository
	cache   *redisrepo.SnapshotCache
	tickers []string
}

// NewSnapshotRefresherWorker creates a new snapshot refresher
func NewSnapshotRefresherWorker(
	store *clickhouserepo.MarketSnapshotRepository,
	cache *redisrepo.SnapshotCache,
	tickers []string,
	interval time.Duration,
	enabled bool,
) *SnapshotRefresherWorker {
	return &SnapshotRefresherWorker{
		BaseWorker: NewBaseWorker("snapshot_refresher", interval, enabled && len(tickers) > 0),
		store:      store,
		cache:      cache,
		tickers:    tickers,
	}
}

// Run refreshes the cached snapshot for every configured ticker. A
// ticker with no stored snapshot yet is skipped silently.
func (w *SnapshotRefresherWorker) Run(ctx context.Context) error {
	start := time.Now()
	var errs errors.MultiError

	for _, ticker := range w.tickers {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		snap, err := w.store.Latest(ctx, ticker)
		if err != nil {
			if errors.Is(err, errors.ErrNoSnapshot) {
				continue
			}
			errs.Add(errors.Wrapf(err, "latest snapshot for %s", ticker))
			continue
		}

		if err := w.cache.Warm(ctx, snap); err != nil {
			errs.Add(errors.Wrapf(err, "warm cache for %s", ticker))
		}
	}

	if errs.HasErrors() {
		w.RecordError(errs.ToError(), time.Since(start))
		return errs.ToError()
	}

	w.RecordRun(time.Since(start))
	w.Log().Debugf("Refreshed snapshots for %d tickers in %s", len(w.tickers), time.Since(start))
	return nil
}
