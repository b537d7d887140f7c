package redis

import (
	"context"
	"fmt"
	"time"

	"midas/internal/adapters/redis"
	"midas/internal/domain/market"
	"midas/pkg/logger"
)

// Compile-time check
var _ market.Repository = (*SnapshotCache)(nil)

// SnapshotCache is a read-through cache in front of a snapshot store.
// Lookups are bucketed by hour so repeated documents about the same
// ticker and period hit the cache instead of ClickHouse.
type SnapshotCache struct {
	client *redis.Client
	source market.Repository
	ttl    time.Duration
	log    *logger.Logger
}

// NewSnapshotCache creates a read-through snapshot cache
func NewSnapshotCache(client *redis.Client, source market.Repository, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		client: client,
		source: source,
		ttl:    ttl,
		log:    logger.Get().With("component", "snapshot_cache"),
	}
}

// Nearest serves from cache when possible and falls through to the
// underlying store on a miss. Cache failures are logged and never hide
// the source.
func (c *SnapshotCache) Nearest(ctx context.Context, ticker string, at time.Time, tolerance time.Duration) (*market.Snapshot, error) {
	key := c.key(ticker, at)

	var cached market.Snapshot
	err := c.client.Get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !redis.IsMiss(err) {
		c.log.Warnf("cache read failed for %s: %v", key, err)
	}

	snap, err := c.source.Nearest(ctx, ticker, at, tolerance)
	if err != nil {
		return nil, err
	}

	if err := c.client.Set(ctx, key, snap, c.ttl); err != nil {
		c.log.Warnf("cache write failed for %s: %v", key, err)
	}
	return snap, nil
}

// Warm stores a snapshot under its ticker's current-hour bucket, used by
// the background refresher for hot tickers.
func (c *SnapshotCache) Warm(ctx context.Context, snap *market.Snapshot) error {
	return c.client.Set(ctx, c.key(snap.Ticker, snap.Timestamp), snap, c.ttl)
}

func (c *SnapshotCache) key(ticker string, at time.Time) string {
	return fmt.Sprintf("snapshot:%s:%s", ticker, at.UTC().Truncate(time.Hour).Format("2006010215"))
}
