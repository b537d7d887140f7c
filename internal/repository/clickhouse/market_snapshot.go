package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"midas/internal/domain/market"
	"midas/pkg/errors"
)

// Compile-time check
var _ market.Repository = (*MarketSnapshotRepository)(nil)

// MarketSnapshotRepository implements market.Repository using ClickHouse.
// Snapshots are written by the upstream market data collector; this side
// only reads.
type MarketSnapshotRepository struct {
	conn driver.Conn
}

// NewMarketSnapshotRepository creates a new snapshot repository
func NewMarketSnapshotRepository(conn driver.Conn) *MarketSnapshotRepository {
	return &MarketSnapshotRepository{conn: conn}
}

// Nearest returns the snapshot closest to `at` within the tolerance
// window for the ticker, or errors.ErrNoSnapshot when none exists.
func (r *MarketSnapshotRepository) Nearest(ctx context.Context, ticker string, at time.Time, tolerance time.Duration) (*market.Snapshot, error) {
	var rows []market.Snapshot

	sql := `
		SELECT ticker, price, timestamp, price_change_pct
		FROM market_snapshots
		WHERE ticker = $1
		  AND timestamp BETWEEN $2 AND $3
		ORDER BY abs(toInt64(timestamp) - toInt64($4)) ASC
		LIMIT 1`

	err := r.conn.Select(ctx, &rows, sql,
		ticker, at.Add(-tolerance), at.Add(tolerance), at)
	if err != nil {
		return nil, errors.Wrap(errors.ErrSnapshotStoreUnavailable, err.Error())
	}

	if len(rows) == 0 {
		return nil, errors.Wrapf(errors.ErrNoSnapshot, "ticker %s at %s", ticker, at.Format(time.RFC3339))
	}
	return &rows[0], nil
}

// Latest returns the most recent snapshot for a ticker, used by the
// cache refresher to warm hot tickers.
func (r *MarketSnapshotRepository) Latest(ctx context.Context, ticker string) (*market.Snapshot, error) {
	var rows []market.Snapshot

	sql := `
		SELECT ticker, price, timestamp, price_change_pct
		FROM market_snapshots
		WHERE ticker = $1
		ORDER BY timestamp DESC
		LIMIT 1`

	if err := r.conn.Select(ctx, &rows, sql, ticker); err != nil {
		return nil, errors.Wrap(errors.ErrSnapshotStoreUnavailable, err.Error())
	}
	if len(rows) == 0 {
		return nil, errors.Wrapf(errors.ErrNoSnapshot, "ticker %s", ticker)
	}
	return &rows[0], nil
}
