package market

import (
	"context"
	"time"
)

// Repository looks up market snapshots for fusion
type Repository interface {
	// Nearest returns the snapshot closest to `at` within the tolerance
	// window, or errors.ErrNoSnapshot when none exists. The caller treats
	// a missing snapshot as a normal outcome, not a failure.
	Nearest(ctx context.Context, ticker string, at time.Time, tolerance time.Duration) (*Snapshot, error)
}
