package market

import "time"

// Snapshot is a point-in-time market observation supplied by the
// integration collaborator. Read-only to the pipeline.
type Snapshot struct {
	Ticker         string    `json:"ticker" ch:"ticker"`
	Price          float64   `json:"price" ch:"price"`
	Timestamp      time.Time `json:"timestamp" ch:"timestamp"`
	PriceChangePct float64   `json:"price_change_pct" ch:"price_change_pct"`
}
