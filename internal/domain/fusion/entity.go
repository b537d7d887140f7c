package fusion

import (
	"time"

	"midas/internal/domain/market"
	"midas/internal/domain/metric"
)

// Record is the final output of the pipeline: one per processed document,
// immutable once created, emitted to the output boundary as JSON.
type Record struct {
	DocumentID string `json:"document_id"`
	RunID      string `json:"run_id"`

	Metrics map[metric.Kind]MetricOutput `json:"metrics"`

	Sentiment SentimentOutput `json:"sentiment"`

	// Market is null when no snapshot matched within tolerance
	Market *market.Snapshot `json:"market"`

	ConsistencyFlags []string `json:"consistency_flags"`

	ProcessedAt time.Time `json:"processed_at"`
}

// MetricOutput is the wire shape of one resolved metric.
// Value is a decimal string to preserve precision; absent for NOT_FOUND.
type MetricOutput struct {
	Value      string        `json:"value,omitempty"`
	Status     metric.Status `json:"status"`
	Confidence float64       `json:"confidence,omitempty"`

	Alternatives []AlternativeOutput `json:"alternatives,omitempty"`
}

// AlternativeOutput is a rejected or competing candidate kept for audit
type AlternativeOutput struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	AnchorID   string  `json:"anchor_id"`
}

// SentimentOutput is the wire shape of document sentiment
type SentimentOutput struct {
	OverallScore     float64           `json:"overall_score"`
	OverallIntensity float64           `json:"overall_intensity"`
	SpanScores       []SpanScoreOutput `json:"span_scores,omitempty"`
	Flags            []string          `json:"flags,omitempty"`
}

// SpanScoreOutput is a span-local sentiment score
type SpanScoreOutput struct {
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
}
