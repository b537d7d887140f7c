package sentiment

import (
	"midas/internal/domain/metric"
)

// FlagLexiconOnly marks a result produced without the model scorer,
// either because none is configured or because the call failed/timed out
const FlagLexiconOnly = "lexicon_only"

// SpanScore is a local polarity score for a span that overlaps a
// metric candidate's context
type SpanScore struct {
	Span  metric.Span `json:"span"`
	Score float64     `json:"score"`
}

// Result holds document-level and span-level sentiment for one document
type Result struct {
	DocumentID string `json:"document_id"`

	// OverallScore is signed polarity in [-1, 1]
	OverallScore float64 `json:"overall_score"`

	// OverallIntensity is in [0, 1]
	OverallIntensity float64 `json:"overall_intensity"`

	SpanScores []SpanScore `json:"span_scores,omitempty"`

	Flags []string `json:"flags,omitempty"`
}

// LexiconOnly reports whether the result degraded to lexicon-only scoring
func (r *Result) LexiconOnly() bool {
	for _, f := range r.Flags {
		if f == FlagLexiconOnly {
			return true
		}
	}
	return false
}
