package fuse

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"midas/internal/domain/document"
	"midas/internal/domain/market"
	"midas/internal/domain/metric"
	"midas/internal/domain/sentiment"
)

func resolved(kind metric.Kind, value string, confidence float64) metric.Result {
	c := metric.Candidate{
		Kind:       kind,
		Confidence: confidence,
		AnchorID:   "test_anchor",
		Token: metric.NumericToken{
			Value: decimal.RequireFromString(value),
			Unit:  metric.UnitCurrency,
		},
	}
	return metric.Result{Kind: kind, Status: metric.StatusResolved, Chosen: &c}
}

func notFound(kind metric.Kind) metric.Result {
	return metric.Result{Kind: kind, Status: metric.StatusNotFound, Alternatives: []metric.Candidate{}}
}

func testDoc() *document.Document {
	return &document.Document{
		ID:          "doc-42",
		RawText:     "text",
		SourceType:  document.SourceEarningsReport,
		PublishedAt: time.Now(),
		Language:    "en",
	}
}

func testSentiment(score float64) *sentiment.Result {
	return &sentiment.Result{
		DocumentID:       "doc-42",
		OverallScore:     score,
		OverallIntensity: 0.7,
	}
}

func TestFuse_AssemblesRecord(t *testing.T) {
	f := New()

	snap := &market.Snapshot{Ticker: "ACME", Price: 101.5, Timestamp: time.Now(), PriceChangePct: 1.2}
	results := []metric.Result{
		resolved(metric.KindEPS, "1.23", 0.87),
		resolved(metric.KindRevenue, "4500000000", 0.6),
		notFound(metric.KindNetIncome),
	}

	rec := f.Fuse(testDoc(), "run-1", results, testSentiment(0.4), snap)

	assert.Equal(t, "doc-42", rec.DocumentID)
	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, snap, rec.Market)
	assert.False(t, rec.ProcessedAt.IsZero())

	eps := rec.Metrics[metric.KindEPS]
	assert.Equal(t, "1.23", eps.Value)
	assert.Equal(t, metric.StatusResolved, eps.Status)
	assert.Equal(t, 0.87, eps.Confidence)

	ni := rec.Metrics[metric.KindNetIncome]
	assert.Equal(t, metric.StatusNotFound, ni.Status)
	assert.Empty(t, ni.Value)

	assert.Equal(t, 0.4, rec.Sentiment.OverallScore)
	assert.Empty(t, rec.ConsistencyFlags)
}

func TestFuse_NoSnapshotIsNotAnError(t *testing.T) {
	f := New()

	results := []metric.Result{
		resolved(metric.KindEPS, "1.23", 0.87),
		resolved(metric.KindRevenue, "4500000000", 0.6),
	}
	rec := f.Fuse(testDoc(), "run-1", results, testSentiment(0.9), nil)

	assert.Nil(t, rec.Market)
	assert.Equal(t, "1.23", rec.Metrics[metric.KindEPS].Value)
	assert.Equal(t, 0.9, rec.Sentiment.OverallScore)
	assert.NotContains(t, rec.ConsistencyFlags, FlagSentimentPriceDivergence)
}

func TestFuse_AmbiguousKeepsAlternatives(t *testing.T) {
	f := New()

	alt1 := metric.Candidate{Kind: metric.KindEPS, Confidence: 0.62, AnchorID: "eps_short",
		Token: metric.NumericToken{Value: decimal.RequireFromString("0.5")}}
	alt2 := metric.Candidate{Kind: metric.KindEPS, Confidence: 0.60, AnchorID: "eps_short",
		Token: metric.NumericToken{Value: decimal.RequireFromString("0.55")}}
	results := []metric.Result{{
		Kind:         metric.KindEPS,
		Status:       metric.StatusAmbiguous,
		Alternatives: []metric.Candidate{alt1, alt2},
	}}

	rec := f.Fuse(testDoc(), "run-1", results, testSentiment(0), nil)

	out := rec.Metrics[metric.KindEPS]
	assert.Equal(t, metric.StatusAmbiguous, out.Status)
	assert.Empty(t, out.Value)
	require.Len(t, out.Alternatives, 2)
	assert.Equal(t, "0.5", out.Alternatives[0].Value)
	assert.Equal(t, "0.55", out.Alternatives[1].Value)
}

func TestFuse_NetIncomeExceedsRevenue(t *testing.T) {
	f := New()

	results := []metric.Result{
		resolved(metric.KindRevenue, "1000000", 0.6),
		resolved(metric.KindNetIncome, "-2000000", 0.6),
	}
	rec := f.Fuse(testDoc(), "run-1", results, testSentiment(0), nil)
	assert.Contains(t, rec.ConsistencyFlags, FlagNetIncomeExceedsRevenue)
}

func TestFuse_EPSWithoutRevenue(t *testing.T) {
	f := New()

	results := []metric.Result{
		resolved(metric.KindEPS, "1.23", 0.87),
		notFound(metric.KindRevenue),
	}
	rec := f.Fuse(testDoc(), "run-1", results, testSentiment(0), nil)
	assert.Contains(t, rec.ConsistencyFlags, FlagEPSWithoutRevenue)
}

func TestFuse_GuidanceInverted(t *testing.T) {
	f := New()

	results := []metric.Result{
		resolved(metric.KindGuidanceLow, "4800000000", 0.5),
		resolved(metric.KindGuidanceHigh, "4500000000", 0.5),
	}
	rec := f.Fuse(testDoc(), "run-1", results, testSentiment(0), nil)
	assert.Contains(t, rec.ConsistencyFlags, FlagGuidanceInverted)
}

func TestFuse_SentimentPriceDivergence(t *testing.T) {
	f := New()

	snap := &market.Snapshot{Ticker: "ACME", Price: 90, PriceChangePct: -5.0}
	rec := f.Fuse(testDoc(), "run-1", nil, testSentiment(0.8), snap)
	assert.Contains(t, rec.ConsistencyFlags, FlagSentimentPriceDivergence)

	snap = &market.Snapshot{Ticker: "ACME", Price: 110, PriceChangePct: 5.0}
	rec = f.Fuse(testDoc(), "run-1", nil, testSentiment(-0.8), snap)
	assert.Contains(t, rec.ConsistencyFlags, FlagSentimentPriceDivergence)

	snap = &market.Snapshot{Ticker: "ACME", Price: 110, PriceChangePct: 5.0}
	rec = f.Fuse(testDoc(), "run-1", nil, testSentiment(0.8), snap)
	assert.NotContains(t, rec.ConsistencyFlags, FlagSentimentPriceDivergence)
}

func TestFuse_SpanScoresCopied(t *testing.T) {
	f := New()

	sent := testSentiment(0.2)
	sent.SpanScores = []sentiment.SpanScore{
		{Span: metric.Span{Start: 5, End: 20}, Score: 0.6},
	}
	sent.Flags = []string{sentiment.FlagLexiconOnly}

	rec := f.Fuse(testDoc(), "run-1", nil, sent, nil)
	require.Len(t, rec.Sentiment.SpanScores, 1)
	assert.Equal(t, 5, rec.Sentiment.SpanScores[0].Start)
	assert.Equal(t, 20, rec.Sentiment.SpanScores[0].End)
	assert.Equal(t, 0.6, rec.Sentiment.SpanScores[0].Score)
	assert.Contains(t, rec.Sentiment.Flags, sentiment.FlagLexiconOnly)
}
