package fuse

import (
	"math"
	"sort"
	"strconv"
	"time"

	"midas/internal/domain/document"
	"midas/internal/domain/fusion"
	"midas/internal/domain/market"
	"midas/internal/domain/metric"
	"midas/internal/domain/sentiment"
	"midas/internal/metrics"
	"midas/pkg/logger"
)

// Consistency flag values attached to fused records. Violations never
// block emission, they mark the record for downstream review.
const (
	FlagNetIncomeExceedsRevenue  = "net_income_exceeds_revenue"
	FlagEPSWithoutRevenue        = "eps_without_revenue"
	FlagGuidanceInverted         = "guidance_range_inverted"
	FlagSentimentPriceDivergence = "sentiment_price_divergence"
)

// Divergence rule thresholds: sentiment this strong paired with a price
// move this large in the opposite direction flags the record.
const (
	divergenceScoreThreshold = 0.5
	divergencePricePct       = 2.0
)

// rule is a pure predicate over the assembled record.
type rule struct {
	flag  string
	check func(rec *fusion.Record) bool
}

// Fuser assembles the final record from resolved metrics, sentiment and
// the optional market snapshot.
type Fuser struct {
	rules []rule
	log   *logger.Logger
}

func New() *Fuser {
	return &Fuser{
		rules: []rule{
			{FlagNetIncomeExceedsRevenue, netIncomeExceedsRevenue},
			{FlagEPSWithoutRevenue, epsWithoutRevenue},
			{FlagGuidanceInverted, guidanceInverted},
			{FlagSentimentPriceDivergence, sentimentPriceDivergence},
		},
		log: logger.Get().With("component", "fuser"),
	}
}

// Fuse builds one record for the document. A nil snapshot leaves the
// market field null and affects nothing else.
func (f *Fuser) Fuse(doc *document.Document, runID string, results []metric.Result, sent *sentiment.Result, snap *market.Snapshot) *fusion.Record {
	rec := &fusion.Record{
		DocumentID:       doc.ID,
		RunID:            runID,
		Metrics:          make(map[metric.Kind]fusion.MetricOutput, len(results)),
		Sentiment:        sentimentOutput(sent),
		Market:           snap,
		ConsistencyFlags: []string{},
		ProcessedAt:      time.Now().UTC(),
	}

	for _, res := range results {
		rec.Metrics[res.Kind] = metricOutput(res)
	}

	for _, r := range f.rules {
		if r.check(rec) {
			rec.ConsistencyFlags = append(rec.ConsistencyFlags, r.flag)
			metrics.ConsistencyFlags.WithLabelValues(r.flag).Inc()
		}
	}
	sort.Strings(rec.ConsistencyFlags)

	return rec
}

func metricOutput(res metric.Result) fusion.MetricOutput {
	out := fusion.MetricOutput{Status: res.Status}

	if res.Status == metric.StatusResolved && res.Chosen != nil {
		out.Value = res.Chosen.Token.Canonical()
		out.Confidence = res.Chosen.Confidence
	}

	for _, alt := range res.Alternatives {
		out.Alternatives = append(out.Alternatives, fusion.AlternativeOutput{
			Value:      alt.Token.Canonical(),
			Confidence: alt.Confidence,
			AnchorID:   alt.AnchorID,
		})
	}
	return out
}

func sentimentOutput(sent *sentiment.Result) fusion.SentimentOutput {
	if sent == nil {
		return fusion.SentimentOutput{}
	}

	out := fusion.SentimentOutput{
		OverallScore:     sent.OverallScore,
		OverallIntensity: sent.OverallIntensity,
		Flags:            sent.Flags,
	}
	for _, ss := range sent.SpanScores {
		out.SpanScores = append(out.SpanScores, fusion.SpanScoreOutput{
			Start: ss.Span.Start,
			End:   ss.Span.End,
			Score: ss.Score,
		})
	}
	return out
}

// resolvedValue returns the metric's numeric value when it resolved.
func resolvedValue(rec *fusion.Record, kind metric.Kind) (float64, bool) {
	out, ok := rec.Metrics[kind]
	if !ok || out.Status != metric.StatusResolved || out.Value == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(out.Value, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func netIncomeExceedsRevenue(rec *fusion.Record) bool {
	ni, ok := resolvedValue(rec, metric.KindNetIncome)
	if !ok {
		return false
	}
	rev, ok := resolvedValue(rec, metric.KindRevenue)
	if !ok {
		return false
	}
	return math.Abs(ni) > math.Abs(rev)
}

func epsWithoutRevenue(rec *fusion.Record) bool {
	if _, ok := resolvedValue(rec, metric.KindEPS); !ok {
		return false
	}
	_, ok := resolvedValue(rec, metric.KindRevenue)
	return !ok
}

func guidanceInverted(rec *fusion.Record) bool {
	low, ok := resolvedValue(rec, metric.KindGuidanceLow)
	if !ok {
		return false
	}
	high, ok := resolvedValue(rec, metric.KindGuidanceHigh)
	if !ok {
		return false
	}
	return low > high
}

func sentimentPriceDivergence(rec *fusion.Record) bool {
	if rec.Market == nil {
		return false
	}
	score := rec.Sentiment.OverallScore
	change := rec.Market.PriceChangePct

	if score >= divergenceScoreThreshold && change <= -divergencePricePct {
		return true
	}
	return score <= -divergenceScoreThreshold && change >= divergencePricePct
}
