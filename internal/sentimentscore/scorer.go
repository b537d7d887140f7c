package sentimentscore

import (
	"context"
	"sort"
	"time"

	"midas/internal/domain/document"
	"midas/internal/domain/metric"
	"midas/internal/domain/sentiment"
	"midas/internal/metrics"
	"midas/pkg/logger"
)

// ModelScorer is the capability interface for a learned sentiment model.
// Implementations must be deterministic for a given text and model
// version. The lexicon-only fallback is a swappable absence of this
// capability, not a special case inside the Scorer.
type ModelScorer interface {
	// Name identifies the provider for logs and metrics
	Name() string

	// Score returns polarity in [-1,1] and intensity in [0,1]
	Score(ctx context.Context, text string) (polarity, intensity float64, err error)
}

// Scorer computes document-level and span-level sentiment from a
// lexicon-plus-model hybrid. Safe for concurrent use.
type Scorer struct {
	lexicon *Lexicon
	model   ModelScorer // nil means lexicon-only

	lexiconWeight float64
	modelWeight   float64
	timeout       time.Duration

	log *logger.Logger
}

// NewScorer creates a Scorer. A nil model degrades every result to
// lexicon-only scoring with the reduced-confidence flag set.
func NewScorer(lexicon *Lexicon, model ModelScorer, lexiconWeight, modelWeight float64, timeout time.Duration) *Scorer {
	return &Scorer{
		lexicon:       lexicon,
		model:         model,
		lexiconWeight: lexiconWeight,
		modelWeight:   modelWeight,
		timeout:       timeout,
		log:           logger.Get().With("component", "sentiment_scorer"),
	}
}

// Score produces the SentimentResult for a document. Span scores are
// computed only for spans overlapping a candidate's context, so
// sentiment stays attributable to specific financial claims.
//
// A failing or timed-out model call degrades to the lexicon-only score;
// only cancellation of the caller's context is returned as an error.
func (s *Scorer) Score(ctx context.Context, doc *document.Document, candidates []metric.Candidate) (*sentiment.Result, error) {
	lexScore, lexIntensity := s.lexicon.Score(doc.RawText)

	result := &sentiment.Result{
		DocumentID:       doc.ID,
		OverallScore:     lexScore,
		OverallIntensity: lexIntensity,
	}

	if s.model == nil {
		result.Flags = append(result.Flags, sentiment.FlagLexiconOnly)
		metrics.ScorerFallbacks.Inc()
	} else {
		modelScore, modelIntensity, err := s.callModel(ctx, doc.RawText)
		switch {
		case ctx.Err() != nil:
			// Caller cancelled: abort the document, emit nothing
			return nil, ctx.Err()
		case err != nil:
			s.log.Warnf("model scorer %s unavailable, falling back to lexicon: %v", s.model.Name(), err)
			result.Flags = append(result.Flags, sentiment.FlagLexiconOnly)
			metrics.ScorerFallbacks.Inc()
		default:
			result.OverallScore = clamp(s.lexiconWeight*lexScore+s.modelWeight*modelScore, -1, 1)
			result.OverallIntensity = clamp(s.lexiconWeight*lexIntensity+s.modelWeight*modelIntensity, 0, 1)
		}
	}

	result.SpanScores = s.scoreSpans(doc.RawText, candidates)
	return result, nil
}

// callModel invokes the model scorer under the configured timeout
func (s *Scorer) callModel(ctx context.Context, text string) (float64, float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	polarity, intensity, err := s.model.Score(ctx, text)
	metrics.ScorerLatency.WithLabelValues(s.model.Name()).Observe(time.Since(start).Seconds())

	status := "success"
	if err != nil {
		status = "error"
		if ctx.Err() == context.DeadlineExceeded {
			status = "timeout"
		}
	}
	metrics.ScorerCalls.WithLabelValues(s.model.Name(), status).Inc()

	return polarity, intensity, err
}

// scoreSpans computes lexicon scores for the distinct candidate context
// spans, ordered by document position
func (s *Scorer) scoreSpans(text string, candidates []metric.Candidate) []sentiment.SpanScore {
	seen := make(map[metric.Span]bool, len(candidates))
	var scores []sentiment.SpanScore

	for _, c := range candidates {
		if seen[c.Context] {
			continue
		}
		seen[c.Context] = true

		polarity, _ := s.lexicon.Score(c.Context.Text)
		scores = append(scores, sentiment.SpanScore{Span: c.Context, Score: polarity})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Span.Start != scores[j].Span.Start {
			return scores[i].Span.Start < scores[j].Span.Start
		}
		return scores[i].Span.End < scores[j].Span.End
	})
	return scores
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
