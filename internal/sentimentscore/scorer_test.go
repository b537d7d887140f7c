package sentimentscore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"midas/internal/domain/document"
	"midas/internal/domain/metric"
	"midas/pkg/errors"
)

type stubModel struct {
	polarity  float64
	intensity float64
	err       error
	delay     time.Duration
}

func (m *stubModel) Name() string { return "stub" }

func (m *stubModel) Score(ctx context.Context, text string) (float64, float64, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return 0, 0, ctx.Err()
		}
	}
	return m.polarity, m.intensity, m.err
}

func testDoc(text string) *document.Document {
	return &document.Document{
		ID:          "doc-1",
		RawText:     text,
		SourceType:  document.SourceNews,
		PublishedAt: time.Now(),
		Language:    "en",
	}
}

func TestScorer_LexiconOnlyWhenNoModel(t *testing.T) {
	lexicon := DefaultLexicon()
	s := NewScorer(lexicon, nil, 0.4, 0.6, time.Second)

	doc := testDoc("Record revenue and strong growth beat expectations")
	result, err := s.Score(context.Background(), doc, nil)
	require.NoError(t, err)

	lexScore, lexIntensity := lexicon.Score(doc.RawText)
	assert.Equal(t, lexScore, result.OverallScore)
	assert.Equal(t, lexIntensity, result.OverallIntensity)
	assert.True(t, result.LexiconOnly())
}

func TestScorer_BlendsModelScore(t *testing.T) {
	lexicon := DefaultLexicon()
	model := &stubModel{polarity: 1.0, intensity: 0.9}
	s := NewScorer(lexicon, model, 0.4, 0.6, time.Second)

	doc := testDoc("Record revenue and strong growth beat expectations")
	result, err := s.Score(context.Background(), doc, nil)
	require.NoError(t, err)

	lexScore, lexIntensity := lexicon.Score(doc.RawText)
	assert.InDelta(t, 0.4*lexScore+0.6*1.0, result.OverallScore, 1e-9)
	assert.InDelta(t, 0.4*lexIntensity+0.6*0.9, result.OverallIntensity, 1e-9)
	assert.False(t, result.LexiconOnly())
}

func TestScorer_FallsBackOnModelError(t *testing.T) {
	lexicon := DefaultLexicon()
	model := &stubModel{err: errors.ErrUnavailable}
	s := NewScorer(lexicon, model, 0.4, 0.6, time.Second)

	doc := testDoc("The company missed estimates and reported a loss")
	result, err := s.Score(context.Background(), doc, nil)
	require.NoError(t, err)

	lexScore, _ := lexicon.Score(doc.RawText)
	assert.Equal(t, lexScore, result.OverallScore)
	assert.True(t, result.LexiconOnly())
}

func TestScorer_FallsBackOnTimeout(t *testing.T) {
	lexicon := DefaultLexicon()
	model := &stubModel{polarity: 1.0, delay: 200 * time.Millisecond}
	s := NewScorer(lexicon, model, 0.4, 0.6, 10*time.Millisecond)

	doc := testDoc("Record growth")
	result, err := s.Score(context.Background(), doc, nil)
	require.NoError(t, err)
	assert.True(t, result.LexiconOnly())
}

func TestScorer_CancellationAborts(t *testing.T) {
	lexicon := DefaultLexicon()
	model := &stubModel{delay: time.Second}
	s := NewScorer(lexicon, model, 0.4, 0.6, 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := s.Score(ctx, testDoc("Record growth"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScorer_ScoreBounds(t *testing.T) {
	lexicon := DefaultLexicon()
	model := &stubModel{polarity: 5.0, intensity: 5.0} // misbehaving model
	s := NewScorer(lexicon, model, 0.4, 0.6, time.Second)

	result, err := s.Score(context.Background(), testDoc("beat beat beat"), nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, result.OverallScore, 1.0)
	assert.GreaterOrEqual(t, result.OverallScore, -1.0)
	assert.LessOrEqual(t, result.OverallIntensity, 1.0)
}

func TestScorer_SpanScores(t *testing.T) {
	lexicon := DefaultLexicon()
	s := NewScorer(lexicon, nil, 1.0, 0, time.Second)

	text := "Diluted EPS of $1.23 beat estimates; revenue declined sharply"
	doc := testDoc(text)

	epsContext := metric.Span{Start: 0, End: 35, Text: text[0:35]}
	revContext := metric.Span{Start: 37, End: 61, Text: text[37:61]}
	candidates := []metric.Candidate{
		{Kind: metric.KindEPS, Context: epsContext},
		{Kind: metric.KindEPS, Context: epsContext}, // duplicate context collapses
		{Kind: metric.KindRevenue, Context: revContext},
	}

	result, err := s.Score(context.Background(), doc, candidates)
	require.NoError(t, err)

	require.Len(t, result.SpanScores, 2)
	assert.Equal(t, epsContext, result.SpanScores[0].Span)
	assert.Greater(t, result.SpanScores[0].Score, 0.0, "context containing beat should be positive")
	assert.Less(t, result.SpanScores[1].Score, 0.0, "context containing declined should be negative")
}
