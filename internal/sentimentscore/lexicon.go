package sentimentscore

import (
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"midas/pkg/errors"
)

// negationWindow is how many preceding tokens a negation word can flip
const negationWindow = 3

// Lexicon scores text by weighted polarity words, in the style of the
// Loughran-McDonald finance dictionaries. Immutable after load.
type Lexicon struct {
	Positive  map[string]float64 `yaml:"positive"`
	Negative  map[string]float64 `yaml:"negative"`
	Negations []string           `yaml:"negations"`

	negations map[string]bool
}

// DefaultLexicon returns the built-in finance lexicon
func DefaultLexicon() *Lexicon {
	l := &Lexicon{
		Positive: map[string]float64{
			"beat":        1.2,
			"exceeded":    1.2,
			"record":      1.0,
			"strong":      1.0,
			"growth":      1.0,
			"grew":        1.0,
			"rose":        0.8,
			"surged":      1.2,
			"gain":        0.8,
			"gains":       0.8,
			"improved":    0.8,
			"raised":      1.0,
			"robust":      1.0,
			"outperform":  1.0,
			"momentum":    0.6,
			"expanded":    0.8,
			"profitable":  0.8,
			"accelerated": 0.8,
			"upside":      0.8,
		},
		Negative: map[string]float64{
			"loss":       1.0,
			"losses":     1.0,
			"missed":     1.2,
			"miss":       1.0,
			"decline":    1.0,
			"declined":   1.0,
			"weak":       1.0,
			"weakness":   1.0,
			"fell":       0.8,
			"drop":       0.8,
			"dropped":    0.8,
			"plunged":    1.2,
			"lowered":    1.0,
			"warning":    1.0,
			"impairment": 1.2,
			"writedown":  1.2,
			"shortfall":  1.2,
			"downgrade":  1.0,
			"headwind":   0.8,
			"headwinds":  0.8,
			"slowdown":   0.8,
			"litigation": 0.8,
		},
		Negations: []string{"not", "no", "never", "without", "hardly"},
	}
	l.index()
	return l
}

// LoadLexicon reads a lexicon override from a YAML file
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrLexiconInvalid, "read %s: %v", path, err)
	}

	var l Lexicon
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, errors.Wrapf(errors.ErrLexiconInvalid, "parse %s: %v", path, err)
	}
	if len(l.Positive) == 0 && len(l.Negative) == 0 {
		return nil, errors.Wrapf(errors.ErrLexiconInvalid, "%s defines no polarity words", path)
	}
	if len(l.Negations) == 0 {
		l.Negations = DefaultLexicon().Negations
	}
	l.index()
	return &l, nil
}

func (l *Lexicon) index() {
	l.negations = make(map[string]bool, len(l.Negations))
	for _, n := range l.Negations {
		l.negations[strings.ToLower(n)] = true
	}
}

// Score computes polarity in [-1,1] and intensity in [0,1] for text.
// Deterministic: same text always yields the same scores.
func (l *Lexicon) Score(text string) (polarity, intensity float64) {
	words := tokenizeWords(text)
	if len(words) == 0 {
		return 0, 0
	}

	var posSum, negSum float64
	for i, word := range words {
		weight, positive := l.Positive[word]
		if !positive {
			if w, negative := l.Negative[word]; negative {
				weight = w
			} else {
				continue
			}
		}

		if l.negatedAt(words, i) {
			positive = !positive
		}

		if positive {
			posSum += weight
		} else {
			negSum += weight
		}
	}

	total := posSum + negSum
	if total == 0 {
		return 0, 0
	}

	polarity = (posSum - negSum) / total

	// Intensity saturates once the document carries a handful of
	// weighted polarity hits
	intensity = total / 5.0
	if intensity > 1 {
		intensity = 1
	}

	return polarity, intensity
}

// negatedAt reports whether the word at index i is preceded by a
// negation within the negation window
func (l *Lexicon) negatedAt(words []string, i int) bool {
	start := i - negationWindow
	if start < 0 {
		start = 0
	}
	for j := start; j < i; j++ {
		if l.negations[words[j]] {
			return true
		}
	}
	return false
}

// tokenizeWords lowercases and splits text into letter runs
func tokenizeWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
