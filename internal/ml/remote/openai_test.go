package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"midas/pkg/errors"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		polarity  float64
		intensity float64
	}{
		{
			name:      "plain json",
			content:   `{"polarity": 0.8, "intensity": 0.6}`,
			polarity:  0.8,
			intensity: 0.6,
		},
		{
			name:      "code fenced",
			content:   "```json\n{\"polarity\": -0.4, \"intensity\": 0.3}\n```",
			polarity:  -0.4,
			intensity: 0.3,
		},
		{
			name:      "surrounding prose",
			content:   `Here is the result: {"polarity": 0.1, "intensity": 0.2} as requested.`,
			polarity:  0.1,
			intensity: 0.2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := parseResponse(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.polarity, parsed.Polarity)
			assert.Equal(t, tt.intensity, parsed.Intensity)
		})
	}
}

func TestParseResponse_Malformed(t *testing.T) {
	_, err := parseResponse("I cannot classify this document")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrScorerUnavailable)
}

func TestNewOpenAIScorer_RequiresKey(t *testing.T) {
	_, err := NewOpenAIScorer("", "gpt-4o-mini", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, clamp(3.2, -1, 1))
	assert.Equal(t, -1.0, clamp(-9, -1, 1))
	assert.Equal(t, 0.5, clamp(0.5, -1, 1))
}
