package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"midas/internal/domain/metric"
	"midas/pkg/errors"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	require.NotEmpty(t, c.Anchors)
	for _, a := range c.Anchors {
		assert.NotEmpty(t, a.ID)
		assert.True(t, a.Kind.Valid(), "anchor %s has invalid kind", a.ID)
		assert.NotNil(t, a.re, "anchor %s was not compiled", a.ID)
	}

	// Every metric kind has a magnitude range
	for _, kind := range metric.Kinds() {
		_, ok := c.Ranges[kind]
		assert.True(t, ok, "missing magnitude range for %s", kind)
	}
}

func TestLoadCatalog_Override(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anchors.yaml")

	content := `
anchors:
  - id: custom_eps
    kind: EPS
    phrase: "bottom line"
    specificity: 0.9
    side: after
    base_weight: 0.8
magnitude_ranges:
  EPS:
    min: -50
    max: 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)

	require.Len(t, c.Anchors, 1)
	assert.Equal(t, "custom_eps", c.Anchors[0].ID)
	assert.NotNil(t, c.Anchors[0].re)

	// Overridden range applied, defaults filled in for the rest
	assert.Equal(t, metric.MagnitudeRange{Min: -50, Max: 50}, c.Ranges[metric.KindEPS])
	_, ok := c.Ranges[metric.KindRevenue]
	assert.True(t, ok)
}

func TestLoadCatalog_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{
			"unknown kind",
			"anchors:\n  - {id: a, kind: BOGUS, phrase: x, specificity: 0.5, base_weight: 0.5}\n",
		},
		{
			"duplicate id",
			"anchors:\n  - {id: a, kind: EPS, phrase: x, specificity: 0.5, base_weight: 0.5}\n  - {id: a, kind: EPS, phrase: y, specificity: 0.5, base_weight: 0.5}\n",
		},
		{
			"specificity out of range",
			"anchors:\n  - {id: a, kind: EPS, phrase: x, specificity: 1.5, base_weight: 0.5}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := LoadCatalog(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCatalogInvalid))
		})
	}
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	_, err := LoadCatalog("/nonexistent/anchors.yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCatalogInvalid))
}
