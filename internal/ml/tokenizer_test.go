package ml

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeVocab(t *testing.T, tokens []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(tokens, "\n")+"\n"), 0o644))
	return path
}

func testVocab(t *testing.T) string {
	return writeVocab(t, []string{
		"[PAD]", "[UNK]", "[CLS]", "[SEP]",
		"revenue", "beat", "estimates", "eps", "grew",
		"un", "##expected", "##ly", ".", "$", "1",
	})
}

func TestTokenizer_Encode(t *testing.T) {
	tok, err := NewWordPieceTokenizer(testVocab(t), 16)
	require.NoError(t, err)

	ids, mask := tok.Encode("Revenue beat estimates.")
	require.Len(t, ids, 16)
	require.Len(t, mask, 16)

	// [CLS] revenue beat estimates . [SEP]
	assert.Equal(t, []int64{2, 4, 5, 6, 12, 3}, ids[:6])
	assert.Equal(t, []int64{1, 1, 1, 1, 1, 1}, mask[:6])
	assert.Equal(t, int64(0), ids[6], "padding uses [PAD]")
	assert.Equal(t, int64(0), mask[6])
}

func TestTokenizer_SubwordSplit(t *testing.T) {
	tok, err := NewWordPieceTokenizer(testVocab(t), 16)
	require.NoError(t, err)

	ids, _ := tok.Encode("unexpectedly")
	// [CLS] un ##expected ##ly [SEP]
	assert.Equal(t, []int64{2, 9, 10, 11, 3}, ids[:5])
}

func TestTokenizer_UnknownWord(t *testing.T) {
	tok, err := NewWordPieceTokenizer(testVocab(t), 16)
	require.NoError(t, err)

	ids, _ := tok.Encode("zzz")
	assert.Equal(t, []int64{2, 1, 3}, ids[:3])
}

func TestTokenizer_Truncation(t *testing.T) {
	tok, err := NewWordPieceTokenizer(testVocab(t), 6)
	require.NoError(t, err)

	ids, mask := tok.Encode("revenue beat estimates eps grew revenue beat")
	require.Len(t, ids, 6)
	assert.Equal(t, int64(2), ids[0])
	assert.Equal(t, int64(3), ids[5], "last slot reserved for [SEP]")
	for _, m := range mask {
		assert.Equal(t, int64(1), m)
	}
}

func TestTokenizer_PunctuationIsSplit(t *testing.T) {
	tok, err := NewWordPieceTokenizer(testVocab(t), 16)
	require.NoError(t, err)

	ids, _ := tok.Encode("$1")
	// [CLS] $ 1 [SEP]
	assert.Equal(t, []int64{2, 13, 14, 3}, ids[:4])
}

func TestTokenizer_MissingSpecialToken(t *testing.T) {
	path := writeVocab(t, []string{"[PAD]", "[UNK]", "[CLS]"})
	_, err := NewWordPieceTokenizer(path, 16)
	require.Error(t, err)
}

func TestSoftmax(t *testing.T) {
	probs := softmax([]float32{1.0, 1.0, 1.0})
	for _, p := range probs {
		assert.InDelta(t, 1.0/3.0, p, 1e-9)
	}

	probs = softmax([]float32{10.0, 0.0, 0.0})
	assert.Greater(t, probs[0], 0.99)

	var sum float64
	for _, p := range probs {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}
