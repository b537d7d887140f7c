package ml

import (
	"bufio"
	"os"
	"strings"
	"unicode"

	"midas/pkg/errors"
)

const (
	tokenCLS = "[CLS]"
	tokenSEP = "[SEP]"
	tokenUNK = "[UNK]"
	tokenPAD = "[PAD]"

	maxWordChars = 100
)

// WordPieceTokenizer encodes text into vocabulary ids for BERT-family models.
// The vocabulary file is the standard vocab.txt format: one token per line,
// the line number is the token id.
type WordPieceTokenizer struct {
	vocab  map[string]int64
	cls    int64
	sep    int64
	unk    int64
	pad    int64
	maxLen int
}

// NewWordPieceTokenizer loads a vocab.txt file and builds a tokenizer.
func NewWordPieceTokenizer(vocabPath string, maxLen int) (*WordPieceTokenizer, error) {
	file, err := os.Open(vocabPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open vocabulary file")
	}
	defer file.Close()

	vocab := make(map[string]int64)
	scanner := bufio.NewScanner(file)
	var id int64
	for scanner.Scan() {
		token := strings.TrimRight(scanner.Text(), "\r\n")
		vocab[token] = id
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read vocabulary file")
	}

	t := &WordPieceTokenizer{vocab: vocab, maxLen: maxLen}
	for _, special := range []struct {
		token string
		dst   *int64
	}{
		{tokenCLS, &t.cls},
		{tokenSEP, &t.sep},
		{tokenUNK, &t.unk},
		{tokenPAD, &t.pad},
	} {
		id, ok := vocab[special.token]
		if !ok {
			return nil, errors.Newf("vocabulary missing special token %s", special.token)
		}
		*special.dst = id
	}

	return t, nil
}

// Encode tokenizes text into input ids and an attention mask, both padded
// to the tokenizer's maximum sequence length.
func (t *WordPieceTokenizer) Encode(text string) (inputIDs, attentionMask []int64) {
	ids := []int64{t.cls}

	for _, word := range basicTokenize(text) {
		if len(ids) >= t.maxLen-1 {
			break
		}
		for _, id := range t.wordPiece(word) {
			if len(ids) >= t.maxLen-1 {
				break
			}
			ids = append(ids, id)
		}
	}
	ids = append(ids, t.sep)

	inputIDs = make([]int64, t.maxLen)
	attentionMask = make([]int64, t.maxLen)
	for i := range inputIDs {
		if i < len(ids) {
			inputIDs[i] = ids[i]
			attentionMask[i] = 1
		} else {
			inputIDs[i] = t.pad
		}
	}
	return inputIDs, attentionMask
}

// wordPiece splits a single word into subword ids using greedy longest match.
func (t *WordPieceTokenizer) wordPiece(word string) []int64 {
	if len(word) > maxWordChars {
		return []int64{t.unk}
	}

	var ids []int64
	runes := []rune(word)
	start := 0
	for start < len(runes) {
		end := len(runes)
		var match int64 = -1
		for end > start {
			piece := string(runes[start:end])
			if start > 0 {
				piece = "##" + piece
			}
			if id, ok := t.vocab[piece]; ok {
				match = id
				break
			}
			end--
		}
		if match < 0 {
			return []int64{t.unk}
		}
		ids = append(ids, match)
		start = end
	}
	return ids
}

// basicTokenize lowercases text and splits it into words and standalone
// punctuation runes, matching BERT's basic tokenizer behavior.
func basicTokenize(text string) []string {
	var words []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			words = append(words, string(r))
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return words
}
