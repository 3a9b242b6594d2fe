package embedding

import (
	"hash/fnv"
	"strings"
	"unicode"
)

// BERT special token IDs and the vocabulary size hashed word IDs are folded into.
const (
	padTokenID = 0
	clsTokenID = 101
	sepTokenID = 102
	// hashed IDs start above the special tokens
	firstWordID = 1000
	vocabSize   = 30522

	defaultMaxTokens = 256
)

// Encoding is the fixed-length model input for one text.
type Encoding struct {
	InputIDs      []int64
	AttentionMask []int64
	TokenTypeIDs  []int64
}

// Tokenizer turns text into a fixed-length Encoding for BERT-style models.
type Tokenizer interface {
	Encode(text string) Encoding
}

// HashTokenizer maps each lower-cased word to a hashed vocabulary ID. It needs no
// vocabulary file, at the cost of collisions and no sub-word splitting.
type HashTokenizer struct {
	maxTokens int
}

// NewHashTokenizer returns a tokenizer producing maxTokens IDs per text, including
// [CLS] and [SEP]. Values below 2 use the default of 256.
func NewHashTokenizer(maxTokens int) *HashTokenizer {
	if maxTokens < 2 {
		maxTokens = defaultMaxTokens
	}
	return &HashTokenizer{maxTokens: maxTokens}
}

// MaxTokens returns the encoding length.
func (t *HashTokenizer) MaxTokens() int { return t.maxTokens }

// Encode returns [CLS] word... [SEP] followed by padding. Words past the limit are dropped.
func (t *HashTokenizer) Encode(text string) Encoding {
	enc := Encoding{
		InputIDs:      make([]int64, t.maxTokens),
		AttentionMask: make([]int64, t.maxTokens),
		TokenTypeIDs:  make([]int64, t.maxTokens),
	}
	enc.InputIDs[0] = clsTokenID
	enc.AttentionMask[0] = 1

	pos := 1
	for _, word := range splitWords(text) {
		if pos >= t.maxTokens-1 {
			break
		}
		enc.InputIDs[pos] = wordID(word)
		enc.AttentionMask[pos] = 1
		pos++
	}
	enc.InputIDs[pos] = sepTokenID
	enc.AttentionMask[pos] = 1
	return enc
}

// splitWords lower-cases text and splits it on whitespace and punctuation.
func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
}

func wordID(word string) int64 {
	return firstWordID + int64(textHash(word)%uint64(vocabSize-firstWordID))
}

// textHash is the 64-bit FNV-1a hash of s.
func textHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
