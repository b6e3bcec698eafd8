// Package retrieval is the worker-side copy of the indexing/retrieval
// primitives used for conversation-time RAG (the api module keeps its
// own copy for the upload/index HTTP paths — see DESIGN.md D5).
package retrieval

import (
	"math"
	"strings"
	"unicode"
)

func tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			cur.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// HashEmbed is the stable hash-based embedding fallback, ported verbatim
// from original_source/api/app/rag_utils.py's _hash_embed_one: each
// token is hashed independently (h = h*131 + ord(ch), reset per token)
// and bucketed by hash mod dim, then L2-normalized.
func HashEmbed(text string, dim int) []float32 {
	buckets := make([]float64, dim)

	for _, tok := range tokenize(text) {
		var h uint32
		for _, r := range tok {
			h = (h*131 + uint32(r)) & 0x7fffffff
		}
		buckets[int(h)%dim] += 1
	}

	var norm float64
	for _, v := range buckets {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		norm = 1
	}

	out := make([]float32, dim)
	for i, v := range buckets {
		out[i] = float32(v / norm)
	}
	return out
}
