package usecase

import (
	"sort"
	"strings"
	"unicode"

	"github.com/kirillkom/retrieval-fusion/internal/core/domain"
)

const (
	rerankScoreWeight   = 0.8
	rerankOverlapWeight = 0.2
	minRerankTokenLen   = 4
)

// rerankByTermOverlap re-scores a ranked list by blending the original score
// with the query/content term-overlap ratio. Deterministic: ties break by
// ascending chunk id and the score regime is preserved. A query with no
// usable terms leaves the list untouched.
func rerankByTermOverlap(query string, list domain.RankedList) domain.RankedList {
	queryTerms := toTermSet(query)
	if len(queryTerms) == 0 || len(list.Chunks) == 0 {
		return list
	}

	out := make([]domain.ScoredChunk, len(list.Chunks))
	copy(out, list.Chunks)

	for i := range out {
		overlap := termOverlapRatio(queryTerms, toTermSet(out[i].Content))
		out[i].Score = rerankScoreWeight*out[i].Score + rerankOverlapWeight*overlap
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})

	return domain.RankedList{Chunks: out, Regime: list.Regime}
}

func termOverlapRatio(query, content map[string]struct{}) float64 {
	if len(query) == 0 || len(content) == 0 {
		return 0
	}
	matches := 0
	for term := range query {
		if _, ok := content[term]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}

// toTermSet lowercases and splits on non-alphanumeric runes, keeping only
// tokens longer than three characters.
func toTermSet(s string) map[string]struct{} {
	out := make(map[string]struct{}, 16)
	var b strings.Builder
	flush := func() {
		if b.Len() >= minRerankTokenLen {
			out[b.String()] = struct{}{}
		}
		b.Reset()
	}
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return out
}
