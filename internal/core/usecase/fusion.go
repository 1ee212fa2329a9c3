package usecase

import (
	"sort"

	"github.com/kirillkom/retrieval-fusion/internal/core/domain"
)

const defaultRRFK = 60.0

// fuseRankedLists merges N ranked lists into one via Reciprocal Rank Fusion:
// each chunk scores the sum of 1/(k+rank+1) over the lists it appears in,
// rank 0-indexed per source list. The output is unique by chunk id, sorted
// descending with exact ties broken by ascending chunk id.
//
// RRF scores live on their own scale (at most 1/(k+1) per source list) and
// must never be compared to cosine or blended scores; the result is tagged
// RegimeFused so downstream filters can tell.
func fuseRankedLists(lists []domain.RankedList, k float64) domain.FusionResult {
	if k <= 0 {
		k = defaultRRFK
	}

	type candidate struct {
		chunk domain.ScoredChunk
		score float64
	}

	acc := make(map[int64]*candidate)
	for _, list := range lists {
		for rank, chunk := range list.Chunks {
			c, ok := acc[chunk.ID]
			if !ok {
				c = &candidate{chunk: chunk}
				acc[chunk.ID] = c
			}
			c.score += 1.0 / (k + float64(rank) + 1.0)
		}
	}

	out := make([]domain.ScoredChunk, 0, len(acc))
	for _, c := range acc {
		chunk := c.chunk
		chunk.Score = c.score
		out = append(out, chunk)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})

	return domain.FusionResult{Chunks: out, Regime: domain.RegimeFused}
}
