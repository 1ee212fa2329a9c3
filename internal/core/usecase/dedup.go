package usecase

import (
	"github.com/kirillkom/retrieval-fusion/internal/core/domain"
)

// deduplicateChunks removes repeated chunk ids in a single pass over the
// input order and, when mergeConsecutive is set, merges a chunk with its
// immediate successor when both come from the same document with adjacent
// document indices. Merges are one hop per iteration; three consecutive
// chunks stay two entries.
func deduplicateChunks(chunks []domain.ScoredChunk, mergeConsecutive bool) []domain.ScoredChunk {
	if len(chunks) == 0 {
		return chunks
	}

	out := make([]domain.ScoredChunk, 0, len(chunks))
	seen := make(map[int64]struct{}, len(chunks))

	for i := 0; i < len(chunks); i++ {
		current := chunks[i]
		if _, ok := seen[current.ID]; ok {
			continue
		}
		seen[current.ID] = struct{}{}

		if mergeConsecutive && i+1 < len(chunks) {
			next := chunks[i+1]
			_, nextSeen := seen[next.ID]
			if !nextSeen && next.DocumentID == current.DocumentID && absInt(next.Index-current.Index) == 1 {
				seen[next.ID] = struct{}{}
				out = append(out, mergeAdjacent(current, next))
				i++
				continue
			}
		}

		out = append(out, current)
	}

	return out
}

// mergeAdjacent joins two document-adjacent chunks, content ordered by
// document index, carrying the higher score and the earlier chunk's identity.
func mergeAdjacent(a, b domain.ScoredChunk) domain.ScoredChunk {
	first, second := a, b
	if second.Index < first.Index {
		first, second = second, first
	}

	merged := first
	merged.Content = first.Content + "\n" + second.Content
	if b.Score > a.Score {
		merged.Score = b.Score
	} else {
		merged.Score = a.Score
	}
	return merged
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
