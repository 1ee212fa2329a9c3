package usecase

import (
	"reflect"
	"testing"

	"github.com/kirillkom/retrieval-fusion/internal/core/domain"
)

func scored(id, docID int64, index int, content string, score float64) domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk: domain.Chunk{ID: id, DocumentID: docID, Index: index, Content: content},
		Score: score,
	}
}

func TestDeduplicateChunksRemovesRepeatedIDs(t *testing.T) {
	in := []domain.ScoredChunk{
		scored(1, 1, 0, "a", 0.9),
		scored(2, 1, 5, "b", 0.8),
		scored(1, 1, 0, "a", 0.7),
	}

	out := deduplicateChunks(in, false)
	if len(out) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(out))
	}
	if out[0].ID != 1 || out[1].ID != 2 {
		t.Fatalf("unexpected order: %v then %v", out[0].ID, out[1].ID)
	}
}

func TestDeduplicateChunksMergesAdjacentPair(t *testing.T) {
	in := []domain.ScoredChunk{
		scored(10, 1, 3, "second part", 0.7),
		scored(9, 1, 2, "first part", 0.9),
		scored(20, 2, 0, "other doc", 0.5),
	}

	out := deduplicateChunks(in, true)
	if len(out) != 2 {
		t.Fatalf("expected 2 chunks after merge, got %d", len(out))
	}
	merged := out[0]
	if merged.Content != "first part\nsecond part" {
		t.Fatalf("merged content ordered wrong: %q", merged.Content)
	}
	if merged.Score != 0.9 {
		t.Fatalf("merged score = %v, want max 0.9", merged.Score)
	}
	if merged.Index != 2 {
		t.Fatalf("merged index = %d, want earlier index 2", merged.Index)
	}
}

func TestDeduplicateChunksMergesOneHopOnly(t *testing.T) {
	in := []domain.ScoredChunk{
		scored(1, 1, 0, "a", 0.9),
		scored(2, 1, 1, "b", 0.8),
		scored(3, 1, 2, "c", 0.7),
	}

	// Three consecutive chunks merge pairwise, not into one.
	out := deduplicateChunks(in, true)
	if len(out) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(out))
	}
}

func TestDeduplicateChunksIdempotent(t *testing.T) {
	in := []domain.ScoredChunk{
		scored(1, 1, 0, "a", 0.9),
		scored(2, 1, 1, "b", 0.8),
		scored(3, 2, 4, "c", 0.7),
		scored(3, 2, 4, "c", 0.6),
		scored(4, 2, 9, "d", 0.5),
	}

	once := deduplicateChunks(in, true)
	twice := deduplicateChunks(once, true)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("deduplicate not idempotent:\n%v\n%v", once, twice)
	}
}

func TestDeduplicateChunksSkipsMergeWhenNextAlreadyEmitted(t *testing.T) {
	in := []domain.ScoredChunk{
		scored(1, 1, 0, "a", 0.9),
		scored(2, 1, 1, "b", 0.8),
		scored(2, 1, 1, "b", 0.4),
	}

	out := deduplicateChunks(in, true)
	if len(out) != 1 {
		t.Fatalf("expected single merged chunk, got %d", len(out))
	}
	if out[0].Content != "a\nb" {
		t.Fatalf("unexpected merged content: %q", out[0].Content)
	}
}
