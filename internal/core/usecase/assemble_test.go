package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/retrieval-fusion/internal/core/domain"
)

type storeFake struct {
	metadata map[int64]domain.ChunkMetadata
	err      error
	calls    int
}

func (f *storeFake) ChunkMetadata(_ context.Context, chunkIDs []int64) (map[int64]domain.ChunkMetadata, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[int64]domain.ChunkMetadata, len(chunkIDs))
	for _, id := range chunkIDs {
		if meta, ok := f.metadata[id]; ok {
			out[id] = meta
		}
	}
	return out, nil
}

func fusedListBelowCosineThreshold() domain.RankedList {
	return domain.RankedList{
		Regime: domain.RegimeFused,
		Chunks: []domain.ScoredChunk{
			scored(1, 1, 0, "first passage", 0.016),
			scored(2, 1, 5, "second passage", 0.012),
			scored(3, 2, 0, "third passage", 0.008),
		},
	}
}

func TestAssembleContextThresholdRegimeSeparation(t *testing.T) {
	fused := fusedListBelowCosineThreshold()

	// Fused regime keeps chunks a cosine threshold would drop.
	got := assembleContext(context.Background(), fused, 0.3, 5, nil)
	if len(got.Citations) != 3 {
		t.Fatalf("fused regime kept %d chunks, want 3", len(got.Citations))
	}
	if got.Text == "" {
		t.Fatalf("expected non-empty context in fused regime")
	}

	// The same scores under the cosine regime all fall below the threshold.
	cosine := fused
	cosine.Regime = domain.RegimeCosine
	got = assembleContext(context.Background(), cosine, 0.3, 5, nil)
	if len(got.Citations) != 0 || got.Text != "" {
		t.Fatalf("cosine regime kept %d chunks, want 0", len(got.Citations))
	}
}

func TestAssembleContextCosineThresholdIsExclusive(t *testing.T) {
	list := domain.RankedList{
		Regime: domain.RegimeCosine,
		Chunks: []domain.ScoredChunk{
			scored(1, 1, 0, "kept", 0.31),
			scored(2, 1, 5, "at threshold", 0.3),
			scored(3, 2, 0, "below", 0.2),
		},
	}

	got := assembleContext(context.Background(), list, 0.3, 5, nil)
	if len(got.Citations) != 1 || got.Citations[0].ChunkID != 1 {
		t.Fatalf("expected only the chunk above the threshold, got %v", got.Citations)
	}
}

func TestAssembleContextTruncatesToMaxChunks(t *testing.T) {
	got := assembleContext(context.Background(), fusedListBelowCosineThreshold(), 0.3, 2, nil)
	if len(got.Citations) != 2 {
		t.Fatalf("expected max_chunks truncation to 2, got %d", len(got.Citations))
	}
	if got.Citations[0].ChunkID != 1 || got.Citations[1].ChunkID != 2 {
		t.Fatalf("truncation changed order: %v", got.Citations)
	}
}

func TestAssembleContextSerialization(t *testing.T) {
	page := 4
	store := &storeFake{metadata: map[int64]domain.ChunkMetadata{
		1: {Page: &page, Section: "Ranking"},
	}}
	list := domain.RankedList{
		Regime: domain.RegimeFused,
		Chunks: []domain.ScoredChunk{
			scored(1, 3, 0, "first passage", 0.016),
			scored(2, 3, 1, "second passage", 0.012),
		},
	}

	got := assembleContext(context.Background(), list, 0, 5, store)
	if store.calls != 1 {
		t.Fatalf("expected one metadata lookup, got %d", store.calls)
	}
	if !strings.Contains(got.Text, "first passage\n[source: document 3, section \"Ranking\", page 4]") {
		t.Fatalf("missing source annotation:\n%s", got.Text)
	}
	if !strings.Contains(got.Text, "first passage") || !strings.Contains(got.Text, "second passage") {
		t.Fatalf("missing chunk content:\n%s", got.Text)
	}
	if !strings.HasSuffix(got.Text, contextInstruction) {
		t.Fatalf("missing trailing instruction:\n%s", got.Text)
	}
	if got.Citations[0].Section != "Ranking" || got.Citations[0].Page == nil || *got.Citations[0].Page != 4 {
		t.Fatalf("citation metadata not enriched: %+v", got.Citations[0])
	}

	wantAvg := (0.016 + 0.012) / 2
	if diff := got.AvgScore - wantAvg; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("avg score = %v, want %v", got.AvgScore, wantAvg)
	}
}

func TestAssembleContextMetadataLookupFailureDegrades(t *testing.T) {
	store := &storeFake{err: errors.New("db down")}
	got := assembleContext(context.Background(), fusedListBelowCosineThreshold(), 0, 5, store)
	if len(got.Citations) != 3 || got.Text == "" {
		t.Fatalf("metadata failure must not drop context: %+v", got)
	}
}

func TestAssembleContextEmptyInputYieldsEmptyResult(t *testing.T) {
	got := assembleContext(context.Background(), domain.RankedList{Regime: domain.RegimeCosine}, 0.3, 5, nil)
	if got.Text != "" || len(got.Citations) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}
