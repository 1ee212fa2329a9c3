package usecase

import (
	"math"
	"reflect"
	"testing"

	"github.com/kirillkom/retrieval-fusion/internal/core/domain"
)

func TestRerankByTermOverlapPromotesMatchingContent(t *testing.T) {
	list := domain.RankedList{
		Regime: domain.RegimeFused,
		Chunks: []domain.ScoredChunk{
			{Chunk: domain.Chunk{ID: 1, Content: "unrelated filler text"}, Score: 0.016},
			{Chunk: domain.Chunk{ID: 2, Content: "eviction policy details for the cache"}, Score: 0.015},
		},
	}

	reranked := rerankByTermOverlap("cache eviction policy", list)
	if reranked.Chunks[0].ID != 2 {
		t.Fatalf("expected overlapping chunk promoted, got %d first", reranked.Chunks[0].ID)
	}
	if reranked.Regime != domain.RegimeFused {
		t.Fatalf("regime changed: %s", reranked.Regime)
	}
}

func TestRerankByTermOverlapBlendFormula(t *testing.T) {
	list := domain.RankedList{
		Regime: domain.RegimeCosine,
		Chunks: []domain.ScoredChunk{
			{Chunk: domain.Chunk{ID: 1, Content: "cache eviction"}, Score: 0.5},
		},
	}

	// Query terms after filtering: cache, eviction, policy -> overlap 2/3.
	reranked := rerankByTermOverlap("cache eviction policy", list)
	want := 0.8*0.5 + 0.2*(2.0/3.0)
	if got := reranked.Chunks[0].Score; math.Abs(got-want) > 1e-12 {
		t.Fatalf("blended score = %v, want %v", got, want)
	}
}

func TestRerankByTermOverlapShortQueryTermsPassThrough(t *testing.T) {
	list := domain.RankedList{
		Regime: domain.RegimeCosine,
		Chunks: []domain.ScoredChunk{
			{Chunk: domain.Chunk{ID: 1, Content: "a b c"}, Score: 0.4},
		},
	}

	// Every query token is three characters or fewer, so no usable terms
	// remain and the list is returned unchanged.
	reranked := rerankByTermOverlap("a of to it", list)
	if !reflect.DeepEqual(reranked, list) {
		t.Fatalf("expected pass-through, got %v", reranked)
	}
}

func TestRerankByTermOverlapDeterministicTieBreak(t *testing.T) {
	list := domain.RankedList{
		Regime: domain.RegimeFused,
		Chunks: []domain.ScoredChunk{
			{Chunk: domain.Chunk{ID: 9, Content: "nothing shared"}, Score: 0.01},
			{Chunk: domain.Chunk{ID: 3, Content: "nothing shared"}, Score: 0.01},
		},
	}

	reranked := rerankByTermOverlap("cache eviction", list)
	if reranked.Chunks[0].ID != 3 {
		t.Fatalf("expected chunk id tie-break, got %d first", reranked.Chunks[0].ID)
	}
}
