package usecase

import (
	"reflect"
	"testing"

	"github.com/kirillkom/retrieval-fusion/internal/core/domain"
)

func TestClassifyQueryPrecedence(t *testing.T) {
	cases := []struct {
		query string
		want  domain.QueryType
	}{
		// Factual wins even when comparative markers appear later.
		{"What is the difference between A and B", domain.QueryFactual},
		{"Compare vector search and keyword search", domain.QueryComparative},
		{"Summarize the architecture chapter", domain.QuerySummary},
		{"How to configure the vector index", domain.QueryProcedural},
		{"tell me about ranking", domain.QueryExploratory},
		{"postgres versus qdrant", domain.QueryComparative},
	}
	for _, tc := range cases {
		if got := classifyQuery(tc.query); got != tc.want {
			t.Fatalf("classifyQuery(%q) = %v, want %v", tc.query, got, tc.want)
		}
	}
}

func TestGenerateVariationsComparativeSplitsFragments(t *testing.T) {
	query := "Compare vector search and keyword search"
	got := generateVariations(query, domain.QueryComparative)

	want := []string{query, "vector search", "keyword search"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("generateVariations() = %v, want %v", got, want)
	}
}

func TestGenerateVariationsDropsShortFragments(t *testing.T) {
	got := generateVariations("redis vs etcd", domain.QueryComparative)
	// Both fragments are at most 10 characters, only the original survives.
	if len(got) != 1 || got[0] != "redis vs etcd" {
		t.Fatalf("expected only original query, got %v", got)
	}
}

func TestGenerateVariationsFactualStripsInterrogative(t *testing.T) {
	got := generateVariations("What is reciprocal rank fusion", domain.QueryFactual)
	want := []string{"What is reciprocal rank fusion", "reciprocal rank fusion"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("generateVariations() = %v, want %v", got, want)
	}
}

func TestGenerateVariationsAlwaysKeepsOriginal(t *testing.T) {
	got := generateVariations("RAG?", domain.QueryExploratory)
	if len(got) != 1 || got[0] != "RAG?" {
		t.Fatalf("expected short original to be kept, got %v", got)
	}
}

func TestGenerateVariationsCapsAtThree(t *testing.T) {
	got := generateVariations(
		"Compare the ranking pipeline and the caching layer and the strategy selector",
		domain.QueryComparative,
	)
	if len(got) > 3 {
		t.Fatalf("expected at most 3 variations, got %d: %v", len(got), got)
	}
	if got[0] != "Compare the ranking pipeline and the caching layer and the strategy selector" {
		t.Fatalf("expected original first, got %v", got)
	}
}

func TestDecomposeQueryWithoutTriggerReturnsQuery(t *testing.T) {
	got := decomposeQuery("embedding cache eviction policy")
	if len(got) != 1 || got[0] != "embedding cache eviction policy" {
		t.Fatalf("expected unchanged query, got %v", got)
	}
}

func TestDecomposeQueryComparativeTrigger(t *testing.T) {
	got := decomposeQuery("Compare adaptive caching versus static caching")
	want := []string{"adaptive caching", "static caching"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("decomposeQuery() = %v, want %v", got, want)
	}
}

func TestDecomposeQueryCapsSubQuestions(t *testing.T) {
	got := decomposeQuery("ranking signal fusion, and cache consistency rules, and breaker transitions, and selector heuristics")
	if len(got) > 3 {
		t.Fatalf("expected at most 3 sub-questions, got %d: %v", len(got), got)
	}
}
