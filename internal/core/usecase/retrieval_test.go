package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kirillkom/retrieval-fusion/internal/core/domain"
	"github.com/kirillkom/retrieval-fusion/internal/core/ports"
)

type embedderFake struct {
	mu     sync.Mutex
	calls  []string
	failOn map[string]error
}

func (f *embedderFake) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	if err, ok := f.failOn[text]; ok {
		return nil, err
	}
	// A deterministic toy vector derived from the text length.
	return []float32{float32(len(text)), 1}, nil
}

func (f *embedderFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type indexFake struct {
	mu      sync.Mutex
	calls   int
	byQuery map[int][]domain.ScoredChunk
	chunks  []domain.ScoredChunk
	err     error
}

func (f *indexFake) Search(_ context.Context, queryVector []float32, documentIDs []int64, _ int) (domain.RankedList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return domain.RankedList{}, f.err
	}
	if len(documentIDs) == 0 {
		return domain.RankedList{Regime: domain.RegimeCosine}, nil
	}
	chunks := f.chunks
	if f.byQuery != nil {
		// Keyed by query length, the toy vector's first component set by
		// embedderFake.
		chunks = f.byQuery[int(queryVector[0])]
	}
	out := make([]domain.ScoredChunk, len(chunks))
	copy(out, chunks)
	return domain.RankedList{Chunks: out, Regime: domain.RegimeCosine}, nil
}

type cacheFake struct {
	mu      sync.Mutex
	entries map[string][]float32
	hits    int
}

func newCacheFake() *cacheFake {
	return &cacheFake{entries: map[string][]float32{}}
}

func (f *cacheFake) Get(text string) ([]float32, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.entries[text]
	if ok {
		f.hits++
	}
	return v, ok
}

func (f *cacheFake) Set(text string, embedding []float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[text] = embedding
}

func (f *cacheFake) Stats() ports.EmbeddingCacheStats { return ports.EmbeddingCacheStats{} }

func TestVectorSearchUsesCache(t *testing.T) {
	embedder := &embedderFake{}
	index := &indexFake{chunks: []domain.ScoredChunk{scored(1, 1, 0, "a", 0.9)}}
	cache := newCacheFake()
	r := NewRetriever(cache, embedder, index)

	for i := 0; i < 3; i++ {
		if _, err := r.VectorSearch(context.Background(), "cache eviction policy", []int64{1}, 5); err != nil {
			t.Fatalf("VectorSearch() error = %v", err)
		}
	}
	if embedder.callCount() != 1 {
		t.Fatalf("expected a single embedding call, got %d", embedder.callCount())
	}
	if cache.hits != 2 {
		t.Fatalf("expected 2 cache hits, got %d", cache.hits)
	}
}

func TestVectorSearchEmptyDocumentSetSkipsIndex(t *testing.T) {
	embedder := &embedderFake{}
	index := &indexFake{chunks: []domain.ScoredChunk{scored(1, 1, 0, "a", 0.9)}}
	r := NewRetriever(newCacheFake(), embedder, index)

	list, err := r.VectorSearch(context.Background(), "anything", nil, 5)
	if err != nil {
		t.Fatalf("VectorSearch() error = %v", err)
	}
	if len(list.Chunks) != 0 || index.calls != 0 || embedder.callCount() != 0 {
		t.Fatalf("empty document set must short-circuit: chunks=%d index=%d embeds=%d",
			len(list.Chunks), index.calls, embedder.callCount())
	}
}

func TestHybridSearchBoostsKeywordMatches(t *testing.T) {
	index := &indexFake{chunks: []domain.ScoredChunk{
		scored(1, 1, 0, "completely unrelated content", 0.80),
		scored(2, 1, 5, "notes on cache eviction policy tuning", 0.75),
	}}
	r := NewRetriever(newCacheFake(), &embedderFake{}, index)

	list, err := r.HybridSearch(context.Background(), "the cache eviction policy", []int64{1}, 5)
	if err != nil {
		t.Fatalf("HybridSearch() error = %v", err)
	}
	if list.Regime != domain.RegimeBlended {
		t.Fatalf("expected blended regime, got %s", list.Regime)
	}
	if list.Chunks[0].ID != 2 {
		t.Fatalf("expected keyword match promoted, got chunk %d first", list.Chunks[0].ID)
	}
	// 0.7*0.75 + 0.3*1 for the match, 0.7*0.80 for the miss.
	if got, want := list.Chunks[0].Score, 0.7*0.75+0.3; !almostEqual(got, want) {
		t.Fatalf("blended score = %v, want %v", got, want)
	}
	if got, want := list.Chunks[1].Score, 0.7*0.80; !almostEqual(got, want) {
		t.Fatalf("unmatched score = %v, want %v", got, want)
	}
}

func TestMultiQueryDropsFailedVariant(t *testing.T) {
	embedder := &embedderFake{failOn: map[string]error{
		"broken variant": errors.New("provider down"),
	}}
	index := &indexFake{chunks: []domain.ScoredChunk{scored(1, 1, 0, "a", 0.9)}}
	r := NewRetriever(newCacheFake(), embedder, index)

	fused, err := r.MultiQuery(context.Background(), []string{"working variant", "broken variant"}, []int64{1}, 5)
	if err != nil {
		t.Fatalf("MultiQuery() error = %v", err)
	}
	if len(fused.Chunks) != 1 {
		t.Fatalf("expected surviving variant's chunks, got %d", len(fused.Chunks))
	}
	if fused.Regime != domain.RegimeFused {
		t.Fatalf("expected fused regime, got %s", fused.Regime)
	}
}

func TestMultiQueryAllVariantsFailedIsError(t *testing.T) {
	embedder := &embedderFake{failOn: map[string]error{
		"first variant":  errors.New("provider down"),
		"second variant": errors.New("provider down"),
	}}
	r := NewRetriever(newCacheFake(), embedder, &indexFake{})

	_, err := r.MultiQuery(context.Background(), []string{"first variant", "second variant"}, []int64{1}, 5)
	if !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func almostEqual(a, b float64) bool {
	diff := a - b
	return diff < 1e-12 && diff > -1e-12
}
