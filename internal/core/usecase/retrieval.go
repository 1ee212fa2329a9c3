package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/retrieval-fusion/internal/core/domain"
	"github.com/kirillkom/retrieval-fusion/internal/core/ports"
)

const (
	defaultVectorWeight     = 0.7
	defaultEmbedConcurrency = 5
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "how": {}, "in": {}, "is": {}, "it": {},
	"of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "to": {}, "was": {},
	"were": {}, "what": {}, "when": {}, "where": {}, "which": {}, "who": {},
	"will": {}, "with": {},
}

// Retriever implements the three retrieval strategies over a shared
// embedding cache, embedding provider and vector index.
type Retriever struct {
	cache    ports.EmbeddingCache
	embedder ports.EmbeddingProvider
	index    ports.VectorIndex

	vectorWeight float64
	concurrency  int
}

func NewRetriever(
	cache ports.EmbeddingCache,
	embedder ports.EmbeddingProvider,
	index ports.VectorIndex,
) *Retriever {
	return &Retriever{
		cache:        cache,
		embedder:     embedder,
		index:        index,
		vectorWeight: defaultVectorWeight,
		concurrency:  defaultEmbedConcurrency,
	}
}

// embedCached resolves an embedding through the cache. A concurrent miss on
// the same key may embed twice; that is duplicate work, not corruption.
func (r *Retriever) embedCached(ctx context.Context, text string) ([]float32, error) {
	if r.cache != nil {
		if vector, ok := r.cache.Get(text); ok {
			return vector, nil
		}
	}
	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if r.cache != nil {
		r.cache.Set(text, vector)
	}
	return vector, nil
}

// VectorSearch embeds the query and runs one nearest-neighbor search.
// Scores are raw cosine similarity.
func (r *Retriever) VectorSearch(ctx context.Context, query string, documentIDs []int64, limit int) (domain.RankedList, error) {
	if len(documentIDs) == 0 {
		return domain.RankedList{Regime: domain.RegimeCosine}, nil
	}

	vector, err := r.embedCached(ctx, query)
	if err != nil {
		return domain.RankedList{}, err
	}

	list, err := r.index.Search(ctx, vector, documentIDs, limit)
	if err != nil {
		return domain.RankedList{}, fmt.Errorf("vector search: %w", err)
	}
	list.Regime = domain.RegimeCosine
	return list, nil
}

// HybridSearch blends cosine similarity with a binary keyword indicator:
// score = w*cos + (1-w)*indicator. The indicator is a substring match of the
// stopword-filtered query terms against the chunk content, not a TF-IDF
// score; that is a known quality ceiling.
func (r *Retriever) HybridSearch(ctx context.Context, query string, documentIDs []int64, limit int) (domain.RankedList, error) {
	list, err := r.VectorSearch(ctx, query, documentIDs, limit)
	if err != nil {
		return domain.RankedList{}, err
	}

	keywords := keywordPhrase(query)
	out := make([]domain.ScoredChunk, len(list.Chunks))
	copy(out, list.Chunks)
	for i := range out {
		indicator := 0.0
		if keywords != "" && strings.Contains(strings.ToLower(out[i].Content), keywords) {
			indicator = 1.0
		}
		out[i].Score = r.vectorWeight*out[i].Score + (1-r.vectorWeight)*indicator
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})

	return domain.RankedList{Chunks: out, Regime: domain.RegimeBlended}, nil
}

// MultiQuery embeds and searches each query independently, under a bounded
// concurrency, and fuses the resulting lists via RRF. A variant whose
// embedding or search fails is dropped from fusion; the call errors only
// when every variant failed.
func (r *Retriever) MultiQuery(ctx context.Context, queries []string, documentIDs []int64, limit int) (domain.FusionResult, error) {
	if len(queries) == 0 || len(documentIDs) == 0 {
		return domain.FusionResult{Regime: domain.RegimeFused}, nil
	}

	var (
		mu    sync.Mutex
		lists = make([]domain.RankedList, len(queries))
		found = make([]bool, len(queries))
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)
	for i, query := range queries {
		i, query := i, query
		group.Go(func() error {
			list, err := r.VectorSearch(groupCtx, query, documentIDs, limit)
			if err != nil {
				// Availability over completeness: drop the variant.
				slog.Warn("multi_query_variant_failed", "variant", i, "error", err)
				return nil
			}
			mu.Lock()
			lists[i] = list
			found[i] = true
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return domain.FusionResult{}, err
	}

	survivors := make([]domain.RankedList, 0, len(queries))
	for i := range lists {
		if found[i] {
			survivors = append(survivors, lists[i])
		}
	}
	if len(survivors) == 0 {
		return domain.FusionResult{}, fmt.Errorf("multi query: all %d variants failed: %w", len(queries), domain.ErrProvider)
	}

	return fuseRankedLists(survivors, defaultRRFK), nil
}

// keywordPhrase joins the stopword-filtered lowercase query terms.
func keywordPhrase(query string) string {
	fields := strings.Fields(strings.ToLower(query))
	kept := make([]string, 0, len(fields))
	for _, field := range fields {
		field = strings.Trim(field, ".,!?;:\"'()")
		if field == "" {
			continue
		}
		if _, ok := stopwords[field]; ok {
			continue
		}
		kept = append(kept, field)
	}
	return strings.Join(kept, " ")
}
