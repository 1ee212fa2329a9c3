package ports

import (
	"context"

	"github.com/kirillkom/retrieval-fusion/internal/core/domain"
)

// EmbeddingProvider builds a vector for one text. Adapters truncate input to
// their wire budget before the call; failures surface as domain.ErrProvider.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CompletionOptions tune a single completion call.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
}

// CompletionProvider generates text; used only for HyDE hypothetical answers.
type CompletionProvider interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}

// VectorIndex performs nearest-neighbor search over chunk embeddings,
// restricted to the given documents. Implementations return chunks sorted
// descending by cosine similarity with ties broken by ascending chunk id, and
// an empty list when documentIDs is empty.
type VectorIndex interface {
	Search(ctx context.Context, queryVector []float32, documentIDs []int64, limit int) (domain.RankedList, error)
}

// DocumentStore is the read-only metadata lookup used for citation
// formatting.
type DocumentStore interface {
	ChunkMetadata(ctx context.Context, chunkIDs []int64) (map[int64]domain.ChunkMetadata, error)
}

// EmbeddingCacheStats is a point-in-time snapshot of cache counters.
type EmbeddingCacheStats struct {
	Size      int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Expired   uint64
}

// EmbeddingCache maps normalized text to an embedding vector with an
// adaptive TTL. Safe for concurrent use.
type EmbeddingCache interface {
	Get(text string) ([]float32, bool)
	Set(text string, embedding []float32)
	Stats() EmbeddingCacheStats
}
