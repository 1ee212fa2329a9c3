package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/retrieval-fusion/internal/core/domain"
	"github.com/kirillkom/retrieval-fusion/internal/core/ports"
)

const defaultMaxChunks = 5

// contextInstruction is appended to every non-empty context blob.
const contextInstruction = "Answer the question confidently using only the context above. " +
	"If the context does not contain the answer, say so directly."

// assembleContext applies the regime-aware filtering policy, trims to the
// chunk budget and serializes the final context blob plus citations.
//
// Threshold filtering only applies to cosine and blended scores. RRF-fused
// scores top out near 1/(k+1) per source list, so a cosine-scale threshold
// would silently drop every fused result; for RegimeFused the threshold is
// ignored and only the chunk budget applies.
func assembleContext(
	ctx context.Context,
	list domain.RankedList,
	similarityThreshold float64,
	maxChunks int,
	store ports.DocumentStore,
) domain.ContextResult {
	if maxChunks <= 0 {
		maxChunks = defaultMaxChunks
	}

	kept := list.Chunks
	if list.Regime != domain.RegimeFused {
		filtered := make([]domain.ScoredChunk, 0, len(kept))
		for _, chunk := range kept {
			if chunk.Score > similarityThreshold {
				filtered = append(filtered, chunk)
			}
		}
		kept = filtered
	}
	if len(kept) > maxChunks {
		kept = kept[:maxChunks]
	}

	// No surviving chunks is a normal outcome, not an error.
	if len(kept) == 0 {
		return domain.ContextResult{Citations: []domain.Citation{}}
	}

	metadata := lookupMetadata(ctx, store, kept)

	var (
		text      strings.Builder
		sum       float64
		citations = make([]domain.Citation, 0, len(kept))
	)
	for i, chunk := range kept {
		if i > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(chunk.Content)

		meta, ok := metadata[chunk.ID]
		if !ok {
			meta = chunk.Metadata
		}
		if annotation := formatSourceAnnotation(chunk.DocumentID, meta); annotation != "" {
			text.WriteString("\n")
			text.WriteString(annotation)
		}

		citations = append(citations, domain.Citation{
			ChunkID:    chunk.ID,
			DocumentID: chunk.DocumentID,
			Page:       meta.Page,
			Section:    meta.Section,
			Hierarchy:  meta.Hierarchy,
			Score:      chunk.Score,
		})
		sum += chunk.Score
	}

	text.WriteString("\n\n")
	text.WriteString(contextInstruction)

	return domain.ContextResult{
		Text:      text.String(),
		Citations: citations,
		AvgScore:  sum / float64(len(kept)),
	}
}

// lookupMetadata enriches citations from the document store; a lookup failure
// degrades to the metadata already carried on the chunks.
func lookupMetadata(ctx context.Context, store ports.DocumentStore, chunks []domain.ScoredChunk) map[int64]domain.ChunkMetadata {
	if store == nil {
		return nil
	}
	ids := make([]int64, 0, len(chunks))
	for _, chunk := range chunks {
		ids = append(ids, chunk.ID)
	}
	metadata, err := store.ChunkMetadata(ctx, ids)
	if err != nil {
		slog.Warn("chunk_metadata_lookup_failed", "chunks", len(ids), "error", err)
		return nil
	}
	return metadata
}

func formatSourceAnnotation(documentID int64, meta domain.ChunkMetadata) string {
	parts := []string{fmt.Sprintf("document %d", documentID)}
	if meta.Section != "" {
		parts = append(parts, fmt.Sprintf("section %q", meta.Section))
	}
	if meta.Page != nil {
		parts = append(parts, fmt.Sprintf("page %d", *meta.Page))
	}
	return "[source: " + strings.Join(parts, ", ") + "]"
}
