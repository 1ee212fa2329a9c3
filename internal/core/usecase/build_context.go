package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/retrieval-fusion/internal/core/domain"
	"github.com/kirillkom/retrieval-fusion/internal/core/ports"
)

// RetrievalMode selects the fast-path strategy.
type RetrievalMode string

const (
	ModeVector RetrievalMode = "vector"
	ModeHybrid RetrievalMode = "hybrid"
)

const defaultCandidateLimit = 20

// Options tune the pipeline; zero values fall back to defaults.
type Options struct {
	// Mode picks the fast-path strategy (vector or hybrid).
	Mode RetrievalMode
	// HyDEEnabled adds a hypothetical-answer variant to multi-query
	// retrieval on the rich path.
	HyDEEnabled bool
	// CandidateLimit is the per-search result budget before fusion and
	// truncation.
	CandidateLimit int
}

// BuildContextUseCase is the retrieval-fusion pipeline: strategy selection,
// fast or rich retrieval, fusion, reranking, deduplication and context
// assembly.
type BuildContextUseCase struct {
	retriever *Retriever
	completer ports.CompletionProvider
	store     ports.DocumentStore
	opts      Options
}

func NewBuildContextUseCase(
	cache ports.EmbeddingCache,
	embedder ports.EmbeddingProvider,
	completer ports.CompletionProvider,
	index ports.VectorIndex,
	store ports.DocumentStore,
	opts Options,
) *BuildContextUseCase {
	if opts.Mode == "" {
		opts.Mode = ModeVector
	}
	if opts.CandidateLimit <= 0 {
		opts.CandidateLimit = defaultCandidateLimit
	}
	return &BuildContextUseCase{
		retriever: NewRetriever(cache, embedder, index),
		completer: completer,
		store:     store,
		opts:      opts,
	}
}

// BuildContext turns a query and a document-id set into a ranked,
// deduplicated, threshold-filtered context blob. Empty input short-circuits
// to an empty result, and a total retrieval failure degrades to an empty
// context rather than an error, so the caller can still answer without
// retrieved context.
func (uc *BuildContextUseCase) BuildContext(ctx context.Context, req domain.ContextRequest) (*domain.ContextResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" || len(req.DocumentIDs) == 0 {
		return &domain.ContextResult{
			Citations: []domain.Citation{},
			Decision:  domain.StrategyDecision{UseRichPath: false, Reason: "empty_input", Confidence: 1.0},
		}, nil
	}

	decision := decideStrategy(query, req.ConversationLength, len(req.DocumentIDs), req.UseAdvanced)

	var (
		list domain.RankedList
		err  error
	)
	if decision.UseRichPath {
		list, err = uc.richPath(ctx, query, req.DocumentIDs)
	} else {
		list, err = uc.fastPath(ctx, query, req.DocumentIDs)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Error("retrieval_failed",
			"reason", decision.Reason,
			"rich_path", decision.UseRichPath,
			"error", err,
		)
		return &domain.ContextResult{Citations: []domain.Citation{}, Decision: decision}, nil
	}

	result := assembleContext(ctx, list, req.SimilarityThreshold, req.MaxChunks, uc.store)
	result.Decision = decision

	slog.Debug("context_built",
		"reason", decision.Reason,
		"rich_path", decision.UseRichPath,
		"citations", len(result.Citations),
		"avg_score", result.AvgScore,
	)
	return &result, nil
}

// fastPath runs a single search with the configured strategy.
func (uc *BuildContextUseCase) fastPath(ctx context.Context, query string, documentIDs []int64) (domain.RankedList, error) {
	var (
		list domain.RankedList
		err  error
	)
	if uc.opts.Mode == ModeHybrid {
		list, err = uc.retriever.HybridSearch(ctx, query, documentIDs, uc.opts.CandidateLimit)
	} else {
		list, err = uc.retriever.VectorSearch(ctx, query, documentIDs, uc.opts.CandidateLimit)
	}
	if err != nil {
		return domain.RankedList{}, err
	}
	list.Chunks = deduplicateChunks(list.Chunks, true)
	return list, nil
}

// richPath generates query variants (plus an optional HyDE hypothetical
// answer), runs multi-query retrieval, fuses, reranks and deduplicates.
func (uc *BuildContextUseCase) richPath(ctx context.Context, query string, documentIDs []int64) (domain.RankedList, error) {
	queryType := classifyQuery(query)
	variants := generateVariations(query, queryType)
	if len(variants) == 1 {
		variants = mergeUnique(variants, decomposeQuery(query), maxVariations)
	}

	if uc.opts.HyDEEnabled && uc.completer != nil {
		if hypothetical := uc.hypotheticalAnswer(ctx, query); hypothetical != "" {
			variants = append(variants, hypothetical)
		}
	}

	fused, err := uc.retriever.MultiQuery(ctx, variants, documentIDs, uc.opts.CandidateLimit)
	if err != nil {
		return domain.RankedList{}, err
	}

	reranked := rerankByTermOverlap(query, fused)
	reranked.Chunks = deduplicateChunks(reranked.Chunks, true)
	return reranked, nil
}

// hypotheticalAnswer generates a HyDE text for the query. HyDE is an
// enhancement, not a requirement: any failure falls open to retrieval with
// the original query alone.
func (uc *BuildContextUseCase) hypotheticalAnswer(ctx context.Context, query string) string {
	answer, err := uc.completer.Complete(ctx, buildHyDEPrompt(query), ports.CompletionOptions{
		Temperature: 0.7,
		MaxTokens:   200,
	})
	if err != nil {
		slog.Warn("hyde_generation_failed", "error", err)
		return ""
	}
	return strings.TrimSpace(answer)
}

func buildHyDEPrompt(query string) string {
	return fmt.Sprintf(`Write a short passage that would plausibly answer the question below, as if it were taken from a reference document. Do not mention the question itself.

Question:
%s
`, query)
}

func mergeUnique(base, extra []string, limit int) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, limit)
	for _, lists := range [][]string{base, extra} {
		for _, item := range lists {
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			out = append(out, item)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}
