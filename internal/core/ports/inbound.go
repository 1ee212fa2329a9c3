package ports

import (
	"context"

	"github.com/kirillkom/retrieval-fusion/internal/core/domain"
)

// ContextBuilder is the single public entry point of the retrieval-fusion
// core: it turns a query plus a document-id set into a ranked, deduplicated,
// serialized context blob for an LLM prompt.
type ContextBuilder interface {
	BuildContext(ctx context.Context, req domain.ContextRequest) (*domain.ContextResult, error)
}
