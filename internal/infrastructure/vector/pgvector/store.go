package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/kirillkom/retrieval-fusion/internal/core/domain"
)

// Store runs similarity search against a pgvector-enabled chunks table.
// Scores are cosine similarity derived from the <=> distance operator, so
// they stay on the same scale as the qdrant backend.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) EnsureSchema(ctx context.Context, embeddingDim int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026021002)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS chunks (
	id BIGSERIAL PRIMARY KEY,
	document_id BIGINT NOT NULL,
	chunk_index INT NOT NULL,
	content TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	embedding vector(%d) NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);
CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING hnsw (embedding vector_cosine_ops);
`, embeddingDim)
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (s *Store) Search(
	ctx context.Context,
	queryVector []float32,
	documentIDs []int64,
	limit int,
) (domain.RankedList, error) {
	// Never query "all documents" implicitly.
	if len(documentIDs) == 0 {
		return domain.RankedList{Regime: domain.RegimeCosine}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	placeholders := make([]string, 0, len(documentIDs))
	args := make([]any, 0, len(documentIDs)+2)
	args = append(args, pgvector.NewVector(queryVector))
	for i, id := range documentIDs {
		placeholders = append(placeholders, "$"+strconv.Itoa(i+2))
		args = append(args, id)
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
SELECT id, document_id, chunk_index, content, metadata, 1 - (embedding <=> $1) AS score
FROM chunks
WHERE document_id IN (%s)
ORDER BY score DESC, id ASC
LIMIT $%d
`, strings.Join(placeholders, ","), len(documentIDs)+2)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.RankedList{}, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var chunks []domain.ScoredChunk
	for rows.Next() {
		var chunk domain.ScoredChunk
		var metaRaw []byte
		if err := rows.Scan(
			&chunk.ID, &chunk.DocumentID, &chunk.Index, &chunk.Content, &metaRaw, &chunk.Score,
		); err != nil {
			return domain.RankedList{}, fmt.Errorf("scan chunk: %w", err)
		}
		meta, err := decodeMetadata(metaRaw)
		if err != nil {
			return domain.RankedList{}, fmt.Errorf("chunk %d: %w", chunk.ID, err)
		}
		chunk.Metadata = meta
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return domain.RankedList{}, fmt.Errorf("iterate chunks: %w", err)
	}

	return domain.RankedList{Chunks: chunks, Regime: domain.RegimeCosine}, nil
}

func decodeMetadata(raw []byte) (domain.ChunkMetadata, error) {
	if len(raw) == 0 {
		return domain.ChunkMetadata{}, nil
	}
	var meta domain.ChunkMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return domain.ChunkMetadata{}, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return meta, nil
}
