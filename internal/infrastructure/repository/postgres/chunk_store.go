package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/retrieval-fusion/internal/core/domain"
)

// ChunkStore resolves chunk metadata for citation building. Metadata lives in
// a JSONB column and is decoded here once; the core only sees typed fields.
type ChunkStore struct {
	db *sql.DB
}

func NewChunkStore(db *sql.DB) *ChunkStore {
	return &ChunkStore{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (s *ChunkStore) ChunkMetadata(ctx context.Context, chunkIDs []int64) (map[int64]domain.ChunkMetadata, error) {
	if len(chunkIDs) == 0 {
		return map[int64]domain.ChunkMetadata{}, nil
	}

	placeholders := make([]string, 0, len(chunkIDs))
	args := make([]any, 0, len(chunkIDs))
	for i, id := range chunkIDs {
		placeholders = append(placeholders, "$"+strconv.Itoa(i+1))
		args = append(args, id)
	}

	query := fmt.Sprintf(`
SELECT id, metadata
FROM chunks
WHERE id IN (%s)
`, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select chunk metadata: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]domain.ChunkMetadata, len(chunkIDs))
	for rows.Next() {
		var id int64
		var metaRaw []byte
		if err := rows.Scan(&id, &metaRaw); err != nil {
			return nil, fmt.Errorf("scan chunk metadata: %w", err)
		}
		var meta domain.ChunkMetadata
		if len(metaRaw) > 0 {
			if err := json.Unmarshal(metaRaw, &meta); err != nil {
				return nil, fmt.Errorf("unmarshal metadata for chunk %d: %w", id, err)
			}
		}
		result[id] = meta
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk metadata: %w", err)
	}
	return result, nil
}
