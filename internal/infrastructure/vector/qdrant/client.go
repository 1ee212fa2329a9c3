package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/kirillkom/retrieval-fusion/internal/core/domain"
)

// Client adapts a qdrant collection to ports.VectorIndex. The collection is
// expected to hold one point per chunk with cosine distance and the payload
// written at ingestion time (chunk_id, document_id, chunk_index, text,
// section, page).
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Search(
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

	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
		"filter": map[string]any{
			"must": []map[string]any{
				{
					"key": "document_id",
					"match": map[string]any{
						"any": documentIDs,
					},
				},
			},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return domain.RankedList{}, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.RankedList{}, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.RankedList{}, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(respBody)); msg != "" {
			return domain.RankedList{}, fmt.Errorf("qdrant search status: %s: %s", resp.Status, msg)
		}
		return domain.RankedList{}, fmt.Errorf("qdrant search status: %s", resp.Status)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return domain.RankedList{}, fmt.Errorf("decode search response: %w", err)
	}

	chunks := make([]domain.ScoredChunk, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		chunks = append(chunks, domain.ScoredChunk{
			Chunk: domain.Chunk{
				ID:         getIntPayload(r.Payload, "chunk_id"),
				DocumentID: getIntPayload(r.Payload, "document_id"),
				Index:      int(getIntPayload(r.Payload, "chunk_index")),
				Content:    getStringPayload(r.Payload, "text"),
				Metadata:   payloadMetadata(r.Payload),
			},
			Score: r.Score,
		})
	}

	// Qdrant sorts by score; ties are re-broken by chunk id for determinism.
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		return chunks[i].ID < chunks[j].ID
	})

	return domain.RankedList{Chunks: chunks, Regime: domain.RegimeCosine}, nil
}

func payloadMetadata(payload map[string]any) domain.ChunkMetadata {
	meta := domain.ChunkMetadata{
		Section: getStringPayload(payload, "section"),
	}
	if page, ok := payload["page"]; ok {
		if v, ok := page.(float64); ok {
			p := int(v)
			meta.Page = &p
		}
	}
	return meta
}

func getStringPayload(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func getIntPayload(payload map[string]any, key string) int64 {
	switch v := payload[key].(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}
