package domain

// ScoreRegime tags the scale a numeric relevance score belongs to. Raw cosine
// similarity, keyword-blended hybrid scores and RRF-fused scores live on
// incompatible scales and must never be compared or threshold-filtered across
// regimes.
type ScoreRegime string

const (
	RegimeCosine  ScoreRegime = "cosine"
	RegimeBlended ScoreRegime = "blended"
	RegimeFused   ScoreRegime = "fused"
)

// ChunkMetadata is decoded once at the DocumentStore boundary and carried as
// typed fields from there on.
type ChunkMetadata struct {
	Page      *int     `json:"page,omitempty"`
	Section   string   `json:"section,omitempty"`
	Hierarchy []string `json:"hierarchy,omitempty"`
}

// Chunk is an immutable unit of retrievable text. The retrieval core only
// reads chunks; ingestion owns their lifecycle.
type Chunk struct {
	ID         int64         `json:"chunk_id"`
	DocumentID int64         `json:"document_id"`
	Content    string        `json:"content"`
	Index      int           `json:"index_in_document"`
	Metadata   ChunkMetadata `json:"metadata,omitempty"`
	Embedding  []float32     `json:"-"`
}

// ScoredChunk annotates a chunk with a relevance score. The score's scale is
// given by the regime of the list that carries it.
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}

// RankedList is the ordered output of one retrieval strategy invocation,
// rank 0 = best.
type RankedList struct {
	Chunks []ScoredChunk `json:"chunks"`
	Regime ScoreRegime   `json:"regime"`
}

// FusionResult is a ranked list whose scores are RRF aggregates, unique by
// chunk id. Regime is always RegimeFused.
type FusionResult = RankedList

// Citation points a context passage back at its source chunk.
type Citation struct {
	ChunkID    int64    `json:"chunk_id"`
	DocumentID int64    `json:"document_id"`
	Page       *int     `json:"page,omitempty"`
	Section    string   `json:"section,omitempty"`
	Hierarchy  []string `json:"hierarchy,omitempty"`
	Score      float64  `json:"score"`
}

// ContextResult is the final output of the retrieval-fusion pipeline; empty
// Text means "no context available", which is a normal outcome.
type ContextResult struct {
	Text      string           `json:"text"`
	Citations []Citation       `json:"citations"`
	AvgScore  float64          `json:"avg_score"`
	Decision  StrategyDecision `json:"decision"`
}
