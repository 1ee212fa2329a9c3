package domain

type QueryType string

const (
	QueryFactual     QueryType = "factual"
	QueryComparative QueryType = "comparative"
	QuerySummary     QueryType = "summary"
	QueryProcedural  QueryType = "procedural"
	QueryExploratory QueryType = "exploratory"
)

// StrategyDecision records which retrieval path a request took and why.
// Created fresh per request, never persisted; confidence is observability
// only.
type StrategyDecision struct {
	UseRichPath bool    `json:"use_rich_path"`
	Reason      string  `json:"reason"`
	Confidence  float64 `json:"confidence"`
}

// ContextRequest is the single inbound contract of the retrieval core.
type ContextRequest struct {
	Query               string  `json:"query"`
	DocumentIDs         []int64 `json:"document_ids"`
	ConversationLength  int     `json:"conversation_length"`
	MaxChunks           int     `json:"max_chunks"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	UseAdvanced         bool    `json:"use_advanced"`
}
