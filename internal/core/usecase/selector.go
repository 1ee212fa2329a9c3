package usecase

import (
	"regexp"
	"strings"

	"github.com/kirillkom/retrieval-fusion/internal/core/domain"
)

var (
	simpleFactualPattern     = regexp.MustCompile(`(?i)^(what|who|when|where|which)\s+(is|are|was|were)\b`)
	complexAnalyticalPattern = regexp.MustCompile(`(?i)\b(compare|comparison|contrast|analy[sz]e|relationship|impact|implications|trade-?offs?|pros\s+and\s+cons|versus|vs\.?|difference)\b`)
)

// decideStrategy is a fixed decision table, evaluated in order with first
// match winning. The confidence value is observability only; it never feeds
// back into the pipeline.
func decideStrategy(query string, conversationLength, documentCount int, advancedEnabled bool) domain.StrategyDecision {
	wordCount := len(strings.Fields(query))

	switch {
	case !advancedEnabled:
		return domain.StrategyDecision{UseRichPath: false, Reason: "advanced_rag_disabled", Confidence: 1.0}
	case simpleFactualPattern.MatchString(query) && wordCount < 10:
		return domain.StrategyDecision{UseRichPath: false, Reason: "simple_factual_query", Confidence: 0.85}
	case wordCount < 5:
		return domain.StrategyDecision{UseRichPath: false, Reason: "short_query", Confidence: 0.9}
	case conversationLength < 6:
		return domain.StrategyDecision{UseRichPath: false, Reason: "short_conversation", Confidence: 0.8}
	case complexAnalyticalPattern.MatchString(query):
		return domain.StrategyDecision{UseRichPath: true, Reason: "complex_analytical_query", Confidence: 0.85}
	case documentCount >= 3:
		return domain.StrategyDecision{UseRichPath: true, Reason: "multi_document_corpus", Confidence: 0.75}
	case wordCount > 20:
		return domain.StrategyDecision{UseRichPath: true, Reason: "long_query", Confidence: 0.7}
	default:
		return domain.StrategyDecision{UseRichPath: false, Reason: "default", Confidence: 0.7}
	}
}
