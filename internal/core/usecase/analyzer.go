package usecase

import (
	"regexp"
	"strings"

	"github.com/kirillkom/retrieval-fusion/internal/core/domain"
)

// Pattern precedence is fixed: factual, comparative, summary, procedural.
// The first class that matches wins; everything else is exploratory.
var (
	factualPattern     = regexp.MustCompile(`(?i)^(what|who|when|where|which)\s+(is|are|was|were)\b`)
	comparativePattern = regexp.MustCompile(`(?i)\b(vs\.?|versus|compare|comparison|difference|differences|between)\b`)
	summaryPattern     = regexp.MustCompile(`(?i)\b(summari[sz]e|summary|overview|main points|key points|explain)\b`)
	proceduralPattern  = regexp.MustCompile(`(?i)\b(how\s+(to|do|can)|steps?\s+to|procedure|instructions)\b`)

	comparativeLeadPattern  = regexp.MustCompile(`(?i)^(compare|comparison of|contrast|what(?:'s| is) the difference between)\s+`)
	comparativeSplitPattern = regexp.MustCompile(`(?i)\s+(?:vs\.?|versus|and|or)\s+`)
	summaryMarkerPattern    = regexp.MustCompile(`(?i)^(summari[sz]e|give\s+(me\s+)?(an?\s+)?(overview|summary)\s+of|overview\s+of|explain)\s+`)
	proceduralMarkerPattern = regexp.MustCompile(`(?i)^(how\s+(to|do\s+i|can\s+i)|steps?\s+to|what\s+are\s+the\s+steps\s+to)\s+`)
	factualMarkerPattern    = regexp.MustCompile(`(?i)^(what|who|when|where|which)\s+(is|are|was|were)\s+`)

	conjunctiveSplitPattern = regexp.MustCompile(`(?i)\s*(?:;|,\s+and\s+|\s+and\s+also\s+)\s*`)
	sequenceSplitPattern    = regexp.MustCompile(`(?i)\s+(?:then|after\s+that)\s+`)
)

const (
	maxVariations    = 3
	maxSubQuestions  = 3
	minVariationLen  = 6
	minFragmentLen   = 11
	minConjunctLen   = 16
	minSequentialLen = 13
)

func classifyQuery(query string) domain.QueryType {
	switch {
	case factualPattern.MatchString(query):
		return domain.QueryFactual
	case comparativePattern.MatchString(query):
		return domain.QueryComparative
	case summaryPattern.MatchString(query):
		return domain.QuerySummary
	case proceduralPattern.MatchString(query):
		return domain.QueryProcedural
	default:
		return domain.QueryExploratory
	}
}

// generateVariations always keeps the original query first, adds type-specific
// reformulations, and caps the result at three entries. Variations shorter
// than six characters are dropped; duplicates are exact case-sensitive
// matches.
func generateVariations(query string, queryType domain.QueryType) []string {
	candidates := []string{query}

	switch queryType {
	case domain.QueryComparative:
		stripped := comparativeLeadPattern.ReplaceAllString(query, "")
		for _, fragment := range comparativeSplitPattern.Split(stripped, -1) {
			fragment = strings.TrimSpace(fragment)
			if len(fragment) > 10 {
				candidates = append(candidates, fragment)
			}
		}
	case domain.QuerySummary:
		candidates = append(candidates, strings.TrimSpace(summaryMarkerPattern.ReplaceAllString(query, "")))
	case domain.QueryProcedural:
		candidates = append(candidates, strings.TrimSpace(proceduralMarkerPattern.ReplaceAllString(query, "")))
	case domain.QueryFactual:
		candidates = append(candidates, strings.TrimSpace(factualMarkerPattern.ReplaceAllString(query, "")))
	}

	out := make([]string, 0, maxVariations)
	seen := make(map[string]struct{}, len(candidates))
	for i, candidate := range candidates {
		// The original query is always kept, even when short.
		if i > 0 && len(candidate) < minVariationLen {
			continue
		}
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
		if len(out) == maxVariations {
			break
		}
	}
	return out
}

// decomposeQuery splits a compound query into sub-questions on comparative,
// conjunctive or sequential markers. The minimum fragment length grows with
// how loose the trigger is; without a trigger the query comes back unchanged.
func decomposeQuery(query string) []string {
	type trigger struct {
		split  *regexp.Regexp
		minLen int
	}

	var chosen *trigger
	switch {
	case comparativePattern.MatchString(query):
		chosen = &trigger{split: comparativeSplitPattern, minLen: minFragmentLen}
	case conjunctiveSplitPattern.MatchString(query):
		chosen = &trigger{split: conjunctiveSplitPattern, minLen: minConjunctLen}
	case sequenceSplitPattern.MatchString(query):
		chosen = &trigger{split: sequenceSplitPattern, minLen: minSequentialLen}
	default:
		return []string{query}
	}

	stripped := comparativeLeadPattern.ReplaceAllString(query, "")
	fragments := chosen.split.Split(stripped, -1)

	out := make([]string, 0, maxSubQuestions)
	for _, fragment := range fragments {
		fragment = strings.TrimSpace(fragment)
		if len(fragment) < chosen.minLen {
			continue
		}
		out = append(out, fragment)
		if len(out) == maxSubQuestions {
			break
		}
	}
	if len(out) == 0 {
		return []string{query}
	}
	return out
}
