package scorer

import (
	"fmt"
	"strings"

	"github.com/sells-group/trialwatch/internal/config"
)

// defaultSignalTerms are the built-in domain interest keywords, applied to
// every trial on top of the topic-specific list. Novel-modality terms
// weigh more than generic trial-design terms.
var defaultSignalTerms = []config.WeightedKeyword{
	{Keyword: "first-in-human", Weight: 6},
	{Keyword: "randomized", Weight: 4},
	{Keyword: "double-blind", Weight: 4},
	{Keyword: "platform", Weight: 4},
	{Keyword: "adaptive", Weight: 4},
	{Keyword: "pragmatic", Weight: 3},
	{Keyword: "mRNA", Weight: 8},
	{Keyword: "CRISPR", Weight: 8},
	{Keyword: "gene therapy", Weight: 8},
	{Keyword: "cell therapy", Weight: 7},
	{Keyword: "CAR-T", Weight: 7},
	{Keyword: "ADC", Weight: 7},
	{Keyword: "bispecific", Weight: 6},
	{Keyword: "AI", Weight: 5},
}

// Interesting scores keyword interest over the record text (titles,
// conditions, interventions), case-insensitive substring match. Topic
// keywords and the built-in signal terms are summed without deduplication
// across the two sources; a term on both lists counts twice.
func Interesting(recordText string, topicKeywords []config.WeightedKeyword) (int, []string) {
	var reasons []string
	score := 0
	text := strings.ToLower(recordText)

	for _, kw := range topicKeywords {
		k := strings.TrimSpace(kw.Keyword)
		if k == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(k)) {
			score += kw.Weight
			reasons = append(reasons, fmt.Sprintf("Keyword match: %s (+%d)", k, kw.Weight))
		}
	}

	for _, kw := range defaultSignalTerms {
		if strings.Contains(text, strings.ToLower(kw.Keyword)) {
			score += kw.Weight
			reasons = append(reasons, fmt.Sprintf("Signal term: %s (+%d)", kw.Keyword, kw.Weight))
		}
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "No interest keywords matched")
	}
	return clamp(score), reasons
}
