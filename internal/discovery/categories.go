package discovery

import "strings"

// DefaultCategory labels topics that match no category keywords.
const DefaultCategory = "general"

// DefaultCategories is the built-in category→keyword table used for the
// keyword vote when the caller supplies no table of its own.
var DefaultCategories = map[string][]string{
	"technology": {"software", "startup", "app", "cloud", "device", "platform"},
	"ai":         {"ai", "machine learning", "model", "neural", "chatbot", "llm"},
	"business":   {"market", "company", "revenue", "acquisition", "investor", "startup"},
	"finance":    {"tax", "loan", "interest", "inflation", "budget", "bank"},
	"legal":      {"law", "regulation", "court", "ruling", "contract", "compliance"},
	"health":     {"health", "treatment", "clinic", "diet", "therapy", "vaccine"},
}

// DetectCategory runs a keyword vote over the table and returns the
// category with the most hits in the text, or DefaultCategory when
// nothing matches. Ties resolve to the lexicographically first category
// so the result is deterministic.
func DetectCategory(text string, table map[string][]string) string {
	lower := strings.ToLower(text)

	best := DefaultCategory
	bestScore := 0
	for category, keywords := range table {
		score := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore || (score == bestScore && score > 0 && category < best) {
			best = category
			bestScore = score
		}
	}

	return best
}

// MapKeywordsToCategories translates a schedule's target keywords into the
// category allow-list discovery filters on. Keywords matching no category
// produce no entry; an empty result means "no filter".
func MapKeywordsToCategories(keywords []string, table map[string][]string) []string {
	seen := make(map[string]struct{})
	var categories []string

	for _, keyword := range keywords {
		lower := strings.ToLower(keyword)
		for category, categoryKeywords := range table {
			for _, kw := range categoryKeywords {
				if strings.Contains(lower, kw) {
					if _, ok := seen[category]; !ok {
						seen[category] = struct{}{}
						categories = append(categories, category)
					}
					break
				}
			}
		}
	}

	return categories
}
