package seo

import (
	"math"
	"strings"
)

// KeywordDensity returns the density percentage of each keyword in the
// markup-stripped content, rounded to two decimals. Occurrences are
// counted as substrings, so multi-word keywords work unchanged.
func KeywordDensity(content string, keywords []string) map[string]float64 {
	clean := strings.ToLower(StripMarkup(content))
	totalWords := len(strings.Fields(clean))
	if totalWords == 0 {
		return map[string]float64{}
	}

	densities := make(map[string]float64, len(keywords))
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		count := strings.Count(clean, strings.ToLower(keyword))
		density := float64(count) / float64(totalWords) * 100
		densities[keyword] = math.Round(density*100) / 100
	}

	return densities
}
