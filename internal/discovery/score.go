package discovery

import (
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"autoblogger/internal/domain"
)

// DefaultVocabulary is the built-in relevance keyword list. Deployments
// targeting a niche replace it through the engine config.
var DefaultVocabulary = []string{
	"guide", "review", "update", "release", "change", "regulation",
	"trend", "strategy", "tips", "comparison", "analysis", "report",
}

// defaultActionWords are interrogative/action tokens that signal
// search-friendly titles.
var defaultActionWords = []string{"how", "what", "when", "why", "where", "which"}

// relevanceScore starts at 0.5 and adds 0.05 per vocabulary keyword found
// in the title or description, capped at 1.0.
func relevanceScore(topic domain.DiscoveredTopic, vocabulary []string) float64 {
	text := strings.ToLower(topic.Title + " " + topic.Description)

	score := 0.5
	for _, keyword := range vocabulary {
		if strings.Contains(text, strings.ToLower(keyword)) {
			score += 0.05
		}
	}

	return min(score, 1.0)
}

// freshnessScore tiers by the age of the publication date; topics without
// a date sit exactly in the middle.
func freshnessScore(topic domain.DiscoveredTopic, now time.Time) float64 {
	if topic.PublishedAt == nil {
		return 0.5
	}

	ageDays := int(now.Sub(*topic.PublishedAt).Hours() / 24)
	switch {
	case ageDays <= 1:
		return 1.0
	case ageDays <= 3:
		return 0.9
	case ageDays <= 7:
		return 0.7
	case ageDays <= 14:
		return 0.5
	case ageDays <= 30:
		return 0.3
	default:
		return 0.1
	}
}

// seoPotentialScore rewards title traits that correlate with search
// performance: length, digits, a near-current year and interrogatives.
func seoPotentialScore(topic domain.DiscoveredTopic, now time.Time, actionWords []string) float64 {
	score := 0.5
	title := topic.Title
	titleLower := strings.ToLower(title)

	switch length := utf8.RuneCountInString(title); {
	case length >= 40 && length <= 70:
		score += 0.2
	case length >= 30 && length <= 80:
		score += 0.1
	}

	if strings.ContainsFunc(title, unicode.IsDigit) {
		score += 0.1
	}

	// Last, current or next year counts as timely.
	for year := now.Year() - 1; year <= now.Year()+1; year++ {
		if strings.Contains(title, strconv.Itoa(year)) {
			score += 0.15
			break
		}
	}

	for _, word := range actionWords {
		if strings.Contains(titleLower, word) {
			score += 0.1
			break
		}
	}

	return min(score, 1.0)
}
