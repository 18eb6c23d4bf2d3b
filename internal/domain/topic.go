package domain

import "time"

// FeedEntry is a raw item fetched from an external feed source.
type FeedEntry struct {
	Title       string
	Description string
	SourceURL   string
	PublishedAt *time.Time
}

// DiscoveredTopic is a scored article candidate produced by one discovery run.
// It lives only for the duration of the run.
type DiscoveredTopic struct {
	Title       string
	Description string
	Source      string
	SourceURL   string
	Category    string
	PublishedAt *time.Time

	RelevanceScore float64
	FreshnessScore float64
	SEOPotential   float64

	// Filled by enrichment.
	SuggestedTitle    string
	SuggestedKeywords []string
	SuggestedAngle    string
}

// CombinedScore is the unweighted mean of the three topic scores and
// defines the final discovery ranking.
func (t DiscoveredTopic) CombinedScore() float64 {
	return (t.RelevanceScore + t.FreshnessScore + t.SEOPotential) / 3
}

// MainKeyword picks the keyword the generated post should target:
// the first AI suggestion when present, otherwise the topic category.
func (t DiscoveredTopic) MainKeyword() string {
	if len(t.SuggestedKeywords) > 0 {
		return t.SuggestedKeywords[0]
	}
	return t.Category
}

// BestTitle prefers the AI-suggested title over the feed title.
func (t DiscoveredTopic) BestTitle() string {
	if t.SuggestedTitle != "" {
		return t.SuggestedTitle
	}
	return t.Title
}
