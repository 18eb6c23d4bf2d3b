package discovery

import (
	"strings"
	"testing"
	"time"

	"autoblogger/internal/domain"
)

func TestFreshnessScoreTiers(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 17, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		ageDays int
		want    float64
	}{
		{0, 1.0},
		{1, 1.0},
		{2, 0.9},
		{3, 0.9},
		{5, 0.7},
		{10, 0.5},
		{20, 0.3},
		{45, 0.1},
	}

	for _, tc := range cases {
		published := now.AddDate(0, 0, -tc.ageDays)
		topic := domain.DiscoveredTopic{PublishedAt: &published}
		if got := freshnessScore(topic, now); got != tc.want {
			t.Fatalf("age %d days: expected %v, got %v", tc.ageDays, tc.want, got)
		}
	}
}

func TestFreshnessScoreUnknownDate(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	if got := freshnessScore(domain.DiscoveredTopic{}, now); got != 0.5 {
		t.Fatalf("expected exactly 0.5 for unknown date, got %v", got)
	}
}

func TestRelevanceScore(t *testing.T) {
	t.Parallel()

	vocabulary := []string{"guide", "review", "update"}

	topic := domain.DiscoveredTopic{Title: "No matches here"}
	if got := relevanceScore(topic, vocabulary); got != 0.5 {
		t.Fatalf("expected base 0.5, got %v", got)
	}

	topic = domain.DiscoveredTopic{
		Title:       "Complete guide to the latest update",
		Description: "An in-depth review",
	}
	if got := relevanceScore(topic, vocabulary); got != 0.65 {
		t.Fatalf("expected 0.65 for three matches, got %v", got)
	}
}

func TestRelevanceScoreCapped(t *testing.T) {
	t.Parallel()

	vocabulary := make([]string, 0, 20)
	for range 20 {
		vocabulary = append(vocabulary, "topic")
	}

	topic := domain.DiscoveredTopic{Title: "topic"}
	if got := relevanceScore(topic, vocabulary); got != 1.0 {
		t.Fatalf("expected cap at 1.0, got %v", got)
	}
}

func TestSEOPotentialScore(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 17, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		title string
		want  float64
	}{
		{"bare short title", "Short news", 0.5},
		// 40-70 chars: +0.2
		{"good length", "A sentence that lands inside the sweet spot.", 0.7},
		// digit +0.1, current year +0.15
		{"digits and year", "Top 5 trends of 2026", 0.75},
		// interrogative +0.1, 30-80 chars +0.1
		{"question", "How should anyone pick a laptop?", 0.7},
	}

	for _, tc := range cases {
		topic := domain.DiscoveredTopic{Title: tc.title}
		got := seoPotentialScore(topic, now, defaultActionWords)
		if !almostEqual(got, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestSEOPotentialScoreCountsCharacters(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 17, 12, 0, 0, 0, time.UTC)

	// 50 characters but 100 bytes of UTF-8; the length bonus keys on
	// characters.
	topic := domain.DiscoveredTopic{Title: strings.Repeat("ż", 50)}
	if got := seoPotentialScore(topic, now, defaultActionWords); !almostEqual(got, 0.7) {
		t.Fatalf("expected 0.7 for a 50-character title, got %v", got)
	}
}

// A two-day-old legal headline with a near-current year must rank as
// relevant, fresh and search-friendly.
func TestLegalHeadlineScoring(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	published := now.AddDate(0, 0, -2)

	topic := domain.DiscoveredTopic{
		Title:       "Zmiana w prawie najmu 2025",
		Description: "Nowe prawo najmu wchodzi w zycie",
		PublishedAt: &published,
	}
	vocabulary := []string{"prawo", "najem", "mieszkanie", "umowa"}

	if got := relevanceScore(topic, vocabulary); got < 0.55 {
		t.Fatalf("expected relevance >= 0.55, got %v", got)
	}
	if got := freshnessScore(topic, now); got != 0.9 {
		t.Fatalf("expected freshness 0.9, got %v", got)
	}
	// Title under 40 chars: no length bonus, but digit and year count.
	if got := seoPotentialScore(topic, now, defaultActionWords); got < 0.65 {
		t.Fatalf("expected seo potential >= 0.65, got %v", got)
	}
}

func almostEqual(a, b float64) bool {
	diff := a - b
	return diff < 1e-9 && diff > -1e-9
}
