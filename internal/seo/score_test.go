package seo

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFixtureContent produces a body with three <h2> sections, a list,
// the keyword inside the first 100 words and well over 2000 words total.
func buildFixtureContent(keyword string) string {
	var b strings.Builder
	b.WriteString("This article covers " + keyword + " in depth. ")
	b.WriteString("<h2>Overview</h2> <h2>Details</h2> <h2>Verdict</h2> ")
	b.WriteString("<ul><li>first point</li><li>second point</li></ul> ")
	b.WriteString(strings.Repeat("filler ", 2200))
	return b.String()
}

func TestScoreDocumentedFixture(t *testing.T) {
	t.Parallel()

	keyword := "best running shoes"
	in := ScoreInput{
		Content:         buildFixtureContent(keyword),
		Title:           "Best Running Shoes for Beginners in 2026 Review",
		MetaDescription: keyword + " " + strings.Repeat("a", 121),
		Keyword:         keyword,
		Readability:     62,
		KeywordDensity:  map[string]float64{keyword: 1.5},
	}

	require.Len(t, in.MetaDescription, 140)
	require.GreaterOrEqual(t, len(in.Title), 40)
	require.LessOrEqual(t, len(in.Title), 70)

	// title 20 + meta 15 + length 15 + keyword 20 + readability 15 +
	// structure (h2 5 + list 4 + three h2s 3) = 97.
	assert.Equal(t, 97, Score(in))
}

func TestScoreCountsCharactersNotBytes(t *testing.T) {
	t.Parallel()

	keyword := "prawo najmu"
	polish := ScoreInput{
		Content:         buildFixtureContent(keyword),
		Title:           keyword + " " + strings.Repeat("ż", 38),  // 50 characters, 88 bytes
		MetaDescription: keyword + " " + strings.Repeat("ó", 130), // 142 characters
		Keyword:         keyword,
		Readability:     62,
		KeywordDensity:  map[string]float64{keyword: 1.5},
	}
	ascii := polish
	ascii.Title = keyword + " " + strings.Repeat("z", 38)
	ascii.MetaDescription = keyword + " " + strings.Repeat("o", 130)

	require.Greater(t, len(polish.Title), 70, "fixture must overflow the band in bytes")
	require.LessOrEqual(t, utf8.RuneCountInString(polish.Title), 70)

	// The length bands judge characters, so the dialect of the letters
	// must not change the score.
	assert.Equal(t, Score(ascii), Score(polish))
	assert.Equal(t, 97, Score(polish))
}

func TestScoreEmptyInput(t *testing.T) {
	t.Parallel()

	got := Score(ScoreInput{})
	assert.GreaterOrEqual(t, got, 0)
	assert.LessOrEqual(t, got, 100)
}

func TestScoreCappedAt100(t *testing.T) {
	t.Parallel()

	keyword := "best running shoes"
	in := ScoreInput{
		Content: buildFixtureContent(keyword) +
			" <h3>Sub</h3>", // h3 adds the last structure points
		Title:           "Best Running Shoes for Beginners in 2026 Review",
		MetaDescription: keyword + " " + strings.Repeat("a", 121),
		Keyword:         keyword,
		Readability:     62,
		KeywordDensity:  map[string]float64{keyword: 1.5},
	}

	assert.Equal(t, 100, Score(in))
}

func TestScoreAcceptsMarkdownStructure(t *testing.T) {
	t.Parallel()

	markdown := "## First\n\ntext\n\n## Second\n\n- a bullet\n- another\n\n### Deep\n\nmore"
	html := "<h2>First</h2> text <h2>Second</h2> <ul><li>a</li></ul> <h3>Deep</h3> more"

	mdScore := Score(ScoreInput{Content: markdown})
	htmlScore := Score(ScoreInput{Content: html})

	// Structure points must not depend on the markup dialect.
	assert.Equal(t, htmlScore, mdScore)
	assert.Equal(t, 12, mdScore) // h2 5 + h3 3 + list 4, only two h2 sections
}

func TestScoreDensityBands(t *testing.T) {
	t.Parallel()

	base := ScoreInput{Keyword: "kw"}

	ideal := base
	ideal.KeywordDensity = map[string]float64{"kw": 1.8}

	acceptable := base
	acceptable.KeywordDensity = map[string]float64{"kw": 2.8}

	thin := base
	thin.KeywordDensity = map[string]float64{"kw": 0.2}

	assert.Equal(t, 15, Score(ideal))
	assert.Equal(t, 10, Score(acceptable))
	assert.Equal(t, 5, Score(thin))
}
