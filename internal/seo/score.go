package seo

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ScoreInput carries everything the composite scorer needs. Readability
// and KeywordDensity are passed in so Score stays a pure function that
// tests can drive with fixed values.
type ScoreInput struct {
	Content         string
	Title           string
	MetaDescription string
	Keyword         string
	Readability     float64
	KeywordDensity  map[string]float64
}

var (
	mdH2Expr       = regexp.MustCompile(`(?m)^##\s`)
	mdH3Expr       = regexp.MustCompile(`(?m)^###\s`)
	mdListItemExpr = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+\.)\s`)
)

// Score computes the composite SEO score, 0-100. Category budgets:
// title 20, meta description 15, content length 15, keyword usage 20,
// readability 15, structure 15.
func Score(in ScoreInput) int {
	score := 0
	keywordLower := strings.ToLower(in.Keyword)
	titleLower := strings.ToLower(in.Title)

	// Title (20)
	if keywordLower != "" && strings.Contains(titleLower, keywordLower) {
		score += 10
	}
	if l := utf8.RuneCountInString(in.Title); l >= 40 && l <= 70 {
		score += 5
	}
	if keywordLower != "" && strings.HasPrefix(titleLower, head(keywordLower, 10)) {
		score += 5
	}

	// Meta description (15)
	metaLower := strings.ToLower(in.MetaDescription)
	if keywordLower != "" && strings.Contains(metaLower, keywordLower) {
		score += 8
	}
	if l := utf8.RuneCountInString(in.MetaDescription); l >= 120 && l <= 160 {
		score += 7
	}

	// Content length (15)
	words := strings.Fields(in.Content)
	switch wordCount := len(words); {
	case wordCount >= 2000:
		score += 15
	case wordCount >= 1500:
		score += 12
	case wordCount >= 1000:
		score += 8
	case wordCount >= 500:
		score += 5
	}

	// Keyword usage (20): density 15 + early placement 5.
	switch density := in.KeywordDensity[in.Keyword]; {
	case density >= 1.0 && density <= 2.5:
		score += 15
	case density >= 0.5 && density <= 3.0:
		score += 10
	case density > 0:
		score += 5
	}
	if keywordLower != "" && len(words) > 0 {
		first := words
		if len(first) > 100 {
			first = first[:100]
		}
		if strings.Contains(strings.ToLower(strings.Join(first, " ")), keywordLower) {
			score += 5
		}
	}

	// Readability (15)
	switch {
	case in.Readability >= 50 && in.Readability <= 70:
		score += 15
	case in.Readability >= 40 && in.Readability <= 80:
		score += 10
	case in.Readability > 30:
		score += 5
	}

	// Structure (15)
	if headingLevel2Count(in.Content) > 0 {
		score += 5
	}
	if strings.Contains(in.Content, "<h3>") || mdH3Expr.MatchString(in.Content) {
		score += 3
	}
	if hasListMarker(in.Content) {
		score += 4
	}
	if headingLevel2Count(in.Content) >= 3 {
		score += 3
	}

	return min(score, 100)
}

// headingLevel2Count accepts both HTML and markdown section markers;
// generated content may arrive in either form.
func headingLevel2Count(content string) int {
	return strings.Count(content, "<h2>") + len(mdH2Expr.FindAllStringIndex(content, -1))
}

func hasListMarker(content string) bool {
	return strings.Contains(content, "<ul>") ||
		strings.Contains(content, "<ol>") ||
		mdListItemExpr.MatchString(content)
}

// head returns the first n characters, never splitting a rune.
func head(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
