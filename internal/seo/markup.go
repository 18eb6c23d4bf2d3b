// Package seo computes the quality metrics of generated content:
// readability, keyword density and the composite 0-100 SEO score.
package seo

import (
	"regexp"
	"strings"
)

var (
	codeBlockExpr  = regexp.MustCompile("(?s)```.*?```")
	inlineCodeExpr = regexp.MustCompile("`[^`]+`")
	imageExpr      = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	linkExpr       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	emphasisExpr   = regexp.MustCompile(`[*_]{1,2}([^*_]+)[*_]{1,2}`)
	headingExpr    = regexp.MustCompile(`(?m)^#+\s+`)
	bulletExpr     = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numberedExpr   = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	ruleExpr       = regexp.MustCompile(`(?m)^[-*_]{3,}$`)
	quoteExpr      = regexp.MustCompile(`(?m)^>\s+`)
	htmlTagExpr    = regexp.MustCompile(`<[^>]*>`)
	blankRunExpr   = regexp.MustCompile(`\n{3,}`)
)

// StripMarkup removes markdown and HTML formatting so that readability
// and density are measured on prose, not on markers.
func StripMarkup(content string) string {
	content = codeBlockExpr.ReplaceAllString(content, "")
	content = inlineCodeExpr.ReplaceAllString(content, "")
	content = imageExpr.ReplaceAllString(content, "")
	content = linkExpr.ReplaceAllString(content, "$1")
	content = emphasisExpr.ReplaceAllString(content, "$1")
	content = headingExpr.ReplaceAllString(content, "")
	content = bulletExpr.ReplaceAllString(content, "")
	content = numberedExpr.ReplaceAllString(content, "")
	content = ruleExpr.ReplaceAllString(content, "")
	content = quoteExpr.ReplaceAllString(content, "")
	content = htmlTagExpr.ReplaceAllString(content, " ")
	content = blankRunExpr.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}

var sentenceSplitExpr = regexp.MustCompile(`[.!?]+`)

// Excerpt returns leading whole sentences of the stripped content up to
// maxLength characters, for schema/OG descriptions.
func Excerpt(content string, maxLength int) string {
	clean := StripMarkup(content)

	var excerpt strings.Builder
	for _, sentence := range sentenceSplitExpr.Split(clean, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if excerpt.Len()+len(sentence) > maxLength {
			break
		}
		excerpt.WriteString(sentence)
		excerpt.WriteString(". ")
	}

	return strings.TrimSpace(excerpt.String())
}
