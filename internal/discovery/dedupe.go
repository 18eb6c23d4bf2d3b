package discovery

import (
	"strings"
	"unicode"
)

// normalizeTitle lowercases a title and collapses every run of non-word
// characters into a single space so that punctuation and spacing
// differences do not defeat deduplication.
func normalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	lastSpace := true
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteRune(' ')
			lastSpace = true
		}
	}

	return strings.TrimSpace(b.String())
}

// titlesSimilar compares two normalized titles by Jaccard similarity of
// their word sets; above 0.5 the titles cover the same story.
func titlesSimilar(a, b string) bool {
	return jaccard(wordSet(a), wordSet(b)) > 0.5
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection

	return float64(intersection) / float64(union)
}
