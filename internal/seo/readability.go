package seo

import (
	"strings"
	"unicode"
)

// neutralReadability is returned when the text cannot be measured, so a
// degenerate article never fails the pipeline on readability alone.
const neutralReadability = 50.0

// Readability computes a Flesch-Reading-Ease-style score (0-100, higher
// is easier) over the markup-stripped content. Empty content scores 0.
func Readability(content string) float64 {
	clean := StripMarkup(content)
	if clean == "" {
		return 0
	}

	words := strings.Fields(clean)
	sentences := countSentences(clean)
	if len(words) == 0 || sentences == 0 {
		return neutralReadability
	}

	syllables := 0
	for _, word := range words {
		syllables += countSyllables(word)
	}

	score := 206.835 -
		1.015*(float64(len(words))/float64(sentences)) -
		84.6*(float64(syllables)/float64(len(words)))

	return max(0, min(100, score))
}

func countSentences(text string) int {
	count := 0
	for _, part := range sentenceSplitExpr.Split(text, -1) {
		if strings.TrimSpace(part) != "" {
			count++
		}
	}
	return count
}

// countSyllables approximates syllables as vowel groups, with the usual
// silent-e correction. Every word counts at least one.
func countSyllables(word string) int {
	word = strings.ToLower(word)

	groups := 0
	previousVowel := false
	for _, r := range word {
		vowel := isVowel(r)
		if vowel && !previousVowel {
			groups++
		}
		previousVowel = vowel
	}

	if groups > 1 && strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") {
		groups--
	}
	if groups == 0 {
		groups = 1
	}
	return groups
}

func isVowel(r rune) bool {
	switch unicode.ToLower(r) {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}
