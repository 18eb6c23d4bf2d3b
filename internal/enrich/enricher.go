// Package enrich augments a discovered topic with AI-suggested SEO
// metadata. Enrichment is best-effort: a malformed model response
// degrades to deterministic fallbacks instead of failing the run.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"autoblogger/internal/domain"
	"autoblogger/internal/ports"
)

const (
	maxFallbackKeywords = 5
	suggestionMaxTokens = 500
)

// stopWords are dropped by the fallback keyword extractor.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "that": {},
	"this": {}, "your": {}, "about": {}, "into": {}, "over": {}, "after": {},
	"what": {}, "when": {}, "how": {}, "why": {}, "are": {}, "will": {},
}

// Enricher asks the text-generation capability for an SEO-tuned title,
// keyword list and content angle.
type Enricher struct {
	generator ports.TextGenerator
	logger    *slog.Logger
}

func NewEnricher(generator ports.TextGenerator, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{generator: generator, logger: logger}
}

type suggestions struct {
	SuggestedTitle    string   `json:"suggested_title"`
	SuggestedKeywords []string `json:"suggested_keywords"`
	SuggestedAngle    string   `json:"suggested_angle"`
}

// Enrich returns the topic with the suggestion fields filled. It never
// returns an error: on any model or parse failure the original title and
// keywords extracted from it are used instead.
func (e *Enricher) Enrich(ctx context.Context, topic domain.DiscoveredTopic) domain.DiscoveredTopic {
	generation, err := e.generator.Generate(ctx, ports.GenerateRequest{
		Prompt:    buildSuggestionPrompt(topic),
		MaxTokens: suggestionMaxTokens,
	})
	if err != nil {
		e.logger.Error("topic enrichment failed", "title", topic.Title, "error", err)
		return fallback(topic)
	}

	parsed, err := parseSuggestions(generation.Text)
	if err != nil {
		e.logger.Warn("unparseable enrichment response", "title", topic.Title, "error", err)
		return fallback(topic)
	}

	if parsed.SuggestedTitle == "" {
		parsed.SuggestedTitle = topic.Title
	}
	topic.SuggestedTitle = parsed.SuggestedTitle
	topic.SuggestedKeywords = parsed.SuggestedKeywords
	topic.SuggestedAngle = parsed.SuggestedAngle

	return topic
}

func buildSuggestionPrompt(topic domain.DiscoveredTopic) string {
	var b strings.Builder
	b.WriteString("Analyze the following article topic and propose SEO metadata.\n\n")
	fmt.Fprintf(&b, "TOPIC: %s\n", topic.Title)
	fmt.Fprintf(&b, "DESCRIPTION: %s\n", topic.Description)
	fmt.Fprintf(&b, "SOURCE: %s\n", topic.Source)
	fmt.Fprintf(&b, "CATEGORY: %s\n\n", topic.Category)
	b.WriteString(`Reply with JSON only, no extra text:
{
    "suggested_title": "SEO article title, 50-60 characters, contains the main keyword",
    "suggested_keywords": ["keyword1", "keyword2", "keyword3", "keyword4", "keyword5"],
    "suggested_angle": "What makes our article unique (1-2 sentences)"
}`)
	return b.String()
}

// parseSuggestions extracts the outermost JSON object from the response
// so that surrounding prose does not break decoding.
func parseSuggestions(response string) (suggestions, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end < start {
		return suggestions{}, fmt.Errorf("no JSON object in response")
	}

	var parsed suggestions
	if err := json.Unmarshal([]byte(response[start:end+1]), &parsed); err != nil {
		return suggestions{}, fmt.Errorf("decode suggestions: %w", err)
	}
	return parsed, nil
}

func fallback(topic domain.DiscoveredTopic) domain.DiscoveredTopic {
	topic.SuggestedTitle = topic.Title
	topic.SuggestedKeywords = ExtractKeywords(topic.Title)
	return topic
}

// ExtractKeywords pulls up to five stop-word-filtered tokens longer than
// three runes out of a title. It is the deterministic fallback when the
// model cannot be asked.
func ExtractKeywords(title string) []string {
	var keywords []string
	for _, word := range strings.Fields(normalizeWords(title)) {
		if utf8.RuneCountInString(word) <= 3 {
			continue
		}
		if _, ok := stopWords[word]; ok {
			continue
		}
		keywords = append(keywords, word)
		if len(keywords) == maxFallbackKeywords {
			break
		}
	}
	return keywords
}

func normalizeWords(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
}
