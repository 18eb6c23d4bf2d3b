// Package generate drives the language-model calls that turn a topic
// into a full GenerationResult: body, meta title, meta description and
// keyword list.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"autoblogger/internal/domain"
	"autoblogger/internal/ports"
)

const (
	placeholderTitle  = "Untitled Post"
	maxMetaTitleLen   = 70
	maxMetaDescLen    = 160
	maxFallbackTitle  = 100
	metaCallMaxTokens = 300
)

// Request describes one generation run.
type Request struct {
	Agent          domain.Agent
	Topic          string
	Keyword        string
	Length         domain.PostLength
	SourcesContent string // enrichment context fed into the post prompt
}

// Orchestrator sequences the four model calls of a generation run. The
// calls are strictly sequential: the three metadata calls read the body.
type Orchestrator struct {
	generator ports.TextGenerator
	logger    *slog.Logger
}

func NewOrchestrator(generator ports.TextGenerator, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{generator: generator, logger: logger}
}

// Generate produces the structured result for one post. Any model
// failure is fatal and propagated; only the keyword JSON parse degrades
// to an empty list.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (domain.GenerationResult, error) {
	systemPrompt := buildSystemPrompt(req.Agent)

	topic := req.Topic
	if topic == "" {
		topic = fmt.Sprintf("Latest trends in %s", req.Agent.Expertise)
	}

	body, err := o.generator.Generate(ctx, ports.GenerateRequest{
		Prompt:       buildPostPrompt(topic, req.Keyword, req.Length, req.SourcesContent),
		SystemPrompt: systemPrompt,
	})
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("generate content: %w", err)
	}
	if strings.TrimSpace(body.Text) == "" {
		return domain.GenerationResult{}, fmt.Errorf("generated content is empty")
	}

	metaTitle, err := o.generator.Generate(ctx, ports.GenerateRequest{
		Prompt:    buildMetaTitlePrompt(body.Text, req.Keyword),
		MaxTokens: metaCallMaxTokens,
	})
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("generate meta title: %w", err)
	}

	metaDescription, err := o.generator.Generate(ctx, ports.GenerateRequest{
		Prompt:    buildMetaDescriptionPrompt(body.Text, req.Keyword),
		MaxTokens: metaCallMaxTokens,
	})
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("generate meta description: %w", err)
	}

	keywordsRaw, err := o.generator.Generate(ctx, ports.GenerateRequest{
		Prompt:    buildKeywordsPrompt(body.Text),
		MaxTokens: metaCallMaxTokens,
	})
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("extract keywords: %w", err)
	}

	keywords := parseKeywords(keywordsRaw.Text)
	if keywords == nil {
		o.logger.Warn("keyword extraction returned no parseable JSON array")
	}

	result := domain.GenerationResult{
		Title:           ExtractTitle(body.Text),
		Content:         body.Text,
		MetaTitle:       clip(strings.TrimSpace(metaTitle.Text), maxMetaTitleLen),
		MetaDescription: clip(strings.TrimSpace(metaDescription.Text), maxMetaDescLen),
		Keywords:        keywords,
		TokensUsed: body.TokensUsed + metaTitle.TokensUsed +
			metaDescription.TokensUsed + keywordsRaw.TokensUsed,
		WordCount: len(strings.Fields(body.Text)),
	}

	o.logger.Info("post generated",
		"words", result.WordCount, "tokens", result.TokensUsed)

	return result, nil
}

// parseKeywords decodes the JSON array the keyword call is expected to
// return. A parse failure is non-fatal and yields nil.
func parseKeywords(response string) []string {
	trimmed := strings.TrimSpace(response)

	// Tolerate prose around the array.
	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start < 0 || end < start {
		return nil
	}

	var keywords []string
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &keywords); err != nil {
		return nil
	}
	return keywords
}

// ExtractTitle pulls the article title out of the generated body: the
// first level-1 or level-2 markdown heading, else the first non-empty
// non-heading line clipped to 100 chars, else a fixed placeholder.
func ExtractTitle(content string) string {
	lines := strings.Split(strings.TrimSpace(content), "\n")

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(after)
		}
		if after, ok := strings.CutPrefix(line, "## "); ok {
			return strings.TrimSpace(after)
		}
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			return clip(line, maxFallbackTitle)
		}
	}

	return placeholderTitle
}

// clip truncates to a maximum number of characters. Byte slicing would
// split multibyte runes and produce invalid UTF-8.
func clip(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
