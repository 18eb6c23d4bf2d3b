package discovery

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"autoblogger/internal/domain"
	"autoblogger/internal/ports"
)

const maxEntryAge = 30 * 24 * time.Hour

// Config tunes the discovery engine. Zero values fall back to the
// package defaults.
type Config struct {
	Vocabulary  []string            // relevance keyword list
	Categories  map[string][]string // category→keyword vote table
	ActionWords []string            // interrogative tokens for SEO potential
}

// Engine aggregates feed sources into a ranked, deduplicated topic list.
type Engine struct {
	sources     []ports.FeedSource
	vocabulary  []string
	categories  map[string][]string
	actionWords []string
	now         func() time.Time
	logger      *slog.Logger
}

// Options scope a single discovery call.
type Options struct {
	Categories    []string // allow-list; empty means no filter
	MaxTopics     int
	ExcludeTitles []string // titles already covered by earlier posts
}

// NewEngine wires the feed sources with the scoring configuration.
func NewEngine(sources []ports.FeedSource, cfg Config, logger *slog.Logger) *Engine {
	vocabulary := cfg.Vocabulary
	if len(vocabulary) == 0 {
		vocabulary = DefaultVocabulary
	}
	categories := cfg.Categories
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	actionWords := cfg.ActionWords
	if len(actionWords) == 0 {
		actionWords = defaultActionWords
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		sources:     sources,
		vocabulary:  vocabulary,
		categories:  categories,
		actionWords: actionWords,
		now:         time.Now,
		logger:      logger,
	}
}

// CategoryTable exposes the vote table so callers can map schedule
// keywords onto the same categories the engine detects.
func (e *Engine) CategoryTable() map[string][]string {
	return e.categories
}

// Discover fetches every source concurrently, drops stale and duplicate
// entries, scores the survivors and returns them ranked best-first. An
// empty result means no topic is available; it is not an error, even
// when every source failed.
func (e *Engine) Discover(ctx context.Context, opts Options) []domain.DiscoveredTopic {
	now := e.now().UTC()
	collected := e.fetchAll(ctx, now)

	if len(opts.Categories) > 0 {
		allowed := make(map[string]struct{}, len(opts.Categories))
		for _, c := range opts.Categories {
			allowed[c] = struct{}{}
		}
		kept := collected[:0]
		for _, topic := range collected {
			if _, ok := allowed[topic.Category]; ok {
				kept = append(kept, topic)
			}
		}
		collected = kept
	}

	topics := e.deduplicate(collected, opts.ExcludeTitles)

	for i := range topics {
		topics[i].RelevanceScore = relevanceScore(topics[i], e.vocabulary)
		topics[i].FreshnessScore = freshnessScore(topics[i], now)
		topics[i].SEOPotential = seoPotentialScore(topics[i], now, e.actionWords)
	}

	// Stable keeps the original fetch order for equal scores.
	sort.SliceStable(topics, func(i, j int) bool {
		return topics[i].CombinedScore() > topics[j].CombinedScore()
	})

	if opts.MaxTopics > 0 && len(topics) > opts.MaxTopics {
		topics = topics[:opts.MaxTopics]
	}

	e.logger.Info("discovery finished",
		"sources", len(e.sources), "topics", len(topics))

	return topics
}

// fetchAll runs every source concurrently with per-source isolation: a
// slow or failing feed only costs its own entries.
func (e *Engine) fetchAll(ctx context.Context, now time.Time) []domain.DiscoveredTopic {
	results := make([][]domain.DiscoveredTopic, len(e.sources))

	var wg sync.WaitGroup
	for i, source := range e.sources {
		wg.Add(1)
		go func(i int, source ports.FeedSource) {
			defer wg.Done()

			entries, err := source.Fetch(ctx)
			if err != nil {
				e.logger.Error("feed fetch failed",
					"source", source.Name(), "error", err)
				return
			}
			results[i] = e.toTopics(source, entries, now)
		}(i, source)
	}
	wg.Wait()

	var collected []domain.DiscoveredTopic
	for _, batch := range results {
		collected = append(collected, batch...)
	}
	return collected
}

func (e *Engine) toTopics(source ports.FeedSource, entries []domain.FeedEntry, now time.Time) []domain.DiscoveredTopic {
	topics := make([]domain.DiscoveredTopic, 0, len(entries))
	for _, entry := range entries {
		if entry.PublishedAt != nil && now.Sub(*entry.PublishedAt) > maxEntryAge {
			continue
		}

		topics = append(topics, domain.DiscoveredTopic{
			Title:       entry.Title,
			Description: entry.Description,
			Source:      source.Name(),
			SourceURL:   entry.SourceURL,
			Category:    DetectCategory(entry.Title+" "+entry.Description, e.categories),
			PublishedAt: entry.PublishedAt,
		})
	}
	return topics
}

// deduplicate drops exact and near-duplicate titles, both within the
// batch and against already-covered titles.
func (e *Engine) deduplicate(topics []domain.DiscoveredTopic, covered []string) []domain.DiscoveredTopic {
	coveredNorm := make([]string, 0, len(covered))
	for _, title := range covered {
		coveredNorm = append(coveredNorm, normalizeTitle(title))
	}

	seen := make(map[string]struct{})
	unique := make([]domain.DiscoveredTopic, 0, len(topics))

	for _, topic := range topics {
		normalized := normalizeTitle(topic.Title)
		if _, ok := seen[normalized]; ok {
			continue
		}

		isCovered := false
		for _, existing := range coveredNorm {
			if titlesSimilar(normalized, existing) {
				isCovered = true
				break
			}
		}
		if isCovered {
			continue
		}

		for prior := range seen {
			if titlesSimilar(normalized, prior) {
				isCovered = true
				break
			}
		}
		if isCovered {
			continue
		}

		seen[normalized] = struct{}{}
		unique = append(unique, topic)
	}

	return unique
}

// FilterExcluded removes topics whose title or description mentions any
// of the schedule's exclude keywords.
func FilterExcluded(topics []domain.DiscoveredTopic, excludeKeywords []string) []domain.DiscoveredTopic {
	if len(excludeKeywords) == 0 {
		return topics
	}

	filtered := make([]domain.DiscoveredTopic, 0, len(topics))
	for _, topic := range topics {
		text := strings.ToLower(topic.Title + " " + topic.Description)
		excluded := false
		for _, keyword := range excludeKeywords {
			if strings.Contains(text, strings.ToLower(keyword)) {
				excluded = true
				break
			}
		}
		if !excluded {
			filtered = append(filtered, topic)
		}
	}

	return filtered
}
