// Package feed implements the RSS/Atom feed source adapter on gofeed.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"autoblogger/internal/domain"
	"autoblogger/internal/ports"
	"autoblogger/internal/sources"
)

const (
	defaultMaxItems      = 20
	defaultFetchTimeout  = 30 * time.Second
	maxDescriptionChars  = 500
	userAgent            = "autoblogger/1.0 (+feed-fetcher)"
)

// Kind is the adapter kind the RSS source registers under.
const Kind = "rss"

// RSSSource fetches one RSS or Atom feed.
type RSSSource struct {
	name     string
	category string
	url      string
	maxItems int
	client   *http.Client
}

var _ ports.FeedSource = (*RSSSource)(nil)

// NewRSSSource validates the source config and builds the adapter.
func NewRSSSource(cfg sources.Config) (*RSSSource, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("rss source requires a url")
	}
	if !strings.HasPrefix(cfg.URL, "http://") && !strings.HasPrefix(cfg.URL, "https://") {
		return nil, fmt.Errorf("rss source url must be http(s): %s", cfg.URL)
	}

	maxItems := cfg.MaxItems
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	return &RSSSource{
		name:     cfg.Name,
		category: cfg.Category,
		url:      cfg.URL,
		maxItems: maxItems,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// Register adds the RSS factory to a source registry.
func Register(registry *sources.Registry) {
	registry.Register(Kind, func(cfg sources.Config) (ports.FeedSource, error) {
		return NewRSSSource(cfg)
	})
}

func (s *RSSSource) Name() string     { return s.name }
func (s *RSSSource) Category() string { return s.category }

// Fetch downloads and parses the feed, returning at most maxItems
// entries with HTML-cleaned descriptions.
func (s *RSSSource) Fetch(ctx context.Context) ([]domain.FeedEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	entries := make([]domain.FeedEntry, 0, min(len(parsed.Items), s.maxItems))
	for _, item := range parsed.Items {
		if len(entries) == s.maxItems {
			break
		}

		description := item.Description
		if description == "" {
			description = item.Content
		}

		entries = append(entries, domain.FeedEntry{
			Title:       strings.TrimSpace(item.Title),
			Description: clipRunes(cleanHTML(description), maxDescriptionChars),
			SourceURL:   item.Link,
			PublishedAt: entryTime(item),
		})
	}

	return entries, nil
}

func entryTime(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

var whitespaceExpr = regexp.MustCompile(`\s+`)

// cleanHTML flattens feed-entry markup to plain text.
func cleanHTML(html string) string {
	if html == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}

	return strings.TrimSpace(whitespaceExpr.ReplaceAllString(doc.Text(), " "))
}

func clipRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
