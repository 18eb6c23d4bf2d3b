package domain

import (
	"time"

	"github.com/google/uuid"
)

// PostStatus enumerates the lifecycle states of a generated post.
type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusScheduled PostStatus = "scheduled"
	StatusPublished PostStatus = "published"
	StatusFailed    PostStatus = "failed"
)

// GenerationResult is the structured output of one content generation run.
type GenerationResult struct {
	Title           string
	Content         string
	MetaTitle       string // at most 70 chars
	MetaDescription string // at most 160 chars
	Keywords        []string
	TokensUsed      int
	WordCount       int
}

// QualityAssessment holds the SEO metrics computed for a generation result.
type QualityAssessment struct {
	ReadabilityScore float64            // Flesch reading ease, 0-100
	KeywordDensity   map[string]float64 // keyword -> density percent
	SEOScore         int                // composite, 0-100
}

// Post is the persisted content artifact produced by the pipeline.
type Post struct {
	ID      uuid.UUID
	AgentID uuid.UUID

	Title   string
	Slug    string
	Content string

	MetaTitle       string
	MetaDescription string
	Keywords        []string

	WordCount        int
	ReadabilityScore float64
	KeywordDensity   map[string]float64
	SEOScore         int

	Status      PostStatus
	PublishedAt *time.Time

	SourceURLs []string
	TokensUsed int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UsageEntry is one audit record for the usage sink.
type UsageEntry struct {
	TenantID   uuid.UUID
	AgentID    uuid.UUID
	Action     string
	TokensUsed int
	Cost       float64
	Metadata   map[string]any
}
