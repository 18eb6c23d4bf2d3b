package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoblogger/internal/discovery"
	"autoblogger/internal/domain"
	"autoblogger/internal/enrich"
	"autoblogger/internal/generate"
	"autoblogger/internal/ports"
	"autoblogger/internal/quota"
)

// fakeStore is an in-memory ports.Store and ports.UsageSink with the
// same atomicity rules as the Postgres implementation.
type fakeStore struct {
	mu sync.Mutex

	schedule domain.ScheduleConfig
	agent    domain.Agent
	tenant   domain.Tenant
	titles   []string

	finalized   []ports.CompletedRun
	failures    []uuid.UUID
	usage       []domain.UsageEntry
	finalizeErr error
}

func (s *fakeStore) Schedule(_ context.Context, id uuid.UUID) (domain.ScheduleConfig, error) {
	if id != s.schedule.ID {
		return domain.ScheduleConfig{}, fmt.Errorf("schedule %s: %w", id, domain.ErrScheduleNotFound)
	}
	return s.schedule, nil
}

func (s *fakeStore) DueSchedules(context.Context, time.Time) ([]domain.ScheduleConfig, error) {
	return []domain.ScheduleConfig{s.schedule}, nil
}

func (s *fakeStore) UpdateSchedule(_ context.Context, schedule domain.ScheduleConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedule = schedule
	return nil
}

func (s *fakeStore) RecordRunFailure(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, id)
	s.schedule.FailedPosts++
	s.schedule.LastRunAt = &at
	return nil
}

func (s *fakeStore) Post(_ context.Context, id uuid.UUID) (domain.Post, error) {
	for _, run := range s.finalized {
		if run.Post.ID == id {
			return run.Post, nil
		}
	}
	return domain.Post{}, fmt.Errorf("post %s: %w", id, domain.ErrPostNotFound)
}

func (s *fakeStore) PostTitles(context.Context, uuid.UUID) ([]string, error) {
	return s.titles, nil
}

func (s *fakeStore) Tenant(_ context.Context, id uuid.UUID) (domain.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.tenant.ID {
		return domain.Tenant{}, fmt.Errorf("tenant %s: %w", id, domain.ErrTenantNotFound)
	}
	return s.tenant, nil
}

func (s *fakeStore) AdjustTenantUsage(_ context.Context, id uuid.UUID, tokensDelta, postsDelta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.tenant.ID {
		return fmt.Errorf("tenant %s: %w", id, domain.ErrTenantNotFound)
	}
	if !s.tenant.HasTokens(tokensDelta) || !s.tenant.HasPosts(postsDelta) {
		return fmt.Errorf("tenant %s: %w", id, domain.ErrQuotaExceeded)
	}
	s.tenant.TokensUsed = max(s.tenant.TokensUsed+tokensDelta, 0)
	s.tenant.PostsUsed = max(s.tenant.PostsUsed+postsDelta, 0)
	return nil
}

func (s *fakeStore) Agent(_ context.Context, id uuid.UUID) (domain.Agent, error) {
	if id != s.agent.ID {
		return domain.Agent{}, fmt.Errorf("agent %s: %w", id, domain.ErrAgentUnavailable)
	}
	return s.agent, nil
}

func (s *fakeStore) FinalizeRun(_ context.Context, run ports.CompletedRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalizeErr != nil {
		return s.finalizeErr
	}
	s.finalized = append(s.finalized, run)
	s.schedule = run.Schedule
	return nil
}

func (s *fakeStore) LogUsage(_ context.Context, entry domain.UsageEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = append(s.usage, entry)
	return nil
}

type scriptedGenerator struct {
	mu        sync.Mutex
	responses []ports.Generation
	calls     int
}

func (g *scriptedGenerator) Generate(context.Context, ports.GenerateRequest) (ports.Generation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls >= len(g.responses) {
		return ports.Generation{}, errors.New("unexpected extra call")
	}
	response := g.responses[g.calls]
	g.calls++
	return response, nil
}

type staticSource struct {
	entries []domain.FeedEntry
}

func (s *staticSource) Name() string     { return "test-feed" }
func (s *staticSource) Category() string { return "legal" }

func (s *staticSource) Fetch(context.Context) ([]domain.FeedEntry, error) {
	return s.entries, nil
}

const testBody = `# Rental Law Changes Explained

rental law is changing and every tenant should pay attention now.

## Key Points

- deposits shrink
- notice periods grow

## Deadlines

The new rules apply from January.

## Summary

Check your rental law contract before signing.`

func scriptedResponses() []ports.Generation {
	return []ports.Generation{
		// Enrichment suggestion call.
		{Text: `{"suggested_title":"Rental Law Changes Every Tenant Must Know",
			"suggested_keywords":["rental law","tenant rights","deposits"],
			"suggested_angle":"Focus on deadlines."}`, TokensUsed: 50},
		// The four generation calls.
		{Text: testBody, TokensUsed: 1000},
		{Text: "Rental Law Changes Explained | 2026 Guide", TokensUsed: 30},
		{Text: "Everything about the new rental law rules for tenants.", TokensUsed: 40},
		{Text: `["rental law","tenant","deposit"]`, TokensUsed: 20},
	}
}

type pipelineFixture struct {
	store     *fakeStore
	generator *scriptedGenerator
	pipeline  *Pipeline
}

func newPipelineFixture(t *testing.T, mutate func(*fakeStore)) *pipelineFixture {
	t.Helper()

	published := time.Now().UTC().Add(-24 * time.Hour)
	scheduleID := uuid.New()
	agentID := uuid.New()
	tenantID := uuid.New()

	store := &fakeStore{
		schedule: domain.ScheduleConfig{
			ID:          scheduleID,
			AgentID:     agentID,
			Interval:    domain.IntervalDaily,
			PublishHour: 9,
			IsActive:    true,
			AutoPublish: true,
			PostLength:  domain.LengthMedium,
		},
		agent: domain.Agent{
			ID:        agentID,
			TenantID:  tenantID,
			Name:      "Lex",
			Expertise: "rental law",
			IsActive:  true,
		},
		tenant: domain.Tenant{ID: tenantID, TokensLimit: 100_000, PostsLimit: 50},
	}
	if mutate != nil {
		mutate(store)
	}

	generator := &scriptedGenerator{responses: scriptedResponses()}

	source := &staticSource{entries: []domain.FeedEntry{{
		Title:       "Rental law overhaul lands in parliament",
		Description: "The regulation rewrites contract rules for landlords.",
		SourceURL:   "https://news.test/rental-law",
		PublishedAt: &published,
	}}}

	engine := discovery.NewEngine([]ports.FeedSource{source}, discovery.Config{}, nil)

	pipeline := NewPipeline(PipelineDeps{
		Store:        store,
		Engine:       engine,
		Enricher:     enrich.NewEnricher(generator, nil),
		Generator:    generate.NewOrchestrator(generator, nil),
		Ledger:       quota.NewLedger(store, nil),
		Usage:        store,
		EstimateCost: func(in, out int) float64 { return float64(in+out) / 1000 },
	}, PipelineConfig{})

	return &pipelineFixture{store: store, generator: generator, pipeline: pipeline}
}

func TestRunPublishesQualifyingPost(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t, nil)

	result, err := f.pipeline.Run(context.Background(), f.store.schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomePublished, result.Outcome)

	require.Len(t, f.store.finalized, 1)
	post := f.store.finalized[0].Post

	assert.Equal(t, domain.StatusPublished, post.Status)
	require.NotNil(t, post.PublishedAt)
	assert.Equal(t, "Rental Law Changes Explained", post.Title)
	assert.Equal(t, "rental-law-changes-explained", post.Slug)
	assert.Equal(t, 1090, post.TokensUsed)
	assert.Equal(t, []string{"https://news.test/rental-law"}, post.SourceURLs)
	assert.GreaterOrEqual(t, post.SEOScore, 30)
	assert.NotZero(t, post.ReadabilityScore)
	assert.Contains(t, post.KeywordDensity, "rental law")

	schedule := f.store.finalized[0].Schedule
	assert.Equal(t, 1, schedule.TotalPostsGenerated)
	assert.Equal(t, 1, schedule.SuccessfulPosts)
	assert.Equal(t, 0, schedule.FailedPosts)
	require.NotNil(t, schedule.LastRunAt)
	require.NotNil(t, schedule.NextRunAt)
	assert.True(t, schedule.NextRunAt.After(*schedule.LastRunAt))

	// The actual spend, not the estimate, lands on the tenant.
	assert.Equal(t, 1090, f.store.tenant.TokensUsed)
	assert.Equal(t, 1, f.store.tenant.PostsUsed)

	require.Len(t, f.store.usage, 1)
	entry := f.store.usage[0]
	assert.Equal(t, "post_generation", entry.Action)
	assert.Equal(t, 1090, entry.TokensUsed)
	assert.InDelta(t, 1.09, entry.Cost, 0.001)
}

func TestRunKeepsDraftBelowThreshold(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t, nil)
	f.pipeline.cfg.PublishThreshold = 100

	result, err := f.pipeline.Run(context.Background(), f.store.schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDraft, result.Outcome)

	require.Len(t, f.store.finalized, 1)
	post := f.store.finalized[0].Post
	assert.Equal(t, domain.StatusDraft, post.Status)
	assert.Nil(t, post.PublishedAt)

	schedule := f.store.finalized[0].Schedule
	assert.Equal(t, 1, schedule.TotalPostsGenerated)
	assert.Equal(t, 0, schedule.SuccessfulPosts, "drafts do not count as successes")

	// Re-reading the stored draft keeps the SEO metadata intact.
	reread, err := f.store.Post(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.MetaTitle, reread.MetaTitle)
	assert.Equal(t, post.MetaDescription, reread.MetaDescription)
	assert.Equal(t, post.Keywords, reread.Keywords)
	assert.Equal(t, post.KeywordDensity, reread.KeywordDensity)
	assert.Equal(t, post.SEOScore, reread.SEOScore)
}

func TestRunKeepsDraftWithoutAutoPublish(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t, func(s *fakeStore) {
		s.schedule.AutoPublish = false
	})

	result, err := f.pipeline.Run(context.Background(), f.store.schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDraft, result.Outcome)
}

func TestRunNoTopics(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t, func(s *fakeStore) {
		// Everything discoverable is already covered.
		s.titles = []string{"Rental law overhaul lands in parliament"}
	})

	result, err := f.pipeline.Run(context.Background(), f.store.schedule.ID)
	require.NoError(t, err, "a topicless run is not an error")
	assert.Equal(t, OutcomeNoTopics, result.Outcome)

	assert.Len(t, f.store.failures, 1)
	assert.Empty(t, f.store.finalized)
	assert.Zero(t, f.generator.calls)
}

func TestRunQuotaExceededBeforeGeneration(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t, func(s *fakeStore) {
		s.tenant.TokensLimit = 100 // below the pre-flight estimate
	})

	_, err := f.pipeline.Run(context.Background(), f.store.schedule.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	assert.True(t, IsQuotaExceeded(err))

	// Only the enrichment call happened; no content tokens were burned.
	assert.Equal(t, 1, f.generator.calls)
	assert.Len(t, f.store.failures, 1)
	assert.Empty(t, f.store.finalized)
	assert.Zero(t, f.store.tenant.TokensUsed)
}

func TestRunRefundsWhenPersistenceFails(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t, func(s *fakeStore) {
		s.finalizeErr = errors.New("connection lost")
	})

	_, err := f.pipeline.Run(context.Background(), f.store.schedule.ID)
	require.Error(t, err)

	assert.Zero(t, f.store.tenant.TokensUsed, "reservation must be refunded")
	assert.Zero(t, f.store.tenant.PostsUsed)
	assert.Len(t, f.store.failures, 1)
	assert.Empty(t, f.store.usage, "no audit entry for a failed run")
}

func TestRunInactiveSchedule(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t, func(s *fakeStore) {
		s.schedule.IsActive = false
	})

	_, err := f.pipeline.Run(context.Background(), f.store.schedule.ID)
	assert.ErrorIs(t, err, domain.ErrScheduleInactive)
}

func TestRunInactiveAgent(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t, func(s *fakeStore) {
		s.agent.IsActive = false
	})

	_, err := f.pipeline.Run(context.Background(), f.store.schedule.ID)
	assert.ErrorIs(t, err, domain.ErrAgentUnavailable)

	// The error is never retried, so the schedule must be moved past
	// its due window instead of being re-dispatched every tick.
	assert.Len(t, f.store.failures, 1, "failed_posts must be incremented")
	assert.Equal(t, 1, f.store.schedule.FailedPosts)
	require.NotNil(t, f.store.schedule.LastRunAt, "last_run_at must be stamped")
}

func TestRunAgentLoadFailureRecordsFailure(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t, func(s *fakeStore) {
		s.schedule.AgentID = uuid.New() // points at a missing agent row
	})

	_, err := f.pipeline.Run(context.Background(), f.store.schedule.ID)
	require.Error(t, err)
	assert.Len(t, f.store.failures, 1)
}

func TestRunUnknownSchedule(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t, nil)

	_, err := f.pipeline.Run(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrScheduleNotFound)
}
