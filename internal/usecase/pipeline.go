// Package usecase contains the application services: the single-run
// content pipeline and the tick orchestrator that dispatches due
// schedules onto it.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"autoblogger/internal/discovery"
	"autoblogger/internal/domain"
	"autoblogger/internal/enrich"
	"autoblogger/internal/generate"
	"autoblogger/internal/ports"
	"autoblogger/internal/quota"
	"autoblogger/internal/seo"
)

// Outcome classifies how a pipeline run ended.
type Outcome string

const (
	OutcomePublished Outcome = "published"
	OutcomeDraft     Outcome = "draft"
	OutcomeNoTopics  Outcome = "no_topics"
)

// RunResult summarizes one completed pipeline run.
type RunResult struct {
	Outcome  Outcome
	Post     domain.Post
	Topic    domain.DiscoveredTopic
	SEOScore int
}

// PipelineConfig tunes the run-level knobs.
type PipelineConfig struct {
	MaxTopics        int // discovery cap per run
	PublishThreshold int // minimum SEO score for auto-publish
	EstimateTokens   int // pre-flight token estimate for the quota check
}

const (
	defaultMaxTopics        = 10
	defaultPublishThreshold = 30
	defaultEstimateTokens   = 5000
)

// Pipeline executes one full schedule run: discovery, enrichment,
// generation, quality scoring, quota accounting and persistence.
type Pipeline struct {
	store     ports.Store
	engine    *discovery.Engine
	enricher  *enrich.Enricher
	generator *generate.Orchestrator
	ledger    *quota.Ledger
	usage     ports.UsageSink

	// estimateCost converts token counts into the usage-log cost figure.
	estimateCost func(inputTokens, outputTokens int) float64

	cfg    PipelineConfig
	now    func() time.Time
	logger *slog.Logger
}

// PipelineDeps collects the pipeline collaborators.
type PipelineDeps struct {
	Store        ports.Store
	Engine       *discovery.Engine
	Enricher     *enrich.Enricher
	Generator    *generate.Orchestrator
	Ledger       *quota.Ledger
	Usage        ports.UsageSink
	EstimateCost func(inputTokens, outputTokens int) float64
	Logger       *slog.Logger
}

func NewPipeline(deps PipelineDeps, cfg PipelineConfig) *Pipeline {
	if cfg.MaxTopics <= 0 {
		cfg.MaxTopics = defaultMaxTopics
	}
	if cfg.PublishThreshold <= 0 {
		cfg.PublishThreshold = defaultPublishThreshold
	}
	if cfg.EstimateTokens <= 0 {
		cfg.EstimateTokens = defaultEstimateTokens
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	estimate := deps.EstimateCost
	if estimate == nil {
		estimate = func(int, int) float64 { return 0 }
	}

	return &Pipeline{
		store:        deps.Store,
		engine:       deps.Engine,
		enricher:     deps.Enricher,
		generator:    deps.Generator,
		ledger:       deps.Ledger,
		usage:        deps.Usage,
		estimateCost: estimate,
		cfg:          cfg,
		now:          time.Now,
		logger:       logger,
	}
}

// Run executes the pipeline for one schedule. A run that finds no usable
// topic is not an error: it records the miss on the schedule and returns
// OutcomeNoTopics. Quota exhaustion surfaces as domain.ErrQuotaExceeded
// so the caller can skip retries.
func (p *Pipeline) Run(ctx context.Context, scheduleID uuid.UUID) (RunResult, error) {
	now := p.now().UTC()

	schedule, err := p.store.Schedule(ctx, scheduleID)
	if err != nil {
		return RunResult{}, fmt.Errorf("load schedule: %w", err)
	}
	if !schedule.IsActive {
		return RunResult{}, fmt.Errorf("schedule %s: %w", scheduleID, domain.ErrScheduleInactive)
	}

	// From here on every failure must leave the schedule bookkept:
	// without a next_run_at recompute a permanently failing schedule
	// stays due and is re-dispatched on every tick.
	agent, err := p.store.Agent(ctx, schedule.AgentID)
	if err != nil {
		p.recordFailure(ctx, schedule.ID, now)
		return RunResult{}, fmt.Errorf("load agent: %w", err)
	}
	if !agent.IsActive {
		p.recordFailure(ctx, schedule.ID, now)
		return RunResult{}, fmt.Errorf("agent %s: %w", agent.ID, domain.ErrAgentUnavailable)
	}

	topic, ok := p.pickTopic(ctx, schedule, agent)
	if !ok {
		p.recordFailure(ctx, schedule.ID, now)
		p.logger.Info("no usable topic for schedule", "schedule", schedule.ID)
		return RunResult{Outcome: OutcomeNoTopics}, nil
	}

	topic = p.enricher.Enrich(ctx, topic)

	status, err := p.ledger.Check(ctx, agent.TenantID, p.cfg.EstimateTokens, 1)
	if err != nil {
		return RunResult{}, fmt.Errorf("quota check: %w", err)
	}
	if !status.OK() {
		p.recordFailure(ctx, schedule.ID, now)
		return RunResult{}, fmt.Errorf(
			"tenant %s (tokens remaining %d, posts remaining %d): %w",
			agent.TenantID, status.TokensRemaining, status.PostsRemaining,
			domain.ErrQuotaExceeded)
	}

	result, err := p.generator.Generate(ctx, generate.Request{
		Agent:          agent,
		Topic:          topic.BestTitle(),
		Keyword:        topic.MainKeyword(),
		Length:         schedule.PostLength,
		SourcesContent: sourcesContent(topic),
	})
	if err != nil {
		p.recordFailure(ctx, schedule.ID, now)
		return RunResult{}, fmt.Errorf("generation: %w", err)
	}

	post := p.assessAndBuild(schedule, agent, topic, result, now)

	// Reserve the actual spend before the post becomes visible. The
	// pre-flight check may have gone stale; the store re-checks limits.
	if err := p.ledger.Reserve(ctx, agent.TenantID, result.TokensUsed, 1); err != nil {
		p.recordFailure(ctx, schedule.ID, now)
		return RunResult{}, fmt.Errorf("reserve actual usage: %w", err)
	}

	updated := advanceSchedule(schedule, post.Status == domain.StatusPublished, now)

	if err := p.store.FinalizeRun(ctx, ports.CompletedRun{Post: post, Schedule: updated}); err != nil {
		if refundErr := p.ledger.Refund(ctx, agent.TenantID, result.TokensUsed, 1); refundErr != nil {
			p.logger.Error("quota refund failed",
				"tenant", agent.TenantID, "error", refundErr)
		}
		p.recordFailure(ctx, schedule.ID, now)
		return RunResult{}, fmt.Errorf("finalize run: %w", err)
	}

	// Audit logging happens outside the transaction: a sink failure must
	// never undo a stored post.
	p.logUsage(ctx, agent, post, updated.ID)

	outcome := OutcomeDraft
	if post.Status == domain.StatusPublished {
		outcome = OutcomePublished
	}

	p.logger.Info("pipeline run finished",
		"schedule", schedule.ID,
		"post", post.ID,
		"outcome", outcome,
		"seo_score", post.SEOScore,
		"tokens", post.TokensUsed)

	return RunResult{
		Outcome:  outcome,
		Post:     post,
		Topic:    topic,
		SEOScore: post.SEOScore,
	}, nil
}

// pickTopic runs discovery scoped to the schedule's keywords and returns
// the best-ranked surviving topic.
func (p *Pipeline) pickTopic(ctx context.Context, schedule domain.ScheduleConfig, agent domain.Agent) (domain.DiscoveredTopic, bool) {
	covered, err := p.store.PostTitles(ctx, agent.ID)
	if err != nil {
		// Dedup against history degrades gracefully to none.
		p.logger.Warn("loading covered titles failed", "agent", agent.ID, "error", err)
	}

	topics := p.engine.Discover(ctx, discovery.Options{
		Categories:    discovery.MapKeywordsToCategories(schedule.TargetKeywords, p.engine.CategoryTable()),
		MaxTopics:     p.cfg.MaxTopics,
		ExcludeTitles: covered,
	})
	topics = discovery.FilterExcluded(topics, schedule.ExcludeKeywords)

	if len(topics) == 0 {
		return domain.DiscoveredTopic{}, false
	}
	return topics[0], true
}

// assessAndBuild computes the quality metrics and assembles the post
// entity, including the publish decision.
func (p *Pipeline) assessAndBuild(schedule domain.ScheduleConfig, agent domain.Agent, topic domain.DiscoveredTopic, result domain.GenerationResult, now time.Time) domain.Post {
	mainKeyword := topic.MainKeyword()

	densityKeywords := result.Keywords
	if !containsFold(densityKeywords, mainKeyword) {
		densityKeywords = append(densityKeywords, mainKeyword)
	}

	readability := seo.Readability(result.Content)
	densities := seo.KeywordDensity(result.Content, densityKeywords)
	score := seo.Score(seo.ScoreInput{
		Content:         result.Content,
		Title:           result.Title,
		MetaDescription: result.MetaDescription,
		Keyword:         mainKeyword,
		Readability:     readability,
		KeywordDensity:  densities,
	})

	post := domain.Post{
		ID:      uuid.New(),
		AgentID: agent.ID,

		Title:   result.Title,
		Slug:    seo.Slugify(result.Title),
		Content: result.Content,

		MetaTitle:       result.MetaTitle,
		MetaDescription: result.MetaDescription,
		Keywords:        result.Keywords,

		WordCount:        result.WordCount,
		ReadabilityScore: readability,
		KeywordDensity:   densities,
		SEOScore:         score,

		Status:     domain.StatusDraft,
		TokensUsed: result.TokensUsed,

		CreatedAt: now,
		UpdatedAt: now,
	}

	if topic.SourceURL != "" {
		post.SourceURLs = []string{topic.SourceURL}
	}

	if schedule.AutoPublish && score >= p.cfg.PublishThreshold {
		post.Status = domain.StatusPublished
		publishedAt := now
		post.PublishedAt = &publishedAt
	}

	return post
}

// advanceSchedule applies the run outcome to the schedule counters and
// moves the run window forward.
func advanceSchedule(schedule domain.ScheduleConfig, published bool, now time.Time) domain.ScheduleConfig {
	schedule.TotalPostsGenerated++
	if published {
		schedule.SuccessfulPosts++
	}

	lastRun := now
	schedule.LastRunAt = &lastRun
	if next, err := schedule.NextRun(now); err == nil {
		schedule.NextRunAt = &next
	}
	schedule.UpdatedAt = now

	return schedule
}

func (p *Pipeline) recordFailure(ctx context.Context, scheduleID uuid.UUID, at time.Time) {
	if err := p.store.RecordRunFailure(ctx, scheduleID, at); err != nil {
		p.logger.Error("recording run failure failed",
			"schedule", scheduleID, "error", err)
	}
}

func (p *Pipeline) logUsage(ctx context.Context, agent domain.Agent, post domain.Post, scheduleID uuid.UUID) {
	if p.usage == nil {
		return
	}

	// Prompt/completion split is not reported per call, so the estimate
	// assumes an even split.
	inputTokens := post.TokensUsed / 2
	outputTokens := post.TokensUsed - inputTokens

	entry := domain.UsageEntry{
		TenantID:   agent.TenantID,
		AgentID:    agent.ID,
		Action:     "post_generation",
		TokensUsed: post.TokensUsed,
		Cost:       p.estimateCost(inputTokens, outputTokens),
		Metadata: map[string]any{
			"post_id":     post.ID.String(),
			"schedule_id": scheduleID.String(),
			"seo_score":   post.SEOScore,
			"status":      string(post.Status),
		},
	}

	if err := p.usage.LogUsage(ctx, entry); err != nil {
		p.logger.Error("usage logging failed", "tenant", agent.TenantID, "error", err)
	}
}

// sourcesContent flattens the topic context handed to the post prompt.
func sourcesContent(topic domain.DiscoveredTopic) string {
	content := topic.Description
	if topic.SuggestedAngle != "" {
		if content != "" {
			content += "\n\n"
		}
		content += "Angle: " + topic.SuggestedAngle
	}
	return content
}

func containsFold(list []string, target string) bool {
	for _, item := range list {
		if strings.EqualFold(item, target) {
			return true
		}
	}
	return false
}

// IsQuotaExceeded reports whether a run error is quota exhaustion, which
// callers must not retry.
func IsQuotaExceeded(err error) bool {
	return errors.Is(err, domain.ErrQuotaExceeded)
}
