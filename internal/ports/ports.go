package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"autoblogger/internal/domain"
)

// FeedSource pulls candidate entries from one external feed.
// A failing source must be skipped by callers, never treated as fatal.
type FeedSource interface {
	Name() string
	Category() string
	Fetch(ctx context.Context) ([]domain.FeedEntry, error)
}

// GenerateRequest is one text-generation call to the model capability.
type GenerateRequest struct {
	Prompt       string
	SystemPrompt string
	MaxTokens    int
}

// Generation is the model output together with its billed token count.
type Generation struct {
	Text       string
	TokensUsed int
}

// TextGenerator is the black-box language-model capability.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (Generation, error)
}

// ScheduleStore reads and mutates schedule configurations.
type ScheduleStore interface {
	Schedule(ctx context.Context, id uuid.UUID) (domain.ScheduleConfig, error)
	DueSchedules(ctx context.Context, now time.Time) ([]domain.ScheduleConfig, error)
	UpdateSchedule(ctx context.Context, schedule domain.ScheduleConfig) error
	// RecordRunFailure bumps failed_posts, stamps last_run_at and
	// recomputes next_run_at in a single best-effort write.
	RecordRunFailure(ctx context.Context, id uuid.UUID, at time.Time) error
}

// PostStore persists and reads final content artifacts.
type PostStore interface {
	Post(ctx context.Context, id uuid.UUID) (domain.Post, error)
	PostTitles(ctx context.Context, agentID uuid.UUID) ([]string, error)
}

// TenantStore exposes tenant reads and the atomic quota adjustment.
type TenantStore interface {
	Tenant(ctx context.Context, id uuid.UUID) (domain.Tenant, error)
	// AdjustTenantUsage applies both deltas in one atomic update that
	// re-checks the limits; it returns domain.ErrQuotaExceeded when either
	// resulting total would exceed its limit, leaving both counters untouched.
	AdjustTenantUsage(ctx context.Context, id uuid.UUID, tokensDelta, postsDelta int) error
}

// AgentStore reads agent profiles.
type AgentStore interface {
	Agent(ctx context.Context, id uuid.UUID) (domain.Agent, error)
}

// CompletedRun bundles everything a successful run writes in one transaction.
type CompletedRun struct {
	Post     domain.Post
	Schedule domain.ScheduleConfig
}

// RunStore commits a completed run: post insert plus schedule update,
// all-or-nothing.
type RunStore interface {
	FinalizeRun(ctx context.Context, run CompletedRun) error
}

// Store aggregates the persistence collaborator contract.
type Store interface {
	ScheduleStore
	PostStore
	TenantStore
	AgentStore
	RunStore
}

// UsageSink accepts audit entries. Fire-and-forget: a sink failure must
// never roll back the run that produced the entry.
type UsageSink interface {
	LogUsage(ctx context.Context, entry domain.UsageEntry) error
}

// Notifier delivers operator alerts (quota exhaustion, dead runs).
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// TickDriver fires the orchestrator tick on a fixed period.
type TickDriver interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
