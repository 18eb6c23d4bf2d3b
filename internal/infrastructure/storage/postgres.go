// Package storage implements the persistence contract on Postgres.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"autoblogger/internal/domain"
	"autoblogger/internal/ports"
)

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Postgres implements the store and usage-sink contracts on one sql.DB.
type Postgres struct {
	db     *sql.DB
	logger *slog.Logger
}

var (
	_ ports.Store     = (*Postgres)(nil)
	_ ports.UsageSink = (*Postgres)(nil)
)

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func NewPostgres(db *sql.DB, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: db, logger: logger}
}

// runner is satisfied by both *sql.DB and *sql.Tx.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var scheduleColumns = []string{
	"id", "agent_id", "run_interval", "publish_hour", "timezone", "is_active",
	"auto_publish", "target_keywords", "exclude_keywords", "post_length",
	"last_run_at", "next_run_at",
	"total_posts_generated", "successful_posts", "failed_posts",
	"created_at", "updated_at",
}

// Schedule loads one schedule configuration.
func (p *Postgres) Schedule(ctx context.Context, id uuid.UUID) (domain.ScheduleConfig, error) {
	query, args, err := builder.
		Select(scheduleColumns...).
		From("schedules").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.ScheduleConfig{}, fmt.Errorf("build schedule query: %w", err)
	}

	schedule, err := scanSchedule(p.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ScheduleConfig{}, fmt.Errorf("schedule %s: %w", id, domain.ErrScheduleNotFound)
	}
	if err != nil {
		return domain.ScheduleConfig{}, fmt.Errorf("load schedule: %w", err)
	}
	return schedule, nil
}

// DueSchedules returns the active schedules whose next run is at or
// before the given instant.
func (p *Postgres) DueSchedules(ctx context.Context, now time.Time) ([]domain.ScheduleConfig, error) {
	query, args, err := builder.
		Select(scheduleColumns...).
		From("schedules").
		Where(sq.Eq{"is_active": true}).
		Where(sq.LtOrEq{"next_run_at": now}).
		OrderBy("next_run_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build due query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query due schedules: %w", err)
	}
	defer rows.Close()

	var due []domain.ScheduleConfig
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		due = append(due, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return due, nil
}

// UpdateSchedule writes the full mutable state of a schedule.
func (p *Postgres) UpdateSchedule(ctx context.Context, schedule domain.ScheduleConfig) error {
	return updateSchedule(ctx, p.db, schedule)
}

func updateSchedule(ctx context.Context, r runner, schedule domain.ScheduleConfig) error {
	query, args, err := builder.
		Update("schedules").
		SetMap(map[string]any{
			"run_interval":          string(schedule.Interval),
			"publish_hour":          schedule.PublishHour,
			"timezone":              schedule.Timezone,
			"is_active":             schedule.IsActive,
			"auto_publish":          schedule.AutoPublish,
			"target_keywords":       pq.StringArray(schedule.TargetKeywords),
			"exclude_keywords":      pq.StringArray(schedule.ExcludeKeywords),
			"post_length":           string(schedule.PostLength),
			"last_run_at":           nullTime(schedule.LastRunAt),
			"next_run_at":           nullTime(schedule.NextRunAt),
			"total_posts_generated": schedule.TotalPostsGenerated,
			"successful_posts":      schedule.SuccessfulPosts,
			"failed_posts":          schedule.FailedPosts,
			"updated_at":            schedule.UpdatedAt,
		}).
		Where(sq.Eq{"id": schedule.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build schedule update: %w", err)
	}

	result, err := r.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("schedule %s: %w", schedule.ID, domain.ErrScheduleNotFound)
	}

	return nil
}

// RecordRunFailure bumps the failure counter and advances the run window
// in one write.
func (p *Postgres) RecordRunFailure(ctx context.Context, id uuid.UUID, at time.Time) error {
	schedule, err := p.Schedule(ctx, id)
	if err != nil {
		return err
	}

	update := builder.
		Update("schedules").
		Set("failed_posts", sq.Expr("failed_posts + 1")).
		Set("last_run_at", at).
		Set("updated_at", at).
		Where(sq.Eq{"id": id})

	if next, nextErr := schedule.NextRun(at); nextErr == nil {
		update = update.Set("next_run_at", next)
	}

	query, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build failure update: %w", err)
	}
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record run failure: %w", err)
	}
	return nil
}

var postColumns = []string{
	"id", "agent_id", "title", "slug", "content",
	"meta_title", "meta_description", "keywords",
	"word_count", "readability_score", "keyword_density", "seo_score",
	"status", "published_at", "source_urls", "tokens_used",
	"created_at", "updated_at",
}

// Post loads one stored post.
func (p *Postgres) Post(ctx context.Context, id uuid.UUID) (domain.Post, error) {
	query, args, err := builder.
		Select(postColumns...).
		From("posts").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Post{}, fmt.Errorf("build post query: %w", err)
	}

	post, err := scanPost(p.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Post{}, fmt.Errorf("post %s: %w", id, domain.ErrPostNotFound)
	}
	if err != nil {
		return domain.Post{}, fmt.Errorf("load post: %w", err)
	}
	return post, nil
}

// PostTitles returns the titles of every post an agent has produced, for
// duplicate-topic suppression.
func (p *Postgres) PostTitles(ctx context.Context, agentID uuid.UUID) ([]string, error) {
	query, args, err := builder.
		Select("title").
		From("posts").
		Where(sq.Eq{"agent_id": agentID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build titles query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return titles, nil
}

// Tenant loads one tenant's accounting state.
func (p *Postgres) Tenant(ctx context.Context, id uuid.UUID) (domain.Tenant, error) {
	query, args, err := builder.
		Select("id", "name", "is_active",
			"tokens_limit", "tokens_used", "posts_limit", "posts_used").
		From("tenants").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("build tenant query: %w", err)
	}

	var tenant domain.Tenant
	err = p.db.QueryRowContext(ctx, query, args...).Scan(
		&tenant.ID, &tenant.Name, &tenant.IsActive,
		&tenant.TokensLimit, &tenant.TokensUsed,
		&tenant.PostsLimit, &tenant.PostsUsed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Tenant{}, fmt.Errorf("tenant %s: %w", id, domain.ErrTenantNotFound)
	}
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("load tenant: %w", err)
	}
	return tenant, nil
}

// AdjustTenantUsage applies both deltas in one conditional update that
// re-checks the limits. Zero rows means the limits rejected the deltas,
// unless the tenant does not exist at all.
func (p *Postgres) AdjustTenantUsage(ctx context.Context, id uuid.UUID, tokensDelta, postsDelta int) error {
	query := `UPDATE tenants
              SET tokens_used = GREATEST(tokens_used + $1, 0),
                  posts_used = GREATEST(posts_used + $2, 0),
                  updated_at = NOW()
              WHERE id = $3
                AND (tokens_limit <= 0 OR tokens_used + $1 <= tokens_limit)
                AND (posts_limit <= 0 OR posts_used + $2 <= posts_limit)`

	result, err := p.db.ExecContext(ctx, query, tokensDelta, postsDelta, id)
	if err != nil {
		return fmt.Errorf("adjust tenant usage: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust tenant usage: %w", err)
	}
	if affected == 0 {
		if _, tenantErr := p.Tenant(ctx, id); tenantErr != nil {
			return tenantErr
		}
		return fmt.Errorf("tenant %s: %w", id, domain.ErrQuotaExceeded)
	}

	return nil
}

// Agent loads one agent profile.
func (p *Postgres) Agent(ctx context.Context, id uuid.UUID) (domain.Agent, error) {
	query, args, err := builder.
		Select("id", "tenant_id", "name", "expertise", "persona", "tone", "is_active").
		From("agents").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Agent{}, fmt.Errorf("build agent query: %w", err)
	}

	var agent domain.Agent
	err = p.db.QueryRowContext(ctx, query, args...).Scan(
		&agent.ID, &agent.TenantID, &agent.Name,
		&agent.Expertise, &agent.Persona, &agent.Tone, &agent.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Agent{}, fmt.Errorf("agent %s: %w", id, domain.ErrAgentUnavailable)
	}
	if err != nil {
		return domain.Agent{}, fmt.Errorf("load agent: %w", err)
	}
	return agent, nil
}

// FinalizeRun stores the post and the updated schedule in one
// transaction, all-or-nothing.
func (p *Postgres) FinalizeRun(ctx context.Context, run ports.CompletedRun) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertPost(ctx, tx, run.Post); err != nil {
		return err
	}
	if err := updateSchedule(ctx, tx, run.Schedule); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

func insertPost(ctx context.Context, r runner, post domain.Post) error {
	density, err := json.Marshal(post.KeywordDensity)
	if err != nil {
		return fmt.Errorf("marshal keyword density: %w", err)
	}

	query, args, err := builder.
		Insert("posts").
		Columns(postColumns...).
		Values(
			post.ID, post.AgentID, post.Title, post.Slug, post.Content,
			post.MetaTitle, post.MetaDescription, pq.StringArray(post.Keywords),
			post.WordCount, post.ReadabilityScore, density, post.SEOScore,
			string(post.Status), nullTime(post.PublishedAt),
			pq.StringArray(post.SourceURLs), post.TokensUsed,
			post.CreatedAt, post.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build post insert: %w", err)
	}

	if _, err := r.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// LogUsage appends one audit record.
func (p *Postgres) LogUsage(ctx context.Context, entry domain.UsageEntry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal usage metadata: %w", err)
	}

	query, args, err := builder.
		Insert("usage_log").
		Columns("id", "tenant_id", "agent_id", "action",
			"tokens_used", "cost", "metadata", "created_at").
		Values(uuid.New(), entry.TenantID, entry.AgentID, entry.Action,
			entry.TokensUsed, entry.Cost, metadata, time.Now().UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build usage insert: %w", err)
	}

	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert usage entry: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (domain.ScheduleConfig, error) {
	var (
		schedule         domain.ScheduleConfig
		interval, length string
		target, exclude  pq.StringArray
		lastRun, nextRun sql.NullTime
	)

	err := row.Scan(
		&schedule.ID, &schedule.AgentID, &interval, &schedule.PublishHour,
		&schedule.Timezone, &schedule.IsActive, &schedule.AutoPublish,
		&target, &exclude, &length,
		&lastRun, &nextRun,
		&schedule.TotalPostsGenerated, &schedule.SuccessfulPosts, &schedule.FailedPosts,
		&schedule.CreatedAt, &schedule.UpdatedAt,
	)
	if err != nil {
		return domain.ScheduleConfig{}, err
	}

	schedule.Interval = domain.Interval(interval)
	schedule.PostLength = domain.PostLength(length)
	schedule.TargetKeywords = target
	schedule.ExcludeKeywords = exclude
	schedule.LastRunAt = timePtr(lastRun)
	schedule.NextRunAt = timePtr(nextRun)

	return schedule, nil
}

func scanPost(row rowScanner) (domain.Post, error) {
	var (
		post        domain.Post
		status      string
		keywords    pq.StringArray
		sourceURLs  pq.StringArray
		density     []byte
		publishedAt sql.NullTime
	)

	err := row.Scan(
		&post.ID, &post.AgentID, &post.Title, &post.Slug, &post.Content,
		&post.MetaTitle, &post.MetaDescription, &keywords,
		&post.WordCount, &post.ReadabilityScore, &density, &post.SEOScore,
		&status, &publishedAt, &sourceURLs, &post.TokensUsed,
		&post.CreatedAt, &post.UpdatedAt,
	)
	if err != nil {
		return domain.Post{}, err
	}

	post.Status = domain.PostStatus(status)
	post.Keywords = keywords
	post.SourceURLs = sourceURLs
	post.PublishedAt = timePtr(publishedAt)

	if len(density) > 0 {
		if err := json.Unmarshal(density, &post.KeywordDensity); err != nil {
			return domain.Post{}, fmt.Errorf("decode keyword density: %w", err)
		}
	}

	return post, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	value := t.Time
	return &value
}
