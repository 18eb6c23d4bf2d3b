package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"autoblogger/internal/domain"
	"autoblogger/internal/ports"
	"autoblogger/internal/retry"
)

const defaultWorkers = 4

// Runner executes a single schedule run. Satisfied by *Pipeline.
type Runner interface {
	Run(ctx context.Context, scheduleID uuid.UUID) (RunResult, error)
}

// OrchestratorConfig tunes the tick dispatch.
type OrchestratorConfig struct {
	Workers int // concurrent runs per tick
}

// Orchestrator scans for due schedules on every tick and dispatches each
// onto a bounded worker pool, wrapping runs in the retry policy.
type Orchestrator struct {
	schedules ports.ScheduleStore
	runner    Runner
	retrier   *retry.Retrier
	driver    ports.TickDriver
	notifier  ports.Notifier

	workers int
	logger  *slog.Logger
}

// OrchestratorDeps collects the orchestrator collaborators. Notifier may
// be nil when operator alerts are not configured.
type OrchestratorDeps struct {
	Schedules ports.ScheduleStore
	Runner    Runner
	Retrier   *retry.Retrier
	Driver    ports.TickDriver
	Notifier  ports.Notifier
	Logger    *slog.Logger
}

func NewOrchestrator(deps OrchestratorDeps, cfg OrchestratorConfig) *Orchestrator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		schedules: deps.Schedules,
		runner:    deps.Runner,
		retrier:   deps.Retrier,
		driver:    deps.Driver,
		notifier:  deps.Notifier,
		workers:   workers,
		logger:    logger,
	}
}

// RunRetryable is the retry classifier for pipeline runs. Quota
// exhaustion and schedule or agent state errors cannot be fixed by
// waiting, so they stop retrying immediately.
func RunRetryable(err error) bool {
	switch {
	case errors.Is(err, domain.ErrQuotaExceeded),
		errors.Is(err, domain.ErrScheduleInactive),
		errors.Is(err, domain.ErrScheduleNotFound),
		errors.Is(err, domain.ErrAgentUnavailable),
		errors.Is(err, domain.ErrTenantNotFound):
		return false
	}
	return true
}

// Start begins the periodic scan via the tick driver. It returns after
// the driver is started; ticks run until Stop or context cancellation.
func (o *Orchestrator) Start(ctx context.Context) error {
	if err := o.driver.Start(ctx, func(now time.Time) {
		o.Tick(ctx, now)
	}); err != nil {
		return fmt.Errorf("start tick driver: %w", err)
	}
	o.logger.Info("orchestrator started", "workers", o.workers)
	return nil
}

func (o *Orchestrator) Stop(ctx context.Context) error {
	if err := o.driver.Stop(ctx); err != nil {
		return fmt.Errorf("stop tick driver: %w", err)
	}
	o.logger.Info("orchestrator stopped")
	return nil
}

// Tick processes every schedule due at the given instant. Runs execute
// concurrently, capped by the worker budget; Tick returns when all
// dispatched runs finish.
func (o *Orchestrator) Tick(ctx context.Context, now time.Time) {
	due, err := o.schedules.DueSchedules(ctx, now.UTC())
	if err != nil {
		o.logger.Error("due-schedule scan failed", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	o.logger.Info("tick dispatching", "due", len(due))

	sem := make(chan struct{}, o.workers)
	var wg sync.WaitGroup

	for _, schedule := range due {
		wg.Add(1)
		sem <- struct{}{}
		go func(schedule domain.ScheduleConfig) {
			defer wg.Done()
			defer func() { <-sem }()
			o.runOne(ctx, schedule)
		}(schedule)
	}

	wg.Wait()
}

func (o *Orchestrator) runOne(ctx context.Context, schedule domain.ScheduleConfig) {
	err := o.retrier.Do(ctx, func(ctx context.Context) error {
		_, runErr := o.runner.Run(ctx, schedule.ID)
		return runErr
	})
	if err == nil {
		return
	}

	o.logger.Error("schedule run failed",
		"schedule", schedule.ID, "agent", schedule.AgentID, "error", err)

	switch {
	case errors.Is(err, domain.ErrQuotaExceeded):
		o.alert(ctx, fmt.Sprintf(
			"Schedule %s skipped: tenant quota exceeded.", schedule.ID))
	default:
		o.alert(ctx, fmt.Sprintf(
			"Schedule %s failed permanently: %v", schedule.ID, err))
	}
}

func (o *Orchestrator) alert(ctx context.Context, message string) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Notify(ctx, message); err != nil {
		o.logger.Error("operator alert failed", "error", err)
	}
}
