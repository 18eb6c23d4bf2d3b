// Package app wires configuration to the use cases and owns the
// application lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"autoblogger/internal/config"
	"autoblogger/internal/discovery"
	"autoblogger/internal/enrich"
	"autoblogger/internal/generate"
	"autoblogger/internal/infrastructure/feed"
	"autoblogger/internal/infrastructure/llm"
	"autoblogger/internal/infrastructure/notify"
	"autoblogger/internal/infrastructure/scheduler"
	"autoblogger/internal/infrastructure/storage"
	"autoblogger/internal/logging"
	"autoblogger/internal/ports"
	"autoblogger/internal/quota"
	"autoblogger/internal/retry"
	"autoblogger/internal/sources"
	"autoblogger/internal/usecase"
)

// Application holds the wired orchestrator and its shutdown hooks.
type Application struct {
	cfg          config.Config
	orchestrator *usecase.Orchestrator
	closers      []func() error
	logger       *slog.Logger
}

// New builds the full application graph.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	db, err := storage.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	store := storage.NewPostgres(db, baseLogger.With("component", "storage"))

	registry := sources.NewRegistry()
	feed.Register(registry)

	feedSources, err := registry.BuildAll(sourceConfigs(cfg.Sources))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sources: %w", err)
	}

	engine := discovery.NewEngine(feedSources, discovery.Config{
		Vocabulary:  cfg.Discovery.Vocabulary,
		Categories:  cfg.Discovery.Categories,
		ActionWords: cfg.Discovery.ActionWords,
	}, baseLogger.With("component", "discovery"))

	generator := llm.NewClient(llm.Options{
		Endpoint:  cfg.LLM.Endpoint,
		Model:     cfg.LLM.Model,
		APIKey:    cfg.LLM.APIKey,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLM.Timeout.Std(),
	})

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Store:        store,
		Engine:       engine,
		Enricher:     enrich.NewEnricher(generator, baseLogger.With("component", "enrich")),
		Generator:    generate.NewOrchestrator(generator, baseLogger.With("component", "generate")),
		Ledger:       quota.NewLedger(store, baseLogger.With("component", "quota")),
		Usage:        store,
		EstimateCost: llm.EstimateCost,
		Logger:       baseLogger.With("component", "pipeline"),
	}, usecase.PipelineConfig{
		MaxTopics:        cfg.Discovery.MaxTopics,
		PublishThreshold: cfg.Pipeline.PublishThreshold,
		EstimateTokens:   cfg.Pipeline.EstimateTokens,
	})

	retryCfg := retry.DefaultConfig()
	if cfg.Retry.MaxAttempts > 0 {
		retryCfg.MaxAttempts = cfg.Retry.MaxAttempts
	}
	if cfg.Retry.BaseDelay > 0 {
		retryCfg.BaseDelay = cfg.Retry.BaseDelay.Std()
	}
	if cfg.Retry.MaxDelay > 0 {
		retryCfg.MaxDelay = cfg.Retry.MaxDelay.Std()
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		notifier = notify.NewTelegramNotifier(
			cfg.Notifications.Telegram.BotToken,
			cfg.Notifications.Telegram.ChatID,
		)
	}

	orchestrator := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Schedules: store,
		Runner:    pipeline,
		Retrier:   retry.New(retryCfg, usecase.RunRetryable, baseLogger.With("component", "retry")),
		Driver:    scheduler.NewTicker(cfg.Orchestrator.TickInterval.Std(), baseLogger.With("component", "ticker")),
		Notifier:  notifier,
		Logger:    baseLogger.With("component", "orchestrator"),
	}, usecase.OrchestratorConfig{Workers: cfg.Orchestrator.Workers})

	return &Application{
		cfg:          cfg,
		orchestrator: orchestrator,
		closers:      []func() error{db.Close},
		logger:       baseLogger,
	}, nil
}

// Run starts the orchestrator and blocks until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.orchestrator.Start(ctx); err != nil {
		return fmt.Errorf("start orchestrator: %w", err)
	}

	<-ctx.Done()
	return nil
}

// Shutdown stops the orchestrator and releases held resources.
func (a *Application) Shutdown(ctx context.Context) error {
	var firstErr error
	if err := a.orchestrator.Stop(ctx); err != nil {
		firstErr = err
	}
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func sourceConfigs(configured []config.SourceConfig) []sources.Config {
	converted := make([]sources.Config, 0, len(configured))
	for _, src := range configured {
		converted = append(converted, sources.Config{
			Name:     src.Name,
			Kind:     src.Kind,
			URL:      src.URL,
			Category: src.Category,
			MaxItems: src.MaxItems,
			Timeout:  src.Timeout.Std(),
		})
	}
	return converted
}
