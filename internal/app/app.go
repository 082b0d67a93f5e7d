package app

import (
	"context"
	"fmt"
	"log/slog"

	"FilingScanner/internal/claim"
	"FilingScanner/internal/config"
	"FilingScanner/internal/infrastructure/feed"
	"FilingScanner/internal/infrastructure/llm"
	"FilingScanner/internal/infrastructure/polygon"
	"FilingScanner/internal/infrastructure/resolver"
	"FilingScanner/internal/infrastructure/scheduler"
	"FilingScanner/internal/infrastructure/sec"
	"FilingScanner/internal/infrastructure/telegram"
	"FilingScanner/internal/logging"
	"FilingScanner/internal/ports"
	"FilingScanner/internal/ratelimit"
	"FilingScanner/internal/storage"
	"FilingScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	store    *storage.Store
	pipeline *usecase.Pipeline
	logger   *slog.Logger
}

// New builds a runnable application instance. The caller owns Close.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(cfg.Database.Path, baseLogger.With("component", "store"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	repo := storage.NewRepository(store)
	if err := repo.Init(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	limiter := ratelimit.New(
		cfg.RateLimit.MinSpacing.Std(),
		cfg.RateLimit.BurstWindow.Std(),
		cfg.RateLimit.BurstLimit,
	)
	client := sec.NewClient(cfg.Registry.BaseURL, cfg.Registry.UserAgent, limiter, nil)

	var analyzer ports.Analyzer
	if cfg.Analysis.APIKey != "" {
		analyzer = llm.NewChatGPTAnalyzer(cfg.Analysis)
	}

	var enricher ports.Enricher
	if cfg.Enrichment.APIKey != "" {
		enricher = polygon.NewClient(cfg.Enrichment.Endpoint, cfg.Enrichment.APIKey)
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" && cfg.Notifications.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Client:   client,
		Feed:     feed.NewReader(),
		Resolver: resolver.New(cfg.Registry.BaseURL),
		Repo:     repo,
		Claims:   claim.NewSet(),
		Analyzer: analyzer,
		Enricher: enricher,
		Notifier: notifier,
		Logger:   baseLogger.With("component", "pipeline"),
		Registry: cfg.Registry,
		Filters:  cfg.Filters,
	})

	return &Application{cfg: cfg, store: store, pipeline: pipeline, logger: baseLogger}, nil
}

// Run performs a single pipeline execution.
func (a *Application) Run(ctx context.Context) error {
	stats, err := a.pipeline.Run(ctx)
	if err != nil {
		return err
	}

	a.logger.Info("run complete",
		"newListings", stats.NewListings,
		"sections", stats.Sections,
		"exhibits", stats.Exhibits,
		"analyzed", stats.Analyzed,
	)
	return nil
}

// RunRecurring executes the pipeline on the configured interval until
// the context is cancelled.
func (a *Application) RunRecurring(ctx context.Context) error {
	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval.Std())
	runner := usecase.NewScheduler(driver, a.pipeline)

	if err := runner.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return runner.Stop(context.Background())
}

// Close releases held resources.
func (a *Application) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
