package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"aidigest/internal/config"
	"aidigest/internal/infrastructure/extract"
	"aidigest/internal/infrastructure/feed"
	"aidigest/internal/infrastructure/llm"
	"aidigest/internal/infrastructure/scheduler"
	"aidigest/internal/infrastructure/storage"
	"aidigest/internal/logging"
	"aidigest/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	db       *sqlx.DB
	pipeline *usecase.Pipeline
	logger   *slog.Logger
}

// New validates configuration, opens the database, and assembles the
// pipeline. Configuration failure is the only fatal startup condition.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	store := storage.NewPostgresStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	completer, err := llm.NewOpenAICompleter(cfg.OpenAI)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("analysis client: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.Extractor.Timeout.Std()}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Poller:    feed.NewPoller(httpClient, cfg.Extractor.UserAgent, baseLogger.With("component", "feed")),
		Extractor: extract.NewExtractor(httpClient, cfg.Extractor.UserAgent),
		Analyzer:  llm.NewAnalyzer(completer, baseLogger.With("component", "analyzer")),
		Store:     store,
		Logger:    baseLogger.With("component", "pipeline"),
	}, cfg.DomainSources(), cfg.Pipeline.Window(), cfg.Pipeline.MaxPerSource)

	return &Application{cfg: cfg, db: db, pipeline: pipeline, logger: baseLogger}, nil
}

// Run executes a single pipeline pass, or keeps re-running on the
// configured interval until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if a.cfg.Scheduler.Interval <= 0 {
		return a.pipeline.Run(ctx)
	}

	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval.Std())
	runner := usecase.NewScheduler(driver, a.pipeline)
	if err := runner.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	if err := runner.Stop(context.Background()); err != nil {
		a.logger.Warn("scheduler stop failed", "error", err)
	}
	return ctx.Err()
}

// Close releases the database pool.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
