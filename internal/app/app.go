// Package app wires configuration into the running service: corpus store,
// OpenDART aggregator, Gemini client, storage, caches and handlers.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/bobmcallan/dart-portal/internal/cache"
	"github.com/bobmcallan/dart-portal/internal/common"
	"github.com/bobmcallan/dart-portal/internal/config"
	"github.com/bobmcallan/dart-portal/internal/corpus"
	"github.com/bobmcallan/dart-portal/internal/dart"
	"github.com/bobmcallan/dart-portal/internal/generation"
	"github.com/bobmcallan/dart-portal/internal/handlers"
	"github.com/bobmcallan/dart-portal/internal/interfaces"
	"github.com/bobmcallan/dart-portal/internal/mcp"
	"github.com/bobmcallan/dart-portal/internal/service"
	"github.com/bobmcallan/dart-portal/internal/statements"
	"github.com/bobmcallan/dart-portal/internal/storage"
)

// App holds all application components and dependencies.
type App struct {
	Config  *config.Config
	Logger  *common.Logger
	Service *service.Service
	Storage interfaces.StorageManager
	Corpus  *corpus.Store

	// HTTP handlers
	HealthHandler     *handlers.HealthHandler
	VersionHandler    *handlers.VersionHandler
	SearchHandler     *handlers.SearchHandler
	StatementsHandler *handlers.StatementsHandler
	ExplainHandler    *handlers.ExplainHandler
	ReloadHandler     *handlers.ReloadHandler
	MCPHandler        *mcp.Handler

	scheduler *corpus.Scheduler
}

// New initializes the application with all dependencies.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	if !cfg.IsProduction() {
		logger.Debug().Str("environment", cfg.Environment).Msg("running outside production")
	}

	if err := a.initStorage(); err != nil {
		return nil, err
	}
	a.initCorpus()

	a.Service = service.New(service.Deps{
		ReportCode:     cfg.OpenDART.ReportCode,
		Companies:      a.Corpus,
		Statements:     a.newStatementFetcher(),
		Explainer:      a.newExplainer(),
		Explanations:   a.Storage.KeyValueStorage(),
		StatementCache: cache.New[*statements.TimeSeries](cfg.Cache.TTL.Duration, cfg.Cache.MaxEntries),
		SearchCache:    cache.New[[]corpus.Result](cfg.Cache.TTL.Duration, cfg.Cache.MaxEntries),
		Logger:         logger,
	})

	if err := a.initScheduler(); err != nil {
		a.Storage.Close()
		return nil, err
	}

	a.initHandlers()

	logger.Info().
		Bool("opendart", a.Service.StatementsConfigured()).
		Bool("gemini", a.Service.ExplainerConfigured()).
		Msg("application initialization complete")

	return a, nil
}

// initStorage opens the explanation store and drops entries past their TTL.
func (a *App) initStorage() error {
	mgr, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return err
	}
	a.Storage = mgr

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	cutoff := time.Now().Add(-a.Config.Cache.ExplanationTTL.Duration)
	if n, err := mgr.KeyValueStorage().Purge(ctx, cutoff); err != nil {
		a.Logger.Warn().Err(err).Msg("failed to purge expired explanations")
	} else if n > 0 {
		a.Logger.Info().Int("purged", n).Msg("expired explanations removed")
	}
	return nil
}

// initCorpus loads the company database. A missing database is not fatal:
// the server starts empty and reports it through /api/health.
func (a *App) initCorpus() {
	a.Corpus = corpus.NewStore(corpus.NewSQLiteSource(a.Config.Corpus.DBPath), a.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := a.Corpus.Reload(ctx)
	switch {
	case errors.Is(err, corpus.ErrNoDatabase):
		a.Logger.Warn().
			Str("path", a.Config.Corpus.DBPath).
			Msg("company database not found, run dart-corpus to build it")
	case err != nil:
		a.Logger.Error().Err(err).Msg("failed to load company database")
	default:
		a.Logger.Info().Str("companies", common.FormatCount(n)).Msg("company database loaded")
	}
}

func (a *App) newStatementFetcher() service.StatementFetcher {
	od := a.Config.OpenDART
	if od.APIKey == "" {
		a.Logger.Warn().Msg("OPENDART_API_KEY not set, statement lookups disabled")
		return nil
	}
	client := dart.NewClient(od.BaseURL, od.APIKey, od.Timeout.Duration)
	return statements.NewAggregator(client, a.Logger, od.Timeout.Duration)
}

func (a *App) newExplainer() service.Explainer {
	gc := a.Config.Gemini
	if gc.APIKey == "" {
		a.Logger.Warn().Msg("GEMINI_API_KEY not set, explanations disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	gen, err := generation.NewGeminiGenerator(ctx, gc.APIKey, gc.Model)
	if err != nil {
		a.Logger.Error().Err(err).Msg("failed to create Gemini client, explanations disabled")
		return nil
	}

	a.Logger.Info().Str("model", gen.Model()).Int("max_attempts", gc.MaxAttempts).Msg("Gemini client ready")
	return generation.NewClient(gen, generation.Options{
		Model:          gen.Model(),
		MaxAttempts:    gc.MaxAttempts,
		BackoffUnit:    gc.BackoffUnit.Duration,
		AttemptTimeout: gc.Timeout.Duration,
	}, a.Logger)
}

// initScheduler starts the cron reload when a schedule is configured. The
// reload goes through the service so cached searches are dropped with it.
func (a *App) initScheduler() error {
	spec := a.Config.Corpus.ReloadSchedule
	if spec == "" {
		return nil
	}
	sched, err := corpus.NewScheduler(spec, reloadFunc(a.Service.ReloadCompanies), a.Logger)
	if err != nil {
		return err
	}
	sched.Start()
	a.scheduler = sched
	return nil
}

// reloadFunc adapts a function to corpus.Reloader.
type reloadFunc func(ctx context.Context) (int, error)

func (f reloadFunc) Reload(ctx context.Context) (int, error) { return f(ctx) }

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	a.HealthHandler = handlers.NewHealthHandler(a.Logger, a.Service)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.SearchHandler = handlers.NewSearchHandler(a.Logger, a.Service)
	a.StatementsHandler = handlers.NewStatementsHandler(a.Logger, a.Service)
	a.ExplainHandler = handlers.NewExplainHandler(a.Logger, a.Service)
	a.ReloadHandler = handlers.NewReloadHandler(a.Logger, a.Service)
	a.MCPHandler = mcp.NewHandler(a.Service, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Close stops the scheduler and closes storage.
func (a *App) Close() error {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.Storage != nil {
		return a.Storage.Close()
	}
	return nil
}
