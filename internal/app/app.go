package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"LocaleAudit/internal/config"
	"LocaleAudit/internal/infrastructure/ai"
	"LocaleAudit/internal/infrastructure/extract"
	"LocaleAudit/internal/infrastructure/fetch"
	"LocaleAudit/internal/infrastructure/notify"
	"LocaleAudit/internal/infrastructure/storage"
	"LocaleAudit/internal/infrastructure/ticker"
	"LocaleAudit/internal/logging"
	"LocaleAudit/internal/ports"
	"LocaleAudit/internal/usecase"
)

// Application owns the wired services and their lifecycle. All
// dependencies are constructed here and passed by reference; there are no
// ambient globals.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *storage.SQLiteStore
	scheduler *usecase.Scheduler
	audits    *usecase.AuditService
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var evaluator ports.Evaluator
	if cfg.AI.APIKey != "" {
		evaluator, err = ai.NewClient(ai.Config{
			Provider: cfg.AI.Provider,
			Model:    cfg.AI.Model,
			APIKey:   cfg.AI.APIKey,
			Endpoint: cfg.AI.Endpoint,
		})
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("build evaluator: %w", err)
		}
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = notify.NewTelegramNotifier(tg.BotToken, tg.ChatID)
	} else {
		notifier = notify.NewLogNotifier(baseLogger.With("component", "notifier"))
	}

	fetcher := fetch.NewHTTPFetcher(nil)
	extractor := extract.NewHTMLExtractor()
	engine := usecase.NewScoringEngine(evaluator, baseLogger.With("component", "engine"))

	location := cfg.Scheduler.Location()
	scheduler := usecase.NewScheduler(usecase.SchedulerDeps{
		Store:     store,
		Engine:    engine,
		Fetcher:   fetcher,
		Extractor: extractor,
		Notifier:  notifier,
		Driver:    ticker.NewCronDriver(cfg.Scheduler.PollInterval()),
		Logger:    baseLogger.With("component", "scheduler"),
		Now:       func() time.Time { return time.Now().In(location) },
	})

	audits := usecase.NewAuditService(
		store, engine, fetcher, extractor, extract.NewPairParser(),
		baseLogger.With("component", "audits"),
	)

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		store:     store,
		scheduler: scheduler,
		audits:    audits,
	}, nil
}

// Scheduler exposes the recurrence scheduler for manual "run now" calls.
func (a *Application) Scheduler() *usecase.Scheduler {
	return a.scheduler
}

// Audits exposes the on-demand audit service.
func (a *Application) Audits() *usecase.AuditService {
	return a.audits
}

// Run starts the scheduler and blocks until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "poll_interval", a.cfg.Scheduler.PollInterval())

	<-ctx.Done()

	if err := a.scheduler.Stop(context.Background()); err != nil {
		a.logger.Warn("stop scheduler", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", "error", err)
	}
	return nil
}
