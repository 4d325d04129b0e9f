package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"NewsRelay/internal/config"
	"NewsRelay/internal/content"
	"NewsRelay/internal/infrastructure/api"
	"NewsRelay/internal/infrastructure/lexica"
	"NewsRelay/internal/infrastructure/llm"
	"NewsRelay/internal/infrastructure/parser"
	"NewsRelay/internal/infrastructure/scheduler"
	"NewsRelay/internal/infrastructure/storage"
	"NewsRelay/internal/infrastructure/telegram"
	"NewsRelay/internal/logging"
	"NewsRelay/internal/metrics"
	"NewsRelay/internal/ports"
	"NewsRelay/internal/scanner"
	"NewsRelay/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     storage.Store
	pipeline  *usecase.Pipeline
	driver    *scheduler.IntervalScheduler
	scheduler *usecase.Scheduler
	registry  *prometheus.Registry
}

// New validates cfg and builds every adapter. ctx bounds scheduled runs:
// cancelling it stops the ticker loop and aborts runs in progress.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	notifier, err := telegram.NewNotifier(cfg.Notifications.Telegram, baseLogger.With("component", "telegram"))
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, cfg.Database, baseLogger.With("component", "storage"))
	if err != nil {
		return nil, fmt.Errorf("open dedup store: %w", err)
	}

	lexicaClient := lexica.NewClient(cfg.Providers.Lexica.BaseURL, cfg.Providers.Lexica.APIKey, cfg.Providers.Lexica.Timeout).
		WithMaxLength(cfg.Summarizer.MaxLength)

	registry := scanner.NewRegistry()
	registry.Register(lexicaClient)
	registry.Register(parser.NewRSSScanner(
		cfg.Providers.RSS,
		content.NewExtractor(&http.Client{Timeout: cfg.Providers.RSS.Timeout}, cfg.Providers.RSS.UserAgent),
		baseLogger.With("component", "scanner.rss"),
	).WithSentChecker(store))

	source := parser.NewStrategySource(registry, cfg.Sites, baseLogger.With("component", "source"))

	var summarizer ports.Summarizer
	switch cfg.Summarizer.Kind {
	case config.SummarizerLexica:
		summarizer = lexicaClient
	case config.SummarizerChat:
		summarizer = llm.NewChatGPTClient(cfg.Summarizer.ChatGPT)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Store:      store,
		Summarizer: summarizer,
		Notifier:   notifier,
		Metrics:    metrics.NewPipeline(promRegistry),
		Logger:     baseLogger,
	}, usecase.PipelineOptions{
		DeliveryDelay:  cfg.Pipeline.DeliveryDelay,
		FallbackLength: cfg.Pipeline.FallbackLength,
		AllowOverlap:   cfg.Scheduler.AllowOverlap,
		Location:       cfg.Scheduler.Location(),
	})

	driver := scheduler.NewIntervalScheduler(cfg.Scheduler.Interval, cfg.Scheduler.ShouldRunOnStart())

	baseLogger.Info("application configured",
		"database", cfg.Database.Driver,
		"sites", len(cfg.Sites),
		"scanners", registry.Names(),
		"summarizer", cfg.Summarizer.Kind,
		"interval", cfg.Scheduler.Interval,
	)

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		store:     store,
		pipeline:  pipeline,
		driver:    driver,
		scheduler: usecase.NewScheduler(ctx, driver, pipeline, baseLogger),
		registry:  promRegistry,
	}, nil
}

// RunOnce performs a single pipeline execution.
func (a *Application) RunOnce(ctx context.Context) usecase.RunReport {
	return a.pipeline.Run(ctx)
}

// TestBot checks the bot connection and posts a test message.
func (a *Application) TestBot(ctx context.Context) error {
	return a.pipeline.SendTest(ctx)
}

// ServeOptions selects which long-running parts Serve starts.
type ServeOptions struct {
	Listen         string
	StartScheduler bool
}

// Serve starts the scheduler and admin server and blocks until ctx is done
// or the server fails, then shuts both down.
func (a *Application) Serve(ctx context.Context, opts ServeOptions) error {
	if opts.StartScheduler {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	var (
		server    *http.Server
		serverErr = make(chan error, 1)
	)
	if opts.Listen != "" {
		handler := api.NewHandler(a.scheduler, a.pipeline, a.logger)
		server = &http.Server{
			Addr:         opts.Listen,
			Handler:      api.NewServer(handler, a.cfg.HTTP.APIKey, a.registry, a.logger),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		}
		go func() {
			a.logger.Info("admin server listening", "addr", opts.Listen)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown requested")
	case runErr = <-serverErr:
		a.logger.Error("admin server failed", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("http server shutdown", "error", err)
		}
	}
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler stop", "error", err)
	}
	if err := a.driver.Wait(shutdownCtx); err != nil {
		a.logger.Warn("in-flight run did not finish before shutdown", "error", err)
	}

	return runErr
}

// Close releases the dedup store.
func (a *Application) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
