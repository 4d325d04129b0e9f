package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"NewsRelay/internal/app"
	"NewsRelay/internal/config"
	"NewsRelay/internal/logging"
)

// Options are the command-line switches; settings live in the YAML config.
type Options struct {
	Config      string `long:"config" short:"c" env:"NEWS_RELAY_CONFIG" description:"Path to YAML configuration file"`
	Once        bool   `long:"once" description:"Run the pipeline once and exit"`
	TestBot     bool   `long:"test-bot" description:"Check the Telegram bot connection, send a test message and exit"`
	Listen      string `long:"listen" description:"Admin HTTP listen address (overrides http.listen)"`
	NoScheduler bool   `long:"no-scheduler" description:"Do not start the scheduler at boot"`
}

func main() {
	opts, ok := parseOptions(os.Args[1:])
	if !ok {
		return
	}
	os.Exit(run(opts))
}

func parseOptions(args []string) (Options, bool) {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return opts, false
		}
		os.Exit(2)
	}
	return opts, true
}

func run(opts Options) int {
	cfg := config.Load(opts.Config)
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application failed to start", "error", err)
		return 1
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close dedup store", "error", err)
		}
	}()

	switch {
	case opts.TestBot:
		if err := application.TestBot(ctx); err != nil {
			logger.Error("bot test failed", "error", err)
			return 1
		}
		fmt.Println("Test successful")
		return 0
	case opts.Once:
		report := application.RunOnce(ctx)
		if report.FetchErr != nil {
			return 1
		}
		return 0
	}

	listen := cfg.HTTP.Listen
	if opts.Listen != "" {
		listen = opts.Listen
	}
	if err := application.Serve(ctx, app.ServeOptions{Listen: listen, StartScheduler: !opts.NoScheduler}); err != nil {
		logger.Error("application stopped", "error", err)
		return 1
	}
	logger.Info("shutdown complete")
	return 0
}
