package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"FilingScanner/internal/app"
	"FilingScanner/internal/config"
	"FilingScanner/internal/logging"
)

func main() {
	loop := flag.Bool("loop", false, "run on the configured interval instead of once")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if *loop {
		err = application.RunRecurring(ctx)
	} else {
		err = application.Run(ctx)
	}
	if err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
