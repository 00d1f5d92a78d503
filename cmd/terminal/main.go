package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"stock-forecast-app/internal/config"
	"stock-forecast-app/internal/logging"
	"stock-forecast-app/internal/services"
	"stock-forecast-app/internal/terminal"
)

const logFile = "stock-forecast-terminal.log"

func main() {
	if err := run(); err != nil {
		logrus.Fatalf("Terminal session failed: %v", err)
	}
}

// run returns instead of exiting so the log file and history store are closed.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// The session owns the screen, so logs go to a file.
	log := logging.New(cfg.LogLevel, cfg.Environment)
	closer, err := logging.ToFile(log, logFile)
	if err != nil {
		log = logging.Discard()
	} else {
		defer closer.Close()
	}

	marketData := services.NewMarketDataService(cfg, log)
	store, err := services.OpenHistoryStore(context.Background(), cfg, log)
	if err != nil {
		log.WithError(err).Warn("History store unavailable, downloads will not persist")
	}
	if store != nil {
		defer store.Close()
		marketData.WithStore(store)
	}
	orchestrator := services.NewForecastOrchestrator(marketData, services.NewForecastService(log), nil, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := terminal.NewSession(orchestrator, log).Run(ctx); err != nil {
		log.WithError(err).Error("Terminal session failed")
		return err
	}
	return nil
}
