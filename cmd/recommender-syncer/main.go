// Package main runs the statistics syncer worker, which exports the rule
// trigger counters as Prometheus gauges.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rafaeljc/recommender/internal/config"
	"github.com/rafaeljc/recommender/internal/database"
	"github.com/rafaeljc/recommender/internal/logger"
	"github.com/rafaeljc/recommender/internal/observability"
	"github.com/rafaeljc/recommender/internal/store"
	"github.com/rafaeljc/recommender/internal/syncer"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	// 1. Configuration & Logging
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(&cfg.App).With(slog.String("worker", "syncer"))
	slog.SetDefault(log)
	cfg.LogConfig(log)

	if !cfg.Syncer.Enabled {
		log.Info("syncer disabled, exiting")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Infrastructure
	pool, err := database.NewPostgresPool(logger.WithContext(ctx, log), &cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	go database.RunPoolMonitor(ctx, pool, "rules", 15*time.Second)

	obs := observability.NewServer(log, &cfg.Observability, database.NewPostgresChecker("postgres", pool))
	if err := obs.Start(); err != nil {
		return err
	}

	// 3. Worker; Run blocks until the signal context ends
	worker := syncer.New(logger.Component(log, "syncer"), cfg.Syncer, store.NewPostgresStore(pool))
	if err := worker.Run(ctx); err != nil {
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Error("observability shutdown failed", slog.Any("error", err))
	}

	log.Info("worker exited successfully")
	return nil
}
