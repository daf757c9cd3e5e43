// Package main initializes and runs the recommender Data Plane service.
//
// It is the composition root for the gRPC read API serving recommendations
// and rule statistics.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rafaeljc/recommender/internal/app"
	"github.com/rafaeljc/recommender/internal/config"
	"github.com/rafaeljc/recommender/internal/dataapi"
	"github.com/rafaeljc/recommender/internal/logger"
	"github.com/rafaeljc/recommender/internal/observability"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	// -------------------------------------------------------------------------
	// 1. Configuration & Logging
	// -------------------------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(&cfg.App).With(slog.String("plane", "data"))
	slog.SetDefault(log)
	cfg.LogConfig(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// -------------------------------------------------------------------------
	// 2. Infrastructure & Wiring
	// -------------------------------------------------------------------------
	components, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer components.Close()

	if err := components.Start(ctx); err != nil {
		return err
	}

	obs := observability.NewServer(log, &cfg.Observability, components.Checkers...)
	if err := obs.Start(); err != nil {
		return err
	}

	api := dataapi.NewAPI(components.Recommendations, components.Tracker)

	// -------------------------------------------------------------------------
	// 3. gRPC Server
	// -------------------------------------------------------------------------
	// Bind first so a taken port fails fast.
	addr := net.JoinHostPort(cfg.Server.Data.Host, cfg.Server.Data.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	grpcServer := dataapi.NewServer(&cfg.Server.Data, api, log)

	errChan := make(chan error, 1)
	go func() {
		log.Info("data plane listening", slog.String("addr", addr))
		if err := grpcServer.Serve(listener); err != nil {
			errChan <- fmt.Errorf("failed to serve gRPC: %w", err)
		}
	}()

	// -------------------------------------------------------------------------
	// 4. Graceful Shutdown
	// -------------------------------------------------------------------------
	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		log.Info("shutdown signal received, stopping gRPC server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	// GracefulStop blocks until pending RPCs finish; bound it by the shutdown timeout.
	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		log.Warn("graceful stop timed out, forcing")
		grpcServer.Stop()
	}

	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Error("observability shutdown failed", slog.Any("error", err))
	}

	log.Info("service exited successfully")
	return nil
}
