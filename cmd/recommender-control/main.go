// Package main initializes and runs the recommender Control Plane service.
//
// It is the composition root for the REST API: rule management, statistics,
// recommendations and cache management.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rafaeljc/recommender/internal/app"
	"github.com/rafaeljc/recommender/internal/config"
	"github.com/rafaeljc/recommender/internal/controlapi"
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
	startedAt := time.Now()

	// -------------------------------------------------------------------------
	// 1. Configuration & Logging
	// -------------------------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(&cfg.App).With(slog.String("plane", "control"))
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

	control := &cfg.Server.Control
	api := controlapi.NewAPIWithConfig(controlapi.Services{
		Rules:           components.Rules,
		Statistics:      components.Tracker,
		Recommendations: components.Recommendations,
		Caches:          components.Invalidator,
	}, controlapi.BuildInfo{
		Name:      cfg.App.Name,
		Version:   cfg.App.Version,
		StartedAt: startedAt,
	}, control.APIKeyHash, control.APIKeyHash == "",
		controlapi.WithRequestTimeout(control.RequestTimeout),
		controlapi.WithMaxBodyBytes(control.MaxBodyBytes),
	)
	if control.APIKeyHash == "" {
		log.Warn("control plane authentication disabled: no API key hash configured")
	}

	// -------------------------------------------------------------------------
	// 3. HTTP Server
	// -------------------------------------------------------------------------
	addr := net.JoinHostPort(control.Host, control.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Router,
		ReadTimeout:       control.ReadTimeout,
		ReadHeaderTimeout: control.ReadHeaderTimeout,
		WriteTimeout:      control.WriteTimeout,
		IdleTimeout:       control.IdleTimeout,
		MaxHeaderBytes:    control.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("control plane listening", slog.String("addr", addr), slog.Bool("tls", control.TLSEnabled))
		var err error
		if control.TLSEnabled {
			err = srv.ListenAndServeTLS(control.TLSCert, control.TLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("control plane server: %w", err)
		}
	}()

	// -------------------------------------------------------------------------
	// 4. Graceful Shutdown
	// -------------------------------------------------------------------------
	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("control plane shutdown failed", slog.Any("error", err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Error("observability shutdown failed", slog.Any("error", err))
	}

	log.Info("service exited successfully")
	return nil
}
