// Package syncer implements the background worker that exports the durable
// rule trigger counters (PostgreSQL) as Prometheus gauges.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/rafaeljc/recommender/internal/config"
	"github.com/rafaeljc/recommender/internal/observability"
	"github.com/rafaeljc/recommender/internal/store"
)

// minInterval guards against a misconfigured busy loop.
const minInterval = time.Second

// StatisticsLister reads every statistic row, active and inactive.
type StatisticsLister interface {
	ListStatistics(ctx context.Context) ([]*store.Statistic, error)
}

// Service periodically mirrors the statistics table into gauges.
type Service struct {
	logger *slog.Logger
	config config.SyncerConfig
	stats  StatisticsLister
}

// New creates a new Syncer service.
func New(logger *slog.Logger, cfg config.SyncerConfig, stats StatisticsLister) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if stats == nil {
		panic("syncer: statistics lister cannot be nil")
	}

	if cfg.Interval < minInterval {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Timeout <= 0 || cfg.Timeout > cfg.Interval {
		cfg.Timeout = cfg.Interval
	}

	return &Service{logger: logger, config: cfg, stats: stats}
}

// Run exports once immediately, then on every tick until ctx is cancelled.
// A failed round is logged and retried on the next tick.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("starting syncer service", slog.Duration("interval", s.config.Interval))

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if err := s.Sync(ctx); err != nil {
		s.logger.Error("initial export failed", slog.Any("error", err))
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("syncer service stopping")
			return nil
		case <-ticker.C:
			if err := s.Sync(ctx); err != nil {
				s.logger.Error("export round failed", slog.Any("error", err))
			}
		}
	}
}

// Sync performs a single export round bounded by the configured timeout.
func (s *Service) Sync(ctx context.Context) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	// 1. Read the source of truth
	rows, err := s.stats.ListStatistics(ctx)
	observability.SyncerRunDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.SyncerRunsTotal.WithLabelValues("fail").Inc()
		return fmt.Errorf("list statistics: %w", err)
	}

	// 2. Replace the gauges so deleted or reactivated rules leave no stale series
	observability.RuleTriggerCount.Reset()
	var active, inactive int
	for _, row := range rows {
		observability.RuleTriggerCount.
			WithLabelValues(row.ProductID, strconv.FormatBool(row.Active)).
			Set(float64(row.TriggerCount))
		if row.Active {
			active++
		} else {
			inactive++
		}
	}
	observability.RulesTotal.WithLabelValues("active").Set(float64(active))
	observability.RulesTotal.WithLabelValues("inactive").Set(float64(inactive))
	observability.SyncerRunsTotal.WithLabelValues("success").Inc()

	s.logger.Debug("statistics exported",
		slog.Int("active", active),
		slog.Int("inactive", inactive),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}
