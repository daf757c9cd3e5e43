// Package app is the composition root shared by the recommender binaries.
// It turns a loaded configuration into connected, wired components.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/rafaeljc/recommender/internal/cache"
	"github.com/rafaeljc/recommender/internal/config"
	"github.com/rafaeljc/recommender/internal/database"
	"github.com/rafaeljc/recommender/internal/logger"
	"github.com/rafaeljc/recommender/internal/observability"
	"github.com/rafaeljc/recommender/internal/recommendation"
	"github.com/rafaeljc/recommender/internal/ruleengine"
	"github.com/rafaeljc/recommender/internal/rules"
	"github.com/rafaeljc/recommender/internal/statistics"
	"github.com/rafaeljc/recommender/internal/store"
	"github.com/rafaeljc/recommender/internal/transactions"
	"github.com/rafaeljc/recommender/internal/validation"
)

// monitorInterval is how often pool and cache gauges are sampled.
const monitorInterval = 15 * time.Second

// Components holds every wired dependency of the recommender services.
type Components struct {
	Logger *slog.Logger

	RulesDB *pgxpool.Pool
	// TxDB is RulesDB unless a dedicated transactions database is configured.
	TxDB  *pgxpool.Pool
	Redis *redis.Client // nil when the L2 tier is disabled

	Store           *store.PostgresStore
	L1              *cache.MemoryQueryCache
	Cache           cache.QueryCache
	Invalidator     *cache.Invalidator
	Rules           *rules.Service
	Tracker         *statistics.Tracker
	Evaluator       *rules.Evaluator
	Recommendations *recommendation.Service

	// Checkers back the readiness probe.
	Checkers []observability.Checker
}

// Build connects to the databases (and Redis when the L2 tier is on) and
// wires the domain services. On failure every opened resource is released.
func Build(ctx context.Context, cfg *config.Config, log *slog.Logger) (c *Components, err error) {
	validation.AssertNotNil(cfg, "app: config")
	if log == nil {
		log = slog.Default()
	}
	c = &Components{Logger: log}
	defer func() {
		if err != nil {
			c.Close()
			c = nil
		}
	}()

	// 1. Rules and statistics database
	ctx = logger.WithContext(ctx, logger.Component(log, "database"))
	if c.RulesDB, err = database.NewPostgresPool(ctx, &cfg.Database); err != nil {
		return c, fmt.Errorf("rules database: %w", err)
	}
	c.Checkers = append(c.Checkers, database.NewPostgresChecker("postgres", c.RulesDB))

	// 2. Transactions database, falling back to the rules database
	c.TxDB = c.RulesDB
	if cfg.Transactions.IsConfigured() {
		if c.TxDB, err = database.NewPostgresPool(ctx, cfg.TransactionsDatabase()); err != nil {
			c.TxDB = nil
			return c, fmt.Errorf("transactions database: %w", err)
		}
		c.Checkers = append(c.Checkers, database.NewPostgresChecker("postgres_transactions", c.TxDB))
	}

	// 3. Query caches
	if c.L1, err = cache.NewMemoryQueryCache(cfg.Cache.L1Capacity, cfg.Cache.L1TTL); err != nil {
		return c, fmt.Errorf("l1 cache: %w", err)
	}
	var l2 cache.QueryCache
	if cfg.Cache.L2Enabled {
		redisCtx := logger.WithContext(ctx, logger.Component(log, "redis"))
		if c.Redis, err = cache.NewRedisClient(redisCtx, &cfg.Redis); err != nil {
			return c, fmt.Errorf("redis: %w", err)
		}
		l2 = cache.NewRedisQueryCache(c.Redis, cfg.Cache.L2KeyPrefix, cfg.Cache.L2TTL, logger.Component(log, "l2_cache"))
		c.Checkers = append(c.Checkers, cache.NewRedisChecker(c.Redis))
	}
	c.Cache = cache.NewTiered(c.L1, l2)
	c.Invalidator = cache.NewInvalidator(c.Cache, c.L1, c.Redis, cfg.Cache.InvalidationChannel, logger.Component(log, "invalidator"))

	// 4. Domain services
	c.Store = store.NewPostgresStore(c.RulesDB)
	provider := transactions.NewCachedProvider(transactions.NewPostgresProvider(c.TxDB), c.Cache)

	c.Tracker = statistics.NewTracker(c.Store, c.Store, cfg.Statistics.TopRulesLimit, logger.Component(log, "statistics"))
	c.Rules = rules.NewService(c.Store, logger.Component(log, "rules"))
	engine := ruleengine.New(provider, logger.Component(log, "ruleengine"))
	c.Evaluator = rules.NewEvaluator(engine, c.Store, c.Tracker, logger.Component(log, "evaluator"))
	c.Recommendations = recommendation.NewService(provider, c.Evaluator, nil, logger.Component(log, "recommendation"))

	return c, nil
}

// Start launches the background workers: the cross-replica invalidation
// listener and the pool and cache gauges. They stop when ctx is cancelled.
func (c *Components) Start(ctx context.Context) error {
	if err := c.Invalidator.Start(ctx); err != nil {
		return err
	}

	go database.RunPoolMonitor(ctx, c.RulesDB, "rules", monitorInterval)
	if c.TxDB != c.RulesDB {
		go database.RunPoolMonitor(ctx, c.TxDB, "transactions", monitorInterval)
	}
	go c.L1.RunMetricsCollector(ctx, monitorInterval)
	return nil
}

// Close releases connections in reverse order of creation. It is safe on
// partially built components.
func (c *Components) Close() {
	if c.L1 != nil {
		c.L1.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("failed to close redis client", slog.Any("error", err))
		}
	}
	if c.TxDB != nil && c.TxDB != c.RulesDB {
		c.TxDB.Close()
	}
	if c.RulesDB != nil {
		c.RulesDB.Close()
	}
}
