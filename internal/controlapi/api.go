// Package controlapi implements the REST API of the recommender control plane.
// It manages rule sets, serves statistics and recommendations, and exposes
// cache management endpoints.
package controlapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/rafaeljc/recommender/internal/recommendation"
	"github.com/rafaeljc/recommender/internal/rules"
	"github.com/rafaeljc/recommender/internal/statistics"
	"github.com/rafaeljc/recommender/internal/store"
	"github.com/rafaeljc/recommender/internal/validation"
)

// RuleManager creates, lists and deletes rule sets.
type RuleManager interface {
	Create(ctx context.Context, def rules.Definition) (*store.RuleSet, error)
	List(ctx context.Context) ([]*store.RuleSet, error)
	Delete(ctx context.Context, productID string) error
}

// StatisticsReader reads the rule trigger counters.
type StatisticsReader interface {
	FullStatistics(ctx context.Context) (*statistics.Report, error)
	StatisticByProductID(ctx context.Context, productID string) (*statistics.RuleReport, error)
}

// Recommender computes the recommendations of one user.
type Recommender interface {
	RecommendationsFor(ctx context.Context, userID string) ([]recommendation.Recommendation, error)
}

// CacheInvalidator clears the query caches.
type CacheInvalidator interface {
	ClearAll(ctx context.Context) error
	ClearUser(ctx context.Context, userID string) error
}

// Services groups the dependencies served by the API. Every field is required.
type Services struct {
	Rules           RuleManager
	Statistics      StatisticsReader
	Recommendations Recommender
	Caches          CacheInvalidator
}

// BuildInfo describes the running instance for the management endpoint.
type BuildInfo struct {
	Name      string
	Version   string
	StartedAt time.Time
}

// API holds the router and the dependencies of the control plane.
type API struct {
	// Router is the Chi multiplexer that handles HTTP requests.
	Router *chi.Mux

	rules           RuleManager
	stats           StatisticsReader
	recommendations Recommender
	caches          CacheInvalidator
	info            BuildInfo

	// apiKeyHash is the hex SHA-256 of the accepted API key.
	apiKeyHash string

	// skipAuth disables authentication (tests and local development only).
	skipAuth bool

	// requestTimeout bounds each /api/v1 request; zero disables it.
	requestTimeout time.Duration
	maxBodyBytes   int64
}

// Option customizes an API.
type Option func(*API)

// WithRequestTimeout bounds every /api/v1 handler with a deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(a *API) { a.requestTimeout = d }
}

// WithMaxBodyBytes limits the size of request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(a *API) { a.maxBodyBytes = n }
}

// NewAPI creates an API with authentication enabled.
// It panics if apiKeyHash is empty.
func NewAPI(svc Services, info BuildInfo, apiKeyHash string, opts ...Option) *API {
	return NewAPIWithConfig(svc, info, apiKeyHash, false, opts...)
}

// NewAPIWithConfig creates an API with explicit control over authentication.
//
// Panics if:
//   - any field of svc is nil
//   - apiKeyHash is empty when skipAuth is false
func NewAPIWithConfig(svc Services, info BuildInfo, apiKeyHash string, skipAuth bool, opts ...Option) *API {
	validation.AssertDependency(svc.Rules, "controlapi: rule manager")
	validation.AssertDependency(svc.Statistics, "controlapi: statistics reader")
	validation.AssertDependency(svc.Recommendations, "controlapi: recommender")
	validation.AssertDependency(svc.Caches, "controlapi: cache invalidator")

	if !skipAuth && apiKeyHash == "" {
		panic("controlapi: apiKeyHash cannot be empty when authentication is enabled")
	}
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now()
	}

	api := &API{
		Router:          chi.NewRouter(),
		rules:           svc.Rules,
		stats:           svc.Statistics,
		recommendations: svc.Recommendations,
		caches:          svc.Caches,
		info:            info,
		apiKeyHash:      apiKeyHash,
		skipAuth:        skipAuth,
	}
	for _, opt := range opts {
		opt(api)
	}

	api.configureRoutes()
	return api
}

// configureRoutes registers the global middleware stack and API endpoints.
func (a *API) configureRoutes() {
	// 1. Global middleware stack
	a.Router.Use(middleware.RequestID)
	a.Router.Use(middleware.RealIP)
	a.Router.Use(RequestLogger)
	a.Router.Use(RequestMetrics)
	a.Router.Use(middleware.Recoverer)
	a.Router.Use(render.SetContentType(render.ContentTypeJSON))

	// 2. Public routes
	a.Router.Get("/health", a.handleHealthCheck)

	// 3. Protected API v1 routes
	a.Router.Route("/api/v1", func(r chi.Router) {
		r.Use(a.authenticateAPIKey)
		if a.maxBodyBytes > 0 {
			r.Use(middleware.RequestSize(a.maxBodyBytes))
		}
		if a.requestTimeout > 0 {
			r.Use(middleware.Timeout(a.requestTimeout))
		}

		r.Route("/rules", func(r chi.Router) {
			r.Post("/", a.handleCreateRule)
			r.Get("/", a.handleListRules)

			r.Get("/stats", a.handleFullStatistics)
			r.Get("/stats/{productId}", a.handleRuleStatistic)

			r.Delete("/{productId}", a.handleDeleteRule)
		})

		r.Get("/recommendations/{userId}", a.handleRecommendations)

		r.Route("/management", func(r chi.Router) {
			r.Post("/clear-caches", a.handleClearCaches)
			r.Get("/info", a.handleInfo)
		})
	})
}

// handleHealthCheck reports that the HTTP server is serving. Dependency
// checks live on the observability server's readiness probe.
func (a *API) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}
