package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// NOTE: All metrics are registered globally, so every binary exports the
// full set, with zero values for the parts it does not run.

// namespace defines the global prefix for all metrics (e.g., recommender_...).
const namespace = "recommender"

// lowLatencyBuckets gives 1ms and 2ms resolution for the gRPC read path.
var lowLatencyBuckets = []float64{.001, .002, .005, .010, .015, .020, .025, .030, .050, .100, .500}

var (
	// -------------------------------------------------------------------------
	// CONTROL PLANE (HTTP)
	// -------------------------------------------------------------------------

	// ControlPlaneReqDuration measures the latency of HTTP requests.
	// Metric: recommender_control_plane_http_handling_seconds
	ControlPlaneReqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "control_plane",
		Name:      "http_handling_seconds",
		Help:      "Time taken to handle HTTP requests in Control Plane",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	// ControlPlaneReqTotal counts the total number of HTTP requests.
	// Metric: recommender_control_plane_http_requests_total
	ControlPlaneReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "control_plane",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests in Control Plane",
	}, []string{"method", "path", "code"})

	// -------------------------------------------------------------------------
	// DATA PLANE (gRPC)
	// -------------------------------------------------------------------------

	// DataPlaneGrpcDuration measures the latency of gRPC requests.
	// Metric: recommender_data_plane_grpc_handling_seconds
	DataPlaneGrpcDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "data_plane",
		Name:      "grpc_handling_seconds",
		Help:      "Time taken to handle gRPC requests",
		Buckets:   lowLatencyBuckets,
	}, []string{"method", "code"})

	// DataPlaneGrpcTotal counts the total number of gRPC requests.
	// Metric: recommender_data_plane_grpc_requests_total
	DataPlaneGrpcTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "data_plane",
		Name:      "grpc_requests_total",
		Help:      "Total gRPC requests",
	}, []string{"method", "code"})

	// -------------------------------------------------------------------------
	// RECOMMENDATION ENGINE
	// -------------------------------------------------------------------------

	// RuleEvaluationsTotal counts rule verdicts by rule kind (fixed, dynamic).
	RuleEvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "rule_evaluations_total",
		Help:      "Total rule evaluations by kind and result",
	}, []string{"kind", "result"}) // kind: fixed|dynamic, result: matched|not_matched|error

	// ConditionErrorsTotal counts conditions that failed to evaluate and were treated as false.
	ConditionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "condition_errors_total",
		Help:      "Total condition evaluation errors contained by the engine",
	}, []string{"query"})

	// StatisticUpdateFailures counts trigger increments that failed and were swallowed.
	StatisticUpdateFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "statistic_update_failures_total",
		Help:      "Total rule trigger increments that failed",
	})

	// RecommendationsServed observes the number of recommendations per request.
	RecommendationsServed = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "recommendations_per_request",
		Help:      "Number of recommendations returned per request",
		Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
	})

	// -------------------------------------------------------------------------
	// QUERY CACHE
	// -------------------------------------------------------------------------

	// QueryCacheRequests counts aggregate cache lookups per tier.
	// Metric: recommender_query_cache_requests_total{tier="l1",result="hit"}
	QueryCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "query_cache",
		Name:      "requests_total",
		Help:      "Total aggregate cache lookups by tier and result",
	}, []string{"tier", "result"}) // tier: l1|l2, result: hit|miss|error

	// QueryCacheItems reports the number of entries in the L1 cache.
	QueryCacheItems = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "query_cache",
		Name:      "l1_items_count",
		Help:      "Current number of items in the L1 cache",
	})

	// QueryCacheInvalidations counts cache clears by origin.
	QueryCacheInvalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "query_cache",
		Name:      "invalidations_total",
		Help:      "Total cache invalidations by origin",
	}, []string{"origin"}) // origin: local|pubsub

	// -------------------------------------------------------------------------
	// DATABASE POOL
	// -------------------------------------------------------------------------

	// DatabasePoolConnections reports pool connections by state.
	DatabasePoolConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_connections",
		Help:      "Database pool connections by state",
	}, []string{"pool", "state"}) // state: total|idle|in_use|max

	// DatabasePoolAcquireCount counts successful connection acquisitions.
	DatabasePoolAcquireCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_acquire_count_total",
		Help:      "Total successful connection acquisitions",
	}, []string{"pool"})

	// DatabasePoolWaitCount counts acquisitions that had to wait for a connection.
	DatabasePoolWaitCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_wait_count_total",
		Help:      "Total acquisitions that waited for a free connection",
	}, []string{"pool"})

	// -------------------------------------------------------------------------
	// SYNCER (statistics exporter)
	// -------------------------------------------------------------------------

	// SyncerRunsTotal counts export rounds by status.
	SyncerRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "syncer",
		Name:      "runs_total",
		Help:      "Total statistics export rounds",
	}, []string{"status"}) // success, fail

	// SyncerRunDuration measures one export round.
	SyncerRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "syncer",
		Name:      "run_duration_seconds",
		Help:      "Time taken by one statistics export round",
		Buckets:   prometheus.DefBuckets,
	})

	// RuleTriggerCount mirrors the durable trigger counter of each rule.
	RuleTriggerCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "rules",
		Name:      "trigger_count",
		Help:      "Trigger count of each rule as stored in the statistics table",
	}, []string{"product_id", "active"})

	// RulesTotal reports the number of statistic rows by state.
	RulesTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "rules",
		Name:      "total",
		Help:      "Number of rule statistics by state",
	}, []string{"state"}) // active|inactive
)
