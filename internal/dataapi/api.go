// Package dataapi implements the gRPC read plane of the recommender.
// It serves recommendations and rule statistics to internal clients.
package dataapi

import (
	"context"

	"google.golang.org/grpc"

	"github.com/rafaeljc/recommender/internal/recommendation"
	"github.com/rafaeljc/recommender/internal/statistics"
	"github.com/rafaeljc/recommender/internal/validation"
)

// Compile-time check to verify that API implements the service contract.
var _ RecommendationServiceServer = (*API)(nil)

// Recommender computes the recommendations of one user.
type Recommender interface {
	RecommendationsFor(ctx context.Context, userID string) ([]recommendation.Recommendation, error)
}

// StatisticReader reads one rule's trigger counter.
type StatisticReader interface {
	StatisticByProductID(ctx context.Context, productID string) (*statistics.RuleReport, error)
}

// API implements RecommendationServiceServer.
type API struct {
	recommendations Recommender
	stats           StatisticReader
}

// NewAPI creates the read plane API. It panics if a dependency is nil.
func NewAPI(recs Recommender, stats StatisticReader) *API {
	validation.AssertDependency(recs, "dataapi: recommender")
	validation.AssertDependency(stats, "dataapi: statistic reader")

	return &API{recommendations: recs, stats: stats}
}

// Register connects this implementation to the grpc.Server engine.
func (a *API) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&ServiceDesc, a)
}
