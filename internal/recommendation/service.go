// Package recommendation merges the built-in rules and the stored rule sets
// into the list of products recommended to a user.
package recommendation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/rafaeljc/recommender/internal/observability"
	"github.com/rafaeljc/recommender/internal/ruleengine"
	"github.com/rafaeljc/recommender/internal/store"
)

// ErrInvalidUserID is returned when the user id is not a UUID.
var ErrInvalidUserID = errors.New("user id must be a valid UUID")

// Recommendation is one recommended product.
type Recommendation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// DynamicEvaluator evaluates the stored rule sets for a user.
type DynamicEvaluator interface {
	EvaluateAllForUser(ctx context.Context, userID string) ([]*store.RuleSet, error)
}

// Service is the recommendation aggregator.
type Service struct {
	provider ruleengine.QueryProvider
	fixed    []FixedRule
	dynamic  DynamicEvaluator
	logger   *slog.Logger
}

// NewService creates the aggregator with the given fixed rules. A nil
// fixed slice means DefaultFixedRules.
func NewService(provider ruleengine.QueryProvider, dynamic DynamicEvaluator, fixed []FixedRule, logger *slog.Logger) *Service {
	if provider == nil {
		panic("recommendation: query provider cannot be nil")
	}
	if dynamic == nil {
		panic("recommendation: dynamic evaluator cannot be nil")
	}
	if fixed == nil {
		fixed = DefaultFixedRules()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{provider: provider, fixed: fixed, dynamic: dynamic, logger: logger}
}

// CanonicalUserID validates a user id and returns its lowercase form.
func CanonicalUserID(userID string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidUserID, userID)
	}
	return parsed.String(), nil
}

// RecommendationsFor returns the fixed-rule matches in declaration order
// followed by the rule set matches in store order. Both lists are kept as is,
// so a product recommended by both appears twice.
//
// A rule that fails to evaluate is logged and left out. The call fails only
// on a malformed user id or when ctx ends.
func (s *Service) RecommendationsFor(ctx context.Context, userID string) ([]Recommendation, error) {
	userID, err := CanonicalUserID(userID)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(slog.String("user_id", userID))

	// 1. Fixed rules
	recs := make([]Recommendation, 0, len(s.fixed))
	for _, rule := range s.fixed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ok, err := rule.Matches(ctx, s.provider, userID)
		switch {
		case err != nil:
			observability.RuleEvaluationsTotal.WithLabelValues("fixed", "error").Inc()
			log.Error("fixed rule evaluation failed",
				slog.String("product_id", rule.Recommendation().ID),
				slog.Any("error", err),
			)
		case ok:
			observability.RuleEvaluationsTotal.WithLabelValues("fixed", "matched").Inc()
			recs = append(recs, rule.Recommendation())
		default:
			observability.RuleEvaluationsTotal.WithLabelValues("fixed", "not_matched").Inc()
		}
	}

	// 2. Stored rule sets
	matched, err := s.dynamic.EvaluateAllForUser(ctx, userID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Error("rule set evaluation failed, serving fixed recommendations only", slog.Any("error", err))
	}
	for _, rs := range matched {
		recs = append(recs, Recommendation{ID: rs.ProductID, Name: rs.ProductName, Text: rs.ProductText})
	}

	observability.RecommendationsServed.Observe(float64(len(recs)))
	log.Debug("recommendations computed", slog.Int("count", len(recs)))
	return recs, nil
}
