package rules

import (
	"context"
	"log/slog"

	"github.com/rafaeljc/recommender/internal/observability"
	"github.com/rafaeljc/recommender/internal/ruleengine"
	"github.com/rafaeljc/recommender/internal/store"
)

// TriggerCounter records that a rule fired for some user.
type TriggerCounter interface {
	Increment(ctx context.Context, productID, productName string) error
}

// Evaluator runs stored rule sets against a user.
type Evaluator struct {
	engine   *ruleengine.Engine
	ruleSets store.RuleSetRepository
	counter  TriggerCounter
	logger   *slog.Logger
}

// NewEvaluator creates an Evaluator. It panics if any dependency is nil.
func NewEvaluator(engine *ruleengine.Engine, ruleSets store.RuleSetRepository, counter TriggerCounter, logger *slog.Logger) *Evaluator {
	if engine == nil {
		panic("rules: engine cannot be nil")
	}
	if ruleSets == nil {
		panic("rules: rule set repository cannot be nil")
	}
	if counter == nil {
		panic("rules: trigger counter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{engine: engine, ruleSets: ruleSets, counter: counter, logger: logger}
}

// Evaluate reports whether every condition of rs holds for the user,
// stopping at the first one that does not. It never fails.
func (e *Evaluator) Evaluate(ctx context.Context, rs *store.RuleSet, userID string) bool {
	return e.engine.EvaluateConditions(ctx, rs.Conditions, userID)
}

// EvaluateAllForUser evaluates every stored rule set and returns the matches
// in store order. Each match increments its trigger counter once; counter
// failures are logged and do not affect the result.
//
// An error is returned only when the rule sets cannot be listed or ctx ends,
// in which case the matches found so far are returned alongside it.
func (e *Evaluator) EvaluateAllForUser(ctx context.Context, userID string) ([]*store.RuleSet, error) {
	ruleSets, err := e.ruleSets.ListRuleSets(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*store.RuleSet, 0, len(ruleSets))
	for _, rs := range ruleSets {
		if err := ctx.Err(); err != nil {
			return matched, err
		}

		if !e.Evaluate(ctx, rs, userID) {
			observability.RuleEvaluationsTotal.WithLabelValues("dynamic", "not_matched").Inc()
			continue
		}
		observability.RuleEvaluationsTotal.WithLabelValues("dynamic", "matched").Inc()
		matched = append(matched, rs)

		if err := e.counter.Increment(ctx, rs.ProductID, rs.ProductName); err != nil {
			observability.StatisticUpdateFailures.Inc()
			e.logger.Warn("failed to record rule trigger",
				slog.String("product_id", rs.ProductID),
				slog.String("user_id", userID),
				slog.Any("error", err),
			)
		}
	}
	return matched, nil
}
