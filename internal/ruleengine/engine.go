package ruleengine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rafaeljc/recommender/internal/observability"
)

// Engine evaluates conditions for one user against a QueryProvider.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	provider QueryProvider
	logger   *slog.Logger
}

// New creates a new Engine. It panics if provider is nil.
// If logger is nil, it defaults to slog.Default().
func New(provider QueryProvider, logger *slog.Logger) *Engine {
	if provider == nil {
		panic("ruleengine: query provider cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		provider: provider,
		logger:   logger,
	}
}

// Check evaluates a single condition and reports failures as *EvaluationError.
func (e *Engine) Check(ctx context.Context, c Condition, userID string) (bool, error) {
	compiled, err := Compile(c)
	if err != nil {
		return false, &EvaluationError{Query: c.Query, Err: err}
	}

	ok, err := compiled.Eval(ctx, e.provider, userID)
	if err != nil {
		return false, &EvaluationError{Query: c.Query, Err: err}
	}
	return ok, nil
}

// EvaluateCondition evaluates a single condition.
// Evaluation errors are logged and the condition counts as false.
func (e *Engine) EvaluateCondition(ctx context.Context, c Condition, userID string) bool {
	ok, err := e.Check(ctx, c, userID)
	if err != nil {
		// Fail-safe: one bad condition must not break the rest of the request.
		observability.ConditionErrorsTotal.WithLabelValues(string(c.Query)).Inc()
		level := slog.LevelError
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			level = slog.LevelWarn
		}
		e.logger.Log(ctx, level, "condition evaluation failed",
			slog.String("query", string(c.Query)),
			slog.Any("arguments", c.Arguments),
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return false
	}
	return ok
}

// EvaluateConditions evaluates conditions in order with AND semantics and
// stops at the first false one. An empty list never matches.
func (e *Engine) EvaluateConditions(ctx context.Context, conditions []Condition, userID string) bool {
	if len(conditions) == 0 {
		e.logger.Warn("skipping rule without conditions", slog.String("user_id", userID))
		return false
	}

	for _, c := range conditions {
		if !e.EvaluateCondition(ctx, c, userID) {
			return false
		}
	}
	return true
}
