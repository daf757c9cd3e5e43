// Package store provides the persistence layer for rule sets and their
// trigger statistics. It ships a PostgreSQL implementation backed by pgx and
// an in-memory implementation used by tests and local runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rafaeljc/recommender/internal/ruleengine"
)

var (
	// ErrDuplicateProductID is returned when a rule set with the same product id already exists.
	ErrDuplicateProductID = errors.New("product id already exists")

	// ErrRuleSetNotFound is returned when no rule set has the requested product id.
	ErrRuleSetNotFound = errors.New("rule set not found")

	// ErrStatisticNotFound is returned when no statistic row exists for the product id.
	ErrStatisticNotFound = errors.New("statistic not found")
)

// RuleSet is a dynamic recommendation rule: one product tied to an ordered
// list of conditions. It mirrors the 'rule_sets' and 'rule_conditions' tables.
type RuleSet struct {
	ID          int64                  `db:"id"`
	ProductID   string                 `db:"product_id"`
	ProductName string                 `db:"product_name"`
	ProductText string                 `db:"product_text"`
	Conditions  []ruleengine.Condition `db:"-"`
	CreatedAt   time.Time              `db:"created_at"`
}

// Statistic is the durable trigger counter of one product id.
// Rows are never deleted; deleting the owning rule set only clears Active.
type Statistic struct {
	ID              int64      `db:"id"`
	ProductID       string     `db:"product_id"`
	ProductName     string     `db:"product_name"`
	TriggerCount    int64      `db:"trigger_count"`
	LastTriggeredAt *time.Time `db:"last_triggered_at"`
	Active          bool       `db:"active"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// RuleSetRepository persists rule set definitions.
type RuleSetRepository interface {
	// CreateRuleSet inserts the rule set and its conditions atomically and
	// populates ID and CreatedAt. It also makes sure an active statistic row
	// exists for the product id, keeping any historical count.
	// Returns ErrDuplicateProductID if the product id is taken.
	CreateRuleSet(ctx context.Context, rs *RuleSet) error

	// ListRuleSets returns every rule set ordered by ID ascending.
	ListRuleSets(ctx context.Context) ([]*RuleSet, error)

	// DeleteRuleSet removes the rule set and its conditions and deactivates
	// its statistic in one atomic step.
	// Returns ErrRuleSetNotFound if no rule set has the product id.
	DeleteRuleSet(ctx context.Context, productID string) error

	// ExistsByProductID reports whether a rule set with the product id exists.
	ExistsByProductID(ctx context.Context, productID string) (bool, error)
}

// StatisticRepository persists rule trigger counters.
type StatisticRepository interface {
	// IncrementStatistic creates the row if needed and increments its count
	// in a single atomic operation. It returns the new count.
	IncrementStatistic(ctx context.Context, productID, productName string) (int64, error)

	// DeactivateStatistic marks the row inactive without touching its count.
	// Returns ErrStatisticNotFound if there is no row.
	DeactivateStatistic(ctx context.Context, productID string) error

	// GetStatistic returns the row for the product id or ErrStatisticNotFound.
	GetStatistic(ctx context.Context, productID string) (*Statistic, error)

	// ListStatistics returns every row, active or not, ordered by ID ascending.
	ListStatistics(ctx context.Context) ([]*Statistic, error)
}

// Store groups both repositories. Implementations keep rule sets and
// statistics in the same backend so deletion can deactivate atomically.
type Store interface {
	RuleSetRepository
	StatisticRepository
}

func cloneRuleSet(rs *RuleSet) *RuleSet {
	out := *rs
	out.Conditions = make([]ruleengine.Condition, len(rs.Conditions))
	for i, c := range rs.Conditions {
		c.Arguments = append([]string(nil), c.Arguments...)
		out.Conditions[i] = c
	}
	return &out
}

func cloneStatistic(s *Statistic) *Statistic {
	out := *s
	if s.LastTriggeredAt != nil {
		t := *s.LastTriggeredAt
		out.LastTriggeredAt = &t
	}
	return &out
}
