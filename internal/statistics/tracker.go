// Package statistics tracks how often each dynamic rule fires and builds the
// reports served by the control and data APIs.
package statistics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rafaeljc/recommender/internal/store"
)

// DefaultTopRulesLimit is used when the tracker is built with a non-positive limit.
const DefaultTopRulesLimit = 10

// ErrNotFound is returned when neither a rule set nor a statistic exists for a product id.
var ErrNotFound = errors.New("rule statistic not found")

// RuleReport describes the counter of one rule.
type RuleReport struct {
	ProductID       string     `json:"product_id"`
	ProductName     string     `json:"product_name"`
	TriggerCount    int64      `json:"count"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	Active          bool       `json:"active"`
	RuleExists      bool       `json:"rule_exists"`
}

// Report aggregates the counters of every stored rule set.
type Report struct {
	Stats                  []RuleReport `json:"stats"`
	TotalRules             int          `json:"total_rules"`
	ActiveRules            int          `json:"active_rules"`
	RulesWithStatistics    int          `json:"rules_with_statistics"`
	ActiveStatistics       int          `json:"active_statistics"`
	TotalTriggerCount      int64        `json:"total_trigger_count"`
	AverageTriggersPerRule float64      `json:"average_triggers_per_rule"`
	TopRules               []RuleReport `json:"top_rules"`
	GeneratedAt            time.Time    `json:"generated_at"`
}

// Tracker owns the rule trigger counters.
type Tracker struct {
	ruleSets store.RuleSetRepository
	stats    store.StatisticRepository
	topN     int
	logger   *slog.Logger
}

// NewTracker creates a Tracker. It panics if either repository is nil.
func NewTracker(ruleSets store.RuleSetRepository, stats store.StatisticRepository, topN int, logger *slog.Logger) *Tracker {
	if ruleSets == nil {
		panic("statistics: rule set repository cannot be nil")
	}
	if stats == nil {
		panic("statistics: statistic repository cannot be nil")
	}
	if topN <= 0 {
		topN = DefaultTopRulesLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{ruleSets: ruleSets, stats: stats, topN: topN, logger: logger}
}

// Increment records one trigger of the rule. It is safe for concurrent use.
func (t *Tracker) Increment(ctx context.Context, productID, productName string) error {
	count, err := t.stats.IncrementStatistic(ctx, productID, productName)
	if err != nil {
		return fmt.Errorf("increment %s: %w", productID, err)
	}
	t.logger.Debug("rule triggered",
		slog.String("product_id", productID),
		slog.Int64("trigger_count", count),
	)
	return nil
}

// Deactivate marks the rule's counter inactive and keeps its count.
// Rule deletion does not go through here: DeleteRuleSet deactivates the
// counter in the same transaction that removes the rule set. Deactivate is
// for counters whose rule set is removed by other means.
func (t *Tracker) Deactivate(ctx context.Context, productID string) error {
	if err := t.stats.DeactivateStatistic(ctx, productID); err != nil {
		if errors.Is(err, store.ErrStatisticNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, productID)
		}
		return fmt.Errorf("deactivate %s: %w", productID, err)
	}
	return nil
}

// FullStatistics joins every stored rule set with its counter. Rule sets
// without a counter report zero. The ranking is by count descending, ties
// kept in rule set order.
func (t *Tracker) FullStatistics(ctx context.Context) (*Report, error) {
	// 1. Current rule sets define the report rows
	ruleSets, err := t.ruleSets.ListRuleSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rule sets: %w", err)
	}

	// 2. Counters, including inactive history, indexed for the join
	stats, err := t.stats.ListStatistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("list statistics: %w", err)
	}
	report := &Report{Stats: make([]RuleReport, 0, len(ruleSets)), GeneratedAt: time.Now().UTC()}
	byProduct := make(map[string]*store.Statistic, len(stats))
	for _, s := range stats {
		byProduct[s.ProductID] = s
		if s.Active {
			report.ActiveStatistics++
		}
	}

	// 3. Join
	for _, rs := range ruleSets {
		row := RuleReport{
			ProductID:   rs.ProductID,
			ProductName: rs.ProductName,
			Active:      true,
			RuleExists:  true,
		}
		if s, ok := byProduct[rs.ProductID]; ok {
			row.TriggerCount = s.TriggerCount
			row.LastTriggeredAt = s.LastTriggeredAt
			row.Active = s.Active
			report.RulesWithStatistics++
		}
		if row.Active {
			report.ActiveRules++
		}
		report.Stats = append(report.Stats, row)
		report.TotalTriggerCount += row.TriggerCount
	}

	// 4. Totals and ranking
	report.TotalRules = len(report.Stats)
	if report.TotalRules > 0 {
		report.AverageTriggersPerRule = float64(report.TotalTriggerCount) / float64(report.TotalRules)
	}
	report.TopRules = rank(report.Stats, t.topN)

	return report, nil
}

// StatisticByProductID reports one rule's counter. It returns ErrNotFound
// only when neither a rule set nor a counter exists, so a deleted rule still
// reports its retained history and a fresh rule reports zero.
func (t *Tracker) StatisticByProductID(ctx context.Context, productID string) (*RuleReport, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(productID))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, productID)
	}
	productID = parsed.String()

	exists, err := t.ruleSets.ExistsByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("check rule set: %w", err)
	}

	s, err := t.stats.GetStatistic(ctx, productID)
	switch {
	case err == nil:
		return &RuleReport{
			ProductID:       s.ProductID,
			ProductName:     s.ProductName,
			TriggerCount:    s.TriggerCount,
			LastTriggeredAt: s.LastTriggeredAt,
			Active:          s.Active,
			RuleExists:      exists,
		}, nil
	case !errors.Is(err, store.ErrStatisticNotFound):
		return nil, fmt.Errorf("get statistic: %w", err)
	case exists:
		return t.zeroReport(ctx, productID)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, productID)
	}
}

// zeroReport describes an existing rule set that has never been counted.
func (t *Tracker) zeroReport(ctx context.Context, productID string) (*RuleReport, error) {
	report := &RuleReport{ProductID: productID, Active: true, RuleExists: true}

	ruleSets, err := t.ruleSets.ListRuleSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rule sets: %w", err)
	}
	for _, rs := range ruleSets {
		if rs.ProductID == productID {
			report.ProductName = rs.ProductName
			break
		}
	}
	return report, nil
}

// rank returns up to n rows ordered by count descending. The sort is stable
// so equal counts keep their input order.
func rank(rows []RuleReport, n int) []RuleReport {
	ranked := make([]RuleReport, len(rows))
	copy(ranked, rows)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TriggerCount > ranked[j].TriggerCount
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
