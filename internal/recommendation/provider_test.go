package recommendation

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/rafaeljc/recommender/internal/ruleengine"
)

var errProvider = errors.New("transactions database unavailable")

type sumKey struct {
	pt  ruleengine.ProductType
	dir ruleengine.Direction
}

// ledger is an in-memory QueryProvider for one user's history.
type ledger struct {
	counts  map[ruleengine.ProductType]int64
	sums    map[sumKey]decimal.Decimal
	failing map[ruleengine.ProductType]bool
}

func newLedger() *ledger {
	return &ledger{
		counts:  map[ruleengine.ProductType]int64{},
		sums:    map[sumKey]decimal.Decimal{},
		failing: map[ruleengine.ProductType]bool{},
	}
}

// add records one transaction.
func (l *ledger) add(pt ruleengine.ProductType, dir ruleengine.Direction, amount int64) *ledger {
	l.counts[pt]++
	k := sumKey{pt, dir}
	l.sums[k] = l.sums[k].Add(decimal.NewFromInt(amount))
	return l
}

func (l *ledger) HasProductType(_ context.Context, _ string, pt ruleengine.ProductType) (bool, error) {
	if l.failing[pt] {
		return false, errProvider
	}
	return l.counts[pt] > 0, nil
}

func (l *ledger) IsActiveUserOfType(_ context.Context, _ string, pt ruleengine.ProductType) (bool, error) {
	if l.failing[pt] {
		return false, errProvider
	}
	return l.counts[pt] >= ruleengine.ActiveUserThreshold, nil
}

func (l *ledger) SumByTypeAndDirection(_ context.Context, _ string, pt ruleengine.ProductType, dir ruleengine.Direction) (decimal.Decimal, error) {
	if l.failing[pt] {
		return decimal.Zero, errProvider
	}
	return l.sums[sumKey{pt, dir}], nil
}
