// Package cache holds the two-tier cache in front of the transactions
// database: an in-process otter cache (L1) and an optional Redis cache (L2)
// shared between replicas, plus the pub/sub channel that keeps every
// replica's L1 in step when an operator clears the caches.
package cache

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rafaeljc/recommender/internal/ruleengine"
)

// QueryKind identifies which aggregate a cached value holds.
type QueryKind string

const (
	// KindTransactionCount is the number of transactions on a product type.
	KindTransactionCount QueryKind = "count"
	// KindDepositSum is the total deposited on a product type.
	KindDepositSum QueryKind = "deposit_sum"
	// KindExpenseSum is the total spent on a product type.
	KindExpenseSum QueryKind = "expense_sum"
)

// SumKind returns the kind caching the sum of the given direction.
func SumKind(d ruleengine.Direction) QueryKind {
	if d == ruleengine.DirectionExpense {
		return KindExpenseSum
	}
	return KindDepositSum
}

// QueryKey is the composite cache key of one aggregate.
type QueryKey struct {
	UserID      string
	ProductType ruleengine.ProductType
	Kind        QueryKind
}

// String renders the key as "user:type:kind". The user id comes first so a
// single prefix matches every aggregate of one user.
func (k QueryKey) String() string {
	var b strings.Builder
	b.Grow(len(k.UserID) + len(k.ProductType) + len(k.Kind) + 2)
	b.WriteString(k.UserID)
	b.WriteByte(':')
	b.WriteString(string(k.ProductType))
	b.WriteByte(':')
	b.WriteString(string(k.Kind))
	return b.String()
}

// QueryCache stores aggregate answers. Implementations are safe for
// concurrent use. Failures to read or write are treated as misses.
type QueryCache interface {
	Get(ctx context.Context, key QueryKey) (decimal.Decimal, bool)
	Set(ctx context.Context, key QueryKey, value decimal.Decimal)
	// Clear drops every cached aggregate.
	Clear(ctx context.Context) error
	// ClearUser drops the cached aggregates of one user.
	ClearUser(ctx context.Context, userID string) error
}
