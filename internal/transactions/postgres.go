// Package transactions answers the aggregate questions the rule engine asks
// about a user's banking history. PostgresProvider reads the transactions
// database; CachedProvider puts the query cache in front of it.
package transactions

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rafaeljc/recommender/internal/ruleengine"
)

// Compile-time check to verify that PostgresProvider implements ruleengine.QueryProvider.
var _ ruleengine.QueryProvider = (*PostgresProvider)(nil)

// PostgresProvider runs the aggregates against the users/products/transactions
// schema. It only reads.
type PostgresProvider struct {
	db *pgxpool.Pool
}

// NewPostgresProvider creates a provider on the given pool.
func NewPostgresProvider(db *pgxpool.Pool) *PostgresProvider {
	if db == nil {
		panic("transactions: database pool cannot be nil")
	}
	return &PostgresProvider{db: db}
}

// CountByType returns how many transactions the user made on products of the type.
func (p *PostgresProvider) CountByType(ctx context.Context, userID string, productType ruleengine.ProductType) (int64, error) {
	var count int64
	err := p.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM transactions t
		JOIN products p ON p.id = t.product_id
		WHERE t.user_id = $1 AND p.type = $2
	`, userID, string(productType)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s transactions: %w", productType, err)
	}
	return count, nil
}

// HasProductType reports whether the user has any transaction on the product type.
func (p *PostgresProvider) HasProductType(ctx context.Context, userID string, productType ruleengine.ProductType) (bool, error) {
	count, err := p.CountByType(ctx, userID, productType)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// IsActiveUserOfType reports whether the user has at least
// ruleengine.ActiveUserThreshold transactions on the product type.
func (p *PostgresProvider) IsActiveUserOfType(ctx context.Context, userID string, productType ruleengine.ProductType) (bool, error) {
	count, err := p.CountByType(ctx, userID, productType)
	if err != nil {
		return false, err
	}
	return count >= ruleengine.ActiveUserThreshold, nil
}

// SumByTypeAndDirection totals the amounts of one direction on the product
// type. The sum is read as text so no precision is lost on the way to decimal.
func (p *PostgresProvider) SumByTypeAndDirection(ctx context.Context, userID string, productType ruleengine.ProductType, direction ruleengine.Direction) (decimal.Decimal, error) {
	var raw string
	err := p.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(t.amount), 0)::text
		FROM transactions t
		JOIN products p ON p.id = t.product_id
		WHERE t.user_id = $1 AND p.type = $2 AND t.type = $3
	`, userID, string(productType), string(direction)).Scan(&raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum %s %s transactions: %w", productType, direction, err)
	}

	sum, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed sum %q: %w", raw, err)
	}
	return sum, nil
}
