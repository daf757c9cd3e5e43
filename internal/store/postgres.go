package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafaeljc/recommender/internal/ruleengine"
)

// Compile-time check to verify that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// PostgresStore is the Store implementation backed by PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new repository instance with the given connection pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	if db == nil {
		panic("store: database pool cannot be nil")
	}
	return &PostgresStore{db: db}
}

// CreateRuleSet inserts the rule set, its conditions and its statistic row in one transaction.
func (s *PostgresStore) CreateRuleSet(ctx context.Context, rs *RuleSet) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback is a no-op after a successful Commit.
	defer func() { _ = tx.Rollback(ctx) }()

	// 1. Rule set header
	err = tx.QueryRow(ctx, `
		INSERT INTO rule_sets (product_id, product_name, product_text)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, rs.ProductID, rs.ProductName, rs.ProductText).Scan(&rs.ID, &rs.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateProductID, rs.ProductID)
		}
		return fmt.Errorf("failed to insert rule set: %w", err)
	}

	// 2. Conditions, sent as one batch to avoid a round trip per row
	batch := &pgx.Batch{}
	for i, c := range rs.Conditions {
		args := c.Arguments
		if args == nil {
			args = []string{}
		}
		batch.Queue(`
			INSERT INTO rule_conditions (rule_set_id, position, query, arguments, negate)
			VALUES ($1, $2, $3, $4, $5)
		`, rs.ID, i, string(c.Query), args, c.Negate)
	}

	// 3. Statistic row: created with count 0 or reactivated with its history
	batch.Queue(`
		INSERT INTO rule_statistics (product_id, product_name)
		VALUES ($1, $2)
		ON CONFLICT (product_id) DO UPDATE
		SET active = TRUE,
		    product_name = EXCLUDED.product_name,
		    updated_at = NOW()
	`, rs.ProductID, rs.ProductName)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert rule conditions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit rule set: %w", err)
	}
	return nil
}

// ListRuleSets reads rule sets and conditions from a single snapshot so no
// caller ever sees a rule set with a partial condition list.
func (s *PostgresStore) ListRuleSets(ctx context.Context) ([]*RuleSet, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT id, product_id::text, product_name, product_text, created_at
		FROM rule_sets
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rule sets: %w", err)
	}
	ruleSets, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[RuleSet])
	if err != nil {
		return nil, fmt.Errorf("failed to scan rule set row: %w", err)
	}
	if len(ruleSets) == 0 {
		return ruleSets, nil
	}

	byID := make(map[int64]*RuleSet, len(ruleSets))
	for _, rs := range ruleSets {
		rs.Conditions = []ruleengine.Condition{}
		byID[rs.ID] = rs
	}

	rows, err = tx.Query(ctx, `
		SELECT rule_set_id, query, arguments, negate
		FROM rule_conditions
		ORDER BY rule_set_id ASC, position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rule conditions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ruleSetID int64
			query     string
			c         ruleengine.Condition
		)
		if err := rows.Scan(&ruleSetID, &query, &c.Arguments, &c.Negate); err != nil {
			return nil, fmt.Errorf("failed to scan rule condition row: %w", err)
		}
		c.Query = ruleengine.QueryType(query)
		if rs, ok := byID[ruleSetID]; ok {
			rs.Conditions = append(rs.Conditions, c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return ruleSets, nil
}

// DeleteRuleSet removes the rule set (conditions cascade) and deactivates its statistic.
func (s *PostgresStore) DeleteRuleSet(ctx context.Context, productID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM rule_sets WHERE product_id = $1`, productID)
	if err != nil {
		return fmt.Errorf("failed to delete rule set: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrRuleSetNotFound, productID)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE rule_statistics
		SET active = FALSE, updated_at = NOW()
		WHERE product_id = $1
	`, productID); err != nil {
		return fmt.Errorf("failed to deactivate statistic: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit rule set deletion: %w", err)
	}
	return nil
}

// ExistsByProductID reports whether a rule set with the product id exists.
func (s *PostgresStore) ExistsByProductID(ctx context.Context, productID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM rule_sets WHERE product_id = $1)`, productID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check rule set existence: %w", err)
	}
	return exists, nil
}

// IncrementStatistic performs an atomic upsert-and-increment.
// Concurrent callers for the same product id serialize on the row lock, so
// no update is lost.
func (s *PostgresStore) IncrementStatistic(ctx context.Context, productID, productName string) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO rule_statistics (product_id, product_name, trigger_count, last_triggered_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (product_id) DO UPDATE
		SET trigger_count = rule_statistics.trigger_count + 1,
		    product_name = EXCLUDED.product_name,
		    last_triggered_at = NOW(),
		    updated_at = NOW()
		RETURNING trigger_count
	`, productID, productName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to increment statistic: %w", err)
	}
	return count, nil
}

// DeactivateStatistic marks the statistic inactive.
func (s *PostgresStore) DeactivateStatistic(ctx context.Context, productID string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE rule_statistics
		SET active = FALSE, updated_at = NOW()
		WHERE product_id = $1
	`, productID)
	if err != nil {
		return fmt.Errorf("failed to deactivate statistic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrStatisticNotFound, productID)
	}
	return nil
}

const statisticColumns = `
	id, product_id::text AS product_id, product_name, trigger_count,
	last_triggered_at, active, created_at, updated_at
`

// GetStatistic returns the statistic row for the product id.
func (s *PostgresStore) GetStatistic(ctx context.Context, productID string) (*Statistic, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+statisticColumns+` FROM rule_statistics WHERE product_id = $1`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query statistic: %w", err)
	}
	stat, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[Statistic])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrStatisticNotFound, productID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan statistic row: %w", err)
	}
	return stat, nil
}

// ListStatistics returns every statistic row ordered by ID.
func (s *PostgresStore) ListStatistics(ctx context.Context) ([]*Statistic, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+statisticColumns+` FROM rule_statistics ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list statistics: %w", err)
	}
	stats, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[Statistic])
	if err != nil {
		return nil, fmt.Errorf("failed to scan statistic row: %w", err)
	}
	return stats, nil
}
