package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Compile-time check to verify that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store. It keeps the same atomicity guarantees
// as PostgresStore by doing every mutation under one lock.
type MemoryStore struct {
	mu sync.RWMutex

	ruleSets []*RuleSet // ordered by ID
	stats    map[string]*Statistic
	nextRule int64
	nextStat int64
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stats: make(map[string]*Statistic),
		now:   time.Now,
	}
}

func (s *MemoryStore) indexOf(productID string) int {
	for i, rs := range s.ruleSets {
		if rs.ProductID == productID {
			return i
		}
	}
	return -1
}

// CreateRuleSet stores a copy of rs.
func (s *MemoryStore) CreateRuleSet(ctx context.Context, rs *RuleSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rs == nil {
		return fmt.Errorf("rule set cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(rs.ProductID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateProductID, rs.ProductID)
	}

	now := s.now()
	s.nextRule++
	rs.ID = s.nextRule
	rs.CreatedAt = now
	s.ruleSets = append(s.ruleSets, cloneRuleSet(rs))

	if stat, ok := s.stats[rs.ProductID]; ok {
		stat.Active = true
		stat.ProductName = rs.ProductName
		stat.UpdatedAt = now
	} else {
		s.nextStat++
		s.stats[rs.ProductID] = &Statistic{
			ID:          s.nextStat,
			ProductID:   rs.ProductID,
			ProductName: rs.ProductName,
			Active:      true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	return nil
}

// ListRuleSets returns copies of every rule set in ID order.
func (s *MemoryStore) ListRuleSets(ctx context.Context) ([]*RuleSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*RuleSet, 0, len(s.ruleSets))
	for _, rs := range s.ruleSets {
		out = append(out, cloneRuleSet(rs))
	}
	return out, nil
}

// DeleteRuleSet removes the rule set and deactivates its statistic.
func (s *MemoryStore) DeleteRuleSet(ctx context.Context, productID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(productID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrRuleSetNotFound, productID)
	}
	s.ruleSets = append(s.ruleSets[:i], s.ruleSets[i+1:]...)

	if stat, ok := s.stats[productID]; ok {
		stat.Active = false
		stat.UpdatedAt = s.now()
	}
	return nil
}

// ExistsByProductID reports whether a rule set with the product id exists.
func (s *MemoryStore) ExistsByProductID(ctx context.Context, productID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.indexOf(productID) >= 0, nil
}

// IncrementStatistic creates and increments the counter in one critical section.
func (s *MemoryStore) IncrementStatistic(ctx context.Context, productID, productName string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stat, ok := s.stats[productID]
	if !ok {
		s.nextStat++
		stat = &Statistic{
			ID:        s.nextStat,
			ProductID: productID,
			Active:    true,
			CreatedAt: now,
		}
		s.stats[productID] = stat
	}
	stat.TriggerCount++
	stat.ProductName = productName
	stat.LastTriggeredAt = &now
	stat.UpdatedAt = now

	return stat.TriggerCount, nil
}

// DeactivateStatistic marks the statistic inactive.
func (s *MemoryStore) DeactivateStatistic(ctx context.Context, productID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stat, ok := s.stats[productID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrStatisticNotFound, productID)
	}
	stat.Active = false
	stat.UpdatedAt = s.now()
	return nil
}

// GetStatistic returns a copy of the statistic row.
func (s *MemoryStore) GetStatistic(ctx context.Context, productID string) (*Statistic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stat, ok := s.stats[productID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStatisticNotFound, productID)
	}
	return cloneStatistic(stat), nil
}

// ListStatistics returns copies of every statistic row in ID order.
func (s *MemoryStore) ListStatistics(ctx context.Context) ([]*Statistic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Statistic, 0, len(s.stats))
	for _, stat := range s.stats {
		out = append(out, cloneStatistic(stat))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
