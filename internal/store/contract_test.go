package store_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/recommender/internal/ruleengine"
	"github.com/rafaeljc/recommender/internal/store"
)

// runStoreContract exercises behavior every Store implementation must share.
// Scenarios use fresh product ids so they can run against a shared database.
func runStoreContract(t *testing.T, s store.Store) {
	ctx := context.Background()

	newRuleSet := func(name string) *store.RuleSet {
		return &store.RuleSet{
			ProductID:   uuid.NewString(),
			ProductName: name,
			ProductText: name + " description",
			Conditions: []ruleengine.Condition{
				{Query: ruleengine.QueryHasProductType, Arguments: []string{"DEBIT"}},
				{Query: ruleengine.QueryHasProductType, Arguments: []string{"INVEST"}, Negate: true},
				{Query: ruleengine.QueryAggregateSumCompare, Arguments: []string{"SAVING", "DEPOSIT", ">", "1000"}},
			},
		}
	}

	findRuleSet := func(t *testing.T, productID string) *store.RuleSet {
		t.Helper()
		all, err := s.ListRuleSets(ctx)
		require.NoError(t, err)
		for _, rs := range all {
			if rs.ProductID == productID {
				return rs
			}
		}
		return nil
	}

	t.Run("CreateRuleSet_AssignsIdentityAndKeepsConditionOrder", func(t *testing.T) {
		rs := newRuleSet("Invest 500")

		require.NoError(t, s.CreateRuleSet(ctx, rs))
		assert.NotZero(t, rs.ID)
		assert.False(t, rs.CreatedAt.IsZero())

		got := findRuleSet(t, rs.ProductID)
		require.NotNil(t, got)
		assert.Equal(t, rs.ID, got.ID)
		assert.Equal(t, "Invest 500", got.ProductName)
		assert.Equal(t, rs.Conditions, got.Conditions)

		stat, err := s.GetStatistic(ctx, rs.ProductID)
		require.NoError(t, err)
		assert.Zero(t, stat.TriggerCount)
		assert.True(t, stat.Active)
		assert.Nil(t, stat.LastTriggeredAt)
	})

	t.Run("CreateRuleSet_RejectsDuplicateProductID", func(t *testing.T) {
		first := newRuleSet("Top Saving")
		require.NoError(t, s.CreateRuleSet(ctx, first))

		second := newRuleSet("Another Top Saving")
		second.ProductID = first.ProductID
		err := s.CreateRuleSet(ctx, second)

		require.ErrorIs(t, err, store.ErrDuplicateProductID)
		all, err := s.ListRuleSets(ctx)
		require.NoError(t, err)
		count := 0
		for _, rs := range all {
			if rs.ProductID == first.ProductID {
				count++
				assert.Equal(t, "Top Saving", rs.ProductName)
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("ListRuleSets_OrdersByID", func(t *testing.T) {
		a := newRuleSet("A")
		b := newRuleSet("B")
		require.NoError(t, s.CreateRuleSet(ctx, a))
		require.NoError(t, s.CreateRuleSet(ctx, b))

		all, err := s.ListRuleSets(ctx)
		require.NoError(t, err)
		for i := 1; i < len(all); i++ {
			assert.Less(t, all[i-1].ID, all[i].ID)
		}
	})

	t.Run("ListRuleSets_ReturnsCopies", func(t *testing.T) {
		rs := newRuleSet("Copy")
		require.NoError(t, s.CreateRuleSet(ctx, rs))

		got := findRuleSet(t, rs.ProductID)
		got.Conditions[0].Arguments[0] = "CREDIT"
		got.ProductName = "mutated"

		again := findRuleSet(t, rs.ProductID)
		assert.Equal(t, "DEBIT", again.Conditions[0].Arguments[0])
		assert.Equal(t, "Copy", again.ProductName)
	})

	t.Run("DeleteRuleSet_RetainsStatisticHistory", func(t *testing.T) {
		rs := newRuleSet("Simple Credit")
		require.NoError(t, s.CreateRuleSet(ctx, rs))
		for range 7 {
			_, err := s.IncrementStatistic(ctx, rs.ProductID, rs.ProductName)
			require.NoError(t, err)
		}

		require.NoError(t, s.DeleteRuleSet(ctx, rs.ProductID))

		exists, err := s.ExistsByProductID(ctx, rs.ProductID)
		require.NoError(t, err)
		assert.False(t, exists)
		assert.Nil(t, findRuleSet(t, rs.ProductID))

		stat, err := s.GetStatistic(ctx, rs.ProductID)
		require.NoError(t, err)
		assert.Equal(t, int64(7), stat.TriggerCount)
		assert.False(t, stat.Active)
		assert.NotNil(t, stat.LastTriggeredAt)
	})

	t.Run("DeleteRuleSet_UnknownProductID", func(t *testing.T) {
		err := s.DeleteRuleSet(ctx, uuid.NewString())
		assert.ErrorIs(t, err, store.ErrRuleSetNotFound)
	})

	t.Run("CreateRuleSet_ReactivatesDeletedStatistic", func(t *testing.T) {
		rs := newRuleSet("Comeback")
		require.NoError(t, s.CreateRuleSet(ctx, rs))
		_, err := s.IncrementStatistic(ctx, rs.ProductID, rs.ProductName)
		require.NoError(t, err)
		require.NoError(t, s.DeleteRuleSet(ctx, rs.ProductID))

		again := newRuleSet("Comeback v2")
		again.ProductID = rs.ProductID
		require.NoError(t, s.CreateRuleSet(ctx, again))

		stat, err := s.GetStatistic(ctx, rs.ProductID)
		require.NoError(t, err)
		assert.True(t, stat.Active)
		assert.Equal(t, int64(1), stat.TriggerCount)
		assert.Equal(t, "Comeback v2", stat.ProductName)
	})

	t.Run("IncrementStatistic_CreatesLazily", func(t *testing.T) {
		productID := uuid.NewString()

		count, err := s.IncrementStatistic(ctx, productID, "Lazy")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		stat, err := s.GetStatistic(ctx, productID)
		require.NoError(t, err)
		assert.Equal(t, "Lazy", stat.ProductName)
		assert.True(t, stat.Active)
	})

	t.Run("IncrementStatistic_NoLostUpdates", func(t *testing.T) {
		productID := uuid.NewString()
		const workers = 100

		var wg sync.WaitGroup
		wg.Add(workers)
		for range workers {
			go func() {
				defer wg.Done()
				_, err := s.IncrementStatistic(ctx, productID, "Hot Rule")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		stat, err := s.GetStatistic(ctx, productID)
		require.NoError(t, err)
		assert.Equal(t, int64(workers), stat.TriggerCount)
	})

	t.Run("DeactivateStatistic", func(t *testing.T) {
		productID := uuid.NewString()
		assert.ErrorIs(t, s.DeactivateStatistic(ctx, productID), store.ErrStatisticNotFound)

		_, err := s.IncrementStatistic(ctx, productID, "Deactivated")
		require.NoError(t, err)
		require.NoError(t, s.DeactivateStatistic(ctx, productID))

		stat, err := s.GetStatistic(ctx, productID)
		require.NoError(t, err)
		assert.False(t, stat.Active)
		assert.Equal(t, int64(1), stat.TriggerCount)
	})

	t.Run("GetStatistic_NotFound", func(t *testing.T) {
		_, err := s.GetStatistic(ctx, uuid.NewString())
		assert.ErrorIs(t, err, store.ErrStatisticNotFound)
	})

	t.Run("ListStatistics_IncludesInactiveRowsInIDOrder", func(t *testing.T) {
		rs := newRuleSet("Listed")
		require.NoError(t, s.CreateRuleSet(ctx, rs))
		require.NoError(t, s.DeleteRuleSet(ctx, rs.ProductID))

		stats, err := s.ListStatistics(ctx)
		require.NoError(t, err)

		found := false
		for i, stat := range stats {
			if i > 0 {
				assert.Less(t, stats[i-1].ID, stat.ID)
			}
			if stat.ProductID == rs.ProductID {
				found = true
				assert.False(t, stat.Active)
			}
		}
		assert.True(t, found)
	})
}
