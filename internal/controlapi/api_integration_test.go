//go:build integration

package controlapi_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/recommender/internal/controlapi"
	"github.com/rafaeljc/recommender/internal/rules"
	"github.com/rafaeljc/recommender/internal/statistics"
	"github.com/rafaeljc/recommender/internal/store"
	"github.com/rafaeljc/recommender/internal/testsupport"
)

// TestControlPlaneAPI_Integration runs the rule lifecycle against PostgreSQL,
// covering routing, JSON mapping, validation and persistence together.
func TestControlPlaneAPI_Integration(t *testing.T) {
	// 1. Infrastructure Setup
	ctx := context.Background()
	pgContainer, err := testsupport.StartPostgresContainer(ctx, "../../migrations")
	require.NoError(t, err, "failed to start postgres container")
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	// 2. Application Wiring
	repo := store.NewPostgresStore(pgContainer.DB)
	tracker := statistics.NewTracker(repo, repo, 10, nil)
	e := &env{
		repo:    store.NewMemoryStore(), // unused by these scenarios
		tracker: tracker,
		recs:    &fakeRecommender{},
		caches:  &fakeInvalidator{},
	}
	e.api = controlapi.NewAPIWithConfig(controlapi.Services{
		Rules:           rules.NewService(repo, nil),
		Statistics:      tracker,
		Recommendations: e.recs,
		Caches:          e.caches,
	}, controlapi.BuildInfo{Name: "recommender"}, "", true, controlapi.WithRequestTimeout(5*time.Second))

	t.Run("POST /rules persists conditions in order", func(t *testing.T) {
		rr := e.do(t, http.MethodPost, "/api/v1/rules", validRule(productID))
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		stored, err := repo.ListRuleSets(ctx)
		require.NoError(t, err)
		require.Len(t, stored, 1)
		require.Len(t, stored[0].Conditions, 2)
		assert.Equal(t, "HAS_PRODUCT_TYPE", string(stored[0].Conditions[0].Query))
		assert.Equal(t, []string{"SAVING", "DEPOSIT", ">", "1000"}, stored[0].Conditions[1].Arguments)
	})

	t.Run("POST /rules maps the unique constraint to 409", func(t *testing.T) {
		rr := e.do(t, http.MethodPost, "/api/v1/rules", validRule(strings.ToUpper(productID)))

		require.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, controlapi.CodeConflict, decode[controlapi.ErrorResponse](t, rr).Code)
	})

	t.Run("DELETE then re-create reactivates the counter", func(t *testing.T) {
		_, err := repo.IncrementStatistic(ctx, productID, "Invest Plus")
		require.NoError(t, err)

		require.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, "/api/v1/rules/"+productID, nil).Code)
		inactive := decode[statistics.RuleReport](t, e.do(t, http.MethodGet, "/api/v1/rules/stats/"+productID, nil))
		assert.False(t, inactive.Active)
		assert.Equal(t, int64(1), inactive.TriggerCount)

		require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/v1/rules", validRule(productID)).Code)
		active := decode[statistics.RuleReport](t, e.do(t, http.MethodGet, "/api/v1/rules/stats/"+productID, nil))
		assert.True(t, active.Active)
		assert.Equal(t, int64(1), active.TriggerCount, "history survives re-creation")
	})
}
