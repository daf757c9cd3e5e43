//go:build integration

package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/recommender/internal/app"
	"github.com/rafaeljc/recommender/internal/config"
	"github.com/rafaeljc/recommender/internal/controlapi"
	"github.com/rafaeljc/recommender/internal/recommendation"
	"github.com/rafaeljc/recommender/internal/testsupport"
)

// bank seeds the transactions schema.
type bank struct {
	t        *testing.T
	db       *pgxpool.Pool
	products map[string]string
}

func newBank(t *testing.T, ctx context.Context, db *pgxpool.Pool) *bank {
	b := &bank{t: t, db: db, products: map[string]string{}}
	for _, pt := range []string{"DEBIT", "CREDIT", "INVEST", "SAVING"} {
		id := uuid.NewString()
		_, err := db.Exec(ctx, `INSERT INTO products (id, type, name) VALUES ($1, $2, $3)`, id, pt, pt+" account")
		require.NoError(t, err)
		b.products[pt] = id
	}
	return b
}

func (b *bank) user(ctx context.Context) string {
	id := uuid.NewString()
	_, err := b.db.Exec(ctx, `INSERT INTO users (id, username) VALUES ($1, $2)`, id, "u-"+id[:8])
	require.NoError(b.t, err)
	return id
}

func (b *bank) tx(ctx context.Context, userID, productType, direction, amount string) {
	_, err := b.db.Exec(ctx, `
		INSERT INTO transactions (id, product_id, user_id, type, amount)
		VALUES ($1, $2, $3, $4, $5::numeric)
	`, uuid.NewString(), b.products[productType], userID, direction, amount)
	require.NoError(b.t, err)
}

func TestRecommenderEndToEnd_Integration(t *testing.T) {
	// 1. Infrastructure
	ctx := context.Background()
	pgCtr, err := testsupport.StartPostgresContainer(ctx, "../../migrations")
	require.NoError(t, err)
	defer pgCtr.Terminate(ctx)

	redisCtr, err := testsupport.StartRedisContainer(ctx)
	require.NoError(t, err)
	defer redisCtr.Terminate(ctx)

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			URL:            pgCtr.ConnectionString,
			MaxConns:       5,
			ConnectTimeout: 5 * time.Second,
			PingMaxRetries: 3,
			PingBackoff:    200 * time.Millisecond,
		},
		Redis: *redisCtr.Config,
		Cache: config.CacheConfig{
			L1Capacity:          100,
			L1TTL:               time.Minute,
			L2Enabled:           true,
			L2TTL:               time.Minute,
			L2KeyPrefix:         "e2e:query:",
			InvalidationChannel: "e2e:invalidate",
		},
		Statistics: config.StatisticsConfig{TopRulesLimit: 5},
	}

	// 2. Wiring, the way the control plane binary does it
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	components, err := app.Build(ctx, cfg, log)
	require.NoError(t, err)
	defer components.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	require.NoError(t, components.Start(runCtx))
	assert.Len(t, components.Checkers, 2, "postgres and redis")

	api := controlapi.NewAPIWithConfig(controlapi.Services{
		Rules:           components.Rules,
		Statistics:      components.Tracker,
		Recommendations: components.Recommendations,
		Caches:          components.Invalidator,
	}, controlapi.BuildInfo{Name: "recommender", Version: "test"}, "", true)

	call := func(method, target string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, target, &buf)
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		api.Router.ServeHTTP(rr, req)
		return rr
	}

	// 3. Data: a debit user with 1500 in saving deposits and no investments
	b := newBank(t, ctx, pgCtr.DB)
	user := b.user(ctx)
	b.tx(ctx, user, "DEBIT", "DEPOSIT", "200.00")
	b.tx(ctx, user, "SAVING", "DEPOSIT", "1500.00")

	dynamicID := uuid.NewString()
	rr := call(http.MethodPost, "/api/v1/rules", map[string]any{
		"product_name": "Saver Card",
		"product_id":   dynamicID,
		"product_text": "For steady savers",
		"rule": []map[string]any{
			{"query": "HAS_PRODUCT_TYPE", "arguments": []string{"INVEST"}, "negate": true},
			{"query": "AGGREGATE_SUM_COMPARE", "arguments": []string{"SAVING", "DEPOSIT", ">=", "1500"}, "negate": false},
		},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	recommend := func() []recommendation.Recommendation {
		t.Helper()
		rr := call(http.MethodGet, "/api/v1/recommendations/"+user, nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var resp controlapi.RecommendationsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		return resp.Recommendations
	}
	ids := func(recs []recommendation.Recommendation) []string {
		out := make([]string, 0, len(recs))
		for _, r := range recs {
			out = append(out, r.ID)
		}
		return out
	}

	t.Run("fixed rules first, then rule sets", func(t *testing.T) {
		assert.Equal(t, []string{recommendation.Invest500ID, dynamicID}, ids(recommend()))
	})

	t.Run("aggregates are served from the shared cache", func(t *testing.T) {
		keys, err := redisCtr.Client.Keys(ctx, "e2e:query:"+user+":*").Result()
		require.NoError(t, err)
		assert.NotEmpty(t, keys)

		// New data stays invisible until the caches are cleared.
		b.tx(ctx, user, "INVEST", "DEPOSIT", "10.00")
		assert.Equal(t, []string{recommendation.Invest500ID, dynamicID}, ids(recommend()))

		rr := call(http.MethodPost, "/api/v1/management/clear-caches?user_id="+user, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		assert.Empty(t, recommend(), "the user now invests")
	})

	t.Run("every fired rule set was counted", func(t *testing.T) {
		rr := call(http.MethodGet, "/api/v1/rules/stats/"+dynamicID, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var stat struct {
			Count  int64 `json:"count"`
			Active bool  `json:"active"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stat))
		assert.Equal(t, int64(2), stat.Count)
		assert.True(t, stat.Active)
	})

	t.Run("deleting keeps the counter as history", func(t *testing.T) {
		require.Equal(t, http.StatusNoContent, call(http.MethodDelete, "/api/v1/rules/"+dynamicID, nil).Code)

		rr := call(http.MethodGet, "/api/v1/rules/stats", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var report struct {
			TotalRules       int `json:"total_rules"`
			ActiveStatistics int `json:"active_statistics"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
		assert.Zero(t, report.TotalRules)
		assert.Zero(t, report.ActiveStatistics)

		stat := call(http.MethodGet, "/api/v1/rules/stats/"+dynamicID, nil)
		assert.Equal(t, http.StatusOK, stat.Code)
	})
}
