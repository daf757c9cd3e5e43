//go:build integration

package observability_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/recommender/internal/cache"
	"github.com/rafaeljc/recommender/internal/config"
	"github.com/rafaeljc/recommender/internal/database"
	"github.com/rafaeljc/recommender/internal/logger"
	"github.com/rafaeljc/recommender/internal/observability"
	"github.com/rafaeljc/recommender/internal/testsupport"
)

func TestObservabilityServer_Integration(t *testing.T) {
	// 1. Arrange: Infrastructure Setup
	ctx := context.Background()

	// Start Postgres Container
	// We point to the migrations folder relative to this test file.
	pgContainer, err := testsupport.StartPostgresContainer(ctx, "../../migrations")
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx)

	// Start Redis Container
	redisContainer, err := testsupport.StartRedisContainer(ctx)
	require.NoError(t, err)
	defer redisContainer.Terminate(ctx)

	// 2. Arrange: Connections and Checkers

	pgChecker := database.NewPostgresChecker("postgres", pgContainer.DB)
	redisChecker := cache.NewRedisChecker(redisContainer.Client)

	// 3. Arrange: Server Configuration
	freePort, _ := getFreePort()

	// Non-default paths prove the routes come from the configuration.
	livenessPath := "/alive"
	readinessPath := "/check-deps"
	metricsPath := "/telemetry"

	appCfg := &config.AppConfig{
		Name:        "recommender-test",
		Version:     "v0.0.0-test",
		Environment: "development",
		LogLevel:    "debug",
		LogFormat:   "text",
	}

	obsCfg := &config.ObservabilityConfig{
		Port:          fmt.Sprintf("%d", freePort),
		Timeout:       1 * time.Second,
		LivenessPath:  livenessPath,
		ReadinessPath: readinessPath,
		MetricsPath:   metricsPath,
	}

	log := logger.New(appCfg)

	// Inject dependencies into the server
	server := observability.NewServer(log, obsCfg, pgChecker, redisChecker)

	// 4. Act: Start Server
	require.NoError(t, server.Start())
	defer func() { _ = server.Shutdown(ctx) }()

	baseURL := fmt.Sprintf("http://localhost:%d", freePort)

	// Wait for server to be ready using the CUSTOM liveness path.
	// This confirms the server started and the config was applied correctly.
	require.Eventually(t, func() bool {
		resp, err := http.Get(baseURL + livenessPath)
		if err == nil {
			resp.Body.Close()
			return resp.StatusCode == http.StatusOK
		}
		return false
	}, 5*time.Second, 100*time.Millisecond, "Server failed to start")

	// 5. Assert: Test Endpoints

	t.Run("Liveness should return 200 OK on custom path", func(t *testing.T) {
		resp, err := http.Get(baseURL + livenessPath)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "ok", string(body))
	})

	t.Run("Metrics should be exposed on custom path", func(t *testing.T) {
		resp, err := http.Get(baseURL + metricsPath)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)

		// Verify if it contains standard Prometheus metrics
		bodyStr := string(body)
		assert.Contains(t, bodyStr, "go_goroutines")
		assert.Contains(t, bodyStr, "recommender_")
	})

	t.Run("Readiness should return 200 OK on custom path when deps are healthy", func(t *testing.T) {
		resp, err := http.Get(baseURL + readinessPath)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

		assert.Equal(t, "ready", body.Status)
		assert.Equal(t, "up", body.Checks["postgres"])
		assert.Equal(t, "up", body.Checks["redis"])
	})

	t.Run("Readiness should fail (503) when Redis is down", func(t *testing.T) {
		// Simulate failure by stopping the Redis container
		_ = redisContainer.Container.Stop(ctx, nil)

		// Allow some time for the client to detect the connection loss
		time.Sleep(200 * time.Millisecond)

		resp, err := http.Get(baseURL + readinessPath)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

		assert.Equal(t, "not_ready", body.Status)
		assert.Contains(t, body.Checks["redis"], "down")
		assert.Equal(t, "up", body.Checks["postgres"])
	})
}

// getFreePort asks the kernel for a free TCP port.
func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
