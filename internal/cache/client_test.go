package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/recommender/internal/config"
)

func TestRedisOptions(t *testing.T) {
	t.Parallel()

	base := config.RedisConfig{
		Host:         "cache.internal",
		Port:         "6380",
		Password:     "secret",
		DB:           2,
		PoolSize:     20,
		DialTimeout:  time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	t.Run("Should build the address from host and port", func(t *testing.T) {
		cfg := base
		opts, err := redisOptions(&cfg)

		require.NoError(t, err)
		assert.Equal(t, "cache.internal:6380", opts.Addr)
		assert.Equal(t, "secret", opts.Password)
		assert.Equal(t, 2, opts.DB)
		assert.Equal(t, 20, opts.PoolSize)
		assert.Equal(t, 2*time.Second, opts.ReadTimeout)
		assert.Nil(t, opts.TLSConfig)
	})

	t.Run("Should take connection details from the URL", func(t *testing.T) {
		cfg := base
		cfg.URL = "redis://:urlpass@url-host:6390/4"
		opts, err := redisOptions(&cfg)

		require.NoError(t, err)
		assert.Equal(t, "url-host:6390", opts.Addr)
		assert.Equal(t, "urlpass", opts.Password)
		assert.Equal(t, 4, opts.DB)
		assert.Equal(t, 20, opts.PoolSize)
	})

	t.Run("Should enable TLS", func(t *testing.T) {
		cfg := base
		cfg.TLSEnabled = true
		opts, err := redisOptions(&cfg)

		require.NoError(t, err)
		require.NotNil(t, opts.TLSConfig)
	})

	t.Run("Should reject a malformed URL", func(t *testing.T) {
		cfg := base
		cfg.URL = "http://not-redis"
		_, err := redisOptions(&cfg)

		assert.Error(t, err)
	})
}

func TestNewRedisClient_NilConfig(t *testing.T) {
	t.Parallel()

	_, err := NewRedisClient(context.Background(), nil)
	assert.Error(t, err)
}

func TestRedisChecker(t *testing.T) {
	t.Parallel()

	c := NewRedisChecker(nil)
	assert.Equal(t, "redis", c.Name())
	assert.Error(t, c.Check(context.Background()))
}
