package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// RedisConfig connects the shared L2 query cache and the pub/sub channel that
// broadcasts cache clears. It is only read and validated when Cache.L2Enabled
// is set; with L2 off the services never dial Redis.
type RedisConfig struct {
	// Either a full redis:// or rediss:// URL, or Host and Port.
	URL      string `envconfig:"URL"`
	Host     string `envconfig:"HOST"`
	Port     string `envconfig:"PORT"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0" validate:"min=0,max=15"`

	TLSEnabled bool `envconfig:"TLS_ENABLED" default:"false"`

	// Aggregate lookups are small GETs on the request path, and a slow
	// lookup falls back to Postgres, so reads time out early.
	PoolSize        int           `envconfig:"POOL_SIZE" default:"20" validate:"min=1"`
	MinIdleConns    int           `envconfig:"MIN_IDLE_CONNS" default:"5" validate:"min=0"`
	DialTimeout     time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s" validate:"gt=0"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"500ms" validate:"gt=0"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"500ms" validate:"gt=0"`
	PoolTimeout     time.Duration `envconfig:"POOL_TIMEOUT" default:"1s"`
	MaxRetries      int           `envconfig:"MAX_RETRIES" default:"1" validate:"min=0"`
	MinRetryBackoff time.Duration `envconfig:"MIN_RETRY_BACKOFF" default:"8ms"`
	MaxRetryBackoff time.Duration `envconfig:"MAX_RETRY_BACKOFF" default:"128ms"`

	// Startup ping
	PingMaxRetries int           `envconfig:"PING_MAX_RETRIES" default:"5" validate:"min=1"`
	PingBackoff    time.Duration `envconfig:"PING_BACKOFF" default:"2s"`
}

// Address returns the URL when set, host:port otherwise.
func (c *RedisConfig) Address() string {
	if c.URL != "" {
		return c.URL
	}
	return net.JoinHostPort(c.Host, c.Port)
}

// Validate checks the connection settings for the L2 cache.
func (c *RedisConfig) Validate(environment string) error {
	if c.URL != "" {
		db, err := validateRedisURL(c.URL)
		if err != nil {
			return fmt.Errorf("invalid redis URL: %w", err)
		}
		if db >= 0 && c.DB != 0 && db != c.DB {
			return fmt.Errorf("redis database set to %d in URL and %d in DB", db, c.DB)
		}
	} else {
		if err := validateHost(c.Host, "redis"); err != nil {
			return err
		}
		if err := validatePort(c.Port, "redis"); err != nil {
			return err
		}
		if environment == EnvironmentProduction {
			if c.Password == "" {
				return fmt.Errorf("redis password is required in production environment")
			}
			if err := validatePasswordStrength(c.Password, "redis", environment); err != nil {
				return err
			}
			// Cached aggregates are per-user financial data.
			if !c.TLSEnabled {
				return fmt.Errorf("redis TLS must be enabled in production environment")
			}
		}
	}

	if c.MinIdleConns > c.PoolSize {
		return fmt.Errorf("min_idle_conns (%d) cannot be greater than pool_size (%d)", c.MinIdleConns, c.PoolSize)
	}

	return nil
}

// IsConfigured reports whether an address is present. Passwords are checked
// by Validate.
func (c *RedisConfig) IsConfigured() bool {
	return c.URL != "" || (c.Host != "" && c.Port != "")
}

// validateRedisURL checks the scheme and the optional database path and
// returns the database number, or -1 when the URL does not select one.
func validateRedisURL(redisURL string) (int, error) {
	parsed, err := parseAndValidateURL(redisURL, []string{"redis", "rediss"})
	if err != nil {
		return -1, err
	}

	dbStr := strings.TrimPrefix(parsed.Path, "/")
	if dbStr == "" {
		return -1, nil
	}
	db, err := strconv.Atoi(dbStr)
	if err != nil {
		return -1, fmt.Errorf("database number must be a valid integer: %s", dbStr)
	}
	if db < 0 || db > 15 {
		return -1, fmt.Errorf("database number must be between 0 and 15, got %d", db)
	}
	return db, nil
}
