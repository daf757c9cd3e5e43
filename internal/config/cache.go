package config

import (
	"fmt"
	"strings"
	"time"
)

// CacheConfig configures the two-tier cache in front of the transactions database.
//
// L1 is an in-process otter cache and is always on. L2 is a Redis cache shared
// between replicas and is opt-in.
type CacheConfig struct {
	L1Capacity int           `envconfig:"L1_CAPACITY" default:"1000" validate:"min=1"`
	L1TTL      time.Duration `envconfig:"L1_TTL" default:"10m" validate:"gt=0"`

	L2Enabled   bool          `envconfig:"L2_ENABLED" default:"false"`
	L2TTL       time.Duration `envconfig:"L2_TTL" default:"10m" validate:"gt=0"`
	L2KeyPrefix string        `envconfig:"L2_KEY_PREFIX" default:"recommender:query:"`

	// InvalidationChannel is the Redis pub/sub channel used to broadcast
	// cache clears to every replica.
	InvalidationChannel string `envconfig:"INVALIDATION_CHANNEL" default:"recommender:cache:invalidate"`
}

// Validate checks CacheConfig fields that the struct tags cannot express.
func (c *CacheConfig) Validate() error {
	if !c.L2Enabled {
		return nil
	}
	if err := validateNoWhitespace(c.L2KeyPrefix, "cache key prefix"); err != nil {
		return err
	}
	if err := validateNoWhitespace(c.InvalidationChannel, "cache invalidation channel"); err != nil {
		return err
	}
	if strings.ContainsAny(c.L2KeyPrefix, "*?[") {
		return fmt.Errorf("cache key prefix cannot contain glob characters: %q", c.L2KeyPrefix)
	}
	return nil
}
