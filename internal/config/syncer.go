package config

import "time"

// SyncerConfig contains configuration for the statistics syncer worker.
// The worker periodically exports rule trigger counts as Prometheus gauges.
type SyncerConfig struct {
	Enabled  bool          `envconfig:"ENABLED" default:"true"`
	Interval time.Duration `envconfig:"INTERVAL" default:"30s" validate:"gt=0"`

	// Timeout bounds a single export round against the statistics store.
	Timeout time.Duration `envconfig:"TIMEOUT" default:"10s" validate:"gt=0"`
}
