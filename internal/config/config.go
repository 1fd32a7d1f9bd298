// Package config defines service configuration and how it is loaded.
//
// Values are layered: defaults from New, then an optional YAML file named by
// TRICKTRACK_CONFIG, then TRICKTRACK_* environment variables.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/tricktrack/tricktrack/internal/domain/types"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// MinValidators is the number of scores that completes a validation.
	MinValidators int `koanf:"min_validators"`

	// StoreBackend selects memory or sqlite.
	StoreBackend string `koanf:"store_backend"`

	// SQLitePath is the database file for the sqlite backend. ":memory:"
	// keeps it in process.
	SQLitePath string `koanf:"sqlite_path"`

	// ShardCount configures the number of shards in the memory store.
	ShardCount int `koanf:"shard_count"`

	// RewardQueueSize bounds the in-memory reward queue.
	RewardQueueSize int `koanf:"reward_queue_size"`

	// RewardWorkerCount sets the number of reward workers.
	RewardWorkerCount int `koanf:"reward_worker_count"`

	// RewardDedupeSize bounds the credited-id cache. Zero means unbounded.
	RewardDedupeSize int `koanf:"reward_dedupe_size"`

	// TrickMultipliers scales tokens per trick. Empty means tokens equal the
	// final score.
	TrickMultipliers map[string]float64 `koanf:"trick_multipliers"`

	// DefaultTrickMultiplier applies to tricks missing from TrickMultipliers.
	DefaultTrickMultiplier float64 `koanf:"default_trick_multiplier"`

	// ValidatorBonus is credited to each validator of a completed record.
	// Zero disables bonuses.
	ValidatorBonus int `koanf:"validator_bonus"`

	// AllowedOrigins lists CORS origins. Patterns may contain one "*"; a bare
	// "*" allows any origin and turns off credentialed requests.
	AllowedOrigins []string `koanf:"allowed_origins"`

	// MaxListLimit caps GET /api/v1/validations?limit.
	MaxListLimit int `koanf:"max_list_limit"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		MinValidators:          3,
		StoreBackend:           BackendMemory,
		SQLitePath:             "data/tricktrack.db",
		ShardCount:             16,
		RewardQueueSize:        4096,
		RewardWorkerCount:      runtime.NumCPU(),
		RewardDedupeSize:       100_000,
		TrickMultipliers:       map[string]float64{},
		DefaultTrickMultiplier: 1.0,
		ValidatorBonus:         5,
		AllowedOrigins:         []string{"http://localhost:3000", "https://*.vercel.app"},
		MaxListLimit:           100,
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MinValidators < 1:
		return fmt.Errorf("%w: min_validators must be at least 1, got %d", ErrInvalidConfig, c.MinValidators)
	case c.StoreBackend != BackendMemory && c.StoreBackend != BackendSQLite:
		return fmt.Errorf("%w: %w: store_backend must be %q or %q, got %q", ErrInvalidConfig, ErrUnknownBackend, BackendMemory, BackendSQLite, c.StoreBackend)
	case c.StoreBackend == BackendSQLite && strings.TrimSpace(c.SQLitePath) == "":
		return fmt.Errorf("%w: sqlite_path must not be empty", ErrInvalidConfig)
	case c.RewardQueueSize < 1:
		return fmt.Errorf("%w: reward_queue_size must be positive", ErrInvalidConfig)
	case c.MaxListLimit < 1:
		return fmt.Errorf("%w: max_list_limit must be positive", ErrInvalidConfig)
	case c.ValidatorBonus < 0:
		return fmt.Errorf("%w: validator_bonus must not be negative", ErrInvalidConfig)
	case c.DefaultTrickMultiplier < 0:
		return fmt.Errorf("%w: default_trick_multiplier must not be negative", ErrInvalidConfig)
	}
	for name, m := range c.TrickMultipliers {
		if _, ok := types.ParseTrickType(name); !ok {
			return fmt.Errorf("%w: %w: trick_multipliers[%s]", ErrInvalidConfig, ErrUnknownTrick, name)
		}
		if m < 0 {
			return fmt.Errorf("%w: trick_multipliers[%s] must not be negative", ErrInvalidConfig, name)
		}
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
