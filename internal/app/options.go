package service

import (
	"github.com/tricktrack/tricktrack/pkg/logger"
)

// Storage backends understood by Start.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithMinValidators sets how many scores complete a validation.
func WithMinValidators(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minValidators = n
		}
	}
}

// WithMemoryStore keeps records in a sharded in-process map.
func WithMemoryStore(shards int) Option {
	return func(s *Service) {
		s.backend = BackendMemory
		if shards > 0 {
			s.shardCount = shards
		}
	}
}

// WithSQLiteStore keeps records in a SQLite database at path.
func WithSQLiteStore(path string) Option {
	return func(s *Service) {
		s.backend = BackendSQLite
		s.sqlitePath = path
	}
}

// WithWorkerCount sets the number of reward workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the reward queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the credited-id cache. Zero keeps every id.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.dedupeSize = size
		}
	}
}

// WithTrickMultipliers scales rewards per trick. Without it tokens equal
// the final score.
func WithTrickMultipliers(multipliers map[string]float64, defaultMultiplier float64) Option {
	return func(s *Service) {
		s.multipliers = multipliers
		s.defaultMultiplier = defaultMultiplier
	}
}

// WithValidatorBonus sets the tokens each validator earns when a validation
// they scored completes. Zero disables bonuses.
func WithValidatorBonus(tokens int) Option {
	return func(s *Service) {
		if tokens >= 0 {
			s.validatorBonus = tokens
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
