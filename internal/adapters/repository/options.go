package repository

// Default store configuration constants.
const (
	defaultShardCount      = 16
	defaultConflictRetries = 8
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithShardCount sets how many map shards hold records.
func WithShardCount(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// SQLiteOption applies a configuration option to the SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithConflictRetries bounds how often an update is retried after losing a
// version race.
func WithConflictRetries(n int) SQLiteOption {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.conflictRetries = n
		}
	}
}
