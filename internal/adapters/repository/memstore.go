package repository

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/tricktrack/tricktrack/internal/domain/model"
	"github.com/tricktrack/tricktrack/internal/domain/types"
	"github.com/tricktrack/tricktrack/pkg/metrics"
)

const memoryBackend = "memory"

// entry guards a single record. Holding mu is the per-record critical section.
type entry struct {
	mu sync.Mutex
	v  model.Validation
}

// shard owns a slice of the key space. Its lock only protects map membership.
type shard struct {
	mu      sync.RWMutex
	records map[string]*entry
}

// MemoryStore is an in-memory Store with per-record locking.
type MemoryStore struct {
	shards     []*shard
	shardCount int

	mu     sync.RWMutex
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{shardCount: defaultShardCount}
	for _, opt := range opts {
		opt(s)
	}
	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{records: make(map[string]*entry)}
	}
	return s
}

func (s *MemoryStore) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

func (s *MemoryStore) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Insert stores a new record.
func (s *MemoryStore) Insert(ctx context.Context, v model.Validation) error {
	start := time.Now()
	defer observeMemory("insert", start)

	if s.isClosed() {
		return ErrClosed
	}
	sh := s.shardFor(v.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, exists := sh.records[v.ID]; exists {
		return ErrAlreadyExists
	}
	sh.records[v.ID] = &entry{v: v.Clone()}
	return nil
}

// Get returns a copy of the record.
func (s *MemoryStore) Get(ctx context.Context, id string) (model.Validation, error) {
	start := time.Now()
	defer observeMemory("get", start)

	if s.isClosed() {
		return model.Validation{}, ErrClosed
	}
	e := s.lookup(id)
	if e == nil {
		return model.Validation{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.v.Clone(), nil
}

func (s *MemoryStore) lookup(id string) *entry {
	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.records[id]
}

// Update applies fn under the record's own lock.
func (s *MemoryStore) Update(ctx context.Context, id string, fn MutateFunc) (model.Validation, error) {
	start := time.Now()
	defer observeMemory("update", start)

	if s.isClosed() {
		return model.Validation{}, ErrClosed
	}
	e := s.lookup(id)
	if e == nil {
		return model.Validation{}, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	work := e.v.Clone()
	if err := fn(&work); err != nil {
		return model.Validation{}, err
	}
	work.Version = e.v.Version + 1
	e.v = work
	return work.Clone(), nil
}

// List returns matching records ordered by creation time, newest first.
func (s *MemoryStore) List(ctx context.Context, f Filter) ([]model.Validation, error) {
	start := time.Now()
	defer observeMemory("list", start)

	if s.isClosed() {
		return nil, ErrClosed
	}
	var out []model.Validation
	for _, sh := range s.shards {
		sh.mu.RLock()
		entries := make([]*entry, 0, len(sh.records))
		for _, e := range sh.records {
			entries = append(entries, e)
		}
		sh.mu.RUnlock()

		for _, e := range entries {
			e.mu.Lock()
			if f.match(&e.v) {
				out = append(out, e.v.Clone())
			}
			e.mu.Unlock()
		}
	}
	sortNewestFirst(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *MemoryStore) Count(ctx context.Context) int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.records)
		sh.mu.RUnlock()
	}
	metrics.UpdateStoreRecords(n)
	return n
}

// CountByStatus tallies records per status in one pass over the shards.
func (s *MemoryStore) CountByStatus(ctx context.Context) (map[types.Status]int, error) {
	start := time.Now()
	defer observeMemory("count_by_status", start)

	if s.isClosed() {
		return nil, ErrClosed
	}
	counts := make(map[types.Status]int)
	for _, sh := range s.shards {
		sh.mu.RLock()
		entries := make([]*entry, 0, len(sh.records))
		for _, e := range sh.records {
			entries = append(entries, e)
		}
		sh.mu.RUnlock()

		for _, e := range entries {
			e.mu.Lock()
			counts[e.v.Status]++
			e.mu.Unlock()
		}
	}
	return counts, nil
}

// Close rejects further operations. Stored records are dropped with the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func sortNewestFirst(vs []model.Validation) {
	sort.Slice(vs, func(i, j int) bool {
		if !vs[i].CreatedAt.Equal(vs[j].CreatedAt) {
			return vs[i].CreatedAt.After(vs[j].CreatedAt)
		}
		return vs[i].ID < vs[j].ID
	})
}

func observeMemory(op string, start time.Time) {
	metrics.RecordStoreLatency(memoryBackend, op, float64(time.Since(start).Microseconds())/1000)
}
