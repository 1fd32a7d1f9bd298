// Package repository provides keyed storage for validation records.
package repository

import (
	"context"

	"github.com/tricktrack/tricktrack/internal/domain/model"
	"github.com/tricktrack/tricktrack/internal/domain/types"
)

// MutateFunc edits a working copy of a record. Returning an error discards
// the copy and leaves the stored record unchanged.
type MutateFunc func(v *model.Validation) error

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Status   types.Status
	SkaterID string
	Limit    int
}

// Store provides read/write access to validation records.
type Store interface {
	// Insert stores a new record. Returns ErrAlreadyExists on id collision.
	Insert(ctx context.Context, v model.Validation) error

	// Get returns a copy of the record. Returns ErrNotFound if unknown.
	Get(ctx context.Context, id string) (model.Validation, error)

	// Update applies fn to the record as one atomic unit per id and returns
	// the stored result. Concurrent updates of the same id never interleave.
	Update(ctx context.Context, id string, fn MutateFunc) (model.Validation, error)

	// List returns records newest first.
	List(ctx context.Context, f Filter) ([]model.Validation, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) int

	// CountByStatus returns record counts keyed by status. Statuses with no
	// records are absent.
	CountByStatus(ctx context.Context) (map[types.Status]int, error)

	Close() error
}

func (f Filter) match(v *model.Validation) bool {
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	if f.SkaterID != "" && v.SkaterID != f.SkaterID {
		return false
	}
	return true
}
