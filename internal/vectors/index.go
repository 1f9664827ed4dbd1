// Package vectors provides the semantic index over focus items, backed by
// Qdrant. The relational store is the source of truth; entries here are a
// mirror keyed by the same ids.
package vectors

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Entry is one focus item mirrored into the semantic index. Document is
// the item text plus derived keywords; Payload carries the metadata used
// for scoped filtering.
type Entry struct {
	ID       uuid.UUID
	Vector   []float32
	Document string
	Payload  map[string]any
}

// Result is one nearest-neighbor match
type Result struct {
	ID       uuid.UUID
	Score    float32
	Document string
	Payload  map[string]any
}

// Index is the semantic-index surface the synchronizer and search depend
// on. Implementations must scope every query by the profile_id payload
// field so items are never visible across profiles.
type Index interface {
	Upsert(ctx context.Context, entries []Entry) error
	Delete(ctx context.Context, ids []uuid.UUID) error
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Result, error)
	Query(ctx context.Context, profileID uuid.UUID, vector []float32, limit uint64) ([]Result, error)
}

// IndexSyncError wraps a semantic-index write or delete failure. These are
// never fatal: the caller logs them and leaves the record eligible for a
// later reconciliation pass.
type IndexSyncError struct {
	Op  string
	Err error
}

func (e *IndexSyncError) Error() string {
	return fmt.Sprintf("semantic index failure during %s: %v", e.Op, e.Err)
}

func (e *IndexSyncError) Unwrap() error {
	return e.Err
}
