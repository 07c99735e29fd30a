// Package storage defines persistence contracts for rule sessions.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested snapshot is missing.
var ErrNotFound = errors.New("record not found")

// Snapshot is the committed state of one session: its rules context in the
// JSON wire form and the number of updates applied so far.
type Snapshot struct {
	SessionID string
	Version   uint64
	Context   []byte
	UpdatedAt time.Time
}

// SnapshotStore persists session snapshots.
type SnapshotStore interface {
	PutSnapshot(ctx context.Context, snap Snapshot) error
	GetSnapshot(ctx context.Context, sessionID string) (Snapshot, error)
	DeleteSnapshot(ctx context.Context, sessionID string) error
	ListSnapshotIDs(ctx context.Context) ([]string, error)
}
