// Package sqlite provides a SQLite-backed session snapshot store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/rulesheet/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/rulesheet/internal/storage"
	"github.com/louisbranch/rulesheet/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists session snapshots in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite snapshot store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// PutSnapshot inserts or replaces the snapshot of one session. An older
// version never overwrites a newer one.
func (s *Store) PutSnapshot(ctx context.Context, snap storage.Snapshot) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	sessionID := strings.TrimSpace(snap.SessionID)
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	updatedAt := snap.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO session_snapshots (session_id, version, context, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (session_id) DO UPDATE SET
		   version = excluded.version,
		   context = excluded.context,
		   updated_at = excluded.updated_at
		 WHERE excluded.version >= session_snapshots.version`,
		sessionID,
		int64(snap.Version),
		string(snap.Context),
		toMillis(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("put session snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns the snapshot of one session.
func (s *Store) GetSnapshot(ctx context.Context, sessionID string) (storage.Snapshot, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Snapshot{}, err
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT session_id, version, context, updated_at
		   FROM session_snapshots
		  WHERE session_id = ?`,
		strings.TrimSpace(sessionID),
	)
	var (
		snap        storage.Snapshot
		version     int64
		contextJSON string
		updatedAt   int64
	)
	if err := row.Scan(&snap.SessionID, &version, &contextJSON, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Snapshot{}, storage.ErrNotFound
		}
		return storage.Snapshot{}, fmt.Errorf("get session snapshot: %w", err)
	}
	snap.Version = uint64(version)
	snap.Context = []byte(contextJSON)
	snap.UpdatedAt = fromMillis(updatedAt)
	return snap, nil
}

// DeleteSnapshot removes the snapshot of one session.
func (s *Store) DeleteSnapshot(ctx context.Context, sessionID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM session_snapshots WHERE session_id = ?`,
		strings.TrimSpace(sessionID),
	)
	if err != nil {
		return fmt.Errorf("delete session snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session snapshot: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListSnapshotIDs returns every stored session id in ascending order.
func (s *Store) ListSnapshotIDs(ctx context.Context) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT session_id FROM session_snapshots ORDER BY session_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list session snapshots: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var sessionID string
		if err := rows.Scan(&sessionID); err != nil {
			return nil, fmt.Errorf("list session snapshots: %w", err)
		}
		ids = append(ids, sessionID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list session snapshots: %w", err)
	}
	return ids, nil
}

var _ storage.SnapshotStore = (*Store)(nil)
