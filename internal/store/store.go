// Package store owns the "latest snapshot" slot and its durable backup.
//
// The in-memory slot is a single atomic pointer replaced wholesale on every
// successful fetch, so concurrent readers never observe a half-updated
// snapshot. The sqlite tables hold the last known good snapshot (served
// again after a restart, before the first fetch succeeds) and the
// home-neighborhood preference.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/blumetech/alertablu-dash/internal/models"
)

const homeNeighborhoodKey = "home_neighborhood"

type Store struct {
	db       *sql.DB
	snapshot atomic.Pointer[models.FeedSnapshot]
}

// Open opens (or creates) the sqlite database at path and runs migrations.
// Use ":memory:" in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating database: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			raw BLOB NOT NULL,
			updated_at DATETIME NOT NULL,
			fetched_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS preferences (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
  	`

	_, err := s.db.Exec(schema)
	return err
}

// Latest returns the current snapshot, or nil when none has been loaded yet.
// The returned snapshot must be treated as read-only.
func (s *Store) Latest() *models.FeedSnapshot {
	return s.snapshot.Load()
}

// SetLatest replaces the snapshot slot and persists the raw body as the last
// known good copy. The slot is updated even if persistence fails, so a
// broken disk degrades durability but not freshness.
func (s *Store) SetLatest(ctx context.Context, snapshot *models.FeedSnapshot) error {
	s.snapshot.Store(snapshot)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, raw, updated_at, fetched_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			raw = excluded.raw,
			updated_at = excluded.updated_at,
			fetched_at = excluded.fetched_at
	`, snapshot.Raw, snapshot.UpdatedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("error persisting snapshot: %w", err)
	}
	return nil
}

// LoadLastKnownGood restores the persisted snapshot into the slot. Having no
// persisted snapshot is not an error; the slot stays empty.
func (s *Store) LoadLastKnownGood(ctx context.Context) error {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT raw FROM snapshots WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error reading persisted snapshot: %w", err)
	}

	var snapshot models.FeedSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return fmt.Errorf("error decoding persisted snapshot: %w", err)
	}
	snapshot.Raw = raw

	s.snapshot.Store(&snapshot)
	return nil
}

// HomeNeighborhood returns the stored preference, or "" when none is set.
func (s *Store) HomeNeighborhood(ctx context.Context) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE key = ?`, homeNeighborhoodKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("error reading preference: %w", err)
	}
	return value, nil
}

// SetHomeNeighborhood stores the preference. An empty name clears it.
func (s *Store) SetHomeNeighborhood(ctx context.Context, name string) error {
	if name == "" {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM preferences WHERE key = ?`, homeNeighborhoodKey)
		if err != nil {
			return fmt.Errorf("error clearing preference: %w", err)
		}
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, homeNeighborhoodKey, name)
	if err != nil {
		return fmt.Errorf("error storing preference: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
