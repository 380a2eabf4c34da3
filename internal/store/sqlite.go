package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"polywatch/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ MarkerStore = (*SQLiteStore)(nil)
var _ WatchlistStore = (*SQLiteStore)(nil)
var _ SubscriberStore = (*SQLiteStore)(nil)

// SQLiteStore implements MarkerStore, WatchlistStore, and SubscriberStore
// backed by a single key-value table in a SQLite database. Each key is
// read and written with a single statement, so per-key access is atomic.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and
// returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(
		`CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT NOT NULL)`,
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating kv table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// get returns the raw value for key, or "" with found=false when absent.
func (s *SQLiteStore) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ?`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// put upserts the value for key.
func (s *SQLiteStore) put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// putJSON marshals v and upserts it under key.
func (s *SQLiteStore) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.put(ctx, key, string(data))
}

// ---------------------------------------------------------------------------
// MarkerStore implementation
// ---------------------------------------------------------------------------

// LastEventID returns the last-seen event marker, or "" when absent.
func (s *SQLiteStore) LastEventID(ctx context.Context) (string, error) {
	v, _, err := s.get(ctx, KeyLastEventID)
	return v, err
}

// SetLastEventID replaces the last-seen event marker.
func (s *SQLiteStore) SetLastEventID(ctx context.Context, id string) error {
	return s.put(ctx, KeyLastEventID, id)
}

// ---------------------------------------------------------------------------
// WatchlistStore implementation
// ---------------------------------------------------------------------------

// Watchlist returns the watched slugs in insertion order. An absent key
// is an empty watchlist, not an error.
func (s *SQLiteStore) Watchlist(ctx context.Context) ([]string, error) {
	v, found, err := s.get(ctx, KeyWatchlist)
	if err != nil || !found {
		return nil, err
	}
	var slugs []string
	if err := json.Unmarshal([]byte(v), &slugs); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", KeyWatchlist, err)
	}
	return slugs, nil
}

// SetWatchlist replaces the watched slug list.
func (s *SQLiteStore) SetWatchlist(ctx context.Context, slugs []string) error {
	if slugs == nil {
		slugs = []string{}
	}
	return s.putJSON(ctx, KeyWatchlist, slugs)
}

// EventSnapshots returns the slug-to-event snapshot mapping.
func (s *SQLiteStore) EventSnapshots(ctx context.Context) (map[string]domain.Event, error) {
	v, found, err := s.get(ctx, KeyWatchlistEvents)
	if err != nil {
		return nil, err
	}
	snaps := make(map[string]domain.Event)
	if !found {
		return snaps, nil
	}
	if err := json.Unmarshal([]byte(v), &snaps); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", KeyWatchlistEvents, err)
	}
	return snaps, nil
}

// SetEventSnapshots replaces the snapshot mapping.
func (s *SQLiteStore) SetEventSnapshots(ctx context.Context, snaps map[string]domain.Event) error {
	if snaps == nil {
		snaps = map[string]domain.Event{}
	}
	return s.putJSON(ctx, KeyWatchlistEvents, snaps)
}

// ---------------------------------------------------------------------------
// SubscriberStore implementation
// ---------------------------------------------------------------------------

// SubscriberID returns the subscriber identity, or "" when unset.
func (s *SQLiteStore) SubscriberID(ctx context.Context) (string, error) {
	v, _, err := s.get(ctx, KeySubscriberID)
	return v, err
}

// SetSubscriberID replaces the subscriber identity.
func (s *SQLiteStore) SetSubscriberID(ctx context.Context, id string) error {
	return s.put(ctx, KeySubscriberID, id)
}
