// Package sqlite persists bot state in a single SQLite table. It uses the
// pure-Go modernc.org/sqlite driver, so binaries stay cgo-free.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/ports"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store implements ports.Storage backed by SQLite. All public methods are
// safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open creates a store at dsn, e.g. "state.db" or ":memory:".
// The schema is created automatically on first use.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes the
	// compare-and-swap statements.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	PRAGMA journal_mode = WAL;
	CREATE TABLE IF NOT EXISTS bot_state (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		etag       TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Read returns the rows present among keys.
func (s *Store) Read(ctx context.Context, keys []string) (map[string]ports.StoreItem, error) {
	out := make(map[string]ports.StoreItem, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, etag FROM bot_state WHERE key IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			value []byte
			etag  string
		)
		if err := rows.Scan(&key, &value, &etag); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		out[key] = ports.StoreItem{Value: value, ETag: etag}
	}
	return out, rows.Err()
}

// Write applies each change with a single guarded statement.
func (s *Store) Write(ctx context.Context, changes map[string]ports.StoreItem) (map[string]string, error) {
	written := make(map[string]string, len(changes))
	var conflicts []string

	for k, item := range changes {
		etag := uuid.NewString()
		ok, err := s.write(ctx, k, item, etag)
		if err != nil {
			return written, fmt.Errorf("write %s: %w", k, err)
		}
		if !ok {
			conflicts = append(conflicts, k)
			continue
		}
		written[k] = etag
	}

	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return written, &ports.ConflictError{Keys: conflicts}
	}
	return written, nil
}

func (s *Store) write(ctx context.Context, key string, item ports.StoreItem, etag string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	value := item.Value
	if value == nil {
		value = []byte{}
	}

	var (
		res sql.Result
		err error
	)
	switch item.ETag {
	case ports.ETagAny:
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO bot_state (key, value, etag, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, etag = excluded.etag, updated_at = excluded.updated_at`,
			key, value, etag, now)
	case ports.ETagNew:
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO bot_state (key, value, etag, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(key) DO NOTHING`,
			key, value, etag, now)
	default:
		res, err = s.db.ExecContext(ctx,
			`UPDATE bot_state SET value = ?, etag = ?, updated_at = ? WHERE key = ? AND etag = ?`,
			value, etag, now, key, item.ETag)
	}
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes keys.
func (s *Store) Delete(ctx context.Context, keys []string) error {
	for _, k := range keys {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM bot_state WHERE key = ?`, k); err != nil {
			return fmt.Errorf("delete %s: %w", k, err)
		}
	}
	return nil
}

// List returns the stored keys with the given prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM bot_state WHERE substr(key, 1, ?) = ? ORDER BY key`, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("list state: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
