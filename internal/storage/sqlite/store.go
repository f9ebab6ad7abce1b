// Package sqlite stores entities in an embedded SQLite file through the
// pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/cory-johannsen/digigm/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS entities (
	kind       TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (kind, id)
);
CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities (kind);
`

// Store implements storage.Store on database/sql.
type Store struct {
	db *sql.DB
}

// Open opens path and applies the schema. ":memory:" is held on a single
// connection so every query sees the same database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %q: %w", path, err)
	}
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configuring sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Get implements storage.Store.
func (s *Store) Get(ctx context.Context, kind storage.Kind, id string) (json.RawMessage, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM entities WHERE kind = ? AND id = ?`, string(kind), id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s %q: %w", kind, id, err)
	}
	return json.RawMessage(data), nil
}

// List implements storage.Store.
func (s *Store) List(ctx context.Context, kind storage.Kind, filter map[string]any) ([]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM entities WHERE kind = ? ORDER BY rowid`, string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}
	defer rows.Close()

	out := []json.RawMessage{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", kind, err)
		}
		doc := json.RawMessage(data)
		ok, err := storage.Matches(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, doc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", kind, err)
	}
	return out, nil
}

// Insert implements storage.Store.
func (s *Store) Insert(ctx context.Context, kind storage.Kind, id string, doc json.RawMessage) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO entities (kind, id, data) VALUES (?, ?, ?) ON CONFLICT (kind, id) DO NOTHING`,
		string(kind), id, string(doc),
	)
	if err != nil {
		return fmt.Errorf("inserting %s %q: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inserting %s %q: %w", kind, id, err)
	}
	if n == 0 {
		return storage.ErrExists
	}
	return nil
}

// Update implements storage.Store.
func (s *Store) Update(ctx context.Context, kind storage.Kind, id string, patch map[string]any) (json.RawMessage, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning update of %s %q: %w", kind, id, err)
	}
	defer func() { _ = tx.Rollback() }()

	var data string
	err = tx.QueryRowContext(ctx,
		`SELECT data FROM entities WHERE kind = ? AND id = ?`, string(kind), id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s %q: %w", kind, id, err)
	}
	merged, err := storage.Merge(json.RawMessage(data), patch)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE entities SET data = ?, updated_at = CURRENT_TIMESTAMP WHERE kind = ? AND id = ?`,
		string(merged), string(kind), id,
	); err != nil {
		return nil, fmt.Errorf("writing %s %q: %w", kind, id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing %s %q: %w", kind, id, err)
	}
	return merged, nil
}

// Delete implements storage.Store.
func (s *Store) Delete(ctx context.Context, kind storage.Kind, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM entities WHERE kind = ? AND id = ?`, string(kind), id,
	)
	if err != nil {
		return fmt.Errorf("deleting %s %q: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting %s %q: %w", kind, id, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
