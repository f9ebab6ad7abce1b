package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/digigm/internal/storage"
)

// Store persists every entity kind in the single entities table.
type Store struct {
	db *pgxpool.Pool
}

// NewStore wraps db. The Store owns db and closes it on Close.
//
// Precondition: db is connected and the entities migration is applied.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Get implements storage.Store.
func (s *Store) Get(ctx context.Context, kind storage.Kind, id string) (json.RawMessage, error) {
	var data []byte
	err := s.db.QueryRow(ctx,
		`SELECT data FROM entities WHERE kind = $1 AND id = $2`, string(kind), id,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s %q: %w", kind, id, err)
	}
	return data, nil
}

// List implements storage.Store. Filters match with jsonb containment.
func (s *Store) List(ctx context.Context, kind storage.Kind, filter map[string]any) ([]json.RawMessage, error) {
	f, err := storage.FilterJSON(filter)
	if err != nil {
		return nil, fmt.Errorf("encoding filter: %w", err)
	}
	rows, err := s.db.Query(ctx,
		`SELECT data FROM entities WHERE kind = $1 AND data @> $2::jsonb ORDER BY seq`,
		string(kind), f,
	)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}
	defer rows.Close()

	out := []json.RawMessage{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", kind, err)
		}
		out = append(out, data)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", kind, err)
	}
	return out, nil
}

// Insert implements storage.Store.
func (s *Store) Insert(ctx context.Context, kind storage.Kind, id string, doc json.RawMessage) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO entities (kind, id, data) VALUES ($1, $2, $3::jsonb)`,
		string(kind), id, string(doc),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrExists
		}
		return fmt.Errorf("inserting %s %q: %w", kind, id, err)
	}
	return nil
}

// Update implements storage.Store. The jsonb || operator performs the
// shallow merge in one statement.
func (s *Store) Update(ctx context.Context, kind storage.Kind, id string, patch map[string]any) (json.RawMessage, error) {
	p, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("encoding patch: %w", err)
	}
	var data []byte
	err = s.db.QueryRow(ctx,
		`UPDATE entities SET data = data || $3::jsonb, updated_at = NOW()
		 WHERE kind = $1 AND id = $2 RETURNING data`,
		string(kind), id, string(p),
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating %s %q: %w", kind, id, err)
	}
	return data, nil
}

// Delete implements storage.Store.
func (s *Store) Delete(ctx context.Context, kind storage.Kind, id string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM entities WHERE kind = $1 AND id = $2`, string(kind), id,
	)
	if err != nil {
		return fmt.Errorf("deleting %s %q: %w", kind, id, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.db.Close()
	return nil
}

// isDuplicateKeyError checks if a PostgreSQL error is a unique violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
