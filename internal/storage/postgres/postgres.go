// Package postgres stores entity documents in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/digigm/internal/config"
)

const pingTimeout = 5 * time.Second

// Open connects a pool sized from cfg and returns a Store over it.
//
// Precondition: the entities migration has been applied to the database.
// Postcondition: Returns a Store whose database answered a ping and has
// the entities table, or a non-nil error with the pool closed.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	s := NewStore(db)
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if err := s.checkSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func poolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "digigm"
	return poolCfg, nil
}

// Ping checks that the database answers within a short timeout.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return s.db.Ping(ctx)
}

func (s *Store) checkSchema(ctx context.Context) error {
	var present bool
	err := s.db.QueryRow(ctx, `SELECT to_regclass('entities') IS NOT NULL`).Scan(&present)
	if err != nil {
		return fmt.Errorf("checking schema: %w", err)
	}
	if !present {
		return fmt.Errorf("entities table missing: run the migrations first")
	}
	return nil
}

// Truncate removes every document of every kind.
func (s *Store) Truncate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `TRUNCATE entities`)
	return err
}
