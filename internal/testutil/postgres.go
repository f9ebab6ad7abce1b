// Package testutil provides container helpers for storage tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cory-johannsen/digigm/internal/config"
	"github.com/cory-johannsen/digigm/internal/storage/postgres"
	"github.com/cory-johannsen/digigm/migrations"
)

// Postgres is a migrated PostgreSQL test container and a Store over it.
type Postgres struct {
	Config config.DatabaseConfig
	Store  *postgres.Store
}

// NewPostgres starts a postgres:16-alpine container, applies the
// embedded migrations and opens a Store. Everything is torn down with
// the test.
//
// Precondition: Docker must be available.
// Postcondition: Returns a ready Store or fails the test.
func NewPostgres(t *testing.T) *Postgres {
	t.Helper()
	ctx := context.Background()
	start := time.Now()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "digigm",
				"POSTGRES_PASSWORD": "digigm",
				"POSTGRES_DB":       "digigm_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v [%s]", err, time.Since(start))
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("getting container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("getting mapped port: %v", err)
	}

	cfg := config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "digigm",
		Password:        "digigm",
		Name:            "digigm_test",
		SSLMode:         "disable",
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}
	if err := migrations.Up(cfg.DSN()); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	store, err := postgres.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	t.Logf("postgres ready [%s]", time.Since(start))
	return &Postgres{Config: cfg, Store: store}
}

// Reset empties the entities table between tests.
func (p *Postgres) Reset(t *testing.T) {
	t.Helper()
	if err := p.Store.Truncate(context.Background()); err != nil {
		t.Fatalf("truncating entities: %v", err)
	}
}
