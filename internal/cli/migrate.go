package cli

import (
	"errors"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/digigm/migrations"
)

// migrateCmd manages the postgres schema. It ignores storage.backend so
// the schema can be prepared before switching to postgres.
func (a *app) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "migrate", Short: "Manage the PostgreSQL schema"}

	var steps int
	run := func(direction string) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			return a.withMigrator(func(m *migrate.Migrate) error {
				start := time.Now()
				var err error
				switch {
				case direction == "up" && steps > 0:
					err = m.Steps(steps)
				case direction == "up":
					err = m.Up()
				case steps > 0:
					err = m.Steps(-steps)
				default:
					err = m.Down()
				}
				noChange := errors.Is(err, migrate.ErrNoChange)
				if err != nil && !noChange {
					return err
				}
				version, dirty, _ := m.Version()
				if noChange {
					a.printf("no changes (version=%d dirty=%t) [%s]\n", version, dirty, time.Since(start))
					return nil
				}
				a.logger.Info("schema migrated", zap.String("direction", direction), zap.Uint("version", version))
				a.printf("migrated %s to version=%d dirty=%t [%s]\n", direction, version, dirty, time.Since(start))
				return nil
			})
		}
	}

	up := &cobra.Command{Use: "up", Short: "Apply pending migrations", Args: cobra.NoArgs, RunE: run("up")}
	down := &cobra.Command{Use: "down", Short: "Revert migrations", Args: cobra.NoArgs, RunE: run("down")}
	for _, c := range []*cobra.Command{up, down} {
		c.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")
	}

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withMigrator(func(m *migrate.Migrate) error {
				v, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					a.printf("no migrations applied\n")
					return nil
				}
				if err != nil {
					return err
				}
				a.printf("version=%d dirty=%t\n", v, dirty)
				return nil
			})
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

func (a *app) withMigrator(fn func(*migrate.Migrate) error) error {
	m, err := migrations.New(a.cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			a.logger.Warn("closing migrator", zap.NamedError("source", srcErr), zap.NamedError("database", dbErr))
		}
	}()
	return fn(m)
}
