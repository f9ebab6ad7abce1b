// Package cli implements the gmtool command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/digigm/internal/config"
	"github.com/cory-johannsen/digigm/internal/game/dice"
	"github.com/cory-johannsen/digigm/internal/gm"
	"github.com/cory-johannsen/digigm/internal/observability"
	"github.com/cory-johannsen/digigm/internal/pkg/clock"
	"github.com/cory-johannsen/digigm/internal/pkg/idgen"
	"github.com/cory-johannsen/digigm/internal/scripting"
	"github.com/cory-johannsen/digigm/internal/storage/backend"
)

// app holds what every command shares. The service is built on first
// use so catalogue-only commands never open a store.
type app struct {
	configPath string
	out        io.Writer
	dice       dice.Source

	cfg     config.Config
	logger  *zap.Logger
	catalog *gm.Catalog
	svc     *gm.Service
	// owned is true when the service was opened here and must be closed.
	owned bool
}

// Option customises the command tree, mainly for tests.
type Option func(*app)

// WithOutput redirects command output.
func WithOutput(w io.Writer) Option { return func(a *app) { a.out = w } }

// WithService supplies a ready service and skips config loading.
func WithService(svc *gm.Service) Option {
	return func(a *app) {
		a.svc = svc
		a.catalog = svc.Catalog()
		a.logger = zap.NewNop()
	}
}

// WithDice replaces the dice source used by the initiative command.
func WithDice(src dice.Source) Option { return func(a *app) { a.dice = src } }

// NewRootCommand builds the gmtool command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{out: os.Stdout, dice: dice.NewCryptoSource()}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:           "gmtool",
		Short:         "Game-master assistant for the Digimon tabletop RPG",
		Long:          `gmtool builds Tamers and Digimon, validates Quality builds, runs encounters and tracks evolution lines.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close()
		},
	}
	root.SetOut(a.out)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to configuration file")

	root.AddCommand(
		a.qualitiesCmd(),
		a.attacksCmd(),
		a.hazardsCmd(),
		a.stagesCmd(),
		a.deriveCmd(),
		a.initiativeCmd(),
		a.digimonCmd(),
		a.tamerCmd(),
		a.encounterCmd(),
		a.evolutionCmd(),
		a.migrateCmd(),
	)
	return root
}

// Execute runs the tree against os.Args and returns the process exit code.
// SIGINT and SIGTERM cancel the command's context.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) init() error {
	if a.logger != nil {
		return nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) loadCatalog() (*gm.Catalog, error) {
	if a.catalog != nil {
		return a.catalog, nil
	}
	c, err := gm.LoadCatalog(a.cfg.Content)
	if err != nil {
		return nil, err
	}
	a.catalog = c
	return c, nil
}

func (a *app) service(ctx context.Context) (*gm.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	catalog, err := a.loadCatalog()
	if err != nil {
		return nil, err
	}
	store, err := backend.Open(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	svc, err := gm.New(gm.Config{
		Store:     store,
		Catalog:   catalog,
		IDGen:     idgen.NewUUID(),
		Clock:     clock.New(),
		Dice:      a.dice,
		Evaluator: scripting.NewEvaluator(a.cfg.Scripting.InstructionLimit, a.logger),
		Budget:    a.budget(),
		Logger:    a.logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.svc = svc
	a.owned = true
	return svc, nil
}

func (a *app) close() error {
	var err error
	if a.owned {
		err = a.svc.Close()
		if err != nil {
			a.logger.Error("closing store", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return err
}

// printJSON writes v as indented JSON.
func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// decodeFile reads a YAML or JSON document into v. YAML is converted to
// JSON first so the json field names apply to both formats.
func decodeFile(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if strings.HasSuffix(path, ".json") {
		return json.Unmarshal(raw, v)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("converting %s: %w", path, err)
	}
	return json.Unmarshal(asJSON, v)
}
