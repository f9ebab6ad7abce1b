// Package gm is the game-master service layer. It loads entities from a
// storage.Store, applies the pure rules packages to them and writes the
// result back, serialising mutations per entity id.
package gm

import (
	"context"
	stderrors "errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/digigm/internal/errors"
	"github.com/cory-johannsen/digigm/internal/game/combat"
	"github.com/cory-johannsen/digigm/internal/game/dice"
	"github.com/cory-johannsen/digigm/internal/game/digimon"
	"github.com/cory-johannsen/digigm/internal/game/evolution"
	"github.com/cory-johannsen/digigm/internal/game/tamer"
	"github.com/cory-johannsen/digigm/internal/pkg/clock"
	"github.com/cory-johannsen/digigm/internal/pkg/idgen"
	"github.com/cory-johannsen/digigm/internal/scripting"
	"github.com/cory-johannsen/digigm/internal/storage"
)

// Config holds the Service dependencies.
type Config struct {
	Store     storage.Store
	Catalog   *Catalog
	IDGen     idgen.Generator
	Clock     clock.Clock
	Dice      dice.Source
	Evaluator *scripting.Evaluator
	Budget    combat.ActionBudget
	Logger    *zap.Logger
}

// Validate reports the first missing dependency.
func (c *Config) Validate() error {
	switch {
	case c.Store == nil:
		return errors.Validation("gm: Store is required")
	case c.Catalog == nil:
		return errors.Validation("gm: Catalog is required")
	case c.IDGen == nil:
		return errors.Validation("gm: IDGen is required")
	case c.Clock == nil:
		return errors.Validation("gm: Clock is required")
	case c.Dice == nil:
		return errors.Validation("gm: Dice is required")
	}
	return nil
}

// Service implements the GM operations.
type Service struct {
	store     storage.Store
	catalog   *Catalog
	ids       idgen.Generator
	clock     clock.Clock
	roller    *dice.Roller
	evaluator *scripting.Evaluator
	budget    combat.ActionBudget
	logger    *zap.Logger
	locks     *keyedMutex

	tamers     *storage.Repository[tamer.Tamer]
	digimon    *storage.Repository[digimon.Digimon]
	encounters *storage.Repository[combat.Encounter]
	lines      *storage.Repository[evolution.Line]
}

// New validates cfg and builds a Service. A zero Budget selects
// combat.DefaultBudget; a nil Logger discards output.
func New(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	budget := cfg.Budget
	if budget == (combat.ActionBudget{}) {
		budget = combat.DefaultBudget
	}
	return &Service{
		store:      cfg.Store,
		catalog:    cfg.Catalog,
		ids:        cfg.IDGen,
		clock:      cfg.Clock,
		roller:     dice.NewRoller(cfg.Dice, logger),
		evaluator:  cfg.Evaluator,
		budget:     budget,
		logger:     logger,
		locks:      newKeyedMutex(),
		tamers:     storage.NewRepository[tamer.Tamer](cfg.Store, storage.KindTamer),
		digimon:    storage.NewRepository[digimon.Digimon](cfg.Store, storage.KindDigimon),
		encounters: storage.NewRepository[combat.Encounter](cfg.Store, storage.KindEncounter),
		lines:      storage.NewRepository[evolution.Line](cfg.Store, storage.KindEvolutionLine),
	}, nil
}

// Catalog returns the loaded catalogues.
func (s *Service) Catalog() *Catalog { return s.catalog }

// Close releases the store.
func (s *Service) Close() error { return s.store.Close() }

func (s *Service) now() time.Time { return s.clock.Now() }

// storeErr maps a backend error onto the service taxonomy.
func (s *Service) storeErr(kind storage.Kind, id string, err error) error {
	switch {
	case stderrors.Is(err, storage.ErrNotFound):
		return errors.NotFound(string(kind), id)
	case stderrors.Is(err, storage.ErrExists):
		return errors.Validation("%s %q already exists", kind, id)
	}
	var e *errors.Error
	if errors.As(err, &e) {
		return e
	}
	s.logger.Error("storage failure",
		zap.String("kind", string(kind)),
		zap.String("id", id),
		zap.Error(err),
	)
	return errors.Storage(err, "%s %q", kind, id)
}

// mutate loads id from repo under its lock, applies fn, stamps the
// update time and saves the result. Nothing is written when fn fails.
func mutate[T any](ctx context.Context, s *Service, repo *storage.Repository[T], id string, fn func(*T) error) (*T, error) {
	unlock := s.locks.Lock(lockKey(repo.Kind(), id))
	defer unlock()
	return mutateLocked(ctx, s, repo, id, fn)
}

// mutateLocked is mutate for callers that already hold the lock.
func mutateLocked[T any](ctx context.Context, s *Service, repo *storage.Repository[T], id string, fn func(*T) error) (*T, error) {
	v, err := repo.Get(ctx, id)
	if err != nil {
		return nil, s.storeErr(repo.Kind(), id, err)
	}
	if err := fn(v); err != nil {
		return nil, err
	}
	touch(v, s.now())
	saved, err := repo.Save(ctx, id, v)
	if err != nil {
		return nil, s.storeErr(repo.Kind(), id, err)
	}
	return saved, nil
}

// fetch loads id from repo, mapping backend errors.
func fetch[T any](ctx context.Context, s *Service, repo *storage.Repository[T], id string) (*T, error) {
	v, err := repo.Get(ctx, id)
	if err != nil {
		return nil, s.storeErr(repo.Kind(), id, err)
	}
	return v, nil
}

// insert stores a freshly built entity.
func insert[T any](ctx context.Context, s *Service, repo *storage.Repository[T], id string, v *T) error {
	if err := repo.Insert(ctx, id, v); err != nil {
		return s.storeErr(repo.Kind(), id, err)
	}
	return nil
}

// remove deletes id from repo under its lock.
func remove[T any](ctx context.Context, s *Service, repo *storage.Repository[T], id string) error {
	unlock := s.locks.Lock(lockKey(repo.Kind(), id))
	defer unlock()
	if err := repo.Delete(ctx, id); err != nil {
		return s.storeErr(repo.Kind(), id, err)
	}
	return nil
}

func touch(v any, now time.Time) {
	switch x := v.(type) {
	case *tamer.Tamer:
		x.UpdatedAt = now
	case *digimon.Digimon:
		x.UpdatedAt = now
	case *combat.Encounter:
		x.UpdatedAt = now
	case *evolution.Line:
		x.UpdatedAt = now
	}
}

func lockKey(kind storage.Kind, id string) string {
	return string(kind) + ":" + id
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock acquires every key in a fixed order and returns the release func.
// Duplicate keys are locked once.
func (k *keyedMutex) Lock(keys ...string) func() {
	keys = sortedUnique(keys)
	entries := make([]*keyedEntry, len(keys))
	k.mu.Lock()
	for i, key := range keys {
		e, ok := k.locks[key]
		if !ok {
			e = &keyedEntry{}
			k.locks[key] = e
		}
		e.refs++
		entries[i] = e
	}
	k.mu.Unlock()
	for _, e := range entries {
		e.mu.Lock()
	}
	return func() {
		for i := len(entries) - 1; i >= 0; i-- {
			entries[i].mu.Unlock()
		}
		k.mu.Lock()
		for i, key := range keys {
			entries[i].refs--
			if entries[i].refs == 0 {
				delete(k.locks, key)
			}
		}
		k.mu.Unlock()
	}
}

func sortedUnique(keys []string) []string {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}
