package gm_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/cory-johannsen/digigm/internal/errors"
	"github.com/cory-johannsen/digigm/internal/game/dice"
	"github.com/cory-johannsen/digigm/internal/game/evolution"
	"github.com/cory-johannsen/digigm/internal/gm"
	"github.com/cory-johannsen/digigm/internal/pkg/clock"
	"github.com/cory-johannsen/digigm/internal/pkg/idgen"
	"github.com/cory-johannsen/digigm/internal/storage"
	storagemock "github.com/cory-johannsen/digigm/internal/storage/mock"
)

func newMockedService(t *testing.T) (*gm.Service, *storagemock.MockStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := storagemock.NewMockStore(ctrl)
	svc, err := gm.New(gm.Config{
		Store:   store,
		Catalog: loadCatalog(t),
		IDGen:   idgen.NewSequential("id"),
		Clock:   clock.NewFixed(epoch),
		Dice:    dice.NewFixedSource(3),
	})
	require.NoError(t, err)
	return svc, store
}

func TestStorageFailureIsMapped(t *testing.T) {
	svc, store := newMockedService(t)
	boom := stderrors.New("connection reset")
	store.EXPECT().Get(gomock.Any(), storage.KindDigimon, "d1").Return(nil, boom)

	_, err := svc.GetDigimon(context.Background(), "d1")
	assert.True(t, errors.IsStorage(err))
	assert.ErrorIs(t, err, boom)
}

func TestNotFoundIsMapped(t *testing.T) {
	svc, store := newMockedService(t)
	store.EXPECT().Get(gomock.Any(), storage.KindTamer, "t1").Return(nil, storage.ErrNotFound)

	_, err := svc.GetTamer(context.Background(), "t1")
	assert.True(t, errors.IsNotFound(err))
}

func TestDuplicateInsertIsValidation(t *testing.T) {
	svc, store := newMockedService(t)
	store.EXPECT().Insert(gomock.Any(), storage.KindEncounter, "id-1", gomock.Any()).Return(storage.ErrExists)

	_, err := svc.CreateEncounter(context.Background(), "Ambush", "")
	assert.True(t, errors.IsValidation(err))
}

func TestEncounterStorageFailureIsNotTolerated(t *testing.T) {
	svc, store := newMockedService(t)
	store.EXPECT().Get(gomock.Any(), storage.KindEncounter, "e1").Return(nil, stderrors.New("timeout"))

	e, err := svc.StartCombat(context.Background(), "e1")
	assert.Nil(t, e)
	assert.True(t, errors.IsStorage(err))
}

func TestFailedEvolveWritesNothing(t *testing.T) {
	svc, store := newMockedService(t)
	five := 5
	line := evolution.Line{
		ID:   "l1",
		Name: "Agumon line",
		Chain: []evolution.Slot{
			{Stage: "rookie", Species: "Agumon"},
			{Stage: "champion", Species: "Greymon", Requirements: &evolution.Requirement{Type: evolution.XP, Value: &five}},
		},
	}
	raw, err := json.Marshal(line)
	require.NoError(t, err)
	store.EXPECT().Get(gomock.Any(), storage.KindEvolutionLine, "l1").Return(raw, nil)
	// No Update expectation: a write would fail the test.

	_, err = svc.Evolve(context.Background(), "l1")
	assert.Equal(t, errors.RuleEvolutionRequirement, errors.RuleOf(err))
}

func TestEvolveSavesFullDocument(t *testing.T) {
	svc, store := newMockedService(t)
	line := evolution.Line{
		ID:    "l1",
		Name:  "Agumon line",
		Chain: []evolution.Slot{{Stage: "rookie", Species: "Agumon"}, {Stage: "champion", Species: "Greymon"}},
	}
	raw, err := json.Marshal(line)
	require.NoError(t, err)

	gomock.InOrder(
		store.EXPECT().Get(gomock.Any(), storage.KindEvolutionLine, "l1").Return(raw, nil),
		store.EXPECT().Update(gomock.Any(), storage.KindEvolutionLine, "l1", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ storage.Kind, _ string, patch map[string]any) (json.RawMessage, error) {
				assert.Contains(t, patch, "currentStageIndex")
				assert.Contains(t, patch, "updatedAt")
				return storage.Merge(raw, patch)
			}),
	)

	got, err := svc.Evolve(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentStageIndex)
	assert.Equal(t, epoch, got.UpdatedAt)
}
