// Package storagetest holds the conformance suite every Store backend runs.
package storagetest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stretchr/testify/suite"

	"github.com/cory-johannsen/digigm/internal/storage"
)

// StoreSuite exercises the storage.Store contract. NewStore must return an
// empty store for each test.
type StoreSuite struct {
	suite.Suite
	NewStore func() storage.Store

	ctx   context.Context
	store storage.Store
}

type doc struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	PartnerID string   `json:"partnerId,omitempty"`
	IsEnemy   bool     `json:"isEnemy"`
	Level     int      `json:"level"`
	Tags      []string `json:"tags,omitempty"`
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.NewStore()
}

func (s *StoreSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func (s *StoreSuite) insert(kind storage.Kind, d doc) {
	raw, err := json.Marshal(d)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Insert(s.ctx, kind, d.ID, raw))
}

func (s *StoreSuite) decode(raw json.RawMessage) doc {
	var d doc
	s.Require().NoError(json.Unmarshal(raw, &d))
	return d
}

func (s *StoreSuite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, storage.KindDigimon, "nope")
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *StoreSuite) TestInsertAndGet() {
	s.insert(storage.KindDigimon, doc{ID: "d1", Name: "Agumon", Level: 3, Tags: []string{"fire"}})

	raw, err := s.store.Get(s.ctx, storage.KindDigimon, "d1")
	s.Require().NoError(err)
	got := s.decode(raw)
	s.Equal("Agumon", got.Name)
	s.Equal([]string{"fire"}, got.Tags)
}

func (s *StoreSuite) TestInsertDuplicate() {
	s.insert(storage.KindTamer, doc{ID: "t1", Name: "Tai"})
	err := s.store.Insert(s.ctx, storage.KindTamer, "t1", json.RawMessage(`{"id":"t1"}`))
	s.ErrorIs(err, storage.ErrExists)
}

func (s *StoreSuite) TestKindsAreIsolated() {
	s.insert(storage.KindTamer, doc{ID: "x", Name: "Tai"})
	s.insert(storage.KindDigimon, doc{ID: "x", Name: "Agumon"})

	raw, err := s.store.Get(s.ctx, storage.KindTamer, "x")
	s.Require().NoError(err)
	s.Equal("Tai", s.decode(raw).Name)

	s.Require().NoError(s.store.Delete(s.ctx, storage.KindTamer, "x"))
	_, err = s.store.Get(s.ctx, storage.KindDigimon, "x")
	s.NoError(err)
}

func (s *StoreSuite) TestListInsertionOrder() {
	for i := range 5 {
		s.insert(storage.KindDigimon, doc{ID: fmt.Sprintf("d%d", 5-i), Name: fmt.Sprintf("n%d", i)})
	}
	raws, err := s.store.List(s.ctx, storage.KindDigimon, nil)
	s.Require().NoError(err)
	s.Require().Len(raws, 5)
	for i, raw := range raws {
		s.Equal(fmt.Sprintf("n%d", i), s.decode(raw).Name)
	}
}

func (s *StoreSuite) TestListEmptyKind() {
	raws, err := s.store.List(s.ctx, storage.KindEncounter, nil)
	s.Require().NoError(err)
	s.NotNil(raws)
	s.Empty(raws)
}

func (s *StoreSuite) TestListFilter() {
	s.insert(storage.KindDigimon, doc{ID: "a", Name: "Agumon", PartnerID: "t1"})
	s.insert(storage.KindDigimon, doc{ID: "b", Name: "Devimon", IsEnemy: true, Level: 4})
	s.insert(storage.KindDigimon, doc{ID: "c", Name: "Gabumon", PartnerID: "t2"})
	s.insert(storage.KindDigimon, doc{ID: "d", Name: "Ogremon", IsEnemy: true, Level: 3})

	cases := []struct {
		name   string
		filter map[string]any
		want   []string
	}{
		{"partner", map[string]any{"partnerId": "t1"}, []string{"Agumon"}},
		{"enemy", map[string]any{"isEnemy": true}, []string{"Devimon", "Ogremon"}},
		{"combined", map[string]any{"isEnemy": true, "level": 3}, []string{"Ogremon"}},
		{"no match", map[string]any{"partnerId": "t9"}, nil},
		{"empty filter", map[string]any{}, []string{"Agumon", "Devimon", "Gabumon", "Ogremon"}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			raws, err := s.store.List(s.ctx, storage.KindDigimon, tc.filter)
			s.Require().NoError(err)
			var names []string
			for _, raw := range raws {
				names = append(names, s.decode(raw).Name)
			}
			s.Equal(tc.want, names)
		})
	}
}

func (s *StoreSuite) TestUpdateMergesShallow() {
	s.insert(storage.KindTamer, doc{ID: "t1", Name: "Tai", Level: 1, Tags: []string{"goggles"}})

	raw, err := s.store.Update(s.ctx, storage.KindTamer, "t1", map[string]any{"level": 2, "name": "Taichi"})
	s.Require().NoError(err)
	got := s.decode(raw)
	s.Equal("Taichi", got.Name)
	s.Equal(2, got.Level)
	s.Equal([]string{"goggles"}, got.Tags)

	raw, err = s.store.Get(s.ctx, storage.KindTamer, "t1")
	s.Require().NoError(err)
	s.Equal(got, s.decode(raw))
}

func (s *StoreSuite) TestUpdateReplacesNestedValues() {
	s.insert(storage.KindTamer, doc{ID: "t1", Name: "Tai", Tags: []string{"a", "b"}})

	raw, err := s.store.Update(s.ctx, storage.KindTamer, "t1", map[string]any{"tags": []string{"c"}})
	s.Require().NoError(err)
	s.Equal([]string{"c"}, s.decode(raw).Tags)
}

func (s *StoreSuite) TestUpdateKeepsListPosition() {
	s.insert(storage.KindTamer, doc{ID: "t1", Name: "Tai"})
	s.insert(storage.KindTamer, doc{ID: "t2", Name: "Matt"})
	_, err := s.store.Update(s.ctx, storage.KindTamer, "t1", map[string]any{"name": "Taichi"})
	s.Require().NoError(err)

	raws, err := s.store.List(s.ctx, storage.KindTamer, nil)
	s.Require().NoError(err)
	s.Require().Len(raws, 2)
	s.Equal("Taichi", s.decode(raws[0]).Name)
}

func (s *StoreSuite) TestRepositorySaveClearsOmittedFields() {
	repo := storage.NewRepository[doc](s.store, storage.KindDigimon)
	s.Require().NoError(repo.Insert(s.ctx, "d1", &doc{ID: "d1", Name: "Agumon", PartnerID: "tai", Tags: []string{"fire"}}))

	d, err := repo.Get(s.ctx, "d1")
	s.Require().NoError(err)
	d.PartnerID = ""
	d.Tags = nil
	_, err = repo.Save(s.ctx, "d1", d)
	s.Require().NoError(err)

	got, err := repo.Get(s.ctx, "d1")
	s.Require().NoError(err)
	s.Empty(got.PartnerID)
	s.Empty(got.Tags)
	s.Equal("Agumon", got.Name)

	raws, err := s.store.List(s.ctx, storage.KindDigimon, map[string]any{"partnerId": "tai"})
	s.Require().NoError(err)
	s.Empty(raws)
}

func (s *StoreSuite) TestUpdateMissing() {
	_, err := s.store.Update(s.ctx, storage.KindTamer, "ghost", map[string]any{"name": "x"})
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *StoreSuite) TestDelete() {
	s.insert(storage.KindEncounter, doc{ID: "e1", Name: "Ambush"})
	s.Require().NoError(s.store.Delete(s.ctx, storage.KindEncounter, "e1"))

	_, err := s.store.Get(s.ctx, storage.KindEncounter, "e1")
	s.ErrorIs(err, storage.ErrNotFound)
	raws, err := s.store.List(s.ctx, storage.KindEncounter, nil)
	s.Require().NoError(err)
	s.Empty(raws)

	s.ErrorIs(s.store.Delete(s.ctx, storage.KindEncounter, "e1"), storage.ErrNotFound)
}

func (s *StoreSuite) TestReinsertAfterDelete() {
	s.insert(storage.KindEvolutionLine, doc{ID: "l1", Name: "first"})
	s.insert(storage.KindEvolutionLine, doc{ID: "l2", Name: "second"})
	s.Require().NoError(s.store.Delete(s.ctx, storage.KindEvolutionLine, "l1"))
	s.insert(storage.KindEvolutionLine, doc{ID: "l1", Name: "again"})

	raws, err := s.store.List(s.ctx, storage.KindEvolutionLine, nil)
	s.Require().NoError(err)
	s.Require().Len(raws, 2)
	s.Equal("second", s.decode(raws[0]).Name)
	s.Equal("again", s.decode(raws[1]).Name)
}
