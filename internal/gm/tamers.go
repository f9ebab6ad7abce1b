package gm

import (
	"context"

	"go.uber.org/zap"

	"github.com/cory-johannsen/digigm/internal/errors"
	"github.com/cory-johannsen/digigm/internal/game/tamer"
	"github.com/cory-johannsen/digigm/internal/storage"
)

// CreateTamer builds and stores a new Tamer.
func (s *Service) CreateTamer(ctx context.Context, spec tamer.Spec) (*tamer.Tamer, error) {
	t, err := tamer.Build(spec, s.ids.Generate(), s.now())
	if err != nil {
		return nil, err
	}
	if err := insert(ctx, s, s.tamers, t.ID, t); err != nil {
		return nil, err
	}
	s.logger.Info("tamer created", zap.String("id", t.ID), zap.String("name", t.Name))
	return t, nil
}

// GetTamer loads one Tamer.
func (s *Service) GetTamer(ctx context.Context, id string) (*tamer.Tamer, error) {
	return fetch(ctx, s, s.tamers, id)
}

// ListTamers returns every Tamer matching f in creation order.
func (s *Service) ListTamers(ctx context.Context, f tamer.Filter) ([]*tamer.Tamer, error) {
	out, err := s.tamers.List(ctx, f.Fields())
	if err != nil {
		return nil, s.storeErr(storage.KindTamer, "", err)
	}
	return out, nil
}

// UpdateTamer applies fn to the stored Tamer and saves the result. The
// derived stats are recomputed afterwards.
func (s *Service) UpdateTamer(ctx context.Context, id string, fn func(*tamer.Tamer) error) (*tamer.Tamer, error) {
	t, err := mutate(ctx, s, s.tamers, id, func(t *tamer.Tamer) error {
		if err := fn(t); err != nil {
			return err
		}
		t.Recompute()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("tamer updated", zap.String("id", id))
	return t, nil
}

// AddPartner binds an existing Digimon to a Tamer on both sides.
func (s *Service) AddPartner(ctx context.Context, tamerID, digimonID string) (*tamer.Tamer, error) {
	unlock := s.locks.Lock(lockKey(storage.KindTamer, tamerID), lockKey(storage.KindDigimon, digimonID))
	defer unlock()
	if _, err := fetch(ctx, s, s.digimon, digimonID); err != nil {
		return nil, err
	}
	t, err := mutateLocked(ctx, s, s.tamers, tamerID, func(t *tamer.Tamer) error {
		t.AddPartner(digimonID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.digimon.Update(ctx, digimonID, map[string]any{"partnerId": tamerID, "updatedAt": s.now()}); err != nil {
		return nil, s.storeErr(storage.KindDigimon, digimonID, err)
	}
	s.logger.Info("partner added", zap.String("tamer", tamerID), zap.String("digimon", digimonID))
	return t, nil
}

// DeleteTamer removes a Tamer. Digimon that named it as partner keep the
// dangling id; the GM reassigns them explicitly.
func (s *Service) DeleteTamer(ctx context.Context, id string) error {
	if id == "" {
		return errors.Validation("tamer id must not be empty")
	}
	if err := remove(ctx, s, s.tamers, id); err != nil {
		return err
	}
	s.logger.Info("tamer deleted", zap.String("id", id))
	return nil
}
