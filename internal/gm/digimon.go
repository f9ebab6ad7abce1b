package gm

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/cory-johannsen/digigm/internal/errors"
	"github.com/cory-johannsen/digigm/internal/game/attack"
	"github.com/cory-johannsen/digigm/internal/game/derive"
	"github.com/cory-johannsen/digigm/internal/game/digimon"
	"github.com/cory-johannsen/digigm/internal/game/quality"
	"github.com/cory-johannsen/digigm/internal/game/stage"
	"github.com/cory-johannsen/digigm/internal/game/tamer"
	"github.com/cory-johannsen/digigm/internal/storage"
)

// CreateDigimon builds and stores a new Digimon.
func (s *Service) CreateDigimon(ctx context.Context, spec digimon.Spec) (*digimon.Digimon, error) {
	d, err := digimon.Build(spec, s.ids.Generate(), s.now())
	if err != nil {
		return nil, err
	}
	if err := insert(ctx, s, s.digimon, d.ID, d); err != nil {
		return nil, err
	}
	s.logger.Info("digimon created",
		zap.String("id", d.ID),
		zap.String("name", d.Name),
		zap.String("stage", string(d.Stage)),
	)
	return d, nil
}

// GetDigimon loads one Digimon.
func (s *Service) GetDigimon(ctx context.Context, id string) (*digimon.Digimon, error) {
	return fetch(ctx, s, s.digimon, id)
}

// ListDigimon returns every Digimon matching f in creation order.
func (s *Service) ListDigimon(ctx context.Context, f digimon.Filter) ([]*digimon.Digimon, error) {
	out, err := s.digimon.List(ctx, f.Fields())
	if err != nil {
		return nil, s.storeErr(storage.KindDigimon, "", err)
	}
	return out, nil
}

// UpdateDigimon applies fn to the stored Digimon and saves it.
func (s *Service) UpdateDigimon(ctx context.Context, id string, fn func(*digimon.Digimon) error) (*digimon.Digimon, error) {
	return mutate(ctx, s, s.digimon, id, fn)
}

// AddQuality acquires one rank of qualityID for the Digimon.
//
// Postcondition: on error the stored Digimon is unchanged.
func (s *Service) AddQuality(ctx context.Context, id, qualityID, choice string) (*digimon.Digimon, error) {
	d, err := mutate(ctx, s, s.digimon, id, func(d *digimon.Digimon) error {
		return d.AddQuality(s.catalog.Qualities, qualityID, choice)
	})
	if err != nil {
		s.logRejection("add quality", id, err)
		return nil, err
	}
	s.logger.Info("quality added", zap.String("digimon", id), zap.String("quality", qualityID))
	return d, nil
}

// RemoveQuality drops one rank of qualityID.
func (s *Service) RemoveQuality(ctx context.Context, id, qualityID string) (*digimon.Digimon, error) {
	d, err := mutate(ctx, s, s.digimon, id, func(d *digimon.Digimon) error {
		return d.RemoveQuality(s.catalog.Qualities, qualityID)
	})
	if err != nil {
		s.logRejection("remove quality", id, err)
		return nil, err
	}
	s.logger.Info("quality removed", zap.String("digimon", id), zap.String("quality", qualityID))
	return d, nil
}

// AvailableQualities lists the qualities the Digimon may acquire next.
func (s *Service) AvailableQualities(ctx context.Context, id string, f quality.Filter) ([]*quality.Template, error) {
	d, err := fetch(ctx, s, s.digimon, id)
	if err != nil {
		return nil, err
	}
	return s.catalog.Qualities.Available(d.Stage, d.Qualities, f), nil
}

// ValidateQualities reports every build rule the Digimon's qualities
// currently break. An empty result means the build is legal.
func (s *Service) ValidateQualities(ctx context.Context, id string) ([]*errors.Error, error) {
	d, err := fetch(ctx, s, s.digimon, id)
	if err != nil {
		return nil, err
	}
	return s.catalog.Qualities.Validate(d.Stage, d.Qualities), nil
}

// SetStage moves the Digimon to st. Qualities are not re-validated.
func (s *Service) SetStage(ctx context.Context, id string, st stage.Stage) (*digimon.Digimon, error) {
	d, err := mutate(ctx, s, s.digimon, id, func(d *digimon.Digimon) error {
		return d.SetStage(st)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("stage set", zap.String("digimon", id), zap.String("stage", string(st)))
	return d, nil
}

// SetBaseStats replaces the Digimon's base stats.
func (s *Service) SetBaseStats(ctx context.Context, id string, b derive.BaseStats) (*digimon.Digimon, error) {
	return mutate(ctx, s, s.digimon, id, func(d *digimon.Digimon) error {
		return d.SetBaseStats(b)
	})
}

// AddAttack copies the catalogue attack templateID onto the Digimon.
func (s *Service) AddAttack(ctx context.Context, id, templateID string) (*digimon.Digimon, error) {
	t, ok := s.catalog.Attacks.Get(templateID)
	if !ok {
		return nil, errors.NotFound("attack", templateID)
	}
	d, err := mutate(ctx, s, s.digimon, id, func(d *digimon.Digimon) error {
		return d.AddAttackFromTemplate(t, s.ids.Generate())
	})
	if err != nil {
		s.logRejection("add attack", id, err)
		return nil, err
	}
	s.logger.Info("attack added", zap.String("digimon", id), zap.String("attack", templateID))
	return d, nil
}

// AddCustomAttack appends a hand-built attack.
func (s *Service) AddCustomAttack(ctx context.Context, id string, a attack.Attack) (*digimon.Digimon, error) {
	a.ID = s.ids.Generate()
	return mutate(ctx, s, s.digimon, id, func(d *digimon.Digimon) error {
		return d.AddAttack(a)
	})
}

// RemoveAttack drops the Digimon's attack with attackID.
func (s *Service) RemoveAttack(ctx context.Context, id, attackID string) (*digimon.Digimon, error) {
	return mutate(ctx, s, s.digimon, id, func(d *digimon.Digimon) error {
		if !d.RemoveAttack(attackID) {
			return errors.NotFound("attack", attackID)
		}
		return nil
	})
}

// LinkEvolution records that childID evolves from parentID on both
// records. A previous parent of the child loses the child from its paths.
func (s *Service) LinkEvolution(ctx context.Context, parentID, childID string) (*digimon.Digimon, *digimon.Digimon, error) {
	if parentID == childID {
		return nil, nil, errors.Validation("a digimon cannot evolve from itself")
	}
	parent, child, previous, err := s.linkPair(ctx, parentID, childID)
	if err != nil {
		return nil, nil, err
	}
	if previous != "" {
		// Done after the pair is released so locks are never nested.
		_, err := mutate(ctx, s, s.digimon, previous, func(p *digimon.Digimon) error {
			digimon.Unlink(p, &digimon.Digimon{ID: childID})
			return nil
		})
		if err != nil && !errors.IsNotFound(err) {
			return nil, nil, err
		}
	}
	s.logger.Info("evolution linked", zap.String("parent", parentID), zap.String("child", childID))
	return parent, child, nil
}

func (s *Service) linkPair(ctx context.Context, parentID, childID string) (parent, child *digimon.Digimon, previous string, err error) {
	unlock := s.locks.Lock(lockKey(storage.KindDigimon, parentID), lockKey(storage.KindDigimon, childID))
	defer unlock()
	if parent, err = fetch(ctx, s, s.digimon, parentID); err != nil {
		return nil, nil, "", err
	}
	if child, err = fetch(ctx, s, s.digimon, childID); err != nil {
		return nil, nil, "", err
	}
	if previous, err = digimon.Link(parent, child); err != nil {
		return nil, nil, "", err
	}
	if parent, err = s.saveDigimon(ctx, parent); err != nil {
		return nil, nil, "", err
	}
	if child, err = s.saveDigimon(ctx, child); err != nil {
		return nil, nil, "", err
	}
	return parent, child, previous, nil
}

// UnlinkEvolution removes the parent/child relation from both records.
func (s *Service) UnlinkEvolution(ctx context.Context, parentID, childID string) error {
	unlock := s.locks.Lock(lockKey(storage.KindDigimon, parentID), lockKey(storage.KindDigimon, childID))
	defer unlock()
	parent, err := fetch(ctx, s, s.digimon, parentID)
	if err != nil {
		return err
	}
	child, err := fetch(ctx, s, s.digimon, childID)
	if err != nil {
		return err
	}
	digimon.Unlink(parent, child)
	if _, err := s.saveDigimon(ctx, parent); err != nil {
		return err
	}
	if _, err := s.saveDigimon(ctx, child); err != nil {
		return err
	}
	s.logger.Info("evolution unlinked", zap.String("parent", parentID), zap.String("child", childID))
	return nil
}

// Lineage returns the Digimon's ancestors, nearest first, and its
// descendants breadth first. Broken links end the walk quietly.
func (s *Service) Lineage(ctx context.Context, id string) (ancestors, descendants []*digimon.Digimon, err error) {
	start, err := fetch(ctx, s, s.digimon, id)
	if err != nil {
		return nil, nil, err
	}
	var lookupErr error
	get := func(id string) (*digimon.Digimon, bool) {
		d, err := s.digimon.Get(ctx, id)
		if err != nil {
			if !stderrors.Is(err, storage.ErrNotFound) && lookupErr == nil {
				lookupErr = s.storeErr(storage.KindDigimon, id, err)
			}
			return nil, false
		}
		return d, true
	}
	ancestors = digimon.Ancestors(start, get)
	descendants = digimon.Descendants(start, get)
	if lookupErr != nil {
		return nil, nil, lookupErr
	}
	return ancestors, descendants, nil
}

// CopyDigimon stores a deep copy of id named "Copy of <name>" with no
// evolution links.
func (s *Service) CopyDigimon(ctx context.Context, id string) (*digimon.Digimon, error) {
	src, err := fetch(ctx, s, s.digimon, id)
	if err != nil {
		return nil, err
	}
	c := src.Copy(s.ids.Generate(), s.now())
	if err := insert(ctx, s, s.digimon, c.ID, c); err != nil {
		return nil, err
	}
	s.logger.Info("digimon copied", zap.String("from", id), zap.String("id", c.ID))
	return c, nil
}

// DeleteDigimon removes a Digimon and detaches it from its parent, its
// children and its partner Tamer.
func (s *Service) DeleteDigimon(ctx context.Context, id string) error {
	d, err := fetch(ctx, s, s.digimon, id)
	if err != nil {
		return err
	}
	if err := remove(ctx, s, s.digimon, id); err != nil {
		return err
	}
	gone := &digimon.Digimon{ID: id}
	if d.EvolvesFromID != "" {
		s.detach(ctx, d.EvolvesFromID, func(p *digimon.Digimon) error {
			digimon.Unlink(p, gone)
			return nil
		})
	}
	for _, childID := range d.EvolutionPathIDs {
		s.detach(ctx, childID, func(c *digimon.Digimon) error {
			if c.EvolvesFromID == id {
				c.EvolvesFromID = ""
			}
			return nil
		})
	}
	if d.PartnerID != "" {
		s.detachTamer(ctx, d.PartnerID, id)
	}
	s.logger.Info("digimon deleted", zap.String("id", id))
	return nil
}

func (s *Service) detach(ctx context.Context, id string, fn func(*digimon.Digimon) error) {
	if _, err := mutate(ctx, s, s.digimon, id, fn); err != nil && !errors.IsNotFound(err) {
		s.logger.Warn("detaching deleted digimon", zap.String("id", id), zap.Error(err))
	}
}

func (s *Service) detachTamer(ctx context.Context, tamerID, digimonID string) {
	_, err := mutate(ctx, s, s.tamers, tamerID, func(t *tamer.Tamer) error {
		t.RemovePartner(digimonID)
		return nil
	})
	if err != nil && !errors.IsNotFound(err) {
		s.logger.Warn("detaching deleted partner", zap.String("tamer", tamerID), zap.Error(err))
	}
}

func (s *Service) saveDigimon(ctx context.Context, d *digimon.Digimon) (*digimon.Digimon, error) {
	d.UpdatedAt = s.now()
	saved, err := s.digimon.Save(ctx, d.ID, d)
	if err != nil {
		return nil, s.storeErr(storage.KindDigimon, d.ID, err)
	}
	return saved, nil
}

func (s *Service) logRejection(op, id string, err error) {
	if errors.IsRuleViolation(err) || errors.IsValidation(err) {
		s.logger.Info(op+" rejected",
			zap.String("id", id),
			zap.String("rule", string(errors.RuleOf(err))),
			zap.Error(err),
		)
	}
}
