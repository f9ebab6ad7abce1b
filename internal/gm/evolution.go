package gm

import (
	"context"

	"go.uber.org/zap"

	"github.com/cory-johannsen/digigm/internal/game/evolution"
	"github.com/cory-johannsen/digigm/internal/scripting"
	"github.com/cory-johannsen/digigm/internal/storage"
)

// ProgressDelta is one progress report. Zero fields are ignored.
type ProgressDelta struct {
	Battles int
	XP      int
	Bond    int
	Item    string
}

// special adapts the script evaluator to evolution.SpecialCheck. It is
// nil when no evaluator is configured, which fails every scripted
// requirement.
func (s *Service) special() evolution.SpecialCheck {
	if s.evaluator == nil {
		return nil
	}
	return func(ctx context.Context, script string, p evolution.Progress) (bool, error) {
		return s.evaluator.Evaluate(ctx, script, scripting.Facts{
			BattlesWon: p.BattlesWon,
			XPEarned:   p.XPEarned,
			BondLevel:  p.BondLevel,
			Items:      p.ItemsCollected,
		})
	}
}

// CreateLine stores a new evolution line at its first slot.
func (s *Service) CreateLine(ctx context.Context, spec evolution.Spec) (*evolution.Line, error) {
	l, err := evolution.New(spec, s.ids.Generate(), s.now())
	if err != nil {
		return nil, err
	}
	if err := insert(ctx, s, s.lines, l.ID, l); err != nil {
		return nil, err
	}
	s.logger.Info("evolution line created", zap.String("id", l.ID), zap.String("name", l.Name), zap.Int("slots", len(l.Chain)))
	return l, nil
}

// GetLine loads one evolution line.
func (s *Service) GetLine(ctx context.Context, id string) (*evolution.Line, error) {
	return fetch(ctx, s, s.lines, id)
}

// ListLines returns every line matching f in creation order.
func (s *Service) ListLines(ctx context.Context, f evolution.Filter) ([]*evolution.Line, error) {
	out, err := s.lines.List(ctx, f.Fields())
	if err != nil {
		return nil, s.storeErr(storage.KindEvolutionLine, "", err)
	}
	return out, nil
}

// DeleteLine removes an evolution line.
func (s *Service) DeleteLine(ctx context.Context, id string) error {
	if err := remove(ctx, s, s.lines, id); err != nil {
		return err
	}
	s.logger.Info("evolution line deleted", zap.String("id", id))
	return nil
}

// CanEvolve previews Evolve.
//
// Postcondition: Verdict.CanEvolve is true iff Evolve would succeed now.
func (s *Service) CanEvolve(ctx context.Context, id string) (evolution.Verdict, error) {
	l, err := fetch(ctx, s, s.lines, id)
	if err != nil {
		return evolution.Verdict{}, err
	}
	return l.CanEvolve(ctx, s.special()), nil
}

// Evolve advances the line when the next slot's requirement is met.
func (s *Service) Evolve(ctx context.Context, id string) (*evolution.Line, error) {
	return s.editLine(ctx, "evolved", id, func(l *evolution.Line) error {
		return l.Evolve(ctx, s.special())
	})
}

// ForceEvolve advances the line regardless of the requirement.
func (s *Service) ForceEvolve(ctx context.Context, id string) (*evolution.Line, error) {
	return s.editLine(ctx, "force evolved", id, func(l *evolution.Line) error {
		return l.ForceEvolve()
	})
}

// Devolve steps the line back one slot. Progress is kept and the
// partner's qualities are not re-validated.
func (s *Service) Devolve(ctx context.Context, id string) (*evolution.Line, error) {
	return s.editLine(ctx, "devolved", id, func(l *evolution.Line) error {
		return l.Devolve()
	})
}

// RecordProgress applies every non-zero field of d.
//
// Postcondition: on error the stored line is unchanged.
func (s *Service) RecordProgress(ctx context.Context, id string, d ProgressDelta) (*evolution.Line, error) {
	return s.editLine(ctx, "progress recorded", id, func(l *evolution.Line) error {
		if d.Battles != 0 {
			if err := l.AddBattlesWon(d.Battles); err != nil {
				return err
			}
		}
		if d.XP != 0 {
			if err := l.AddXP(d.XP); err != nil {
				return err
			}
		}
		if d.Bond != 0 {
			l.IncreaseBond(d.Bond)
		}
		if d.Item != "" {
			return l.CollectItem(d.Item)
		}
		return nil
	})
}

func (s *Service) editLine(ctx context.Context, op, id string, fn func(*evolution.Line) error) (*evolution.Line, error) {
	l, err := mutate(ctx, s, s.lines, id, fn)
	if err != nil {
		s.logRejection(op, id, err)
		return nil, err
	}
	cur, _ := l.CurrentStage()
	s.logger.Info("evolution line "+op,
		zap.String("id", id),
		zap.Int("index", l.CurrentStageIndex),
		zap.String("species", cur.Species),
	)
	return l, nil
}
