package gm

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/cory-johannsen/digigm/internal/errors"
	"github.com/cory-johannsen/digigm/internal/game/combat"
	"github.com/cory-johannsen/digigm/internal/game/digimon"
	"github.com/cory-johannsen/digigm/internal/game/effect"
	"github.com/cory-johannsen/digigm/internal/game/hazard"
	"github.com/cory-johannsen/digigm/internal/storage"
)

// Encounter operations are tolerant: an unknown encounter id yields a
// nil encounter and a nil error, and an unknown participant id leaves
// the encounter unchanged.

// ParticipantSpec describes a combatant joining an encounter. A nil
// Initiative rolls 3d6 plus the entity's agility. A zero MaxWounds uses
// the entity's wound boxes.
type ParticipantSpec struct {
	Kind           combat.Kind
	EntityID       string
	Initiative     *int
	InitiativeRoll int
	MaxWounds      int
}

// CreateEncounter stores an empty encounter in the setup phase.
func (s *Service) CreateEncounter(ctx context.Context, name, description string) (*combat.Encounter, error) {
	e, err := combat.NewEncounter(s.ids.Generate(), name, description, s.now())
	if err != nil {
		return nil, err
	}
	if err := insert(ctx, s, s.encounters, e.ID, e); err != nil {
		return nil, err
	}
	s.logger.Info("encounter created", zap.String("id", e.ID), zap.String("name", e.Name))
	return e, nil
}

// GetEncounter loads one encounter, or returns (nil, nil) when id is
// unknown.
func (s *Service) GetEncounter(ctx context.Context, id string) (*combat.Encounter, error) {
	e, err := s.encounters.Get(ctx, id)
	if stderrors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.storeErr(storage.KindEncounter, id, err)
	}
	return e, nil
}

// ListEncounters returns every encounter, optionally only those in phase.
func (s *Service) ListEncounters(ctx context.Context, phase combat.Phase) ([]*combat.Encounter, error) {
	filter := map[string]any{}
	if phase != "" {
		filter["phase"] = string(phase)
	}
	out, err := s.encounters.List(ctx, filter)
	if err != nil {
		return nil, s.storeErr(storage.KindEncounter, "", err)
	}
	return out, nil
}

// DeleteEncounter removes an encounter.
func (s *Service) DeleteEncounter(ctx context.Context, id string) error {
	if err := remove(ctx, s, s.encounters, id); err != nil {
		return err
	}
	s.logger.Info("encounter deleted", zap.String("id", id))
	return nil
}

// editEncounter runs fn on the stored encounter under its lock. fn
// reports whether it changed anything; unchanged encounters are not
// written back.
func (s *Service) editEncounter(ctx context.Context, op, id string, fn func(*combat.Encounter) (bool, error)) (*combat.Encounter, error) {
	unlock := s.locks.Lock(lockKey(storage.KindEncounter, id))
	defer unlock()

	e, err := s.encounters.Get(ctx, id)
	if stderrors.Is(err, storage.ErrNotFound) {
		s.logger.Debug(op+" on unknown encounter", zap.String("encounter", id))
		return nil, nil
	}
	if err != nil {
		return nil, s.storeErr(storage.KindEncounter, id, err)
	}
	changed, err := fn(e)
	if err != nil {
		s.logRejection(op, id, err)
		return nil, err
	}
	if !changed {
		s.logger.Debug(op+" changed nothing", zap.String("encounter", id))
		return e, nil
	}
	e.UpdatedAt = s.now()
	saved, err := s.encounters.Save(ctx, id, e)
	if err != nil {
		return nil, s.storeErr(storage.KindEncounter, id, err)
	}
	s.logger.Info(op,
		zap.String("encounter", id),
		zap.String("phase", string(saved.Phase)),
		zap.Int("round", saved.Round),
	)
	return saved, nil
}

type combatant struct {
	name      string
	agility   int
	maxWounds int
}

func (s *Service) combatant(ctx context.Context, kind combat.Kind, entityID string) (combatant, error) {
	switch kind {
	case combat.KindDigimon:
		d, err := fetch(ctx, s, s.digimon, entityID)
		if err != nil {
			return combatant{}, err
		}
		return combatant{name: d.Name, agility: d.DerivedStats.Agility, maxWounds: d.DerivedStats.WoundBoxes}, nil
	case combat.KindTamer:
		t, err := fetch(ctx, s, s.tamers, entityID)
		if err != nil {
			return combatant{}, err
		}
		return combatant{name: t.Name, agility: t.Attributes.Agility, maxWounds: t.DerivedStats.WoundBoxes}, nil
	}
	return combatant{}, errors.Validation("invalid participant type %q", kind)
}

// AddParticipant places a Tamer or Digimon into the encounter. The
// encounter is resolved first, so an unknown encounter returns (nil, nil, nil)
// whether or not the entity exists.
//
// Postcondition: the turn order includes the new participant, sorted by
// initiative descending with ties in join order.
func (s *Service) AddParticipant(ctx context.Context, encounterID string, spec ParticipantSpec) (*combat.Encounter, *combat.Participant, error) {
	var p *combat.Participant
	e, err := s.editEncounter(ctx, "participant added", encounterID, func(e *combat.Encounter) (bool, error) {
		var err error
		if p, err = s.newParticipant(ctx, spec); err != nil {
			return false, err
		}
		return true, e.AddParticipant(p)
	})
	if err != nil || e == nil {
		return e, nil, err
	}
	return e, p, nil
}

func (s *Service) newParticipant(ctx context.Context, spec ParticipantSpec) (*combat.Participant, error) {
	c, err := s.combatant(ctx, spec.Kind, spec.EntityID)
	if err != nil {
		return nil, err
	}
	var init combat.Initiative
	if spec.Initiative != nil {
		init = combat.Initiative{Roll: spec.InitiativeRoll, Total: *spec.Initiative}
	} else {
		init = combat.RollInitiative(c.agility, s.roller.Source())
		s.logger.Debug("initiative rolled",
			zap.String("entity", spec.EntityID),
			zap.Int("roll", init.Roll),
			zap.Int("agility", c.agility),
			zap.Int("total", init.Total),
		)
	}
	maxWounds := spec.MaxWounds
	if maxWounds <= 0 {
		maxWounds = c.maxWounds
	}
	p, err := combat.NewParticipant(combat.ParticipantID(spec.Kind, spec.EntityID, s.ids.Generate()), spec.Kind, spec.EntityID, init, maxWounds, s.budget)
	if err != nil {
		return nil, err
	}
	p.Name = c.name
	return p, nil
}

// RemoveParticipant drops a participant from the encounter.
func (s *Service) RemoveParticipant(ctx context.Context, encounterID, participantID string) (*combat.Encounter, error) {
	return s.editEncounter(ctx, "participant removed", encounterID, func(e *combat.Encounter) (bool, error) {
		return e.RemoveParticipant(participantID), nil
	})
}

// RollInitiative moves the encounter from setup to the initiative phase.
func (s *Service) RollInitiative(ctx context.Context, encounterID string) (*combat.Encounter, error) {
	return s.editEncounter(ctx, "initiative phase", encounterID, func(e *combat.Encounter) (bool, error) {
		return true, e.RollInitiative(ctx)
	})
}

// StartCombat enters round 1.
func (s *Service) StartCombat(ctx context.Context, encounterID string) (*combat.Encounter, error) {
	return s.editEncounter(ctx, "combat started", encounterID, func(e *combat.Encounter) (bool, error) {
		return true, e.StartCombat(ctx)
	})
}

// NextTurn advances the turn cursor and reports the effects that expired
// on a round boundary, keyed by participant id.
func (s *Service) NextTurn(ctx context.Context, encounterID string) (*combat.Encounter, map[string][]effect.Active, error) {
	var expired map[string][]effect.Active
	e, err := s.editEncounter(ctx, "turn advanced", encounterID, func(e *combat.Encounter) (bool, error) {
		var ok bool
		expired, ok = e.NextTurn(s.budget)
		return ok, nil
	})
	return e, expired, err
}

// EndCombat moves the encounter to its terminal phase.
func (s *Service) EndCombat(ctx context.Context, encounterID string) (*combat.Encounter, error) {
	return s.editEncounter(ctx, "combat ended", encounterID, func(e *combat.Encounter) (bool, error) {
		return true, e.EndCombat(ctx)
	})
}

// AppendLog stamps entry with a fresh id and the current time and
// appends it to the battle log.
func (s *Service) AppendLog(ctx context.Context, encounterID string, entry combat.LogEntry) (*combat.Encounter, error) {
	return s.editEncounter(ctx, "battle log appended", encounterID, func(e *combat.Encounter) (bool, error) {
		e.AppendLog(entry, s.ids.Generate(), s.now())
		return true, nil
	})
}

// AddHazard instantiates the catalogue hazard templateID in the
// encounter. A non-nil duration overrides the template's.
func (s *Service) AddHazard(ctx context.Context, encounterID, templateID string, duration *int) (*combat.Encounter, error) {
	t, ok := s.catalog.Hazards.Get(templateID)
	if !ok {
		return nil, errors.NotFound("hazard", templateID)
	}
	h := hazard.Instantiate(t, s.ids.Generate())
	if duration != nil {
		d := *duration
		h.Duration = &d
	}
	return s.AddCustomHazard(ctx, encounterID, h)
}

// AddCustomHazard appends a hand-built hazard. An empty id is assigned.
func (s *Service) AddCustomHazard(ctx context.Context, encounterID string, h hazard.Hazard) (*combat.Encounter, error) {
	if h.ID == "" {
		h.ID = s.ids.Generate()
	}
	return s.editEncounter(ctx, "hazard added", encounterID, func(e *combat.Encounter) (bool, error) {
		return true, e.AddHazard(h)
	})
}

// RemoveHazard drops a hazard from the encounter.
func (s *Service) RemoveHazard(ctx context.Context, encounterID, hazardID string) (*combat.Encounter, error) {
	return s.editEncounter(ctx, "hazard removed", encounterID, func(e *combat.Encounter) (bool, error) {
		return e.RemoveHazard(hazardID), nil
	})
}

// UpdateHazard replaces the hazard with h.ID.
func (s *Service) UpdateHazard(ctx context.Context, encounterID string, h hazard.Hazard) (*combat.Encounter, error) {
	return s.editEncounter(ctx, "hazard updated", encounterID, func(e *combat.Encounter) (bool, error) {
		return e.UpdateHazard(h)
	})
}

// TickHazards ages every timed hazard by one round and returns those
// that expired.
func (s *Service) TickHazards(ctx context.Context, encounterID string) (*combat.Encounter, []hazard.Hazard, error) {
	var expired []hazard.Hazard
	e, err := s.editEncounter(ctx, "hazards aged", encounterID, func(e *combat.Encounter) (bool, error) {
		expired = e.DecrementHazardDurations()
		return true, nil
	})
	return e, expired, err
}

// ApplyEffect puts the catalogue effect ref (id or name) on a
// participant. duration <= 0 uses the effect's default.
func (s *Service) ApplyEffect(ctx context.Context, encounterID, participantID, ref string, duration int, source string) (*combat.Encounter, error) {
	def, ok := s.catalog.Effects.Lookup(ref)
	if !ok {
		return nil, errors.NotFound("effect", ref)
	}
	a := effect.FromDef(def, s.ids.Generate(), duration, source)
	return s.editEncounter(ctx, "effect applied", encounterID, func(e *combat.Encounter) (bool, error) {
		return e.ApplyEffect(participantID, a)
	})
}

// RemoveEffect removes one active effect from a participant.
func (s *Service) RemoveEffect(ctx context.Context, encounterID, participantID, effectID string) (*combat.Encounter, error) {
	return s.editEncounter(ctx, "effect removed", encounterID, func(e *combat.Encounter) (bool, error) {
		return e.RemoveEffect(participantID, effectID), nil
	})
}

// SetParticipantStance changes a participant's stance.
func (s *Service) SetParticipantStance(ctx context.Context, encounterID, participantID string, st digimon.Stance) (*combat.Encounter, error) {
	return s.editEncounter(ctx, "stance set", encounterID, func(e *combat.Encounter) (bool, error) {
		return e.SetStance(participantID, st)
	})
}

// ApplyParticipantWounds adds delta wounds (negative heals).
func (s *Service) ApplyParticipantWounds(ctx context.Context, encounterID, participantID string, delta int) (*combat.Encounter, error) {
	return s.editEncounter(ctx, "wounds applied", encounterID, func(e *combat.Encounter) (bool, error) {
		return e.ApplyWounds(participantID, delta), nil
	})
}

// SpendAction spends one action of kind k for a participant.
func (s *Service) SpendAction(ctx context.Context, encounterID, participantID string, k combat.ActionKind) (*combat.Encounter, error) {
	return s.editEncounter(ctx, "action spent", encounterID, func(e *combat.Encounter) (bool, error) {
		return e.SpendAction(participantID, k)
	})
}
