// Package combat implements the encounter turn-order state machine:
// participant roster, initiative order, round and turn cursor, per-round
// action budgets, timed effects, hazards and the battle log.
//
// Encounter methods mutate the receiver and assume a single editor.
package combat

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/cory-johannsen/digigm/internal/errors"
	"github.com/cory-johannsen/digigm/internal/game/digimon"
	"github.com/cory-johannsen/digigm/internal/game/effect"
	"github.com/cory-johannsen/digigm/internal/game/hazard"
)

// LogEntry is one battle log line. Entries are append-only.
type LogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Round     int       `json:"round"`
	ActorID   string    `json:"actorId"`
	ActorName string    `json:"actorName"`
	Action    string    `json:"action"`
	Target    *string   `json:"target"`
	Result    string    `json:"result"`
	Damage    *int      `json:"damage"`
	Effects   []string  `json:"effects"`
}

// Encounter is a combat scene.
//
// Invariant: TurnOrder holds exactly the participant ids, sorted by
// initiative descending with ties in insertion order, and
// 0 <= CurrentTurnIndex < max(1, len(TurnOrder)).
type Encounter struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description,omitempty"`
	Round            int             `json:"round"`
	Phase            Phase           `json:"phase"`
	Participants     []*Participant  `json:"participants"`
	TurnOrder        []string        `json:"turnOrder"`
	CurrentTurnIndex int             `json:"currentTurnIndex"`
	BattleLog        []LogEntry      `json:"battleLog"`
	Hazards          []hazard.Hazard `json:"hazards"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// NewEncounter creates an empty encounter in the setup phase.
func NewEncounter(id, name, description string, now time.Time) (*Encounter, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.Validation("encounter name must not be empty")
	}
	return &Encounter{
		ID:           id,
		Name:         strings.TrimSpace(name),
		Description:  description,
		Phase:        PhaseSetup,
		Participants: []*Participant{},
		TurnOrder:    []string{},
		BattleLog:    []LogEntry{},
		Hazards:      []hazard.Hazard{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Participant returns the participant with id.
func (e *Encounter) Participant(id string) (*Participant, bool) {
	for _, p := range e.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// CurrentParticipant returns the participant at the turn cursor.
func (e *Encounter) CurrentParticipant() (*Participant, bool) {
	if e.CurrentTurnIndex < 0 || e.CurrentTurnIndex >= len(e.TurnOrder) {
		return nil, false
	}
	return e.Participant(e.TurnOrder[e.CurrentTurnIndex])
}

// AddParticipant appends p and recomputes the turn order. When combat is
// under way the cursor follows the participant whose turn it was.
//
// Precondition: p must be non-nil.
// Postcondition: TurnOrder is sorted by initiative descending, stable.
func (e *Encounter) AddParticipant(p *Participant) error {
	if _, dup := e.Participant(p.ID); dup {
		return errors.Validation("participant %q is already in the encounter", p.ID)
	}
	current, hadCurrent := e.CurrentParticipant()
	hadCurrent = hadCurrent && e.Phase == PhaseCombat
	e.Participants = append(e.Participants, p)
	e.sortTurnOrder()
	if hadCurrent {
		e.CurrentTurnIndex = slices.Index(e.TurnOrder, current.ID)
	}
	return nil
}

func (e *Encounter) sortTurnOrder() {
	ordered := slices.Clone(e.Participants)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Initiative > ordered[j].Initiative
	})
	e.TurnOrder = make([]string, len(ordered))
	for i, p := range ordered {
		e.TurnOrder[i] = p.ID
	}
}

// RemoveParticipant drops the participant with id from the roster and the
// turn order, keeping the relative order of the rest. The cursor keeps
// pointing at the same actor when an earlier participant leaves and is
// clamped into bounds otherwise. When the active actor leaves during combat
// the participant left at the cursor takes over as active. It reports
// whether anything was removed.
func (e *Encounter) RemoveParticipant(id string) bool {
	pos := slices.Index(e.TurnOrder, id)
	current, _ := e.CurrentParticipant()
	handOver := e.Phase == PhaseCombat && current != nil && current.ID == id && current.IsActive
	before := len(e.Participants)
	e.Participants = slices.DeleteFunc(e.Participants, func(p *Participant) bool { return p.ID == id })
	if pos >= 0 {
		e.TurnOrder = slices.Delete(e.TurnOrder, pos, pos+1)
		if pos < e.CurrentTurnIndex {
			e.CurrentTurnIndex--
		}
	}
	e.CurrentTurnIndex = min(e.CurrentTurnIndex, max(0, len(e.TurnOrder)-1))
	if handOver {
		if p, ok := e.CurrentParticipant(); ok {
			p.IsActive = true
		}
	}
	return len(e.Participants) != before
}

// RollInitiative marks the encounter as rolling initiative.
func (e *Encounter) RollInitiative(ctx context.Context) error {
	return e.transition(ctx, EventRollInitiative)
}

// StartCombat enters combat at round 1 with the cursor on the first actor.
//
// Postcondition: Phase == combat, Round == 1, CurrentTurnIndex == 0.
func (e *Encounter) StartCombat(ctx context.Context) error {
	if err := e.transition(ctx, EventStartCombat); err != nil {
		return err
	}
	e.Round = 1
	e.CurrentTurnIndex = 0
	return nil
}

// EndCombat moves the encounter to its terminal phase.
func (e *Encounter) EndCombat(ctx context.Context) error {
	return e.transition(ctx, EventEndCombat)
}

// NextTurn advances the cursor. On wraparound the round increments and
// every participant gets a fresh budget, loses hasActed and ages its
// effects by one round, all before the new actor is marked active. The
// previous actor is marked as having acted.
//
// It returns the effects that expired, keyed by participant id, and
// reports false without changes when the encounter is not in combat or
// has no participants.
func (e *Encounter) NextTurn(budget ActionBudget) (map[string][]effect.Active, bool) {
	if e.Phase != PhaseCombat || len(e.TurnOrder) == 0 {
		return nil, false
	}
	expired := map[string][]effect.Active{}
	next := (e.CurrentTurnIndex + 1) % len(e.TurnOrder)
	if next == 0 {
		e.Round++
		for _, p := range e.Participants {
			p.ActionsRemaining = budget
			p.HasActed = false
			var gone []effect.Active
			p.ActiveEffects, gone = p.ActiveEffects.Tick()
			if len(gone) > 0 {
				expired[p.ID] = gone
			}
		}
	}
	if p, ok := e.Participant(e.TurnOrder[e.CurrentTurnIndex]); ok {
		p.HasActed = true
		p.IsActive = false
	}
	if p, ok := e.Participant(e.TurnOrder[next]); ok {
		p.IsActive = true
	}
	e.CurrentTurnIndex = next
	return expired, true
}

// AppendLog stamps entry with id and at and appends it. A zero Round is
// filled in with the current round.
func (e *Encounter) AppendLog(entry LogEntry, id string, at time.Time) LogEntry {
	entry.ID = id
	entry.Timestamp = at
	if entry.Round == 0 {
		entry.Round = e.Round
	}
	if entry.Effects == nil {
		entry.Effects = []string{}
	}
	e.BattleLog = append(e.BattleLog, entry)
	return entry
}

// AddHazard appends h.
func (e *Encounter) AddHazard(h hazard.Hazard) error {
	if err := h.Validate(); err != nil {
		return errors.Validation("%v", err)
	}
	if slices.ContainsFunc(e.Hazards, func(x hazard.Hazard) bool { return x.ID == h.ID }) {
		return errors.Validation("hazard %q is already in the encounter", h.ID)
	}
	e.Hazards = append(e.Hazards, h)
	return nil
}

// RemoveHazard drops the hazard with id, reporting whether it existed.
func (e *Encounter) RemoveHazard(id string) bool {
	before := len(e.Hazards)
	e.Hazards = slices.DeleteFunc(e.Hazards, func(h hazard.Hazard) bool { return h.ID == id })
	return len(e.Hazards) != before
}

// UpdateHazard replaces the hazard with h.ID, reporting whether it existed.
func (e *Encounter) UpdateHazard(h hazard.Hazard) (bool, error) {
	if err := h.Validate(); err != nil {
		return false, errors.Validation("%v", err)
	}
	for i := range e.Hazards {
		if e.Hazards[i].ID == h.ID {
			e.Hazards[i] = h
			return true, nil
		}
	}
	return false, nil
}

// DecrementHazardDurations ages timed hazards by one and drops those that
// reach zero. Permanent hazards are untouched. This is independent of
// NextTurn.
func (e *Encounter) DecrementHazardDurations() []hazard.Hazard {
	var expired []hazard.Hazard
	e.Hazards, expired = hazard.Tick(e.Hazards)
	return expired
}

// ApplyEffect applies a to the participant with id.
func (e *Encounter) ApplyEffect(participantID string, a effect.Active) (bool, error) {
	p, ok := e.Participant(participantID)
	if !ok {
		return false, nil
	}
	next, err := p.ActiveEffects.Apply(a)
	if err != nil {
		return false, errors.Validation("%v", err)
	}
	p.ActiveEffects = next
	return true, nil
}

// RemoveEffect removes effectID from the participant with id.
func (e *Encounter) RemoveEffect(participantID, effectID string) bool {
	p, ok := e.Participant(participantID)
	if !ok {
		return false
	}
	before := len(p.ActiveEffects)
	p.ActiveEffects = p.ActiveEffects.Remove(effectID)
	return len(p.ActiveEffects) != before
}

// SetStance changes a participant's stance.
func (e *Encounter) SetStance(participantID string, s digimon.Stance) (bool, error) {
	if !digimon.ValidStance(s) {
		return false, errors.Validation("invalid stance %q", s)
	}
	p, ok := e.Participant(participantID)
	if !ok {
		return false, nil
	}
	p.CurrentStance = s
	return true, nil
}

// ApplyWounds adds delta wounds to a participant, clamped to its boxes.
func (e *Encounter) ApplyWounds(participantID string, delta int) bool {
	p, ok := e.Participant(participantID)
	if !ok {
		return false
	}
	p.ApplyWounds(delta)
	return true
}

// SpendAction spends one action of kind k for the participant with id.
func (e *Encounter) SpendAction(participantID string, k ActionKind) (bool, error) {
	p, ok := e.Participant(participantID)
	if !ok {
		return false, nil
	}
	if err := p.Spend(k); err != nil {
		return false, err
	}
	return true, nil
}
