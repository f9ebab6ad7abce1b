package combat

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/cory-johannsen/digigm/internal/errors"
)

// Phase is the encounter lifecycle state.
type Phase string

const (
	PhaseSetup      Phase = "setup"
	PhaseInitiative Phase = "initiative"
	PhaseCombat     Phase = "combat"
	PhaseEnded      Phase = "ended"
)

// Phase transition events.
const (
	EventRollInitiative = "roll_initiative"
	EventStartCombat    = "start_combat"
	EventEndCombat      = "end_combat"
)

var phaseEvents = fsm.Events{
	{Name: EventRollInitiative, Src: []string{string(PhaseSetup)}, Dst: string(PhaseInitiative)},
	{Name: EventStartCombat, Src: []string{string(PhaseSetup), string(PhaseInitiative)}, Dst: string(PhaseCombat)},
	{Name: EventEndCombat, Src: []string{string(PhaseSetup), string(PhaseInitiative), string(PhaseCombat)}, Dst: string(PhaseEnded)},
}

// The machine is rebuilt from the stored phase on every transition; the
// Encounter document stays the single source of truth.
func newPhaseMachine(current Phase) *fsm.FSM {
	return fsm.NewFSM(string(current), phaseEvents, fsm.Callbacks{})
}

// CanTransition reports whether event is legal from p.
func CanTransition(p Phase, event string) bool {
	return newPhaseMachine(p).Can(event)
}

// transition fires event against e's phase.
//
// Postcondition: on success e.Phase is the event's destination; on error
// e is unchanged and the error is RULE_VIOLATION(illegal_transition).
func (e *Encounter) transition(ctx context.Context, event string) error {
	m := newPhaseMachine(e.Phase)
	if err := m.Event(ctx, event); err != nil {
		return errors.Violation(errors.RuleIllegalTransition, "cannot %s while %s", event, e.Phase).
			WithMeta("phase", string(e.Phase)).WithMeta("event", event)
	}
	e.Phase = Phase(m.Current())
	return nil
}
