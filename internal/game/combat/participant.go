package combat

import (
	"fmt"

	"github.com/cory-johannsen/digigm/internal/errors"
	"github.com/cory-johannsen/digigm/internal/game/digimon"
	"github.com/cory-johannsen/digigm/internal/game/effect"
)

// Kind distinguishes Tamer participants from Digimon participants.
type Kind string

const (
	KindTamer   Kind = "tamer"
	KindDigimon Kind = "digimon"
)

// DefaultMaxWounds is used when a participant is created without one.
const DefaultMaxWounds = 5

// ActionBudget is the per-round action allotment.
type ActionBudget struct {
	Simple  int `json:"simple"`
	Complex int `json:"complex"`
}

// DefaultBudget is two simple actions and one complex action.
var DefaultBudget = ActionBudget{Simple: 2, Complex: 1}

// ActionKind selects which budget an action spends.
type ActionKind string

const (
	SimpleAction  ActionKind = "simple"
	ComplexAction ActionKind = "complex"
)

// Participant is one Tamer or Digimon placed into an encounter.
//
// Invariant: 0 <= CurrentWounds <= MaxWounds.
type Participant struct {
	ID               string         `json:"id"`
	Type             Kind           `json:"type"`
	EntityID         string         `json:"entityId"`
	Name             string         `json:"name,omitempty"`
	Initiative       int            `json:"initiative"`
	InitiativeRoll   int            `json:"initiativeRoll"`
	ActionsRemaining ActionBudget   `json:"actionsRemaining"`
	CurrentStance    digimon.Stance `json:"currentStance"`
	ActiveEffects    effect.Set     `json:"activeEffects"`
	IsActive         bool           `json:"isActive"`
	HasActed         bool           `json:"hasActed"`
	CurrentWounds    int            `json:"currentWounds"`
	MaxWounds        int            `json:"maxWounds"`
}

// ParticipantID formats the id of a participant for entityID. seq must be
// unique per join so the same entity can be added again.
func ParticipantID(kind Kind, entityID, seq string) string {
	return fmt.Sprintf("%s-%s-%s", kind, entityID, seq)
}

// NewParticipant creates a participant with a full action budget, a
// neutral stance and no effects. maxWounds <= 0 selects DefaultMaxWounds.
//
// Precondition: id and entityID must be non-empty.
func NewParticipant(id string, kind Kind, entityID string, init Initiative, maxWounds int, budget ActionBudget) (*Participant, error) {
	if kind != KindTamer && kind != KindDigimon {
		return nil, errors.Validation("invalid participant type %q", kind)
	}
	if entityID == "" {
		return nil, errors.Validation("participant entity id must not be empty")
	}
	if maxWounds <= 0 {
		maxWounds = DefaultMaxWounds
	}
	return &Participant{
		ID:               id,
		Type:             kind,
		EntityID:         entityID,
		Initiative:       init.Total,
		InitiativeRoll:   init.Roll,
		ActionsRemaining: budget,
		CurrentStance:    digimon.Neutral,
		ActiveEffects:    effect.Set{},
		MaxWounds:        maxWounds,
	}, nil
}

// Spend uses one action of kind k.
func (p *Participant) Spend(k ActionKind) error {
	var left *int
	switch k {
	case SimpleAction:
		left = &p.ActionsRemaining.Simple
	case ComplexAction:
		left = &p.ActionsRemaining.Complex
	default:
		return errors.Validation("invalid action kind %q", k)
	}
	if *left == 0 {
		return errors.Validation("%s has no %s actions remaining", p.ID, k)
	}
	*left--
	return nil
}

// ApplyWounds adds delta wounds (negative heals), clamped to [0, MaxWounds].
func (p *Participant) ApplyWounds(delta int) {
	p.CurrentWounds = min(max(0, p.CurrentWounds+delta), p.MaxWounds)
}

// Defeated reports whether every wound box is filled.
func (p *Participant) Defeated() bool { return p.CurrentWounds >= p.MaxWounds }
