// Package evolution tracks a partner's progress along an ordered chain of
// evolution stages and gates each step on its requirement.
package evolution

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cory-johannsen/digigm/internal/errors"
	"github.com/cory-johannsen/digigm/internal/game/stage"
)

// RequirementType selects how a requirement is checked.
type RequirementType string

const (
	Battles RequirementType = "battles"
	XP      RequirementType = "xp"
	Bond    RequirementType = "bond"
	Item    RequirementType = "item"
	Special RequirementType = "special"
)

// Requirement gates entry into a chain slot. Value is nil when the GM
// did not give a threshold, which is treated as zero.
type Requirement struct {
	Type        RequirementType `json:"type"`
	Description string          `json:"description,omitempty"`
	Value       *int            `json:"value"`
	ItemName    string          `json:"itemName,omitempty"`
	Script      string          `json:"script,omitempty"`
}

func (r *Requirement) threshold() int {
	if r.Value == nil {
		return 0
	}
	return *r.Value
}

// Slot is one step of the chain.
type Slot struct {
	Stage        stage.Stage  `json:"stage"`
	Species      string       `json:"species"`
	DigimonID    string       `json:"digimonId,omitempty"`
	Requirements *Requirement `json:"requirements"`
}

// Progress is what the partner has achieved toward the next step.
type Progress struct {
	BattlesWon     int      `json:"battlesWon"`
	XPEarned       int      `json:"xpEarned"`
	BondLevel      int      `json:"bondLevel"`
	ItemsCollected []string `json:"itemsCollected"`
}

// Line is an evolution chain and the current position on it.
//
// Invariant: 0 <= CurrentStageIndex < len(Chain).
type Line struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	PartnerID         string    `json:"partnerId,omitempty"`
	Chain             []Slot    `json:"chain"`
	CurrentStageIndex int       `json:"currentStageIndex"`
	EvolutionProgress Progress  `json:"evolutionProgress"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Spec is the GM input for a new Line.
type Spec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PartnerID   string `json:"partnerId"`
	Chain       []Slot `json:"chain"`
}

// Validate checks the name and every chain slot.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.Validation("evolution line name must not be empty")
	}
	if len(s.Chain) == 0 {
		return errors.Validation("evolution chain must not be empty")
	}
	for i, slot := range s.Chain {
		if !slot.Stage.Valid() {
			return errors.Validation("chain slot %d: invalid stage %q", i, slot.Stage)
		}
		if strings.TrimSpace(slot.Species) == "" {
			return errors.Validation("chain slot %d: species must not be empty", i)
		}
		if i > 0 && stage.Compare(slot.Stage, s.Chain[i-1].Stage) < 0 {
			return errors.Validation("chain slot %d: %s comes after %s", i, slot.Stage, s.Chain[i-1].Stage)
		}
		if err := validateRequirement(slot.Requirements); err != nil {
			return errors.Validation("chain slot %d: %v", i, err)
		}
	}
	return nil
}

func validateRequirement(r *Requirement) error {
	if r == nil {
		return nil
	}
	switch r.Type {
	case Battles, XP, Bond:
		if r.threshold() < 0 {
			return fmt.Errorf("%s requirement must not be negative", r.Type)
		}
	case Item:
		if strings.TrimSpace(r.ItemName) == "" {
			return fmt.Errorf("item requirement needs an item name")
		}
	case Special:
	default:
		return fmt.Errorf("unknown requirement type %q", r.Type)
	}
	return nil
}

// New builds a Line at the first slot with empty progress.
func New(spec Spec, id string, now time.Time) (*Line, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &Line{
		ID:          id,
		Name:        strings.TrimSpace(spec.Name),
		Description: spec.Description,
		PartnerID:   spec.PartnerID,
		Chain:       slices.Clone(spec.Chain),
		EvolutionProgress: Progress{
			ItemsCollected: []string{},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CurrentStage returns the slot at the current index.
func (l *Line) CurrentStage() (Slot, bool) {
	if l.CurrentStageIndex < 0 || l.CurrentStageIndex >= len(l.Chain) {
		return Slot{}, false
	}
	return l.Chain[l.CurrentStageIndex], true
}

// NextStage returns the slot after the current one.
func (l *Line) NextStage() (Slot, bool) {
	next := l.CurrentStageIndex + 1
	if next >= len(l.Chain) {
		return Slot{}, false
	}
	return l.Chain[next], true
}

// Filter selects lines in List operations.
type Filter struct {
	PartnerID string
}

// Match reports whether l satisfies f.
func (f Filter) Match(l *Line) bool {
	return f.PartnerID == "" || l.PartnerID == f.PartnerID
}

// Fields renders f as storage equality predicates.
func (f Filter) Fields() map[string]any {
	out := map[string]any{}
	if f.PartnerID != "" {
		out["partnerId"] = f.PartnerID
	}
	return out
}

// SpecialCheck decides a special requirement that carries a script.
type SpecialCheck func(ctx context.Context, script string, p Progress) (bool, error)
