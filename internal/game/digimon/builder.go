package digimon

import (
	"strings"
	"time"

	"github.com/cory-johannsen/digigm/internal/errors"
	"github.com/cory-johannsen/digigm/internal/game/attack"
	"github.com/cory-johannsen/digigm/internal/game/derive"
	"github.com/cory-johannsen/digigm/internal/game/quality"
	"github.com/cory-johannsen/digigm/internal/game/stage"
)

// Spec is the GM input for a new Digimon.
type Spec struct {
	Name      string            `json:"name"`
	Species   string            `json:"species"`
	Stage     stage.Stage       `json:"stage"`
	Attribute Attribute         `json:"attribute"`
	Family    Family            `json:"family"`
	Type      string            `json:"type"`
	BaseStats *derive.BaseStats `json:"baseStats"`
	PartnerID string            `json:"partnerId"`
	IsEnemy   bool              `json:"isEnemy"`
	Notes     string            `json:"notes"`
	SpriteURL string            `json:"spriteUrl"`
}

// Validate reports the first missing or malformed field.
func (s Spec) Validate() error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return errors.Validation("digimon name must not be empty")
	case strings.TrimSpace(s.Species) == "":
		return errors.Validation("digimon species must not be empty")
	case !s.Stage.Valid():
		return errors.Validation("invalid stage %q", s.Stage)
	}
	switch s.Attribute {
	case Vaccine, Data, Virus, Free:
	default:
		return errors.Validation("invalid attribute %q", s.Attribute)
	}
	if !families[s.Family] {
		return errors.Validation("invalid family %q", s.Family)
	}
	if s.BaseStats == nil {
		return errors.Validation("base stats are required")
	}
	if field, ok := s.BaseStats.Validate(); !ok {
		return errors.Validation("base stat %s must not be negative", field)
	}
	return nil
}

// Build constructs a new Digimon from spec.
//
// Precondition: id must be non-empty.
// Postcondition: Returns a Digimon with BaseDP from the stage table,
// derived stats computed and a neutral stance, or a VALIDATION error.
func Build(spec Spec, id string, now time.Time) (*Digimon, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	d := &Digimon{
		ID:               id,
		Name:             strings.TrimSpace(spec.Name),
		Species:          strings.TrimSpace(spec.Species),
		Stage:            spec.Stage,
		Attribute:        spec.Attribute,
		Family:           spec.Family,
		Type:             spec.Type,
		BaseStats:        *spec.BaseStats,
		Attacks:          []attack.Attack{},
		Qualities:        []quality.Owned{},
		BaseDP:           stage.MustConfig(spec.Stage).DP,
		CurrentStance:    Neutral,
		EvolutionPathIDs: []string{},
		PartnerID:        spec.PartnerID,
		IsEnemy:          spec.IsEnemy,
		Notes:            spec.Notes,
		SpriteURL:        spec.SpriteURL,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	d.Recompute()
	return d, nil
}

// SetStage moves d to s, refreshing derived stats and BaseDP. Owned
// qualities are not re-validated; use quality.Registry.Validate.
func (d *Digimon) SetStage(s stage.Stage) error {
	if !s.Valid() {
		return errors.Validation("invalid stage %q", s)
	}
	d.Stage = s
	d.BaseDP = stage.MustConfig(s).DP
	d.Recompute()
	return nil
}

// SetBaseStats replaces the base stats and refreshes derived stats.
func (d *Digimon) SetBaseStats(b derive.BaseStats) error {
	if field, ok := b.Validate(); !ok {
		return errors.Validation("base stat %s must not be negative", field)
	}
	d.BaseStats = b
	d.Recompute()
	return nil
}

// AddQuality acquires one rank of id through reg's build rules.
//
// Postcondition: on error d is unchanged.
func (d *Digimon) AddQuality(reg *quality.Registry, id, choice string) error {
	next, err := reg.Add(d.Stage, d.Qualities, id, choice)
	if err != nil {
		return err
	}
	d.Qualities = next
	if t, ok := reg.Get(id); ok && t.Category == "data-optimization" && t.HasChoices() {
		if o, ok := quality.Find(next, id); ok {
			d.DataOptimization = o.Choice
		}
	}
	return nil
}

// RemoveQuality drops one rank of id.
//
// Postcondition: on error d is unchanged.
func (d *Digimon) RemoveQuality(reg *quality.Registry, id string) error {
	next, err := reg.Remove(d.Qualities, id)
	if err != nil {
		return err
	}
	d.Qualities = next
	if _, still := quality.Find(next, id); !still && d.DataOptimization != "" {
		if t, ok := reg.Get(id); ok && t.Category == "data-optimization" && t.HasChoices() {
			d.DataOptimization = ""
		}
	}
	return nil
}

// AddAttack appends a, enforcing the stage's attack-slot count.
func (d *Digimon) AddAttack(a attack.Attack) error {
	if err := a.Validate(); err != nil {
		return errors.Validation("%v", err)
	}
	if slots := d.AttackSlots(); len(d.Attacks) >= slots {
		return errors.Violation(errors.RuleAttackSlots, "%s at %s knows at most %d attacks", d.Name, d.Stage, slots).
			WithShortfall(slots, len(d.Attacks))
	}
	d.Attacks = append(d.Attacks, a)
	return nil
}

// AddAttackFromTemplate copies t into d's attacks. t must apply to d's stage.
func (d *Digimon) AddAttackFromTemplate(t *attack.Template, id string) error {
	if !t.UsableAt(d.Stage) {
		return errors.Violation(errors.RuleStageGate, "%s is a %s attack; %s is %s", t.Name, t.Stage, d.Name, d.Stage).
			WithMeta("required", t.Stage).WithMeta("have", string(d.Stage))
	}
	return d.AddAttack(attack.Instantiate(t, id))
}

// RemoveAttack drops the attack with id, reporting whether it existed.
func (d *Digimon) RemoveAttack(id string) bool {
	for i, a := range d.Attacks {
		if a.ID == id {
			d.Attacks = append(d.Attacks[:i:i], d.Attacks[i+1:]...)
			return true
		}
	}
	return false
}

// ApplyWounds adds delta wounds (negative heals), clamped to
// [0, DerivedStats.WoundBoxes].
func (d *Digimon) ApplyWounds(delta int) {
	d.CurrentWounds = min(max(0, d.CurrentWounds+delta), d.DerivedStats.WoundBoxes)
}

// SetStance changes the out-of-combat stance.
func (d *Digimon) SetStance(s Stance) error {
	if !ValidStance(s) {
		return errors.Validation("invalid stance %q", s)
	}
	d.CurrentStance = s
	return nil
}

// Copy returns a deep copy of d named "Copy of <name>" with id and no
// evolution links.
func (d *Digimon) Copy(id string, now time.Time) *Digimon {
	c := *d
	c.ID = id
	c.Name = "Copy of " + d.Name
	c.Attacks = make([]attack.Attack, len(d.Attacks))
	for i, a := range d.Attacks {
		a.Tags = append([]string{}, a.Tags...)
		c.Attacks[i] = a
	}
	c.Qualities = append([]quality.Owned{}, d.Qualities...)
	c.EvolvesFromID = ""
	c.EvolutionPathIDs = []string{}
	c.CreatedAt = now
	c.UpdatedAt = now
	return &c
}
