// Package digimon models a built Digimon and the pure operations that
// keep its derived stats, qualities, attacks and evolution links
// consistent.
package digimon

import (
	"time"

	"github.com/cory-johannsen/digigm/internal/game/attack"
	"github.com/cory-johannsen/digigm/internal/game/derive"
	"github.com/cory-johannsen/digigm/internal/game/quality"
	"github.com/cory-johannsen/digigm/internal/game/stage"
)

// Attribute is flavour only; it has no mechanical effect here.
type Attribute string

const (
	Vaccine Attribute = "vaccine"
	Data    Attribute = "data"
	Virus   Attribute = "virus"
	Free    Attribute = "free"
)

// Family is the Digimon field affiliation.
type Family string

var families = map[Family]bool{
	"dark-empire": true, "deep-savers": true, "dragons-roar": true,
	"jungle-troopers": true, "metal-empire": true, "nature-spirits": true,
	"nightmare-soldiers": true, "unknown": true, "virus-busters": true,
	"wind-guardians": true,
}

// Stance is a combat posture.
type Stance string

const (
	Neutral   Stance = "neutral"
	Defensive Stance = "defensive"
	Offensive Stance = "offensive"
	Sniper    Stance = "sniper"
	Brave     Stance = "brave"
)

// ValidStance reports whether s is a known stance.
func ValidStance(s Stance) bool {
	switch s {
	case Neutral, Defensive, Offensive, Sniper, Brave:
		return true
	}
	return false
}

// Digimon is a built creature. DerivedStats is a cache of
// derive.Compute(BaseStats, Stage) and is refreshed by every mutation
// that touches either.
type Digimon struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Species          string           `json:"species"`
	Stage            stage.Stage      `json:"stage"`
	Attribute        Attribute        `json:"attribute"`
	Family           Family           `json:"family"`
	Type             string           `json:"type,omitempty"`
	BaseStats        derive.BaseStats `json:"baseStats"`
	DerivedStats     derive.Stats     `json:"derivedStats"`
	Attacks          []attack.Attack  `json:"attacks"`
	Qualities        []quality.Owned  `json:"qualities"`
	DataOptimization string           `json:"dataOptimization,omitempty"`
	BaseDP           int              `json:"baseDP"`
	BonusDP          int              `json:"bonusDP"`
	CurrentWounds    int              `json:"currentWounds"`
	CurrentStance    Stance           `json:"currentStance"`
	EvolvesFromID    string           `json:"evolvesFromId,omitempty"`
	EvolutionPathIDs []string         `json:"evolutionPathIds"`
	PartnerID        string           `json:"partnerId,omitempty"`
	IsEnemy          bool             `json:"isEnemy"`
	Notes            string           `json:"notes,omitempty"`
	SpriteURL        string           `json:"spriteUrl,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// Recompute refreshes the derived-stat cache.
//
// Precondition: d.Stage is valid.
func (d *Digimon) Recompute() {
	d.DerivedStats = derive.Compute(d.BaseStats, d.Stage)
}

// AttackSlots returns the number of attacks d may know at its stage.
func (d *Digimon) AttackSlots() int {
	return stage.MustConfig(d.Stage).Attacks
}

// HasChild reports whether id is in d's evolution paths.
func (d *Digimon) HasChild(id string) bool {
	for _, c := range d.EvolutionPathIDs {
		if c == id {
			return true
		}
	}
	return false
}

// Filter selects Digimon in List operations. Zero fields match all.
type Filter struct {
	PartnerID string
	IsEnemy   *bool
	Stage     stage.Stage
}

// Match reports whether d satisfies f.
func (f Filter) Match(d *Digimon) bool {
	if f.PartnerID != "" && d.PartnerID != f.PartnerID {
		return false
	}
	if f.IsEnemy != nil && d.IsEnemy != *f.IsEnemy {
		return false
	}
	return f.Stage == "" || d.Stage == f.Stage
}

// Fields renders f as the equality predicates understood by storage.
func (f Filter) Fields() map[string]any {
	out := map[string]any{}
	if f.PartnerID != "" {
		out["partnerId"] = f.PartnerID
	}
	if f.IsEnemy != nil {
		out["isEnemy"] = *f.IsEnemy
	}
	if f.Stage != "" {
		out["stage"] = string(f.Stage)
	}
	return out
}
