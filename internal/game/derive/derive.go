// Package derive computes the derived combat statistics of Digimon and
// Tamers. Everything here is pure: derived values are a cache that can
// always be recomputed from the base values.
package derive

import "github.com/cory-johannsen/digigm/internal/game/stage"

// BaseStats are the five GM-assigned Digimon statistics.
type BaseStats struct {
	Accuracy int `json:"accuracy" yaml:"accuracy"`
	Damage   int `json:"damage" yaml:"damage"`
	Dodge    int `json:"dodge" yaml:"dodge"`
	Armor    int `json:"armor" yaml:"armor"`
	Health   int `json:"health" yaml:"health"`
}

// Validate reports the first negative field, if any.
func (b BaseStats) Validate() (field string, ok bool) {
	switch {
	case b.Accuracy < 0:
		return "accuracy", false
	case b.Damage < 0:
		return "damage", false
	case b.Dodge < 0:
		return "dodge", false
	case b.Armor < 0:
		return "armor", false
	case b.Health < 0:
		return "health", false
	}
	return "", true
}

// Stats are the derived Digimon statistics.
type Stats struct {
	Agility    int `json:"agility"`
	Body       int `json:"body"`
	WoundBoxes int `json:"woundBoxes"`
	BIT        int `json:"bit"`
	RAM        int `json:"ram"`
	CPU        int `json:"cpu"`
	Movement   int `json:"movement"`
}

// Compute derives Stats from base and s.
//
//	agility    = accuracy + dodge
//	body       = floor((damage + armor + health) / 3)
//	woundBoxes = health + stage wound bonus
//	ram        = floor(agility / 2)
//	cpu        = floor(body / 2)
//	bit        = stage brains
//	movement   = stage movement
//
// Precondition: s is a valid stage.
// Postcondition: Agility and Body are never negative.
func Compute(base BaseStats, s stage.Stage) Stats {
	cfg := stage.MustConfig(s)
	agility := max(0, base.Accuracy+base.Dodge)
	body := max(0, floorDiv(base.Damage+base.Armor+base.Health, 3))
	return Stats{
		Agility:    agility,
		Body:       body,
		WoundBoxes: base.Health + cfg.WoundBonus,
		BIT:        cfg.Brains,
		RAM:        floorDiv(agility, 2),
		CPU:        floorDiv(body, 2),
		Movement:   cfg.Movement,
	}
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
