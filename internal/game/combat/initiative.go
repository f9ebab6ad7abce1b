package combat

import "github.com/cory-johannsen/digigm/internal/game/dice"

var initiativeDice = dice.MustParse("3d6")

// Initiative is one initiative roll.
type Initiative struct {
	Roll  int `json:"roll"`
	Total int `json:"total"`
}

// RollInitiative rolls 3d6 and adds agility.
//
// Precondition: src must be non-nil.
// Postcondition: 3 <= Roll <= 18 and Total == Roll + agility.
func RollInitiative(agility int, src dice.Source) Initiative {
	roll := dice.Roll(initiativeDice, src).Total()
	return Initiative{Roll: roll, Total: roll + agility}
}
