// Package stage defines the Digimon progression stages and their static
// rule constants.
package stage

import (
	"fmt"
	"strings"
)

// Stage is a Digimon progression tier. Stages are totally ordered from
// Fresh to Ultra; the order drives stage gates and per-stage rank caps.
type Stage string

const (
	Fresh      Stage = "fresh"
	InTraining Stage = "in-training"
	Rookie     Stage = "rookie"
	Champion   Stage = "champion"
	Ultimate   Stage = "ultimate"
	Mega       Stage = "mega"
	Ultra      Stage = "ultra"
)

var order = []Stage{Fresh, InTraining, Rookie, Champion, Ultimate, Mega, Ultra}

// Config holds the immutable rule constants for one Stage.
type Config struct {
	Stage      Stage
	DP         int // build budget
	Movement   int
	WoundBonus int
	Brains     int
	Attacks    int // attack slots
	StageBonus int
}

var configs = map[Stage]Config{
	Fresh:      {Stage: Fresh, DP: 5, Movement: 2, WoundBonus: 0, Brains: 0, Attacks: 1, StageBonus: 0},
	InTraining: {Stage: InTraining, DP: 15, Movement: 4, WoundBonus: 1, Brains: 1, Attacks: 2, StageBonus: 0},
	Rookie:     {Stage: Rookie, DP: 25, Movement: 6, WoundBonus: 2, Brains: 3, Attacks: 2, StageBonus: 1},
	Champion:   {Stage: Champion, DP: 40, Movement: 8, WoundBonus: 5, Brains: 5, Attacks: 3, StageBonus: 2},
	Ultimate:   {Stage: Ultimate, DP: 55, Movement: 10, WoundBonus: 7, Brains: 7, Attacks: 4, StageBonus: 3},
	Mega:       {Stage: Mega, DP: 70, Movement: 12, WoundBonus: 10, Brains: 10, Attacks: 5, StageBonus: 4},
	Ultra:      {Stage: Ultra, DP: 85, Movement: 14, WoundBonus: 12, Brains: 12, Attacks: 6, StageBonus: 5},
}

// negativeDPLimits caps the DP a Digimon may recover from negative qualities.
var negativeDPLimits = map[Stage]int{
	Fresh: 0, InTraining: 0, Rookie: 1, Champion: 2, Ultimate: 3, Mega: 4, Ultra: 5,
}

// All returns every Stage in ascending progression order.
//
// Postcondition: the returned slice is a fresh copy; callers may modify it.
func All() []Stage {
	out := make([]Stage, len(order))
	copy(out, order)
	return out
}

// Parse converts s (case-insensitive) into a Stage.
//
// Postcondition: Returns a valid Stage or a non-nil error naming the input.
func Parse(s string) (Stage, error) {
	st := Stage(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown stage %q", s)
	}
	return st, nil
}

// Index returns the zero-based progression position of s, or -1 when s is
// not a known stage.
func (s Stage) Index() int {
	for i, o := range order {
		if o == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the seven known stages.
func (s Stage) Valid() bool { return s.Index() >= 0 }

// AtLeast reports whether s is at or above other in progression order.
//
// Precondition: both stages must be valid.
func (s Stage) AtLeast(other Stage) bool { return s.Index() >= other.Index() }

// String returns the canonical stage name.
func (s Stage) String() string { return string(s) }

// Compare returns -1, 0 or 1 as a is below, equal to, or above b.
func Compare(a, b Stage) int {
	ia, ib := a.Index(), b.Index()
	switch {
	case ia < ib:
		return -1
	case ia > ib:
		return 1
	default:
		return 0
	}
}

// Next returns the stage directly above s.
//
// Postcondition: ok is false when s is Ultra or unknown.
func Next(s Stage) (Stage, bool) {
	i := s.Index()
	if i < 0 || i >= len(order)-1 {
		return "", false
	}
	return order[i+1], true
}

// Previous returns the stage directly below s.
//
// Postcondition: ok is false when s is Fresh or unknown.
func Previous(s Stage) (Stage, bool) {
	i := s.Index()
	if i <= 0 {
		return "", false
	}
	return order[i-1], true
}

// ConfigFor returns the rule constants for s.
//
// Postcondition: Returns (cfg, true) for a valid stage, or (Config{}, false).
func ConfigFor(s Stage) (Config, bool) {
	c, ok := configs[s]
	return c, ok
}

// MustConfig returns the rule constants for s and panics on an unknown stage.
//
// Precondition: s must be valid; callers validate stages at their input boundary.
func MustConfig(s Stage) Config {
	c, ok := configs[s]
	if !ok {
		panic(fmt.Sprintf("stage: MustConfig called with unknown stage %q", s))
	}
	return c
}

// NegativeDPLimit returns the maximum DP a Digimon at s may gain from
// negative qualities.
func NegativeDPLimit(s Stage) int {
	return negativeDPLimits[s]
}
