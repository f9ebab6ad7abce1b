// Package dice provides the randomness abstraction and roll records used by
// initiative and any other GM-side roll.
package dice

import (
	"fmt"
	"strings"
)

// Source is the randomness provider for every roll.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// Result is the audit record for a single evaluated Notation.
//
// Invariant: Total() == sum(Dice) + Modifier.
type Result struct {
	Notation string
	Dice     []int
	Modifier int
}

// Total returns the sum of the dice plus the modifier.
func (r Result) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String renders the roll as "3d6+2: 4+5+1 +2 = 12".
func (r Result) String() string {
	parts := make([]string, len(r.Dice))
	for i, d := range r.Dice {
		parts[i] = fmt.Sprint(d)
	}
	s := fmt.Sprintf("%s: %s", r.Notation, strings.Join(parts, "+"))
	if r.Modifier != 0 {
		s += fmt.Sprintf(" %+d", r.Modifier)
	}
	return fmt.Sprintf("%s = %d", s, r.Total())
}

// D6 rolls a single six-sided die.
//
// Precondition: src must be non-nil.
// Postcondition: returns a value in [1, 6].
func D6(src Source) int {
	return src.Intn(6) + 1
}
