package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Notation is a parsed "NdS+M" roll description.
type Notation struct {
	Raw      string
	Count    int
	Sides    int
	Modifier int
}

var notationRE = regexp.MustCompile(`^(\d*)d(\d+)([+-]\d+)?$`)

// Parse parses notation such as "3d6", "d6" or "2d6-1".
//
// Postcondition: on success Count >= 1 and Sides >= 2.
func Parse(s string) (Notation, error) {
	raw := strings.ToLower(strings.ReplaceAll(s, " ", ""))
	m := notationRE.FindStringSubmatch(raw)
	if m == nil {
		return Notation{}, fmt.Errorf("dice: invalid notation %q", s)
	}
	n := Notation{Raw: raw, Count: 1}
	if m[1] != "" {
		n.Count, _ = strconv.Atoi(m[1])
	}
	n.Sides, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		n.Modifier, _ = strconv.Atoi(m[3])
	}
	if n.Count < 1 || n.Count > 100 {
		return Notation{}, fmt.Errorf("dice: count in %q must be between 1 and 100", s)
	}
	if n.Sides < 2 {
		return Notation{}, fmt.Errorf("dice: sides in %q must be at least 2", s)
	}
	return n, nil
}

// MustParse parses s and panics on error. Use only for constants.
func MustParse(s string) Notation {
	n, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return n
}

// Roll evaluates n against src.
//
// Precondition: n came from Parse; src must be non-nil.
// Postcondition: len(result.Dice) == n.Count and each die is in [1, n.Sides].
func Roll(n Notation, src Source) Result {
	dice := make([]int, n.Count)
	for i := range dice {
		dice[i] = src.Intn(n.Sides) + 1
	}
	return Result{Notation: n.Raw, Dice: dice, Modifier: n.Modifier}
}
