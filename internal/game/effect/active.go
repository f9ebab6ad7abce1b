package effect

import "fmt"

// Active is one effect applied to a participant.
//
// Invariant: Duration >= 1 while the effect is in a Set.
type Active struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	Duration    int      `json:"duration"`
	Source      string   `json:"source,omitempty"`
	Description string   `json:"description,omitempty"`
}

// FromDef builds an Active from a catalogue Def. A duration <= 0 uses the
// Def's default.
func FromDef(def *Def, id string, duration int, source string) Active {
	if duration <= 0 {
		duration = def.DefaultDuration
	}
	return Active{
		ID:          id,
		Name:        def.Name,
		Category:    def.Category,
		Duration:    duration,
		Source:      source,
		Description: def.Description,
	}
}

// Set is the ordered list of effects on one participant. It is a plain
// value; the caller serialises access.
type Set []Active

// Apply adds a to the set. Re-applying an effect with the same name and
// source refreshes its duration to the longer of the two.
//
// Precondition: a.Duration >= 1 and a.Category is valid.
// Postcondition: Has(a.Name) is true.
func (s Set) Apply(a Active) (Set, error) {
	if a.Duration < 1 {
		return s, fmt.Errorf("effect %q: duration must be >= 1", a.Name)
	}
	if !a.Category.Valid() {
		return s, fmt.Errorf("effect %q: unknown category %q", a.Name, a.Category)
	}
	out := append(Set(nil), s...)
	for i := range out {
		if out[i].Name == a.Name && out[i].Source == a.Source {
			out[i].Duration = max(out[i].Duration, a.Duration)
			return out, nil
		}
	}
	return append(out, a), nil
}

// Remove drops the effect with id. Removing an absent id is a no-op.
func (s Set) Remove(id string) Set {
	out := make(Set, 0, len(s))
	for _, a := range s {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}

// Tick ages every effect by one round and drops those that reach 0.
//
// Postcondition: every remaining effect has Duration >= 1; the dropped
// effects are returned in set order.
func (s Set) Tick() (Set, []Active) {
	out := make(Set, 0, len(s))
	var expired []Active
	for _, a := range s {
		a.Duration--
		if a.Duration <= 0 {
			expired = append(expired, a)
			continue
		}
		out = append(out, a)
	}
	return out, expired
}

// Has reports whether an effect named name is present.
func (s Set) Has(name string) bool {
	for _, a := range s {
		if a.Name == name {
			return true
		}
	}
	return false
}
