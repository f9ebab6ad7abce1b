package quality

import (
	"fmt"

	"github.com/cory-johannsen/digigm/internal/errors"
	"github.com/cory-johannsen/digigm/internal/game/stage"
)

// Owned is a Quality held by a Digimon.
type Owned struct {
	ID     string `json:"id"`
	Ranks  int    `json:"ranks"`
	Choice string `json:"choice,omitempty"`
}

// Find returns the entry for id in owned.
func Find(owned []Owned, id string) (Owned, bool) {
	for _, o := range owned {
		if o.ID == id {
			return o, true
		}
	}
	return Owned{}, false
}

// PrerequisiteResult reports whether prerequisites hold and which do not.
type PrerequisiteResult struct {
	Met     bool     `json:"met"`
	Missing []string `json:"missing,omitempty"`
}

// PrerequisitesMet checks t's prerequisites against owned. All listed
// prerequisites are required.
//
// Precondition: t came from a Registry, so references are resolved.
func PrerequisitesMet(t *Template, owned []Owned) PrerequisiteResult {
	return checkPrerequisites(t.Prerequisites, owned)
}

func checkPrerequisites(prereqs []Prerequisite, owned []Owned) PrerequisiteResult {
	res := PrerequisiteResult{Met: true}
	for _, p := range prereqs {
		if !satisfied(p, owned) {
			res.Met = false
			res.Missing = append(res.Missing, p.String())
		}
	}
	return res
}

func satisfied(p Prerequisite, owned []Owned) bool {
	o, ok := Find(owned, p.QualityID)
	if !ok || o.Ranks < p.MinRank {
		return false
	}
	return p.Choice == "" || o.Choice == p.Choice
}

// Filter narrows Available by type and category. Zero values match all.
type Filter struct {
	Type     Type
	Category string
}

func (f Filter) match(t *Template) bool {
	return (f.Type == "" || t.Type == f.Type) && (f.Category == "" || t.Category == f.Category)
}

// Available returns the catalogue entries legally selectable next by a
// Digimon at s owning owned, in catalogue order. An owned quality is
// offered again only while its rank is below the ceiling at s. An unowned
// quality must be unlocked at s, have a non-zero ceiling there, conflict
// with nothing owned and have its prerequisites met.
func (r *Registry) Available(s stage.Stage, owned []Owned, f Filter) []*Template {
	var out []*Template
	for _, t := range r.order {
		if !f.match(t) {
			continue
		}
		if r.selectable(t, s, owned) {
			out = append(out, t)
		}
	}
	return out
}

func (r *Registry) selectable(t *Template, s stage.Stage, owned []Owned) bool {
	if !t.UnlockedAt(s) {
		return false
	}
	ceiling := EffectiveMaxRanks(t, s)
	if o, ok := Find(owned, t.ID); ok {
		return o.Ranks < ceiling
	}
	if ceiling == 0 || r.conflict(t.ID, owned) != "" {
		return false
	}
	return PrerequisitesMet(t, owned).Met
}

// conflict returns the first owned id exclusive with id, or "".
func (r *Registry) conflict(id string, owned []Owned) string {
	for _, o := range owned {
		if r.Excludes(id, o.ID) {
			return o.ID
		}
	}
	return ""
}

// Add validates acquiring one rank of id (with choice, for templates that
// have choices) and returns the updated list. owned is not modified.
//
// Postcondition: on error the returned slice is nil and the error is a
// RULE_VIOLATION naming the broken rule.
func (r *Registry) Add(s stage.Stage, owned []Owned, id, choice string) ([]Owned, error) {
	t, ok := r.byID[id]
	if !ok {
		return nil, errors.Violation(errors.RuleUnknownQuality, "unknown quality %q", id)
	}
	if !t.UnlockedAt(s) {
		return nil, errors.Violation(errors.RuleStageGate, "%s requires stage %s (have %s)", t.Name, t.StageRequirement, s).
			WithMeta("required", string(t.StageRequirement)).WithMeta("have", string(s))
	}
	ceiling := EffectiveMaxRanks(t, s)
	existing, has := Find(owned, id)
	if existing.Ranks+1 > ceiling {
		return nil, errors.Violation(errors.RuleRankCap, "%s is capped at rank %d at %s (have %d)", t.Name, ceiling, s, existing.Ranks).
			WithShortfall(ceiling, existing.Ranks)
	}

	if has {
		if choice != "" && choice != existing.Choice {
			return nil, errors.Violation(errors.RuleChoiceRequired, "%s is already owned with choice %q", t.Name, existing.Choice)
		}
		out := cloneOwned(owned)
		for i := range out {
			if out[i].ID == id {
				out[i].Ranks++
			}
		}
		return out, nil
	}

	if other := r.conflict(id, owned); other != "" {
		return nil, errors.Violation(errors.RuleExclusiveConflict, "%s cannot be taken with %s", t.Name, r.byID[other].Name).
			WithMeta("conflicts", other)
	}
	if res := PrerequisitesMet(t, owned); !res.Met {
		return nil, errors.Violation(errors.RulePrerequisiteUnmet, "%s is missing prerequisites", t.Name).
			WithMissing(res.Missing...)
	}
	if t.HasChoices() {
		c, ok := t.Choice(choice)
		if !ok {
			if choice == "" {
				return nil, errors.Violation(errors.RuleChoiceRequired, "%s requires a choice", t.Name).
					WithMeta("choices", choiceIDs(t))
			}
			return nil, errors.Violation(errors.RuleChoiceRequired, "%s has no choice %q", t.Name, choice).
				WithMeta("choices", choiceIDs(t))
		}
		if res := checkPrerequisites(c.Prerequisites, owned); !res.Met {
			return nil, errors.Violation(errors.RulePrerequisiteUnmet, "%s: %s is missing prerequisites", t.Name, c.Name).
				WithMissing(res.Missing...)
		}
	} else if choice != "" {
		return nil, errors.Validation("%s has no choices", t.Name)
	}

	return append(cloneOwned(owned), Owned{ID: id, Ranks: 1, Choice: choice}), nil
}

// Remove drops one rank of id, deleting the entry at zero ranks. It
// refuses when another owned quality (or choice) would lose a prerequisite.
//
// Postcondition: owned is not modified.
func (r *Registry) Remove(owned []Owned, id string) ([]Owned, error) {
	cur, ok := Find(owned, id)
	if !ok {
		return nil, errors.NotFound("owned quality", id)
	}
	out := make([]Owned, 0, len(owned))
	for _, o := range owned {
		if o.ID != id {
			out = append(out, o)
			continue
		}
		if o.Ranks > 1 {
			o.Ranks--
			out = append(out, o)
		}
	}
	var dependants []string
	for _, o := range out {
		t, ok := r.byID[o.ID]
		if !ok {
			continue
		}
		reqs := t.Prerequisites
		if c, ok := t.Choice(o.Choice); ok {
			reqs = append(append([]Prerequisite(nil), reqs...), c.Prerequisites...)
		}
		for _, p := range reqs {
			if p.QualityID == id && satisfied(p, owned) && !satisfied(p, out) {
				dependants = append(dependants, t.Name)
				break
			}
		}
	}
	if len(dependants) > 0 {
		name := id
		if t, ok := r.byID[id]; ok {
			name = t.Name
		}
		return nil, errors.Violation(errors.RulePrerequisiteUnmet, "cannot reduce %s below rank %d: required by other qualities", name, cur.Ranks).
			WithMeta("dependants", dependants)
	}
	return out, nil
}

// Validate re-checks every owned quality against the rules at s and
// returns one violation per problem found, in owned order. It never
// mutates. Call it after a stage change, which does not re-validate.
func (r *Registry) Validate(s stage.Stage, owned []Owned) []*errors.Error {
	var out []*errors.Error
	for i, o := range owned {
		t, ok := r.byID[o.ID]
		if !ok {
			out = append(out, errors.Violation(errors.RuleUnknownQuality, "unknown quality %q", o.ID))
			continue
		}
		if !t.UnlockedAt(s) {
			out = append(out, errors.Violation(errors.RuleStageGate, "%s requires stage %s (have %s)", t.Name, t.StageRequirement, s))
		}
		if ceiling := EffectiveMaxRanks(t, s); o.Ranks > ceiling {
			out = append(out, errors.Violation(errors.RuleRankCap, "%s rank %d exceeds cap %d at %s", t.Name, o.Ranks, ceiling, s).
				WithShortfall(ceiling, o.Ranks))
		}
		for _, later := range owned[i+1:] {
			if r.Excludes(o.ID, later.ID) {
				out = append(out, errors.Violation(errors.RuleExclusiveConflict, "%s cannot be held with %s", t.Name, nameOf(r, later.ID)))
			}
		}
		if res := PrerequisitesMet(t, owned); !res.Met {
			out = append(out, errors.Violation(errors.RulePrerequisiteUnmet, "%s is missing prerequisites", t.Name).WithMissing(res.Missing...))
		}
		if t.HasChoices() {
			c, ok := t.Choice(o.Choice)
			switch {
			case !ok:
				out = append(out, errors.Violation(errors.RuleChoiceRequired, "%s has no valid choice", t.Name))
			default:
				if res := checkPrerequisites(c.Prerequisites, owned); !res.Met {
					out = append(out, errors.Violation(errors.RulePrerequisiteUnmet, "%s: %s is missing prerequisites", t.Name, c.Name).WithMissing(res.Missing...))
				}
			}
		}
	}
	return out
}

// DP returns the total DP of owned: per-rank cost, with choice overrides,
// times ranks. Unknown ids contribute nothing.
func (r *Registry) DP(owned []Owned) int {
	total := 0
	for _, o := range owned {
		if t, ok := r.byID[o.ID]; ok {
			total += t.CostFor(o.Choice) * o.Ranks
		}
	}
	return total
}

// NegativeDP returns the DP recovered from negative qualities as a
// non-negative number.
func (r *Registry) NegativeDP(owned []Owned) int {
	total := 0
	for _, o := range owned {
		if t, ok := r.byID[o.ID]; ok && t.Type == TypeNegative {
			total -= t.CostFor(o.Choice) * o.Ranks
		}
	}
	return total
}

func nameOf(r *Registry, id string) string {
	if t, ok := r.byID[id]; ok {
		return t.Name
	}
	return fmt.Sprintf("%q", id)
}

func choiceIDs(t *Template) []string {
	out := make([]string, len(t.Choices))
	for i, c := range t.Choices {
		out[i] = c.ID
	}
	return out
}

func cloneOwned(in []Owned) []Owned {
	return append(make([]Owned, 0, len(in)+1), in...)
}
