package quality

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cory-johannsen/digigm/internal/game/content"
	"github.com/cory-johannsen/digigm/internal/game/stage"
)

// Registry is the indexed, read-only Quality catalogue. It is safe for
// concurrent reads once built.
type Registry struct {
	order      []*Template
	byID       map[string]*Template
	byName     map[string]*Template
	byType     map[Type][]*Template
	byCategory map[string][]*Template
	// exclusive is the symmetric, transitively closed exclusion relation.
	exclusive map[string]map[string]struct{}
}

// NewRegistry validates templates and builds the catalogue indexes.
// Prerequisite references are resolved to quality ids and exclusivity is
// symmetrized and closed.
//
// Precondition: templates must be non-nil entries.
// Postcondition: Returns a Registry, or an error naming every invalid entry.
func NewRegistry(templates []*Template) (*Registry, error) {
	r := &Registry{
		byID:       make(map[string]*Template, len(templates)),
		byName:     make(map[string]*Template, len(templates)),
		byType:     make(map[Type][]*Template),
		byCategory: make(map[string][]*Template),
		exclusive:  make(map[string]map[string]struct{}),
	}
	var errs []string
	for _, t := range templates {
		if msg := validateTemplate(t); msg != "" {
			errs = append(errs, msg)
			continue
		}
		if _, dup := r.byID[t.ID]; dup {
			errs = append(errs, fmt.Sprintf("quality %q: duplicate id", t.ID))
			continue
		}
		r.order = append(r.order, t)
		r.byID[t.ID] = t
		r.byName[strings.ToLower(t.Name)] = t
		r.byType[t.Type] = append(r.byType[t.Type], t)
		r.byCategory[t.Category] = append(r.byCategory[t.Category], t)
	}
	for _, t := range r.order {
		for i := range t.Prerequisites {
			if err := r.resolve(&t.Prerequisites[i]); err != nil {
				errs = append(errs, fmt.Sprintf("quality %q: %v", t.ID, err))
			}
		}
		for ci := range t.Choices {
			for pi := range t.Choices[ci].Prerequisites {
				if err := r.resolve(&t.Choices[ci].Prerequisites[pi]); err != nil {
					errs = append(errs, fmt.Sprintf("quality %q choice %q: %v", t.ID, t.Choices[ci].ID, err))
				}
			}
		}
		for _, other := range t.ExclusiveWith {
			if _, ok := r.byID[other]; !ok {
				errs = append(errs, fmt.Sprintf("quality %q: exclusive_with references unknown quality %q", t.ID, other))
			}
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid quality catalogue:\n  %s", strings.Join(errs, "\n  "))
	}
	r.closeExclusions()
	return r, nil
}

// LoadDirectory reads every YAML file in dir and builds a Registry.
//
// Precondition: dir must be a readable directory.
func LoadDirectory(dir string) (*Registry, error) {
	items, err := content.LoadDirectory[Template](dir)
	if err != nil {
		return nil, err
	}
	ptrs := make([]*Template, len(items))
	for i := range items {
		ptrs[i] = &items[i]
	}
	return NewRegistry(ptrs)
}

func validateTemplate(t *Template) string {
	switch {
	case t == nil:
		return "nil template"
	case t.ID == "":
		return fmt.Sprintf("quality %q: id must not be empty", t.Name)
	case t.Name == "":
		return fmt.Sprintf("quality %q: name must not be empty", t.ID)
	case !t.Type.Valid():
		return fmt.Sprintf("quality %q: unknown type %q", t.ID, t.Type)
	case t.MaxRanks < 1:
		return fmt.Sprintf("quality %q: max_ranks must be >= 1", t.ID)
	case t.Type == TypeNegative && t.DPCost > 0:
		return fmt.Sprintf("quality %q: negative quality must not have a positive cost", t.ID)
	case t.StageRequirement != "" && !t.StageRequirement.Valid():
		return fmt.Sprintf("quality %q: unknown stage_requirement %q", t.ID, t.StageRequirement)
	}
	prev := 0
	for _, s := range stage.All() {
		v, ok := t.MaxRanksByStage[s]
		if !ok {
			continue
		}
		if v < prev {
			return fmt.Sprintf("quality %q: max_ranks_by_stage decreases at %s", t.ID, s)
		}
		prev = v
	}
	for s := range t.MaxRanksByStage {
		if !s.Valid() {
			return fmt.Sprintf("quality %q: max_ranks_by_stage has unknown stage %q", t.ID, s)
		}
	}
	seen := make(map[string]bool, len(t.Choices))
	for _, c := range t.Choices {
		if c.ID == "" || seen[c.ID] {
			return fmt.Sprintf("quality %q: choice ids must be unique and non-empty", t.ID)
		}
		seen[c.ID] = true
	}
	return ""
}

// resolve binds p.Ref to a quality id. A ref naming a choice binds to the
// owning quality with Choice set.
func (r *Registry) resolve(p *Prerequisite) error {
	if p.MinRank < 1 {
		p.MinRank = 1
	}
	if t := r.lookup(p.Ref); t != nil {
		p.QualityID = t.ID
		if p.Choice != "" {
			c, ok := t.Choice(p.Choice)
			if !ok {
				return fmt.Errorf("prerequisite %q names unknown choice %q", p.Ref, p.Choice)
			}
			p.label = t.Name + ": " + c.Name
			return nil
		}
		p.label = t.Name
		if p.MinRank > 1 {
			p.label = fmt.Sprintf("%s Rank %d", t.Name, p.MinRank)
		}
		return nil
	}
	key := strings.ToLower(strings.TrimSpace(p.Ref))
	for _, t := range r.order {
		for _, c := range t.Choices {
			if c.ID == key || strings.ToLower(c.Name) == key {
				p.QualityID = t.ID
				p.Choice = c.ID
				p.label = t.Name + ": " + c.Name
				return nil
			}
		}
	}
	return fmt.Errorf("unresolvable prerequisite %q", p.Ref)
}

func (r *Registry) lookup(ref string) *Template {
	key := strings.TrimSpace(ref)
	if t, ok := r.byID[key]; ok {
		return t
	}
	if t, ok := r.byID[strings.ToLower(key)]; ok {
		return t
	}
	return r.byName[strings.ToLower(key)]
}

// closeExclusions symmetrizes the declared pairs and takes the transitive
// closure: every quality in a connected exclusion group excludes every
// other member.
func (r *Registry) closeExclusions() {
	adj := make(map[string][]string)
	for _, t := range r.order {
		for _, o := range t.ExclusiveWith {
			if o == t.ID {
				continue
			}
			adj[t.ID] = append(adj[t.ID], o)
			adj[o] = append(adj[o], t.ID)
		}
	}
	visited := make(map[string]bool)
	for _, t := range r.order {
		if visited[t.ID] || len(adj[t.ID]) == 0 {
			continue
		}
		var group []string
		stack := []string{t.ID}
		visited[t.ID] = true
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			group = append(group, id)
			for _, n := range adj[id] {
				if !visited[n] {
					visited[n] = true
					stack = append(stack, n)
				}
			}
		}
		for _, a := range group {
			set := make(map[string]struct{}, len(group)-1)
			for _, b := range group {
				if a != b {
					set[b] = struct{}{}
				}
			}
			r.exclusive[a] = set
		}
	}
}

// Get returns the template with id.
//
// Postcondition: Returns (nil, false) when id is unknown.
func (r *Registry) Get(id string) (*Template, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// Lookup finds a template by id or case-insensitive display name.
func (r *Registry) Lookup(ref string) (*Template, bool) {
	t := r.lookup(ref)
	return t, t != nil
}

// All returns every template in catalogue order.
func (r *Registry) All() []*Template {
	out := make([]*Template, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of templates.
func (r *Registry) Len() int { return len(r.order) }

// ByType returns templates of type t in catalogue order.
func (r *Registry) ByType(t Type) []*Template {
	return append([]*Template(nil), r.byType[t]...)
}

// ByCategory returns templates in category c in catalogue order.
func (r *Registry) ByCategory(c string) []*Template {
	return append([]*Template(nil), r.byCategory[c]...)
}

// Categories returns the sorted set of categories present.
func (r *Registry) Categories() []string {
	out := make([]string, 0, len(r.byCategory))
	for c := range r.byCategory {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// AvailableAtStage returns templates unlocked at s with a non-zero rank
// ceiling there.
func (r *Registry) AvailableAtStage(s stage.Stage) []*Template {
	var out []*Template
	for _, t := range r.order {
		if t.UnlockedAt(s) && EffectiveMaxRanks(t, s) > 0 {
			out = append(out, t)
		}
	}
	return out
}

// Search returns templates whose id, name, category, description or
// effect contains q, case-insensitively. An empty query matches nothing.
func (r *Registry) Search(q string) []*Template {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}
	var out []*Template
	for _, t := range r.order {
		if containsFold(q, t.ID, t.Name, t.Category, t.Description, t.Effect) {
			out = append(out, t)
		}
	}
	return out
}

func containsFold(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// Excludes reports whether a and b are mutually exclusive.
func (r *Registry) Excludes(a, b string) bool {
	_, ok := r.exclusive[a][b]
	return ok
}

// ExclusionsOf returns the sorted ids excluded by id.
func (r *Registry) ExclusionsOf(id string) []string {
	out := make([]string, 0, len(r.exclusive[id]))
	for o := range r.exclusive[id] {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}
