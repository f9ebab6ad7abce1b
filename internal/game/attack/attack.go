// Package attack holds the Attack catalogue and the per-Digimon attack
// copies built from it.
package attack

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cory-johannsen/digigm/internal/game/content"
	"github.com/cory-johannsen/digigm/internal/game/stage"
)

// Range is melee or ranged.
type Range string

const (
	Melee  Range = "melee"
	Ranged Range = "ranged"
)

// Kind is damage or support.
type Kind string

const (
	Damage  Kind = "damage"
	Support Kind = "support"
)

// AnyStage marks a template usable at every stage.
const AnyStage = "any"

// Template is an immutable catalogue attack.
type Template struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Range       Range    `yaml:"range"`
	Type        Kind     `yaml:"type"`
	Tags        []string `yaml:"tags"`
	Effect      string   `yaml:"effect"`
	Stage       string   `yaml:"stage"`
	Description string   `yaml:"description"`
	Digimon     string   `yaml:"digimon"`
}

// UsableAt reports whether the template applies to s.
func (t *Template) UsableAt(s stage.Stage) bool {
	return t.Stage == AnyStage || stage.Stage(t.Stage) == s
}

// Attack is a Digimon's own copy of an attack. It may diverge from the
// template it was built from.
type Attack struct {
	ID          string   `json:"id"`
	TemplateID  string   `json:"templateId,omitempty"`
	Name        string   `json:"name"`
	Range       Range    `json:"range"`
	Type        Kind     `json:"type"`
	Tags        []string `json:"tags"`
	Effect      string   `json:"effect,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Instantiate copies t into a new Attack with id.
//
// Postcondition: the returned Tags slice does not alias t.Tags.
func Instantiate(t *Template, id string) Attack {
	return Attack{
		ID:          id,
		TemplateID:  t.ID,
		Name:        t.Name,
		Range:       t.Range,
		Type:        t.Type,
		Tags:        append([]string{}, t.Tags...),
		Effect:      t.Effect,
		Description: t.Description,
	}
}

// Validate checks a hand-built attack.
func (a Attack) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("attack name must not be empty")
	}
	if problem := a.problem(); problem != "" {
		return fmt.Errorf("attack %q: %s", a.Name, problem)
	}
	return nil
}

func (a Attack) problem() string {
	switch {
	case strings.TrimSpace(a.Name) == "":
		return "name must not be empty"
	case a.Range != Melee && a.Range != Ranged:
		return "range must be melee or ranged"
	case a.Type != Damage && a.Type != Support:
		return "type must be damage or support"
	}
	return ""
}

// Registry is the read-only attack catalogue.
type Registry struct {
	order []*Template
	byID  map[string]*Template
}

// NewRegistry validates and indexes templates.
func NewRegistry(templates []*Template) (*Registry, error) {
	r := &Registry{byID: make(map[string]*Template, len(templates))}
	var errs []string
	for _, t := range templates {
		switch {
		case t.ID == "":
			errs = append(errs, fmt.Sprintf("attack %q: id must not be empty", t.Name))
			continue
		case r.byID[t.ID] != nil:
			errs = append(errs, fmt.Sprintf("attack %q: duplicate id", t.ID))
			continue
		case t.Stage != AnyStage && !stage.Stage(t.Stage).Valid():
			errs = append(errs, fmt.Sprintf("attack %q: unknown stage %q", t.ID, t.Stage))
			continue
		}
		if problem := Instantiate(t, t.ID).problem(); problem != "" {
			errs = append(errs, fmt.Sprintf("attack %q: %s", t.ID, problem))
			continue
		}
		r.order = append(r.order, t)
		r.byID[t.ID] = t
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid attack catalogue:\n  %s", strings.Join(errs, "\n  "))
	}
	return r, nil
}

// LoadDirectory reads every YAML file in dir and builds a Registry.
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

// Get returns the template with id, or (nil, false).
func (r *Registry) Get(id string) (*Template, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// All returns every template in catalogue order.
func (r *Registry) All() []*Template {
	return append([]*Template(nil), r.order...)
}

// ForStage returns templates usable at s, including "any".
func (r *Registry) ForStage(s stage.Stage) []*Template {
	return r.filter(func(t *Template) bool { return t.UsableAt(s) })
}

// ByRange returns templates with range rg.
func (r *Registry) ByRange(rg Range) []*Template {
	return r.filter(func(t *Template) bool { return t.Range == rg })
}

// ByType returns templates of kind k.
func (r *Registry) ByType(k Kind) []*Template {
	return r.filter(func(t *Template) bool { return t.Type == k })
}

// Search matches q case-insensitively against name, description, effect,
// species and tags.
func (r *Registry) Search(q string) []*Template {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}
	return r.filter(func(t *Template) bool {
		for _, f := range append([]string{t.Name, t.Description, t.Effect, t.Digimon}, t.Tags...) {
			if strings.Contains(strings.ToLower(f), q) {
				return true
			}
		}
		return false
	})
}

// Tags returns the sorted set of tags used across the catalogue.
func (r *Registry) Tags() []string {
	set := make(map[string]struct{})
	for _, t := range r.order {
		for _, tag := range t.Tags {
			set[tag] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for tag := range set {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) filter(keep func(*Template) bool) []*Template {
	var out []*Template
	for _, t := range r.order {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
