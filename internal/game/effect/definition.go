// Package effect defines timed combat effects: the catalogue of known
// effects and the ordered set carried by each encounter participant.
package effect

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/digigm/internal/game/content"
)

// Category is buff, debuff or status.
type Category string

const (
	Buff   Category = "buff"
	Debuff Category = "debuff"
	Status Category = "status"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool { return c == Buff || c == Debuff || c == Status }

// Def is the static definition of an effect, loaded from YAML.
type Def struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	Category        Category `yaml:"category"`
	DefaultDuration int      `yaml:"default_duration"`
	Description     string   `yaml:"description"`
}

// Registry holds all known Defs keyed by ID.
type Registry struct {
	order  []*Def
	defs   map[string]*Def
	byName map[string]*Def
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Def), byName: make(map[string]*Def)}
}

// Register adds def, overwriting any existing entry with the same ID.
//
// Precondition: def must not be nil; ID must not be empty; Category valid;
// DefaultDuration >= 1.
func (r *Registry) Register(def *Def) error {
	switch {
	case def == nil || def.ID == "":
		return fmt.Errorf("effect: id must not be empty")
	case !def.Category.Valid():
		return fmt.Errorf("effect %q: unknown category %q", def.ID, def.Category)
	case def.DefaultDuration < 1:
		return fmt.Errorf("effect %q: default_duration must be >= 1", def.ID)
	}
	if _, exists := r.defs[def.ID]; !exists {
		r.order = append(r.order, def)
	}
	r.defs[def.ID] = def
	r.byName[strings.ToLower(def.Name)] = def
	return nil
}

// Get returns the Def for id, or (nil, false).
func (r *Registry) Get(id string) (*Def, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// Lookup finds a Def by id or case-insensitive name. Attack templates
// reference effects by display name.
func (r *Registry) Lookup(ref string) (*Def, bool) {
	if d, ok := r.defs[ref]; ok {
		return d, true
	}
	d, ok := r.byName[strings.ToLower(strings.TrimSpace(ref))]
	return d, ok
}

// All returns every Def in registration order.
func (r *Registry) All() []*Def {
	return append([]*Def(nil), r.order...)
}

// ByCategory returns Defs in category c.
func (r *Registry) ByCategory(c Category) []*Def {
	var out []*Def
	for _, d := range r.order {
		if d.Category == c {
			out = append(out, d)
		}
	}
	return out
}

// LoadDirectory reads every YAML file in dir into a Registry.
//
// Postcondition: Returns a non-nil Registry, or an error if any entry is invalid.
func LoadDirectory(dir string) (*Registry, error) {
	defs, err := content.LoadDirectory[Def](dir)
	if err != nil {
		return nil, err
	}
	reg := NewRegistry()
	for i := range defs {
		if err := reg.Register(&defs[i]); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
