// Package hazard holds the environmental hazard catalogue and the
// encounter-level hazard instances built from it.
package hazard

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/digigm/internal/game/content"
)

// Category groups hazards.
type Category string

const (
	Terrain Category = "terrain"
	Weather Category = "weather"
	Digital Category = "digital"
	Trap    Category = "trap"
	Other   Category = "other"
)

// Severity grades hazards.
type Severity string

const (
	Minor    Severity = "minor"
	Moderate Severity = "moderate"
	Severe   Severity = "severe"
)

// Template is a catalogue hazard. A nil Duration is permanent.
type Template struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Effect       string   `yaml:"effect"`
	AffectedArea string   `yaml:"affected_area"`
	Duration     *int     `yaml:"duration"`
	Category     Category `yaml:"category"`
	Severity     Severity `yaml:"severity"`
}

// Hazard is a hazard active in one encounter.
//
// Invariant: Duration is nil (permanent) or >= 1.
type Hazard struct {
	ID           string `json:"id"`
	TemplateID   string `json:"templateId,omitempty"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Effect       string `json:"effect,omitempty"`
	AffectedArea string `json:"affectedArea,omitempty"`
	Duration     *int   `json:"duration"`
}

// Permanent reports whether h never expires on its own.
func (h Hazard) Permanent() bool { return h.Duration == nil }

// Validate checks a hand-built or edited hazard.
func (h Hazard) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return fmt.Errorf("hazard name must not be empty")
	}
	if h.Duration != nil && *h.Duration < 1 {
		return fmt.Errorf("hazard %q: duration must be >= 1 or omitted", h.Name)
	}
	return nil
}

// Instantiate creates an encounter Hazard from t with a fresh id.
//
// Postcondition: the result does not alias t.Duration.
func Instantiate(t *Template, id string) Hazard {
	return Hazard{
		ID:           id,
		TemplateID:   t.ID,
		Name:         t.Name,
		Description:  t.Description,
		Effect:       t.Effect,
		AffectedArea: t.AffectedArea,
		Duration:     cloneInt(t.Duration),
	}
}

// Tick ages every timed hazard by one; hazards reaching 0 are dropped and
// returned. Permanent hazards are untouched.
//
// Postcondition: hs is not modified.
func Tick(hs []Hazard) (remaining, expired []Hazard) {
	remaining = make([]Hazard, 0, len(hs))
	for _, h := range hs {
		if h.Duration == nil {
			remaining = append(remaining, h)
			continue
		}
		d := *h.Duration - 1
		if d <= 0 {
			expired = append(expired, h)
			continue
		}
		h.Duration = &d
		remaining = append(remaining, h)
	}
	return remaining, expired
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Registry is the read-only hazard catalogue.
type Registry struct {
	order []*Template
	byID  map[string]*Template
}

// NewRegistry validates and indexes templates.
func NewRegistry(templates []*Template) (*Registry, error) {
	r := &Registry{byID: make(map[string]*Template, len(templates))}
	for _, t := range templates {
		if t.ID == "" {
			return nil, fmt.Errorf("hazard %q: id must not be empty", t.Name)
		}
		if _, dup := r.byID[t.ID]; dup {
			return nil, fmt.Errorf("hazard %q: duplicate id", t.ID)
		}
		switch t.Category {
		case Terrain, Weather, Digital, Trap, Other:
		default:
			return nil, fmt.Errorf("hazard %q: unknown category %q", t.ID, t.Category)
		}
		switch t.Severity {
		case Minor, Moderate, Severe:
		default:
			return nil, fmt.Errorf("hazard %q: unknown severity %q", t.ID, t.Severity)
		}
		if err := Instantiate(t, t.ID).Validate(); err != nil {
			return nil, err
		}
		r.order = append(r.order, t)
		r.byID[t.ID] = t
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
func (r *Registry) All() []*Template { return append([]*Template(nil), r.order...) }

// ByCategory returns templates in c.
func (r *Registry) ByCategory(c Category) []*Template {
	var out []*Template
	for _, t := range r.order {
		if t.Category == c {
			out = append(out, t)
		}
	}
	return out
}

// BySeverity returns templates graded s.
func (r *Registry) BySeverity(s Severity) []*Template {
	var out []*Template
	for _, t := range r.order {
		if t.Severity == s {
			out = append(out, t)
		}
	}
	return out
}

// Search matches q case-insensitively against name, description and effect.
func (r *Registry) Search(q string) []*Template {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}
	var out []*Template
	for _, t := range r.order {
		if strings.Contains(strings.ToLower(t.Name), q) ||
			strings.Contains(strings.ToLower(t.Description), q) ||
			strings.Contains(strings.ToLower(t.Effect), q) {
			out = append(out, t)
		}
	}
	return out
}
