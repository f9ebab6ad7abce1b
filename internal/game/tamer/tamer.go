// Package tamer models the human partners of Digimon: attributes,
// skills, aspects, torments and inspiration.
package tamer

import (
	"strings"
	"time"

	"github.com/cory-johannsen/digigm/internal/errors"
	"github.com/cory-johannsen/digigm/internal/game/derive"
)

// CampaignLevel scales starting power.
type CampaignLevel string

const (
	Standard CampaignLevel = "standard"
	Enhanced CampaignLevel = "enhanced"
	Extreme  CampaignLevel = "extreme"
)

// AspectType is major or minor.
type AspectType string

const (
	Major AspectType = "major"
	Minor AspectType = "minor"
)

// Uses returns the per-session uses of an aspect of type t.
func (t AspectType) Uses() int {
	if t == Major {
		return 1
	}
	return 2
}

// Aspect is a narrative trait the Tamer may invoke.
type Aspect struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Type          AspectType `json:"type"`
	UsesRemaining int        `json:"usesRemaining"`
}

// Severity grades a torment.
type Severity string

const (
	MinorTorment    Severity = "minor"
	MajorTorment    Severity = "major"
	TerribleTorment Severity = "terrible"
)

// Boxes returns the number of boxes a torment of severity s has, or 0.
func (s Severity) Boxes() int {
	switch s {
	case MinorTorment:
		return 5
	case MajorTorment:
		return 7
	case TerribleTorment:
		return 10
	}
	return 0
}

// Torment is an inner struggle the Tamer works through by marking boxes.
//
// Invariant: 0 <= MarkedBoxes <= TotalBoxes.
type Torment struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Severity    Severity `json:"severity"`
	TotalBoxes  int      `json:"totalBoxes"`
	MarkedBoxes int      `json:"markedBoxes"`
}

// Overcome reports whether every box is marked.
func (t Torment) Overcome() bool { return t.MarkedBoxes >= t.TotalBoxes }

// Tamer is a player character or NPC partner.
type Tamer struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Age               int               `json:"age"`
	CampaignLevel     CampaignLevel     `json:"campaignLevel"`
	Attributes        derive.Attributes `json:"attributes"`
	Skills            derive.Skills     `json:"skills"`
	DerivedStats      derive.TamerStats `json:"derivedStats"`
	Aspects           []Aspect          `json:"aspects"`
	Torments          []Torment         `json:"torments"`
	SpecialOrders     []string          `json:"specialOrders"`
	Inspiration       int               `json:"inspiration"`
	MaxInspiration    int               `json:"maxInspiration"`
	XP                int               `json:"xp"`
	Equipment         []string          `json:"equipment"`
	PartnerDigimonIDs []string          `json:"partnerDigimonIds"`
	CurrentWounds     int               `json:"currentWounds"`
	Notes             string            `json:"notes,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// Spec is the GM input for a new Tamer.
type Spec struct {
	Name          string             `json:"name"`
	Age           int                `json:"age"`
	CampaignLevel CampaignLevel      `json:"campaignLevel"`
	Attributes    *derive.Attributes `json:"attributes"`
	Skills        *derive.Skills     `json:"skills"`
	Aspects       []Aspect           `json:"aspects"`
	Torments      []Torment          `json:"torments"`
	Notes         string             `json:"notes"`
}

// Validate reports the first missing or malformed field.
func (s Spec) Validate() error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return errors.Validation("tamer name must not be empty")
	case s.Age <= 0:
		return errors.Validation("tamer age must be positive")
	case s.Attributes == nil:
		return errors.Validation("attributes are required")
	case s.Skills == nil:
		return errors.Validation("skills are required")
	}
	switch s.CampaignLevel {
	case Standard, Enhanced, Extreme:
	default:
		return errors.Validation("invalid campaign level %q", s.CampaignLevel)
	}
	for _, a := range s.Aspects {
		if err := validateAspect(a); err != nil {
			return err
		}
	}
	for _, t := range s.Torments {
		if err := validateTorment(t); err != nil {
			return err
		}
	}
	return nil
}

func validateAspect(a Aspect) error {
	if strings.TrimSpace(a.Name) == "" {
		return errors.Validation("aspect name must not be empty")
	}
	if a.Type != Major && a.Type != Minor {
		return errors.Validation("aspect %q: type must be major or minor", a.Name)
	}
	if a.UsesRemaining < 0 || a.UsesRemaining > a.Type.Uses() {
		return errors.Validation("aspect %q: uses must be within [0, %d]", a.Name, a.Type.Uses())
	}
	return nil
}

func validateTorment(t Torment) error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.Validation("torment name must not be empty")
	}
	boxes := t.Severity.Boxes()
	if boxes == 0 {
		return errors.Validation("torment %q: invalid severity %q", t.Name, t.Severity)
	}
	if t.TotalBoxes != boxes {
		return errors.Validation("torment %q: a %s torment has %d boxes", t.Name, t.Severity, boxes)
	}
	if t.MarkedBoxes < 0 || t.MarkedBoxes > t.TotalBoxes {
		return errors.Validation("torment %q: marked boxes out of range", t.Name)
	}
	return nil
}

// Build constructs a new Tamer from spec.
//
// Precondition: id must be non-empty.
// Postcondition: derived stats are computed and Inspiration equals
// MaxInspiration.
func Build(spec Spec, id string, now time.Time) (*Tamer, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	t := &Tamer{
		ID:                id,
		Name:              strings.TrimSpace(spec.Name),
		Age:               spec.Age,
		CampaignLevel:     spec.CampaignLevel,
		Attributes:        *spec.Attributes,
		Skills:            *spec.Skills,
		Aspects:           append([]Aspect{}, spec.Aspects...),
		Torments:          append([]Torment{}, spec.Torments...),
		SpecialOrders:     []string{},
		Equipment:         []string{},
		PartnerDigimonIDs: []string{},
		Notes:             spec.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	t.Recompute()
	t.Inspiration = t.MaxInspiration
	return t, nil
}

// Recompute refreshes the derived stats and clamps inspiration and
// wounds to their new maxima.
func (t *Tamer) Recompute() {
	t.DerivedStats = derive.ComputeTamer(t.Attributes, t.Skills)
	t.MaxInspiration = t.DerivedStats.MaxInspiration
	t.Inspiration = min(t.Inspiration, t.MaxInspiration)
	t.CurrentWounds = min(t.CurrentWounds, t.DerivedStats.WoundBoxes)
}

// AddAspect appends a with a full set of uses.
func (t *Tamer) AddAspect(a Aspect) error {
	a.UsesRemaining = a.Type.Uses()
	if err := validateAspect(a); err != nil {
		return err
	}
	t.Aspects = append(t.Aspects, a)
	return nil
}

// UseAspect spends one use of the aspect with id.
func (t *Tamer) UseAspect(id string) error {
	for i := range t.Aspects {
		if t.Aspects[i].ID != id {
			continue
		}
		if t.Aspects[i].UsesRemaining == 0 {
			return errors.Validation("aspect %q has no uses remaining", t.Aspects[i].Name)
		}
		t.Aspects[i].UsesRemaining--
		return nil
	}
	return errors.NotFound("aspect", id)
}

// AddTorment appends a torment sized by its severity.
func (t *Tamer) AddTorment(tm Torment) error {
	tm.TotalBoxes = tm.Severity.Boxes()
	if err := validateTorment(tm); err != nil {
		return err
	}
	t.Torments = append(t.Torments, tm)
	return nil
}

// MarkTorment marks n boxes on the torment with id, clamped to its total.
// It reports whether the torment is now overcome.
func (t *Tamer) MarkTorment(id string, n int) (bool, error) {
	for i := range t.Torments {
		tm := &t.Torments[i]
		if tm.ID == id {
			tm.MarkedBoxes = min(max(0, tm.MarkedBoxes+n), tm.TotalBoxes)
			return tm.Overcome(), nil
		}
	}
	return false, errors.NotFound("torment", id)
}

// Rest restores inspiration and every aspect's uses.
func (t *Tamer) Rest() {
	t.Inspiration = t.MaxInspiration
	for i := range t.Aspects {
		t.Aspects[i].UsesRemaining = t.Aspects[i].Type.Uses()
	}
}

// SpendInspiration spends n points.
func (t *Tamer) SpendInspiration(n int) error {
	if n <= 0 || n > t.Inspiration {
		return errors.Validation("cannot spend %d inspiration (have %d)", n, t.Inspiration).
			WithShortfall(n, t.Inspiration)
	}
	t.Inspiration -= n
	return nil
}

// GainInspiration adds n points, capped at MaxInspiration.
func (t *Tamer) GainInspiration(n int) {
	t.Inspiration = min(max(0, t.Inspiration+n), t.MaxInspiration)
}

// ApplyWounds adds delta wounds (negative heals), clamped to the wound boxes.
func (t *Tamer) ApplyWounds(delta int) {
	t.CurrentWounds = min(max(0, t.CurrentWounds+delta), t.DerivedStats.WoundBoxes)
}

// AddPartner records digimonID as a partner. Adding twice is a no-op.
func (t *Tamer) AddPartner(digimonID string) {
	for _, id := range t.PartnerDigimonIDs {
		if id == digimonID {
			return
		}
	}
	t.PartnerDigimonIDs = append(t.PartnerDigimonIDs, digimonID)
}

// RemovePartner forgets digimonID.
func (t *Tamer) RemovePartner(digimonID string) {
	out := t.PartnerDigimonIDs[:0:0]
	for _, id := range t.PartnerDigimonIDs {
		if id != digimonID {
			out = append(out, id)
		}
	}
	t.PartnerDigimonIDs = out
}

// Filter selects Tamers in List operations.
type Filter struct {
	CampaignLevel CampaignLevel
}

// Match reports whether t satisfies f.
func (f Filter) Match(t *Tamer) bool {
	return f.CampaignLevel == "" || t.CampaignLevel == f.CampaignLevel
}

// Fields renders f as storage equality predicates.
func (f Filter) Fields() map[string]any {
	out := map[string]any{}
	if f.CampaignLevel != "" {
		out["campaignLevel"] = string(f.CampaignLevel)
	}
	return out
}
