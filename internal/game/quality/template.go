// Package quality holds the Quality catalogue and the build rules that
// decide which Qualities a Digimon may own.
package quality

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/digigm/internal/game/stage"
)

// Type is the DP class of a Quality.
type Type string

const (
	TypeFree        Type = "free"
	TypeNegative    Type = "negative"
	TypePurchasable Type = "purchasable"
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	return t == TypeFree || t == TypeNegative || t == TypePurchasable
}

// Tag marks how a Quality takes effect in play.
type Tag string

const (
	TagStatic  Tag = "static"
	TagTrigger Tag = "trigger"
	TagAttack  Tag = "attack"
)

// Prerequisite is one required quality, optionally rank- or
// choice-qualified. Legacy catalogue strings such as "Speedy Rank 3" or
// "Huge Power (Rank 1)" are accepted in YAML and parsed at load.
type Prerequisite struct {
	// Ref is the quality (or choice) id or display name as written.
	Ref     string `yaml:"quality"`
	MinRank int    `yaml:"min_rank"`
	Choice  string `yaml:"choice"`

	// QualityID is set by the registry once Ref is resolved.
	QualityID string `yaml:"-"`
	label     string
}

var rankSuffix = regexp.MustCompile(`(?i)^(.*?)\s*\(?\s*rank\s+(\d+)\s*\)?$`)

// ParsePrerequisite parses the legacy string form.
//
// Postcondition: MinRank >= 1.
func ParsePrerequisite(s string) Prerequisite {
	s = strings.TrimSpace(s)
	if m := rankSuffix.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[2])
		return Prerequisite{Ref: strings.TrimSpace(m[1]), MinRank: max(1, n)}
	}
	return Prerequisite{Ref: s, MinRank: 1}
}

// UnmarshalYAML accepts either a legacy string or a mapping.
func (p *Prerequisite) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*p = ParsePrerequisite(node.Value)
		return nil
	}
	type plain Prerequisite
	var raw plain
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*p = Prerequisite(raw)
	if p.MinRank < 1 {
		p.MinRank = 1
	}
	return nil
}

// String returns the human-readable requirement, e.g. "Speedy Rank 3".
func (p Prerequisite) String() string {
	if p.label != "" {
		return p.label
	}
	if p.MinRank > 1 {
		return fmt.Sprintf("%s Rank %d", p.Ref, p.MinRank)
	}
	return p.Ref
}

// Choice is a named sub-option of a Quality.
type Choice struct {
	ID            string         `yaml:"id"`
	Name          string         `yaml:"name"`
	DPCost        *int           `yaml:"dp_cost"`
	Effect        string         `yaml:"effect"`
	Prerequisites []Prerequisite `yaml:"prerequisites"`
}

// Template is an immutable catalogue entry.
type Template struct {
	ID                 string              `yaml:"id"`
	Name               string              `yaml:"name"`
	Type               Type                `yaml:"type"`
	Category           string              `yaml:"category"`
	Tags               []Tag               `yaml:"tags"`
	DPCost             int                 `yaml:"dp_cost"`
	MaxRanks           int                 `yaml:"max_ranks"`
	MaxRanksByStage    map[stage.Stage]int `yaml:"max_ranks_by_stage"`
	Prerequisites      []Prerequisite      `yaml:"prerequisites"`
	ExclusiveWith      []string            `yaml:"exclusive_with"`
	Choices            []Choice            `yaml:"choices"`
	StageRequirement   stage.Stage         `yaml:"stage_requirement"`
	Limited            bool                `yaml:"limited"`
	RequiresGMApproval bool                `yaml:"requires_gm_approval"`
	Description        string              `yaml:"description"`
	Effect             string              `yaml:"effect"`
}

// Choice returns the choice with id, if any.
func (t *Template) Choice(id string) (*Choice, bool) {
	for i := range t.Choices {
		if t.Choices[i].ID == id {
			return &t.Choices[i], true
		}
	}
	return nil, false
}

// HasChoices reports whether the template requires a sub-option pick.
func (t *Template) HasChoices() bool { return len(t.Choices) > 0 }

// CostFor returns the per-rank DP cost, honouring a choice override.
func (t *Template) CostFor(choiceID string) int {
	if c, ok := t.Choice(choiceID); ok && c.DPCost != nil {
		return *c.DPCost
	}
	return t.DPCost
}

// UnlockedAt reports whether s meets the template's stage requirement.
func (t *Template) UnlockedAt(s stage.Stage) bool {
	return t.StageRequirement == "" || s.AtLeast(t.StageRequirement)
}

// EffectiveMaxRanks returns the rank ceiling for t at s. Without a
// per-stage table it is MaxRanks. With one, the entry at the highest
// listed stage not above s wins, clamped to MaxRanks; when no listed
// stage is at or below s the ceiling is 0.
//
// Postcondition: 0 <= result <= t.MaxRanks, non-decreasing in s.
func EffectiveMaxRanks(t *Template, s stage.Stage) int {
	if len(t.MaxRanksByStage) == 0 {
		return t.MaxRanks
	}
	ceiling := 0
	for _, st := range stage.All() {
		if v, ok := t.MaxRanksByStage[st]; ok {
			ceiling = v
		}
		if st == s {
			break
		}
	}
	return max(0, min(ceiling, t.MaxRanks))
}
