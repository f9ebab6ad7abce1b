package digimon_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/digigm/internal/errors"
	"github.com/cory-johannsen/digigm/internal/game/attack"
	"github.com/cory-johannsen/digigm/internal/game/derive"
	"github.com/cory-johannsen/digigm/internal/game/digimon"
	"github.com/cory-johannsen/digigm/internal/game/quality"
	"github.com/cory-johannsen/digigm/internal/game/stage"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func agumonSpec() digimon.Spec {
	return digimon.Spec{
		Name:      "Agumon",
		Species:   "Agumon",
		Stage:     stage.Rookie,
		Attribute: digimon.Vaccine,
		Family:    "dragons-roar",
		Type:      "Reptile",
		BaseStats: &derive.BaseStats{Accuracy: 3, Damage: 3, Dodge: 2, Armor: 2, Health: 3},
	}
}

func buildAgumon(t *testing.T) *digimon.Digimon {
	t.Helper()
	d, err := digimon.Build(agumonSpec(), "agumon-1", now)
	require.NoError(t, err)
	return d
}

func TestBuild_DerivesStatsAndDP(t *testing.T) {
	d := buildAgumon(t)
	assert.Equal(t, 25, d.BaseDP)
	assert.Equal(t, 5, d.DerivedStats.Agility)
	assert.Equal(t, 2, d.DerivedStats.Body)
	assert.Equal(t, 5, d.DerivedStats.WoundBoxes)
	assert.Equal(t, 3, d.DerivedStats.BIT)
	assert.Equal(t, 6, d.DerivedStats.Movement)
	assert.Equal(t, digimon.Neutral, d.CurrentStance)
	assert.Empty(t, d.Attacks)
	assert.NotNil(t, d.EvolutionPathIDs)
	assert.Equal(t, now, d.CreatedAt)
}

func TestBuild_RejectsMissingFields(t *testing.T) {
	cases := map[string]func(*digimon.Spec){
		"name":      func(s *digimon.Spec) { s.Name = "  " },
		"species":   func(s *digimon.Spec) { s.Species = "" },
		"stage":     func(s *digimon.Spec) { s.Stage = "armor" },
		"attribute": func(s *digimon.Spec) { s.Attribute = "neutral" },
		"family":    func(s *digimon.Spec) { s.Family = "royal-knights" },
		"stats":     func(s *digimon.Spec) { s.BaseStats = nil },
		"negative":  func(s *digimon.Spec) { s.BaseStats = &derive.BaseStats{Health: -1} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			spec := agumonSpec()
			mutate(&spec)
			_, err := digimon.Build(spec, "x", now)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
		})
	}
}

func TestSetStage_RefreshesDerived(t *testing.T) {
	d := buildAgumon(t)
	require.NoError(t, d.SetStage(stage.Champion))
	assert.Equal(t, 40, d.BaseDP)
	assert.Equal(t, 8, d.DerivedStats.WoundBoxes)
	assert.Equal(t, 8, d.DerivedStats.Movement)
	assert.Error(t, d.SetStage("armor"))
	assert.Equal(t, stage.Champion, d.Stage)
}

func TestSetBaseStats(t *testing.T) {
	d := buildAgumon(t)
	require.NoError(t, d.SetBaseStats(derive.BaseStats{Accuracy: 5, Dodge: 5, Health: 6}))
	assert.Equal(t, 10, d.DerivedStats.Agility)
	assert.Equal(t, 5, d.DerivedStats.RAM)
	assert.Error(t, d.SetBaseStats(derive.BaseStats{Dodge: -2}))
	assert.Equal(t, 10, d.DerivedStats.Agility)
}

func TestAddAttack_EnforcesSlots(t *testing.T) {
	d := buildAgumon(t)
	for i := 0; i < 2; i++ {
		require.NoError(t, d.AddAttack(attack.Attack{ID: fmt.Sprint(i), Name: "Claw", Range: attack.Melee, Type: attack.Damage}))
	}
	err := d.AddAttack(attack.Attack{ID: "3", Name: "Bite", Range: attack.Melee, Type: attack.Damage})
	require.Error(t, err)
	assert.Equal(t, errors.RuleAttackSlots, errors.RuleOf(err))
	assert.Len(t, d.Attacks, 2)

	assert.True(t, d.RemoveAttack("0"))
	assert.False(t, d.RemoveAttack("0"))
	assert.Len(t, d.Attacks, 1)
}

func TestAddAttack_RejectsMalformed(t *testing.T) {
	d := buildAgumon(t)
	err := d.AddAttack(attack.Attack{ID: "x", Name: "Odd", Range: "adjacent", Type: attack.Damage})
	assert.True(t, errors.IsValidation(err))
}

func TestAddAttackFromTemplate_StageGate(t *testing.T) {
	reg, err := attack.LoadDirectory("../../../content/attacks")
	require.NoError(t, err)
	d := buildAgumon(t)

	pepper, ok := reg.Get("pepper-breath")
	require.True(t, ok)
	require.NoError(t, d.AddAttackFromTemplate(pepper, "a1"))
	assert.Equal(t, "pepper-breath", d.Attacks[0].TemplateID)

	mega, ok := reg.Get("mega-flame")
	require.True(t, ok)
	err = d.AddAttackFromTemplate(mega, "a2")
	assert.Equal(t, errors.RuleStageGate, errors.RuleOf(err))
}

func TestApplyWounds_Clamps(t *testing.T) {
	d := buildAgumon(t)
	d.ApplyWounds(3)
	assert.Equal(t, 3, d.CurrentWounds)
	d.ApplyWounds(50)
	assert.Equal(t, d.DerivedStats.WoundBoxes, d.CurrentWounds)
	d.ApplyWounds(-100)
	assert.Equal(t, 0, d.CurrentWounds)
}

func TestSetStance(t *testing.T) {
	d := buildAgumon(t)
	require.NoError(t, d.SetStance(digimon.Sniper))
	assert.Equal(t, digimon.Sniper, d.CurrentStance)
	assert.Error(t, d.SetStance("reckless"))
}

func TestQualities_DataOptimizationTracked(t *testing.T) {
	reg, err := quality.LoadDirectory("../../../content/qualities")
	require.NoError(t, err)
	d := buildAgumon(t)

	require.NoError(t, d.AddQuality(reg, "data-optimization", "close-combat"))
	assert.Equal(t, "close-combat", d.DataOptimization)

	before := len(d.Qualities)
	err = d.AddQuality(reg, "no-such-quality", "")
	require.Error(t, err)
	assert.Len(t, d.Qualities, before)

	require.NoError(t, d.RemoveQuality(reg, "data-optimization"))
	assert.Empty(t, d.DataOptimization)
}

func TestCopy_IsDeepAndUnlinked(t *testing.T) {
	d := buildAgumon(t)
	require.NoError(t, d.AddAttack(attack.Attack{ID: "a", Name: "Claw", Range: attack.Melee, Type: attack.Damage, Tags: []string{"weapon"}}))
	d.EvolvesFromID = "koromon"
	d.EvolutionPathIDs = []string{"greymon"}

	later := now.Add(time.Hour)
	c := d.Copy("agumon-2", later)
	assert.Equal(t, "Copy of Agumon", c.Name)
	assert.Equal(t, "agumon-2", c.ID)
	assert.Empty(t, c.EvolvesFromID)
	assert.Empty(t, c.EvolutionPathIDs)
	assert.Equal(t, later, c.CreatedAt)

	c.Attacks[0].Tags[0] = "changed"
	assert.Equal(t, "weapon", d.Attacks[0].Tags[0])
}

func TestLinkUnlink_BothSides(t *testing.T) {
	parent := buildAgumon(t)
	child, err := digimon.Build(agumonSpec(), "greymon", now)
	require.NoError(t, err)

	prev, err := digimon.Link(parent, child)
	require.NoError(t, err)
	assert.Empty(t, prev)
	assert.Equal(t, parent.ID, child.EvolvesFromID)
	assert.Equal(t, []string{"greymon"}, parent.EvolutionPathIDs)

	_, err = digimon.Link(parent, child)
	require.NoError(t, err)
	assert.Len(t, parent.EvolutionPathIDs, 1)

	other, err := digimon.Build(agumonSpec(), "other", now)
	require.NoError(t, err)
	prev, err = digimon.Link(other, child)
	require.NoError(t, err)
	assert.Equal(t, parent.ID, prev)

	digimon.Unlink(other, child)
	assert.Empty(t, child.EvolvesFromID)
	assert.Empty(t, other.EvolutionPathIDs)

	_, err = digimon.Link(parent, parent)
	assert.True(t, errors.IsValidation(err))
}

func chain(ids ...string) map[string]*digimon.Digimon {
	out := map[string]*digimon.Digimon{}
	for _, id := range ids {
		out[id] = &digimon.Digimon{ID: id}
	}
	for i := 1; i < len(ids); i++ {
		out[ids[i]].EvolvesFromID = ids[i-1]
		out[ids[i-1]].EvolutionPathIDs = []string{ids[i]}
	}
	return out
}

func getter(m map[string]*digimon.Digimon) digimon.Getter {
	return func(id string) (*digimon.Digimon, bool) {
		d, ok := m[id]
		return d, ok
	}
}

func TestAncestorsDescendants(t *testing.T) {
	m := chain("koromon", "agumon", "greymon", "metalgreymon")
	anc := digimon.Ancestors(m["greymon"], getter(m))
	require.Len(t, anc, 2)
	assert.Equal(t, "agumon", anc[0].ID)
	assert.Equal(t, "koromon", anc[1].ID)

	desc := digimon.Descendants(m["koromon"], getter(m))
	require.Len(t, desc, 3)
	assert.Equal(t, "metalgreymon", desc[2].ID)
}

func TestAncestorsDescendants_TerminateOnCycle(t *testing.T) {
	m := chain("a", "b", "c")
	m["a"].EvolvesFromID = "c"
	m["c"].EvolutionPathIDs = []string{"a"}
	assert.Len(t, digimon.Ancestors(m["b"], getter(m)), 2)
	assert.Len(t, digimon.Descendants(m["a"], getter(m)), 2)
}

func TestFilter(t *testing.T) {
	enemy := true
	d := buildAgumon(t)
	d.PartnerID = "tai"
	assert.True(t, digimon.Filter{}.Match(d))
	assert.True(t, digimon.Filter{PartnerID: "tai", Stage: stage.Rookie}.Match(d))
	assert.False(t, digimon.Filter{IsEnemy: &enemy}.Match(d))
	assert.Equal(t, map[string]any{"partnerId": "tai", "isEnemy": true}, digimon.Filter{PartnerID: "tai", IsEnemy: &enemy}.Fields())
}

// Property: wounds stay within [0, woundBoxes] for any sequence of deltas.
func TestApplyWounds_AlwaysInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		d, err := digimon.Build(agumonSpec(), "p", now)
		if err != nil {
			rt.Fatal(err)
		}
		deltas := rapid.SliceOf(rapid.IntRange(-20, 20)).Draw(rt, "deltas")
		for _, delta := range deltas {
			d.ApplyWounds(delta)
			if d.CurrentWounds < 0 || d.CurrentWounds > d.DerivedStats.WoundBoxes {
				rt.Fatalf("wounds %d outside [0, %d]", d.CurrentWounds, d.DerivedStats.WoundBoxes)
			}
		}
	})
}
