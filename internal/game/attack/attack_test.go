package attack_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/digigm/internal/game/attack"
	"github.com/cory-johannsen/digigm/internal/game/stage"
)

func load(t *testing.T) *attack.Registry {
	t.Helper()
	reg, err := attack.LoadDirectory("../../../content/attacks")
	require.NoError(t, err)
	return reg
}

func TestForStage_IncludesAny(t *testing.T) {
	reg := load(t)
	var ids []string
	for _, a := range reg.ForStage(stage.Rookie) {
		ids = append(ids, a.ID)
		assert.True(t, a.Stage == attack.AnyStage || a.Stage == "rookie")
	}
	assert.Contains(t, ids, "pepper-breath")
	assert.Contains(t, ids, "basic-attack")
	assert.NotContains(t, ids, "mega-flame")
}

func TestSearch_CaseInsensitiveAcrossFields(t *testing.T) {
	reg := load(t)
	byTag := reg.Search("certain strike")
	require.Len(t, byTag, 2)
	bySpecies := reg.Search("AGUMON")
	assert.Len(t, bySpecies, 2)
	byEffect := reg.Search("cleanse")
	require.Len(t, byEffect, 1)
	assert.Equal(t, "heavens-charm", byEffect[0].ID)
	assert.Empty(t, reg.Search(""))
}

func TestGet_NotFound(t *testing.T) {
	reg := load(t)
	_, ok := reg.Get("nope")
	assert.False(t, ok)
	tpl, ok := reg.Get("horn-attack")
	require.True(t, ok)
	assert.Equal(t, attack.Melee, tpl.Range)
}

func TestInstantiate_CopiesTags(t *testing.T) {
	reg := load(t)
	tpl, _ := reg.Get("trident-arm")
	a := attack.Instantiate(tpl, "atk-1")
	a.Tags[0] = "Weapon I"
	assert.Equal(t, "Weapon III", tpl.Tags[0])
	assert.Equal(t, "trident-arm", a.TemplateID)
	assert.NoError(t, a.Validate())
}

func TestFiltersAndTags(t *testing.T) {
	reg := load(t)
	for _, a := range reg.ByType(attack.Support) {
		assert.Equal(t, attack.Support, a.Type)
	}
	for _, a := range reg.ByRange(attack.Melee) {
		assert.Equal(t, attack.Melee, a.Range)
	}
	assert.Contains(t, reg.Tags(), "Ammo")
}

func TestNewRegistry_RejectsBadEntries(t *testing.T) {
	_, err := attack.NewRegistry([]*attack.Template{
		{ID: "a", Name: "A", Range: "thrown", Type: attack.Damage, Stage: "any"},
		{ID: "b", Name: "B", Range: attack.Melee, Type: attack.Damage, Stage: "armor"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `attack "a": range must be melee or ranged`)
	assert.Contains(t, err.Error(), `attack "b": unknown stage`)
}

func TestNewRegistry_NamesEntriesByID(t *testing.T) {
	_, err := attack.NewRegistry([]*attack.Template{
		{ID: "bad-type", Name: "Odd Beam", Range: attack.Ranged, Type: "healing", Stage: "any"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `attack "bad-type": type must be damage or support`)
	assert.NotContains(t, err.Error(), "Odd Beam")
}

func TestValidate_NamesAttack(t *testing.T) {
	err := attack.Attack{Name: "Claw", Range: "thrown", Type: attack.Damage}.Validate()
	require.Error(t, err)
	assert.Equal(t, `attack "Claw": range must be melee or ranged`, err.Error())
	assert.Error(t, attack.Attack{Name: " ", Range: attack.Melee, Type: attack.Damage}.Validate())
}
