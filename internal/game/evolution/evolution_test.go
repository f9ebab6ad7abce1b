package evolution_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/digigm/internal/errors"
	"github.com/cory-johannsen/digigm/internal/game/evolution"
	"github.com/cory-johannsen/digigm/internal/game/stage"
	"github.com/cory-johannsen/digigm/internal/scripting"
)

var (
	ctx = context.Background()
	now = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
)

func val(n int) *int { return &n }

func agumonLine(t testing.TB, next *evolution.Requirement) *evolution.Line {
	l, err := evolution.New(evolution.Spec{
		Name: "Agumon line",
		Chain: []evolution.Slot{
			{Stage: stage.Rookie, Species: "Agumon"},
			{Stage: stage.Champion, Species: "Greymon", Requirements: next},
			{Stage: stage.Ultimate, Species: "MetalGreymon"},
		},
	}, "line-1", now)
	require.NoError(t, err)
	return l
}

func luaCheck() evolution.SpecialCheck {
	ev := scripting.NewEvaluator(1000, nil)
	return func(ctx context.Context, script string, p evolution.Progress) (bool, error) {
		return ev.Evaluate(ctx, script, scripting.Facts{
			BattlesWon: p.BattlesWon, XPEarned: p.XPEarned, BondLevel: p.BondLevel, Items: p.ItemsCollected,
		})
	}
}

func TestNew_Validation(t *testing.T) {
	cases := map[string]evolution.Spec{
		"name":    {Chain: []evolution.Slot{{Stage: stage.Rookie, Species: "Agumon"}}},
		"empty":   {Name: "x"},
		"stage":   {Name: "x", Chain: []evolution.Slot{{Stage: "armor", Species: "Flamedramon"}}},
		"species": {Name: "x", Chain: []evolution.Slot{{Stage: stage.Rookie}}},
		"order": {Name: "x", Chain: []evolution.Slot{
			{Stage: stage.Champion, Species: "Greymon"}, {Stage: stage.Rookie, Species: "Agumon"},
		}},
		"item": {Name: "x", Chain: []evolution.Slot{
			{Stage: stage.Rookie, Species: "Agumon", Requirements: &evolution.Requirement{Type: evolution.Item}},
		}},
		"type": {Name: "x", Chain: []evolution.Slot{
			{Stage: stage.Rookie, Species: "Agumon", Requirements: &evolution.Requirement{Type: "luck"}},
		}},
	}
	for name, spec := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := evolution.New(spec, "id", now)
			assert.True(t, errors.IsValidation(err), "got %v", err)
		})
	}
}

func TestEvolve_Battles(t *testing.T) {
	l := agumonLine(t, &evolution.Requirement{Type: evolution.Battles, Value: val(5)})
	require.NoError(t, l.AddBattlesWon(3))

	err := l.Evolve(ctx, nil)
	require.Error(t, err)
	assert.Equal(t, errors.RuleEvolutionRequirement, errors.RuleOf(err))
	assert.Contains(t, err.Error(), "Need 5 battles won (have 3)")
	assert.Equal(t, 0, l.CurrentStageIndex)

	v := l.CanEvolve(ctx, nil)
	assert.False(t, v.CanEvolve)
	assert.Equal(t, "Need 5 battles won (have 3)", v.Reason)

	require.NoError(t, l.AddBattlesWon(2))
	assert.Equal(t, evolution.Verdict{CanEvolve: true, Reason: evolution.ReasonReady}, l.CanEvolve(ctx, nil))
	require.NoError(t, l.Evolve(ctx, nil))
	cur, _ := l.CurrentStage()
	assert.Equal(t, "Greymon", cur.Species)
}

func TestEvolve_Messages(t *testing.T) {
	cases := []struct {
		req  evolution.Requirement
		want string
	}{
		{evolution.Requirement{Type: evolution.XP, Value: val(50)}, "Need 50 XP (have 0)"},
		{evolution.Requirement{Type: evolution.Bond, Value: val(2)}, "Need bond level 2 (have 0)"},
		{evolution.Requirement{Type: evolution.Item, ItemName: "Crest of Courage"}, "Need item: Crest of Courage"},
		{evolution.Requirement{Type: evolution.Special, Description: "Witness a miracle"}, "Witness a miracle"},
		{evolution.Requirement{Type: evolution.Special}, "Special requirement not met"},
	}
	for _, c := range cases {
		l := agumonLine(t, &c.req)
		v := l.CanEvolve(ctx, luaCheck())
		assert.False(t, v.CanEvolve)
		assert.Equal(t, c.want, v.Reason)
	}
}

func TestEvolve_ItemAndNilValue(t *testing.T) {
	l := agumonLine(t, &evolution.Requirement{Type: evolution.Item, ItemName: "Crest of Courage"})
	require.NoError(t, l.CollectItem("Crest of Courage"))
	require.NoError(t, l.CollectItem("Crest of Courage"))
	assert.Len(t, l.EvolutionProgress.ItemsCollected, 1)
	require.NoError(t, l.Evolve(ctx, nil))

	open := agumonLine(t, &evolution.Requirement{Type: evolution.XP})
	assert.True(t, open.CanEvolve(ctx, nil).CanEvolve)
}

func TestEvolve_SpecialScript(t *testing.T) {
	l := agumonLine(t, &evolution.Requirement{
		Type:        evolution.Special,
		Description: "Bond 3 and the crest",
		Script:      `bond_level >= 3 and has_item("Crest of Courage")`,
	})
	assert.Error(t, l.Evolve(ctx, luaCheck()))
	l.IncreaseBond(3)
	require.NoError(t, l.CollectItem("Crest of Courage"))
	assert.Error(t, l.Evolve(ctx, nil), "no evaluator means special is never automatic")
	require.NoError(t, l.Evolve(ctx, luaCheck()))
}

func TestEvolve_SpecialScriptErrorIsViolation(t *testing.T) {
	l := agumonLine(t, &evolution.Requirement{Type: evolution.Special, Script: `error("boom")`})
	err := l.Evolve(ctx, luaCheck())
	assert.True(t, errors.IsRuleViolation(err))
}

func TestEvolve_MaxAndDevolveMin(t *testing.T) {
	l := agumonLine(t, nil)
	require.NoError(t, l.Evolve(ctx, nil))
	require.NoError(t, l.Evolve(ctx, nil))
	err := l.Evolve(ctx, nil)
	assert.Equal(t, errors.RuleMaxStage, errors.RuleOf(err))
	assert.Contains(t, err.Error(), "Already at maximum evolution stage")
	assert.Equal(t, evolution.Verdict{Reason: evolution.ReasonMaximum}, l.CanEvolve(ctx, nil))
	assert.Error(t, l.ForceEvolve())
	_, ok := l.NextStage()
	assert.False(t, ok)

	require.NoError(t, l.Devolve())
	require.NoError(t, l.Devolve())
	err = l.Devolve()
	assert.Equal(t, errors.RuleMinStage, errors.RuleOf(err))
	assert.Contains(t, err.Error(), "Already at minimum evolution stage")
}

func TestForceEvolve_IgnoresRequirement(t *testing.T) {
	l := agumonLine(t, &evolution.Requirement{Type: evolution.Special})
	require.NoError(t, l.ForceEvolve())
	assert.Equal(t, 1, l.CurrentStageIndex)
}

func TestProgress(t *testing.T) {
	l := agumonLine(t, nil)
	assert.Error(t, l.AddBattlesWon(-1))
	assert.Error(t, l.AddXP(-1))
	assert.Error(t, l.CollectItem(""))
	require.NoError(t, l.AddXP(20))
	l.IncreaseBond(-5)
	assert.Equal(t, 0, l.EvolutionProgress.BondLevel)
	assert.Equal(t, 20, l.EvolutionProgress.XPEarned)
}

func TestFilter(t *testing.T) {
	l := agumonLine(t, nil)
	l.PartnerID = "tai"
	assert.True(t, evolution.Filter{PartnerID: "tai"}.Match(l))
	assert.False(t, evolution.Filter{PartnerID: "matt"}.Match(l))
}

// Property: CanEvolve agrees with Evolve on an identical copy.
func TestCanEvolve_AgreesWithEvolve(t *testing.T) {
	check := luaCheck()
	rapid.Check(t, func(rt *rapid.T) {
		kind := rapid.SampledFrom([]evolution.RequirementType{
			evolution.Battles, evolution.XP, evolution.Bond, evolution.Item, evolution.Special,
		}).Draw(rt, "kind")
		threshold := rapid.IntRange(0, 10).Draw(rt, "threshold")
		req := &evolution.Requirement{Type: kind, Value: val(threshold), ItemName: "Tag",
			Script: fmt.Sprintf("battles_won + bond_level >= %d", threshold)}
		if rapid.Bool().Draw(rt, "noRequirement") {
			req = nil
		}
		l := agumonLine(t, req)
		l.CurrentStageIndex = rapid.IntRange(0, 2).Draw(rt, "index")
		_ = l.AddBattlesWon(rapid.IntRange(0, 10).Draw(rt, "battles"))
		_ = l.AddXP(rapid.IntRange(0, 10).Draw(rt, "xp"))
		l.IncreaseBond(rapid.IntRange(0, 10).Draw(rt, "bond"))
		if rapid.Bool().Draw(rt, "hasItem") {
			_ = l.CollectItem("Tag")
		}

		copyLine := *l
		verdict := l.CanEvolve(ctx, check)
		err := copyLine.Evolve(ctx, check)
		if verdict.CanEvolve != (err == nil) {
			rt.Fatalf("canEvolve=%v but evolve err=%v", verdict.CanEvolve, err)
		}
	})
}
