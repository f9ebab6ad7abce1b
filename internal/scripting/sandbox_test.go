package scripting_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/digigm/internal/scripting"
)

func TestSandbox_BlocksUnsafeGlobals(t *testing.T) {
	sb := scripting.NewSandbox(context.Background(), 0)
	defer sb.Close()
	for _, name := range []string{"os", "io", "debug", "dofile", "loadfile", "load", "collectgarbage", "require"} {
		assert.Equal(t, lua.LNil, sb.L.GetGlobal(name), "%s should be unavailable", name)
	}
}

func TestSandbox_SafeLibraries(t *testing.T) {
	sb := scripting.NewSandbox(context.Background(), 0)
	defer sb.Close()
	assert.NoError(t, sb.Run(`
		assert(math.floor(7 / 2) == 3)
		assert(string.lower("GREYMON") == "greymon")
		local t = {3, 1, 2}
		table.sort(t)
		assert(t[1] == 1)
	`))
}

func TestSandbox_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sb := scripting.NewSandbox(ctx, 0)
	defer sb.Close()
	assert.Error(t, sb.Run(`local x = 1`))
}

// Property: an unbounded loop always exhausts any opcode budget.
func TestSandbox_BudgetAlwaysStopsLoop(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		limit := rapid.IntRange(1, 500).Draw(rt, "limit")
		sb := scripting.NewSandbox(context.Background(), limit)
		defer sb.Close()
		if err := sb.Run(`while true do end`); err == nil {
			rt.Fatalf("loop finished under a budget of %d", limit)
		}
	})
}

func TestEvaluate_Expressions(t *testing.T) {
	ev := scripting.NewEvaluator(0, nil)
	facts := scripting.Facts{BattlesWon: 6, XPEarned: 40, BondLevel: 3, Items: []string{"Crest of Courage"}}
	cases := map[string]bool{
		`battles_won >= 5`: true,
		`xp_earned > 100`:  false,
		`bond_level >= 3 and has_item("crest of courage")`: true,
		`has_item("Digivice")`:                             false,
		`local need = 2 * bond_level
		 return battles_won >= need`: true,
		`nil`: false,
		`0`:   true,
	}
	for script, want := range cases {
		got, err := ev.Evaluate(context.Background(), script, facts)
		require.NoError(t, err, script)
		assert.Equal(t, want, got, script)
	}
}

func TestEvaluate_Failures(t *testing.T) {
	ev := scripting.NewEvaluator(50, nil)
	for _, script := range []string{"", "battles_won >=", `error("nope")`, `(function() while true do end end)()`, `os.exit(1)`} {
		ok, err := ev.Evaluate(context.Background(), script, scripting.Facts{})
		assert.Error(t, err, script)
		assert.False(t, ok, script)
	}
}
