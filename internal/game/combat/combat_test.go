package combat_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/digigm/internal/errors"
	"github.com/cory-johannsen/digigm/internal/game/combat"
	"github.com/cory-johannsen/digigm/internal/game/dice"
	"github.com/cory-johannsen/digigm/internal/game/digimon"
	"github.com/cory-johannsen/digigm/internal/game/effect"
	"github.com/cory-johannsen/digigm/internal/game/hazard"
)

var now = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func participant(t testing.TB, id string, initiative int) *combat.Participant {
	p, err := combat.NewParticipant(id, combat.KindDigimon, "ent-"+id, combat.Initiative{Roll: initiative, Total: initiative}, 0, combat.DefaultBudget)
	require.NoError(t, err)
	return p
}

func newEncounter(t testing.TB, inits ...int) *combat.Encounter {
	e, err := combat.NewEncounter("enc-1", "Ambush", "", now)
	require.NoError(t, err)
	for i, init := range inits {
		require.NoError(t, e.AddParticipant(participant(t, fmt.Sprintf("p%d", i+1), init)))
	}
	return e
}

func TestRollInitiative_MaxFaces(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		agility := rapid.IntRange(0, 50).Draw(rt, "agility")
		got := combat.RollInitiative(agility, dice.NewFixedSource(6))
		if got.Roll != 18 || got.Total != 18+agility {
			rt.Fatalf("got %+v for agility %d", got, agility)
		}
	})
}

func TestRollInitiative_Range(t *testing.T) {
	src := dice.NewSeededSource(7)
	for i := 0; i < 200; i++ {
		got := combat.RollInitiative(3, src)
		assert.GreaterOrEqual(t, got.Roll, 3)
		assert.LessOrEqual(t, got.Roll, 18)
		assert.Equal(t, got.Roll+3, got.Total)
	}
}

func TestNewParticipant(t *testing.T) {
	p := participant(t, "a", 12)
	assert.Equal(t, combat.DefaultBudget, p.ActionsRemaining)
	assert.Equal(t, digimon.Neutral, p.CurrentStance)
	assert.Equal(t, combat.DefaultMaxWounds, p.MaxWounds)
	assert.Empty(t, p.ActiveEffects)

	_, err := combat.NewParticipant("x", "npc", "e", combat.Initiative{}, 0, combat.DefaultBudget)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, "tamer-tai-7", combat.ParticipantID(combat.KindTamer, "tai", "7"))
}

func TestTurnOrder_Scenario(t *testing.T) {
	e := newEncounter(t, 10, 15, 8)
	assert.Equal(t, []string{"p2", "p1", "p3"}, e.TurnOrder)

	require.NoError(t, e.StartCombat(context.Background()))
	assert.Equal(t, 1, e.Round)
	cur, ok := e.CurrentParticipant()
	require.True(t, ok)
	assert.Equal(t, "p2", cur.ID)

	for i := 0; i < 3; i++ {
		_, ok := e.NextTurn(combat.DefaultBudget)
		require.True(t, ok)
	}
	assert.Equal(t, 0, e.CurrentTurnIndex)
	assert.Equal(t, 2, e.Round)
}

func TestTurnOrder_TiesKeepInsertionOrder(t *testing.T) {
	e := newEncounter(t, 10, 12, 10, 10)
	assert.Equal(t, []string{"p2", "p1", "p3", "p4"}, e.TurnOrder)
}

func TestNextTurn_MarksActors(t *testing.T) {
	e := newEncounter(t, 10, 15, 8)
	require.NoError(t, e.StartCombat(context.Background()))
	e.NextTurn(combat.DefaultBudget)

	p2, _ := e.Participant("p2")
	p1, _ := e.Participant("p1")
	assert.True(t, p2.HasActed)
	assert.False(t, p2.IsActive)
	assert.True(t, p1.IsActive)
}

func TestNextTurn_WraparoundResetsBudgets(t *testing.T) {
	e := newEncounter(t, 10, 15)
	require.NoError(t, e.StartCombat(context.Background()))
	_, err := e.SpendAction("p2", combat.ComplexAction)
	require.NoError(t, err)
	_, err = e.SpendAction("p2", combat.ComplexAction)
	assert.True(t, errors.IsValidation(err))

	e.NextTurn(combat.DefaultBudget)
	p2, _ := e.Participant("p2")
	assert.Equal(t, 0, p2.ActionsRemaining.Complex)

	e.NextTurn(combat.DefaultBudget)
	assert.Equal(t, combat.DefaultBudget, p2.ActionsRemaining)
	assert.False(t, p2.HasActed)
	assert.True(t, p2.IsActive)
}

func TestNextTurn_OutsideCombatIsNoop(t *testing.T) {
	e := newEncounter(t, 10, 15)
	_, ok := e.NextTurn(combat.DefaultBudget)
	assert.False(t, ok)
	assert.Equal(t, 0, e.CurrentTurnIndex)

	empty := newEncounter(t)
	require.NoError(t, empty.StartCombat(context.Background()))
	_, ok = empty.NextTurn(combat.DefaultBudget)
	assert.False(t, ok)
}

func TestEffectAging_DurationOneExpiresOnNextWrap(t *testing.T) {
	e := newEncounter(t, 15, 10, 8)
	require.NoError(t, e.StartCombat(context.Background()))
	e.NextTurn(combat.DefaultBudget)

	ok, err := e.ApplyEffect("p3", effect.Active{ID: "fx1", Name: "Stun", Category: effect.Status, Duration: 1})
	require.NoError(t, err)
	require.True(t, ok)

	e.NextTurn(combat.DefaultBudget)
	p3, _ := e.Participant("p3")
	assert.True(t, p3.ActiveEffects.Has("Stun"), "must survive until the round wraps")

	expired, _ := e.NextTurn(combat.DefaultBudget)
	assert.False(t, p3.ActiveEffects.Has("Stun"))
	require.Len(t, expired["p3"], 1)
	assert.Equal(t, "fx1", expired["p3"][0].ID)
}

func TestRemoveParticipant_CursorHandling(t *testing.T) {
	e := newEncounter(t, 15, 10, 8)
	require.NoError(t, e.StartCombat(context.Background()))
	e.NextTurn(combat.DefaultBudget)
	e.NextTurn(combat.DefaultBudget)
	require.Equal(t, 2, e.CurrentTurnIndex)

	assert.True(t, e.RemoveParticipant("p1"))
	cur, ok := e.CurrentParticipant()
	require.True(t, ok)
	assert.Equal(t, "p3", cur.ID)
	assert.Equal(t, []string{"p2", "p3"}, e.TurnOrder)

	assert.True(t, e.RemoveParticipant("p3"))
	assert.Equal(t, 0, e.CurrentTurnIndex)
	assert.False(t, e.RemoveParticipant("missing"))

	assert.True(t, e.RemoveParticipant("p2"))
	assert.Equal(t, 0, e.CurrentTurnIndex)
	_, ok = e.CurrentParticipant()
	assert.False(t, ok)
}

func TestRemoveParticipant_CurrentActorHandsOver(t *testing.T) {
	e := newEncounter(t, 15, 10, 8)
	require.NoError(t, e.StartCombat(context.Background()))
	e.NextTurn(combat.DefaultBudget)
	cur, _ := e.CurrentParticipant()
	require.Equal(t, "p2", cur.ID)
	require.True(t, cur.IsActive)

	assert.True(t, e.RemoveParticipant("p2"))
	cur, ok := e.CurrentParticipant()
	require.True(t, ok)
	assert.Equal(t, "p3", cur.ID)
	assert.True(t, cur.IsActive)
	first, _ := e.Participant("p1")
	assert.False(t, first.IsActive)
}

func TestRemoveParticipant_OutsideCombatLeavesFlags(t *testing.T) {
	e := newEncounter(t, 15, 10)
	assert.True(t, e.RemoveParticipant("p1"))
	p, _ := e.Participant("p2")
	assert.False(t, p.IsActive)
}

func TestAddParticipant_DuringCombatKeepsCurrentActor(t *testing.T) {
	e := newEncounter(t, 15, 10)
	require.NoError(t, e.StartCombat(context.Background()))
	e.NextTurn(combat.DefaultBudget)
	require.NoError(t, e.AddParticipant(participant(t, "late", 20)))
	cur, _ := e.CurrentParticipant()
	assert.Equal(t, "p2", cur.ID)
	assert.Equal(t, []string{"late", "p1", "p2"}, e.TurnOrder)

	assert.True(t, errors.IsValidation(e.AddParticipant(participant(t, "late", 1))))
}

func TestPhaseTransitions(t *testing.T) {
	ctx := context.Background()
	e := newEncounter(t, 10)
	assert.True(t, combat.CanTransition(combat.PhaseSetup, combat.EventRollInitiative))
	require.NoError(t, e.RollInitiative(ctx))
	assert.Equal(t, combat.PhaseInitiative, e.Phase)
	require.NoError(t, e.StartCombat(ctx))
	assert.Equal(t, combat.PhaseCombat, e.Phase)

	err := e.RollInitiative(ctx)
	assert.Equal(t, errors.RuleIllegalTransition, errors.RuleOf(err))

	require.NoError(t, e.EndCombat(ctx))
	assert.Equal(t, combat.PhaseEnded, e.Phase)
	assert.Error(t, e.StartCombat(ctx))
	assert.Error(t, e.EndCombat(ctx))
	assert.False(t, combat.CanTransition(combat.PhaseEnded, combat.EventStartCombat))

	_, ok := e.NextTurn(combat.DefaultBudget)
	assert.False(t, ok)
}

func TestBattleLog_AppendOnly(t *testing.T) {
	e := newEncounter(t, 10)
	require.NoError(t, e.StartCombat(context.Background()))
	dmg := 3
	first := e.AppendLog(combat.LogEntry{ActorID: "p1", Action: "Pepper Breath", Damage: &dmg}, "log-1", now)
	assert.Equal(t, 1, first.Round)
	assert.Equal(t, now, first.Timestamp)
	assert.NotNil(t, first.Effects)
	e.AppendLog(combat.LogEntry{ActorID: "p1", Action: "Guard", Round: 4}, "log-2", now.Add(time.Second))
	require.Len(t, e.BattleLog, 2)
	assert.Equal(t, "log-1", e.BattleLog[0].ID)
	assert.Equal(t, 4, e.BattleLog[1].Round)
}

func dur(n int) *int { return &n }

func TestHazards(t *testing.T) {
	e := newEncounter(t)
	require.NoError(t, e.AddHazard(hazard.Hazard{ID: "h1", Name: "Fog", Duration: dur(1)}))
	require.NoError(t, e.AddHazard(hazard.Hazard{ID: "h2", Name: "Lava", Duration: dur(2)}))
	require.NoError(t, e.AddHazard(hazard.Hazard{ID: "h3", Name: "Firewall"}))
	assert.Error(t, e.AddHazard(hazard.Hazard{ID: "h3", Name: "Again"}))

	ok, err := e.UpdateHazard(hazard.Hazard{ID: "h2", Name: "Lava Flow", Duration: dur(3)})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = e.UpdateHazard(hazard.Hazard{ID: "h9", Name: "Nope"})
	require.NoError(t, err)
	assert.False(t, ok)

	expired := e.DecrementHazardDurations()
	require.Len(t, expired, 1)
	assert.Equal(t, "h1", expired[0].ID)
	require.Len(t, e.Hazards, 2)
	assert.Equal(t, 2, *e.Hazards[0].Duration)
	assert.Nil(t, e.Hazards[1].Duration)

	assert.True(t, e.RemoveHazard("h2"))
	assert.False(t, e.RemoveHazard("h2"))
}

func TestHazards_NotTickedByNextTurn(t *testing.T) {
	e := newEncounter(t, 10)
	require.NoError(t, e.AddHazard(hazard.Hazard{ID: "h1", Name: "Fog", Duration: dur(1)}))
	require.NoError(t, e.StartCombat(context.Background()))
	e.NextTurn(combat.DefaultBudget)
	assert.Len(t, e.Hazards, 1)
}

func TestParticipantMutations(t *testing.T) {
	e := newEncounter(t, 10)
	ok, err := e.SetStance("p1", digimon.Brave)
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = e.SetStance("p1", "reckless")
	assert.Error(t, err)
	ok, err = e.SetStance("ghost", digimon.Brave)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, e.ApplyWounds("p1", 9))
	p1, _ := e.Participant("p1")
	assert.Equal(t, 5, p1.CurrentWounds)
	assert.True(t, p1.Defeated())
	e.ApplyWounds("p1", -7)
	assert.Equal(t, 0, p1.CurrentWounds)
	assert.False(t, e.ApplyWounds("ghost", 1))

	_, err = e.ApplyEffect("p1", effect.Active{ID: "x", Name: "Bad", Category: effect.Buff, Duration: 0})
	assert.Error(t, err)
	_, err = e.ApplyEffect("p1", effect.Active{ID: "fx", Name: "Guard Up", Category: effect.Buff, Duration: 2})
	require.NoError(t, err)
	assert.True(t, e.RemoveEffect("p1", "fx"))
	assert.False(t, e.RemoveEffect("p1", "fx"))
}

// Property: |turnOrder| NextTurn calls return the cursor to its start and
// add exactly one round.
func TestNextTurn_FullCycle(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		inits := rapid.SliceOfN(rapid.IntRange(3, 30), 1, 8).Draw(rt, "inits")
		e := newEncounter(t, inits...)
		if err := e.StartCombat(context.Background()); err != nil {
			rt.Fatal(err)
		}
		warmup := rapid.IntRange(0, 20).Draw(rt, "warmup")
		for i := 0; i < warmup; i++ {
			e.NextTurn(combat.DefaultBudget)
		}
		cursor, round := e.CurrentTurnIndex, e.Round
		for range e.TurnOrder {
			e.NextTurn(combat.DefaultBudget)
		}
		if e.CurrentTurnIndex != cursor || e.Round != round+1 {
			rt.Fatalf("cursor %d->%d round %d->%d", cursor, e.CurrentTurnIndex, round, e.Round)
		}
	})
}

// Property: an effect of duration d survives exactly d wraparounds.
func TestEffectAging_ExactRounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 5).Draw(rt, "participants")
		d := rapid.IntRange(1, 4).Draw(rt, "duration")
		inits := make([]int, n)
		for i := range inits {
			inits[i] = 10 + i
		}
		e := newEncounter(t, inits...)
		if err := e.StartCombat(context.Background()); err != nil {
			rt.Fatal(err)
		}
		target := e.TurnOrder[n-1]
		if _, err := e.ApplyEffect(target, effect.Active{ID: "fx", Name: "Poison", Category: effect.Debuff, Duration: d}); err != nil {
			rt.Fatal(err)
		}
		p, _ := e.Participant(target)
		wraps := 0
		for wraps < d {
			before := e.Round
			if !p.ActiveEffects.Has("Poison") {
				rt.Fatalf("expired after %d wraps, want %d", wraps, d)
			}
			e.NextTurn(combat.DefaultBudget)
			if e.Round != before {
				wraps++
			}
		}
		if p.ActiveEffects.Has("Poison") {
			rt.Fatalf("still present after %d wraps", d)
		}
	})
}
