package effect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/digigm/internal/game/effect"
)

func TestLoadDirectory(t *testing.T) {
	reg, err := effect.LoadDirectory("../../../content/effects")
	require.NoError(t, err)
	d, ok := reg.Lookup("stun")
	require.True(t, ok)
	assert.Equal(t, effect.Status, d.Category)
	d, ok = reg.Lookup("Poison")
	require.True(t, ok)
	assert.Equal(t, "poison", d.ID)
	_, ok = reg.Get("nothing")
	assert.False(t, ok)
	for _, b := range reg.ByCategory(effect.Buff) {
		assert.Equal(t, effect.Buff, b.Category)
	}
}

func TestRegister_Validates(t *testing.T) {
	reg := effect.NewRegistry()
	assert.Error(t, reg.Register(&effect.Def{ID: "x", Category: "curse", DefaultDuration: 1}))
	assert.Error(t, reg.Register(&effect.Def{ID: "x", Category: effect.Buff}))
	assert.NoError(t, reg.Register(&effect.Def{ID: "x", Name: "X", Category: effect.Buff, DefaultDuration: 1}))
	assert.Len(t, reg.All(), 1)
}

func TestSet_ApplyRefreshesDuration(t *testing.T) {
	var s effect.Set
	s, err := s.Apply(effect.Active{ID: "e1", Name: "Poison", Category: effect.Debuff, Duration: 2, Source: "p1"})
	require.NoError(t, err)
	s, err = s.Apply(effect.Active{ID: "e2", Name: "Poison", Category: effect.Debuff, Duration: 3, Source: "p1"})
	require.NoError(t, err)
	require.Len(t, s, 1)
	assert.Equal(t, 3, s[0].Duration)

	s, err = s.Apply(effect.Active{ID: "e3", Name: "Poison", Category: effect.Debuff, Duration: 1, Source: "p2"})
	require.NoError(t, err)
	assert.Len(t, s, 2)

	_, err = s.Apply(effect.Active{ID: "e4", Name: "Haste", Category: effect.Buff, Duration: 0})
	assert.Error(t, err)
}

func TestSet_TickDropsAtZero(t *testing.T) {
	s := effect.Set{
		{ID: "a", Name: "A", Category: effect.Buff, Duration: 1},
		{ID: "b", Name: "B", Category: effect.Buff, Duration: 2},
	}
	s, expired := s.Tick()
	require.Len(t, expired, 1)
	assert.Equal(t, "a", expired[0].ID)
	require.Len(t, s, 1)
	assert.Equal(t, 1, s[0].Duration)

	s, expired = s.Tick()
	assert.Empty(t, s)
	assert.Len(t, expired, 1)
}

func TestSet_Remove(t *testing.T) {
	s := effect.Set{{ID: "a"}, {ID: "b"}}
	assert.Equal(t, effect.Set{{ID: "b"}}, s.Remove("a"))
	assert.Len(t, s.Remove("zzz"), 2)
}

func TestPropertyTick_RemovesExactlyAfterDurationTicks(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		d := rapid.IntRange(1, 10).Draw(rt, "duration")
		s := effect.Set{{ID: "x", Name: "X", Category: effect.Status, Duration: d}}
		for i := 1; i < d; i++ {
			s, _ = s.Tick()
			if len(s) != 1 {
				rt.Fatalf("effect dropped after %d of %d ticks", i, d)
			}
		}
		s, _ = s.Tick()
		if len(s) != 0 {
			rt.Fatalf("effect survived %d ticks", d)
		}
	})
}
