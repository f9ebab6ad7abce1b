package stage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/digigm/internal/game/stage"
)

func TestAll_AscendingOrder(t *testing.T) {
	all := stage.All()
	require.Len(t, all, 7)
	assert.Equal(t, stage.Fresh, all[0])
	assert.Equal(t, stage.Ultra, all[6])
	for i, s := range all {
		assert.Equal(t, i, s.Index())
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	all := stage.All()
	all[0] = stage.Ultra
	assert.Equal(t, stage.Fresh, stage.All()[0])
}

func TestParse(t *testing.T) {
	s, err := stage.Parse(" Champion ")
	require.NoError(t, err)
	assert.Equal(t, stage.Champion, s)

	_, err = stage.Parse("armor")
	assert.Error(t, err)
}

func TestConfigFor_KnownValues(t *testing.T) {
	cfg, ok := stage.ConfigFor(stage.Rookie)
	require.True(t, ok)
	assert.Equal(t, 25, cfg.DP)
	assert.Equal(t, 6, cfg.Movement)
	assert.Equal(t, 2, cfg.WoundBonus)
	assert.Equal(t, 3, cfg.Brains)
	assert.Equal(t, 2, cfg.Attacks)
	assert.Equal(t, 1, cfg.StageBonus)

	_, ok = stage.ConfigFor("armor")
	assert.False(t, ok)
}

func TestMustConfig_PanicsOnUnknown(t *testing.T) {
	assert.Panics(t, func() { stage.MustConfig("armor") })
}

func TestNextPrevious_Boundaries(t *testing.T) {
	_, ok := stage.Next(stage.Ultra)
	assert.False(t, ok)
	_, ok = stage.Previous(stage.Fresh)
	assert.False(t, ok)

	n, ok := stage.Next(stage.Rookie)
	require.True(t, ok)
	assert.Equal(t, stage.Champion, n)
	p, ok := stage.Previous(stage.Rookie)
	require.True(t, ok)
	assert.Equal(t, stage.InTraining, p)
}

func TestNegativeDPLimit(t *testing.T) {
	assert.Equal(t, 0, stage.NegativeDPLimit(stage.InTraining))
	assert.Equal(t, 3, stage.NegativeDPLimit(stage.Ultimate))
}

func TestPropertyConfig_MonotonicByStage(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		all := stage.All()
		i := rapid.IntRange(0, len(all)-2).Draw(rt, "i")
		lo := stage.MustConfig(all[i])
		hi := stage.MustConfig(all[i+1])
		if hi.DP <= lo.DP || hi.Movement <= lo.Movement || hi.Brains < lo.Brains {
			rt.Fatalf("stage constants must grow from %s to %s", all[i], all[i+1])
		}
		if stage.Compare(all[i], all[i+1]) != -1 || !all[i+1].AtLeast(all[i]) {
			rt.Fatalf("ordering broken between %s and %s", all[i], all[i+1])
		}
	})
}
