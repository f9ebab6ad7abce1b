package tamer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/digigm/internal/errors"
	"github.com/cory-johannsen/digigm/internal/game/derive"
	"github.com/cory-johannsen/digigm/internal/game/tamer"
)

var now = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func taiSpec() tamer.Spec {
	return tamer.Spec{
		Name:          "Tai",
		Age:           11,
		CampaignLevel: tamer.Standard,
		Attributes:    &derive.Attributes{Agility: 3, Body: 2, Charisma: 2, Intelligence: 1, Willpower: 3},
		Skills:        &derive.Skills{Fight: 2, Dodge: 1, Endurance: 1, Survival: 2},
	}
}

func TestBuild_DerivedAndInspiration(t *testing.T) {
	tm, err := tamer.Build(taiSpec(), "tai", now)
	require.NoError(t, err)
	assert.Equal(t, 3, tm.DerivedStats.WoundBoxes)
	assert.Equal(t, 5, tm.DerivedStats.Speed)
	assert.Equal(t, 5, tm.DerivedStats.AccuracyPool)
	assert.Equal(t, 4, tm.DerivedStats.DodgePool)
	assert.Equal(t, 4, tm.DerivedStats.Damage)
	assert.Equal(t, 3, tm.MaxInspiration)
	assert.Equal(t, 3, tm.Inspiration)
	assert.NotNil(t, tm.PartnerDigimonIDs)
}

func TestBuild_Validation(t *testing.T) {
	cases := map[string]func(*tamer.Spec){
		"name":   func(s *tamer.Spec) { s.Name = "" },
		"age":    func(s *tamer.Spec) { s.Age = 0 },
		"level":  func(s *tamer.Spec) { s.CampaignLevel = "legendary" },
		"attrs":  func(s *tamer.Spec) { s.Attributes = nil },
		"skills": func(s *tamer.Spec) { s.Skills = nil },
		"aspect": func(s *tamer.Spec) { s.Aspects = []tamer.Aspect{{Name: "Brave", Type: "epic"}} },
		"torment": func(s *tamer.Spec) {
			s.Torments = []tamer.Torment{{Name: "Fear", Severity: tamer.MinorTorment, TotalBoxes: 7}}
		},
		"overmark": func(s *tamer.Spec) {
			s.Torments = []tamer.Torment{{Name: "Fear", Severity: tamer.MinorTorment, TotalBoxes: 5, MarkedBoxes: 6}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			spec := taiSpec()
			mutate(&spec)
			_, err := tamer.Build(spec, "x", now)
			assert.True(t, errors.IsValidation(err), "got %v", err)
		})
	}
}

func TestSeverity_Boxes(t *testing.T) {
	assert.Equal(t, 5, tamer.MinorTorment.Boxes())
	assert.Equal(t, 7, tamer.MajorTorment.Boxes())
	assert.Equal(t, 10, tamer.TerribleTorment.Boxes())
	assert.Equal(t, 0, tamer.Severity("mild").Boxes())
}

func TestAspects_UseAndRest(t *testing.T) {
	tm, err := tamer.Build(taiSpec(), "tai", now)
	require.NoError(t, err)
	require.NoError(t, tm.AddAspect(tamer.Aspect{ID: "a1", Name: "Goggle Head", Type: tamer.Minor}))
	require.NoError(t, tm.UseAspect("a1"))
	require.NoError(t, tm.UseAspect("a1"))
	assert.True(t, errors.IsValidation(tm.UseAspect("a1")))
	assert.True(t, errors.IsNotFound(tm.UseAspect("nope")))

	require.NoError(t, tm.SpendInspiration(2))
	tm.Rest()
	assert.Equal(t, 2, tm.Aspects[0].UsesRemaining)
	assert.Equal(t, tm.MaxInspiration, tm.Inspiration)
}

func TestTorments_Mark(t *testing.T) {
	tm, err := tamer.Build(taiSpec(), "tai", now)
	require.NoError(t, err)
	require.NoError(t, tm.AddTorment(tamer.Torment{ID: "t1", Name: "Lost Sister", Severity: tamer.MajorTorment}))
	assert.Equal(t, 7, tm.Torments[0].TotalBoxes)

	done, err := tm.MarkTorment("t1", 3)
	require.NoError(t, err)
	assert.False(t, done)
	done, err = tm.MarkTorment("t1", 10)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 7, tm.Torments[0].MarkedBoxes)

	_, err = tm.MarkTorment("t9", 1)
	assert.True(t, errors.IsNotFound(err))
}

func TestInspiration(t *testing.T) {
	tm, err := tamer.Build(taiSpec(), "tai", now)
	require.NoError(t, err)
	assert.Error(t, tm.SpendInspiration(4))
	assert.Error(t, tm.SpendInspiration(0))
	require.NoError(t, tm.SpendInspiration(3))
	tm.GainInspiration(10)
	assert.Equal(t, 3, tm.Inspiration)
}

func TestPartners(t *testing.T) {
	tm, err := tamer.Build(taiSpec(), "tai", now)
	require.NoError(t, err)
	tm.AddPartner("agumon")
	tm.AddPartner("agumon")
	assert.Equal(t, []string{"agumon"}, tm.PartnerDigimonIDs)
	tm.RemovePartner("agumon")
	assert.Empty(t, tm.PartnerDigimonIDs)
}

func TestRecompute_ClampsToNewMaxima(t *testing.T) {
	tm, err := tamer.Build(taiSpec(), "tai", now)
	require.NoError(t, err)
	tm.ApplyWounds(3)
	tm.Attributes.Willpower = 1
	tm.Attributes.Body = 0
	tm.Skills.Endurance = 0
	tm.Recompute()
	assert.Equal(t, 1, tm.Inspiration)
	assert.Equal(t, 2, tm.CurrentWounds)
}

func TestFilter(t *testing.T) {
	tm, err := tamer.Build(taiSpec(), "tai", now)
	require.NoError(t, err)
	assert.True(t, tamer.Filter{}.Match(tm))
	assert.False(t, tamer.Filter{CampaignLevel: tamer.Extreme}.Match(tm))
	assert.Equal(t, map[string]any{"campaignLevel": "extreme"}, tamer.Filter{CampaignLevel: tamer.Extreme}.Fields())
}

// Property: wound boxes are never below 2 and max inspiration never below 1.
func TestBuild_DerivedFloors(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		spec := taiSpec()
		spec.Attributes = &derive.Attributes{
			Body:      rapid.IntRange(0, 6).Draw(rt, "body"),
			Willpower: rapid.IntRange(0, 6).Draw(rt, "will"),
		}
		spec.Skills = &derive.Skills{Endurance: rapid.IntRange(0, 6).Draw(rt, "end")}
		tm, err := tamer.Build(spec, "p", now)
		if err != nil {
			rt.Fatal(err)
		}
		if tm.DerivedStats.WoundBoxes < 2 || tm.MaxInspiration < 1 {
			rt.Fatalf("floors violated: %+v", tm.DerivedStats)
		}
		if tm.Inspiration != tm.MaxInspiration {
			rt.Fatalf("inspiration %d != max %d", tm.Inspiration, tm.MaxInspiration)
		}
	})
}
