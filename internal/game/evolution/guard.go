package evolution

import (
	"context"
	"slices"

	"github.com/cory-johannsen/digigm/internal/errors"
)

// Verdict is the non-mutating preview of Evolve.
type Verdict struct {
	CanEvolve bool   `json:"canEvolve"`
	Reason    string `json:"reason"`
}

// Reasons reported by a passing or terminal Verdict.
const (
	ReasonReady   = "Ready to evolve"
	ReasonMaximum = "Maximum evolution reached"
)

// guard is the single check shared by Evolve and CanEvolve. A nil result
// means the next step is allowed.
func (l *Line) guard(ctx context.Context, special SpecialCheck) *errors.Error {
	next, ok := l.NextStage()
	if !ok {
		return errors.Violation(errors.RuleMaxStage, "Already at maximum evolution stage")
	}
	req := next.Requirements
	if req == nil {
		return nil
	}
	p := l.EvolutionProgress
	switch req.Type {
	case Battles:
		if p.BattlesWon < req.threshold() {
			return errors.Violation(errors.RuleEvolutionRequirement, "Need %d battles won (have %d)", req.threshold(), p.BattlesWon).
				WithShortfall(req.threshold(), p.BattlesWon)
		}
	case XP:
		if p.XPEarned < req.threshold() {
			return errors.Violation(errors.RuleEvolutionRequirement, "Need %d XP (have %d)", req.threshold(), p.XPEarned).
				WithShortfall(req.threshold(), p.XPEarned)
		}
	case Bond:
		if p.BondLevel < req.threshold() {
			return errors.Violation(errors.RuleEvolutionRequirement, "Need bond level %d (have %d)", req.threshold(), p.BondLevel).
				WithShortfall(req.threshold(), p.BondLevel)
		}
	case Item:
		if !slices.Contains(p.ItemsCollected, req.ItemName) {
			return errors.Violation(errors.RuleEvolutionRequirement, "Need item: %s", req.ItemName).
				WithMissing(req.ItemName)
		}
	case Special:
		return l.checkSpecial(ctx, req, special)
	}
	return nil
}

func (l *Line) checkSpecial(ctx context.Context, req *Requirement, special SpecialCheck) *errors.Error {
	reason := req.Description
	if reason == "" {
		reason = "Special requirement not met"
	}
	if req.Script == "" || special == nil {
		return errors.Violation(errors.RuleEvolutionRequirement, "%s", reason)
	}
	ok, err := special(ctx, req.Script, l.EvolutionProgress)
	if err != nil {
		v := errors.Violation(errors.RuleEvolutionRequirement, "%s", reason)
		v.Cause = err
		return v
	}
	if !ok {
		return errors.Violation(errors.RuleEvolutionRequirement, "%s", reason)
	}
	return nil
}

// CanEvolve previews Evolve without mutating l.
//
// Postcondition: CanEvolve is true iff Evolve with the same special
// check would succeed.
func (l *Line) CanEvolve(ctx context.Context, special SpecialCheck) Verdict {
	if err := l.guard(ctx, special); err != nil {
		if err.Rule == errors.RuleMaxStage {
			return Verdict{Reason: ReasonMaximum}
		}
		return Verdict{Reason: err.Message}
	}
	return Verdict{CanEvolve: true, Reason: ReasonReady}
}

// Evolve advances to the next slot when its requirement is met.
//
// Postcondition: on error l is unchanged.
func (l *Line) Evolve(ctx context.Context, special SpecialCheck) error {
	if err := l.guard(ctx, special); err != nil {
		return err
	}
	l.CurrentStageIndex++
	return nil
}

// ForceEvolve advances regardless of the requirement. It is the GM's
// override for special requirements the engine cannot judge.
func (l *Line) ForceEvolve() error {
	if _, ok := l.NextStage(); !ok {
		return errors.Violation(errors.RuleMaxStage, "Already at maximum evolution stage")
	}
	l.CurrentStageIndex++
	return nil
}

// Devolve steps back one slot. Progress is kept.
func (l *Line) Devolve() error {
	if l.CurrentStageIndex <= 0 {
		return errors.Violation(errors.RuleMinStage, "Already at minimum evolution stage")
	}
	l.CurrentStageIndex--
	return nil
}

// AddBattlesWon records n more battles.
func (l *Line) AddBattlesWon(n int) error {
	if n < 0 {
		return errors.Validation("battles won must not decrease")
	}
	l.EvolutionProgress.BattlesWon += n
	return nil
}

// AddXP records n more XP.
func (l *Line) AddXP(n int) error {
	if n < 0 {
		return errors.Validation("xp must not decrease")
	}
	l.EvolutionProgress.XPEarned += n
	return nil
}

// IncreaseBond adjusts the bond level by n; the level never drops below 0.
func (l *Line) IncreaseBond(n int) {
	l.EvolutionProgress.BondLevel = max(0, l.EvolutionProgress.BondLevel+n)
}

// CollectItem records an item. Collecting an item twice is a no-op.
func (l *Line) CollectItem(name string) error {
	if name == "" {
		return errors.Validation("item name must not be empty")
	}
	if !slices.Contains(l.EvolutionProgress.ItemsCollected, name) {
		l.EvolutionProgress.ItemsCollected = append(l.EvolutionProgress.ItemsCollected, name)
	}
	return nil
}
