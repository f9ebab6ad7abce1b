package scripting

import (
	"context"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Facts are the values a requirement script can read. They are exposed
// as the globals battles_won, xp_earned, bond_level and the function
// has_item(name).
type Facts struct {
	BattlesWon int
	XPEarned   int
	BondLevel  int
	Items      []string
}

// Evaluator runs requirement scripts, one fresh sandbox per call.
// It is safe for concurrent use.
type Evaluator struct {
	instLimit int
	logger    *zap.Logger
}

// NewEvaluator creates an Evaluator. A nil logger discards output.
func NewEvaluator(instLimit int, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{instLimit: instLimit, logger: logger}
}

// Evaluate runs script against facts and reports whether it produced a
// truthy value. script is either a Lua expression or a chunk that
// returns a value.
//
// Postcondition: on compile, runtime or instruction-limit failure the
// result is false and err is non-nil.
func (e *Evaluator) Evaluate(ctx context.Context, script string, facts Facts) (bool, error) {
	if strings.TrimSpace(script) == "" {
		return false, fmt.Errorf("scripting: empty script")
	}
	sb := NewSandbox(ctx, e.instLimit)
	defer sb.Close()
	L := sb.L
	bind(L, facts)

	fn, err := L.LoadString("return " + script)
	if err != nil {
		if fn, err = L.LoadString(script); err != nil {
			return false, fmt.Errorf("scripting: compiling requirement: %w", err)
		}
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		e.logger.Warn("requirement script failed", zap.String("script", script), zap.Error(err))
		return false, fmt.Errorf("scripting: running requirement: %w", err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	ok := lua.LVAsBool(ret)
	e.logger.Debug("requirement script evaluated",
		zap.String("script", script),
		zap.Bool("result", ok),
	)
	return ok, nil
}

func bind(L *lua.LState, f Facts) {
	L.SetGlobal("battles_won", lua.LNumber(f.BattlesWon))
	L.SetGlobal("xp_earned", lua.LNumber(f.XPEarned))
	L.SetGlobal("bond_level", lua.LNumber(f.BondLevel))
	items := make(map[string]bool, len(f.Items))
	for _, it := range f.Items {
		items[strings.ToLower(it)] = true
	}
	L.SetGlobal("has_item", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(items[strings.ToLower(L.CheckString(1))]))
		return 1
	}))
}
