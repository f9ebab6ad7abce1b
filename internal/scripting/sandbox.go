// Package scripting runs GM-authored requirement scripts in a restricted
// GopherLua state. It knows nothing about the game; callers pass the
// facts a script may read.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit caps opcodes per evaluation when no limit is
// configured.
const DefaultInstructionLimit = 100_000

// blockedGlobals are base-library entries that reach the filesystem or
// load code.
var blockedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require"}

// opBudget cancels itself once Done has been polled budget times.
// GopherLua polls Done once per opcode when a context is set.
type opBudget struct {
	context.Context
	left   atomic.Int64
	cancel context.CancelFunc
}

func (b *opBudget) Done() <-chan struct{} {
	if b.left.Add(-1) < 0 {
		b.cancel()
	}
	return b.Context.Done()
}

// Sandbox is one restricted Lua state. It is not safe for concurrent use.
type Sandbox struct {
	L      *lua.LState
	cancel context.CancelFunc
}

// NewSandbox opens a state with only the base, table, string and math
// libraries and an opcode budget of limit.
//
// Precondition: limit <= 0 selects DefaultInstructionLimit.
// Postcondition: the caller must Close the sandbox.
func NewSandbox(ctx context.Context, limit int) *Sandbox {
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath} {
		open(L)
	}
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	inner, cancel := context.WithCancel(ctx)
	b := &opBudget{Context: inner, cancel: cancel}
	b.left.Store(int64(limit))
	L.SetContext(b)
	return &Sandbox{L: L, cancel: cancel}
}

// Run executes src in the sandbox.
func (s *Sandbox) Run(src string) error {
	return s.L.DoString(src)
}

// Close releases the state and its budget.
func (s *Sandbox) Close() {
	s.cancel()
	s.L.Close()
}
