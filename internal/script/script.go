// Package script provides an optional scriptlet evaluator for the DSL's
// Lua(handle) operand (spec §3 "Lua(handle) — user scriptlet"; spec §1
// explicitly treats a full scripting sandbox as an external, non-core
// concern, and §3 says the operand is "treated as opaque if absent").
// This package backs that operand with github.com/dop251/goja, a
// pure-Go ECMAScript interpreter — the engine the example pack actually
// ships a dependency for, rather than a native Lua binding — running
// each named scriptlet in its own fresh VM per call so scripts can't
// retain state across frames beyond what the emulator's memory already
// provides.
package script

import (
	"fmt"
	"sync"

	"github.com/dop251/goja"

	"github.com/northbridge-labs/cheevos/internal/expr"
)

// Source is one named scriptlet's program text, registered up front
// (typically parsed out of a game's rich-presence/achievement patch
// alongside the DSL bodies that reference it by name).
type Source struct {
	Name string
	Body string
}

// Engine compiles and evaluates named scriptlets on demand, implementing
// expr.LuaHook. It is safe for concurrent use; each Eval call runs in a
// freshly created goja runtime so one scriptlet's globals never leak into
// another's.
type Engine struct {
	mu      sync.RWMutex
	scripts map[string]*goja.Program
}

// NewEngine compiles every source up front, so a malformed scriptlet is
// reported at load time rather than surfacing as a silent zero during
// frame evaluation.
func NewEngine(sources []Source) (*Engine, error) {
	e := &Engine{scripts: make(map[string]*goja.Program, len(sources))}
	for _, s := range sources {
		prog, err := goja.Compile(s.Name, s.Body, false)
		if err != nil {
			return nil, fmt.Errorf("script: compile %q: %w", s.Name, err)
		}
		e.scripts[s.Name] = prog
	}
	return e, nil
}

// Hook returns an expr.LuaHook bound to this engine, suitable for
// expr.EvalContext.Lua.
func (e *Engine) Hook() expr.LuaHook {
	return e.Eval
}

// Eval runs the named scriptlet against peek, exposing it as a global
// "peek(address, numBytes)" function, and returns the script's numeric
// result. An unknown name or a runtime error evaluates to zero, matching
// spec §3's "treated as opaque if absent" fallback rather than aborting
// the whole frame over one scriptlet.
func (e *Engine) Eval(name string, peek expr.PeekFunc) uint32 {
	e.mu.RLock()
	prog, ok := e.scripts[name]
	e.mu.RUnlock()
	if !ok {
		return 0
	}

	vm := goja.New()
	if peek != nil {
		_ = vm.Set("peek", func(address, numBytes uint32) uint32 {
			return peek(address, numBytes)
		})
	}

	result, err := vm.RunProgram(prog)
	if err != nil {
		return 0
	}
	return uint32(result.ToInteger())
}
