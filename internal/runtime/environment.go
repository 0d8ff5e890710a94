package runtime

import (
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// Environment is the persistent binding table of a session.
//
// Every chunk executed by the Engine uses the same table as its function
// environment, so names assigned at the top level of one invocation are
// visible to the next. Lookups that miss fall through to the builtins
// layer and then to the Lua globals.
type Environment struct {
	L        *lua.LState
	table    *lua.LTable
	builtins *lua.LTable
	seeds    map[string]lua.LValue
	order    []string
}

func newEnvironment(L *lua.LState, builtins *lua.LTable) *Environment {
	// builtins -> globals
	fallback := L.NewTable()
	fallback.RawSetString("__index", L.G.Global)
	L.SetMetatable(builtins, fallback)

	env := &Environment{
		L:        L,
		table:    L.NewTable(),
		builtins: builtins,
		seeds:    make(map[string]lua.LValue),
	}

	// env -> builtins
	meta := L.NewTable()
	meta.RawSetString("__index", builtins)
	L.SetMetatable(env.table, meta)
	return env
}

// Seed registers the initial bindings restored by every Reset.
// Existing seeds with the same name are replaced. Seed does not apply
// the values; call Reset for that.
func (e *Environment) Seed(name string, value any) {
	if _, exists := e.seeds[name]; !exists {
		e.order = append(e.order, name)
	}
	e.seeds[name] = ToLua(e.L, value)
}

// Reset clears every binding and installs the seeds again.
// The table keeps its identity, so references held by evaluated code
// (for example a closure over the environment) observe the reset.
func (e *Environment) Reset() {
	var keys []lua.LValue
	e.table.ForEach(func(k, _ lua.LValue) {
		keys = append(keys, k)
	})
	for _, k := range keys {
		e.table.RawSet(k, lua.LNil)
	}
	for _, name := range e.order {
		e.table.RawSetString(name, e.seeds[name])
	}
}

// Merge binds every entry of values. Bindings accumulate: names bound by
// an earlier Merge stay until they are overwritten or the environment is
// reset.
func (e *Environment) Merge(values map[string]any) {
	for name, v := range values {
		e.table.RawSetString(name, ToLua(e.L, v))
	}
}

// Get returns the Go value bound to name, or nil when unbound.
// Only the environment itself is consulted, not builtins or globals.
func (e *Environment) Get(name string) any {
	return FromLua(e.table.RawGetString(name))
}

// Lookup returns the raw Lua value bound to name.
func (e *Environment) Lookup(name string) lua.LValue {
	return e.table.RawGetString(name)
}

// Set binds name to value.
func (e *Environment) Set(name string, value any) {
	e.table.RawSetString(name, ToLua(e.L, value))
}

// Has reports whether name is bound in the environment.
func (e *Environment) Has(name string) bool {
	return e.table.RawGetString(name) != lua.LNil
}

// Names lists the bound names in lexical order.
func (e *Environment) Names() []string {
	var names []string
	e.table.ForEach(func(k, _ lua.LValue) {
		if s, ok := k.(lua.LString); ok {
			names = append(names, string(s))
		}
	})
	sort.Strings(names)
	return names
}

// Table exposes the underlying Lua table.
func (e *Environment) Table() *lua.LTable {
	return e.table
}

// Snapshot captures a comparable fingerprint of every binding.
// Tables and functions are fingerprinted by identity.
func (e *Environment) Snapshot() map[string]string {
	snap := make(map[string]string)
	e.table.ForEach(func(k, v lua.LValue) {
		if s, ok := k.(lua.LString); ok {
			snap[string(s)] = v.Type().String() + ":" + v.String()
		}
	})
	return snap
}
