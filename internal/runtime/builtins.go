package runtime

import (
	"context"
	"strings"

	"github.com/aretw0/evalrepl/pkg/domain"
	lua "github.com/yuin/gopher-lua"
)

// newBuiltins builds the table that sits between the session environment
// and the Lua globals.
func (e *Engine) newBuiltins() *lua.LTable {
	tbl := e.L.NewTable()
	e.L.SetFuncs(tbl, map[string]lua.LGFunction{
		"print":       e.luaPrint,
		"await":       e.luaAwait,
		"isawaitable": luaIsAwaitable,
	})
	tbl.RawSetString("io", e.newIO())
	return tbl
}

// newIO shadows the io library so that writes to standard output land in
// the session buffer. Every other field falls back to the stock library.
func (e *Engine) newIO() *lua.LTable {
	L := e.L
	stock := L.GetGlobal("io")

	stdout := L.NewTable()
	stdoutMeta := L.NewTable()
	stdoutMeta.RawSetString("__tostring", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString("file (session stdout)"))
		return 1
	}))
	L.SetMetatable(stdout, stdoutMeta)
	L.SetFuncs(stdout, map[string]lua.LGFunction{
		"write": func(L *lua.LState) int {
			return e.ioWrite(L, 2, stdout)
		},
		"flush": func(L *lua.LState) int {
			L.Push(stdout)
			return 1
		},
		"close": func(L *lua.LState) int {
			L.Push(lua.LNil)
			L.Push(lua.LString("cannot close standard file"))
			return 2
		},
		"setvbuf": func(L *lua.LState) int {
			L.Push(lua.LTrue)
			return 1
		},
	})

	mod := L.NewTable()
	mod.RawSetString("stdout", stdout)
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"write": func(L *lua.LState) int {
			return e.ioWrite(L, 1, stdout)
		},
		"output": func(L *lua.LState) int {
			if L.GetTop() == 0 {
				L.Push(stdout)
				return 1
			}
			fn := L.GetField(stock, "output")
			L.Insert(fn, 1)
			L.Call(L.GetTop()-1, lua.MultRet)
			return L.GetTop()
		},
	})

	meta := L.NewTable()
	meta.RawSetString("__index", stock)
	L.SetMetatable(mod, meta)
	return mod
}

// ioWrite writes the string and number arguments from position first on,
// without separators, and returns the stdout handle as io.write does.
func (e *Engine) ioWrite(L *lua.LState, first int, stdout *lua.LTable) int {
	var sb strings.Builder
	for i := first; i <= L.GetTop(); i++ {
		switch lv := L.Get(i).(type) {
		case lua.LString:
			sb.WriteString(string(lv))
		case lua.LNumber:
			sb.WriteString(lv.String())
		default:
			L.ArgError(i, "string expected, got "+lv.Type().String())
		}
	}
	_, _ = e.out.WriteString(sb.String())
	L.Push(stdout)
	return 1
}

// luaPrint mirrors the stock print but writes into the session buffer.
func (e *Engine) luaPrint(L *lua.LState) int {
	top := L.GetTop()
	parts := make([]string, 0, top)
	for i := 1; i <= top; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	_, _ = e.out.WriteString(strings.Join(parts, "\t") + "\n")
	return 0
}

// luaAwait resolves an awaitable argument. Anything else is returned as is.
func (e *Engine) luaAwait(L *lua.LState) int {
	lv := L.CheckAny(1)
	a, ok := awaitableOf(lv)
	if !ok {
		L.Push(lv)
		return 1
	}

	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	v, err := a.Await(ctx)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(ToLua(L, v))
	return 1
}

func luaIsAwaitable(L *lua.LState) int {
	_, ok := awaitableOf(L.CheckAny(1))
	L.Push(lua.LBool(ok))
	return 1
}

func awaitableOf(lv lua.LValue) (domain.Awaitable, bool) {
	ud, ok := lv.(*lua.LUserData)
	if !ok {
		return nil, false
	}
	a, ok := ud.Value.(domain.Awaitable)
	return a, ok
}
