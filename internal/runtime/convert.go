package runtime

import (
	lua "github.com/yuin/gopher-lua"
	luar "layeh.com/gopher-luar"
)

// maxConvertDepth bounds the recursion when copying nested tables into Go.
const maxConvertDepth = 32

// ToLua exposes a Go value to Lua. Values that already are Lua values are
// passed through; everything else is wrapped by a gopher-luar proxy so
// fields and methods stay reachable from evaluated code.
func ToLua(L *lua.LState, v any) lua.LValue {
	if lv, ok := v.(lua.LValue); ok {
		return lv
	}
	return luar.New(L, v)
}

// FromLua converts a Lua value into its Go counterpart.
//
// Scalars map onto nil, bool, float64 and string. Proxies created by
// ToLua give back the wrapped Go value. Tables are copied: sequences become
// []any, everything else map[string]any. Functions, threads and channels
// are returned as the Lua value itself.
func FromLua(lv lua.LValue) any {
	return fromLua(lv, 0, map[*lua.LTable]bool{})
}

func fromLua(lv lua.LValue, depth int, seen map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LUserData:
		return v.Value
	case *lua.LTable:
		if seen[v] || depth >= maxConvertDepth {
			return v
		}
		seen[v] = true
		defer delete(seen, v)
		return tableToGo(v, depth, seen)
	default:
		return lv
	}
}

func tableToGo(t *lua.LTable, depth int, seen map[*lua.LTable]bool) any {
	n := t.Len()
	count := 0
	t.ForEach(func(lua.LValue, lua.LValue) { count++ })

	if n > 0 && n == count {
		list := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			list = append(list, fromLua(t.RawGetInt(i), depth+1, seen))
		}
		return list
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		m[k.String()] = fromLua(v, depth+1, seen)
	})
	return m
}
