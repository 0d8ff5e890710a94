package luamod

import (
	"reflect"
	"sort"

	"github.com/aretw0/evalrepl/internal/runtime"
	lua "github.com/yuin/gopher-lua"
	"gopkg.in/yaml.v3"
)

// NewInspect returns the inspect module.
//
//	inspect.type(v)    -- Go type of a host value, Lua type otherwise
//	inspect.fields(v)  -- exported struct fields of a host value
//	inspect.methods(v) -- exported methods of a host value
//	inspect.keys(v)    -- sorted keys of a table or map
//	inspect.dump(v)    -- YAML rendering of v
func NewInspect(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"type":    inspectType,
		"fields":  inspectFields,
		"methods": inspectMethods,
		"keys":    inspectKeys,
		"dump":    inspectDump,
	})
	return mod
}

func hostValue(lv lua.LValue) (reflect.Value, bool) {
	ud, ok := lv.(*lua.LUserData)
	if !ok || ud.Value == nil {
		return reflect.Value{}, false
	}
	return reflect.ValueOf(ud.Value), true
}

func inspectType(L *lua.LState) int {
	lv := L.CheckAny(1)
	if rv, ok := hostValue(lv); ok {
		L.Push(lua.LString(rv.Type().String()))
		return 1
	}
	L.Push(lua.LString(lv.Type().String()))
	return 1
}

func inspectFields(L *lua.LState) int {
	var names []string
	if rv, ok := hostValue(L.CheckAny(1)); ok {
		for rv.Kind() == reflect.Pointer && !rv.IsNil() {
			rv = rv.Elem()
		}
		if rv.Kind() == reflect.Struct {
			rt := rv.Type()
			for i := 0; i < rt.NumField(); i++ {
				if f := rt.Field(i); f.IsExported() {
					names = append(names, f.Name)
				}
			}
		}
	}
	L.Push(stringList(L, names))
	return 1
}

func inspectMethods(L *lua.LState) int {
	var names []string
	if rv, ok := hostValue(L.CheckAny(1)); ok {
		rt := rv.Type()
		for i := 0; i < rt.NumMethod(); i++ {
			names = append(names, rt.Method(i).Name)
		}
	}
	L.Push(stringList(L, names))
	return 1
}

func inspectKeys(L *lua.LState) int {
	lv := L.CheckAny(1)
	var names []string
	switch v := runtime.FromLua(lv).(type) {
	case map[string]any:
		for k := range v {
			names = append(names, k)
		}
	case []any:
		for i := range v {
			names = append(names, lua.LNumber(i+1).String())
		}
	default:
		if rv, ok := hostValue(lv); ok && rv.Kind() == reflect.Map {
			for _, k := range rv.MapKeys() {
				names = append(names, k.String())
			}
		}
	}
	L.Push(stringList(L, names))
	return 1
}

func inspectDump(L *lua.LState) int {
	data, err := yaml.Marshal(runtime.FromLua(L.CheckAny(1)))
	if err != nil {
		L.RaiseError("dump failed: %s", err.Error())
		return 0
	}
	L.Push(lua.LString(data))
	return 1
}

func stringList(L *lua.LState, names []string) *lua.LTable {
	sort.Strings(names)
	tbl := L.CreateTable(len(names), 0)
	for _, n := range names {
		tbl.Append(lua.LString(n))
	}
	return tbl
}
