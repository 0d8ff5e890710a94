package luamod

import (
	"context"
	"time"

	"github.com/aretw0/evalrepl/internal/runtime"
	"github.com/aretw0/evalrepl/pkg/domain"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	lua "github.com/yuin/gopher-lua"
)

// Info describes the host the console is embedded in.
type Info struct {
	Name    string
	Version string
}

// NewPlatform returns the platform module. Pending sleeps are abandoned
// when ctx, the lifetime of the owning session, is done.
//
//	platform.name, platform.version
//	platform.sleep(seconds)  -- future resolved after the delay
//	platform.embed(table)    -- structured display value
//	platform.uuid()          -- random identifier
//	platform.now()           -- current time, RFC 3339
func NewPlatform(ctx context.Context, L *lua.LState, info Info) *lua.LTable {
	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"sleep": func(L *lua.LState) int { return platformSleep(ctx, L) },
		"embed": platformEmbed,
		"uuid":  platformUUID,
		"now":   platformNow,
	})
	mod.RawSetString("name", lua.LString(info.Name))
	mod.RawSetString("version", lua.LString(info.Version))
	return mod
}

// platformSleep schedules a delay that outlives the current invocation,
// so the future can be awaited by a later one.
func platformSleep(lifetime context.Context, L *lua.LState) int {
	d := time.Duration(float64(L.CheckNumber(1)) * float64(time.Second))
	f := domain.Go(lifetime, func(ctx context.Context) (any, error) {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return d.Seconds(), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	L.Push(runtime.ToLua(L, f))
	return 1
}

func platformEmbed(L *lua.LState) int {
	src := runtime.FromLua(L.CheckTable(1))

	embed := &domain.Embed{}
	if err := DecodeEmbed(src, embed); err != nil {
		L.ArgError(1, err.Error())
		return 0
	}
	L.Push(runtime.ToLua(L, embed))
	return 1
}

// DecodeEmbed fills out from a loosely typed map, as produced by FromLua.
func DecodeEmbed(src any, out *domain.Embed) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(src)
}

func platformUUID(L *lua.LState) int {
	L.Push(lua.LString(uuid.NewString()))
	return 1
}

func platformNow(L *lua.LState) int {
	L.Push(lua.LString(time.Now().UTC().Format(time.RFC3339)))
	return 1
}
