// Package luamod builds the Lua modules bound as seeds in every session:
// inspect, for looking at host values from evaluated code, and platform,
// the host platform API.
package luamod
