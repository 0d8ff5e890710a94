// Package runtime hosts the Lua virtual machine behind an evaluation session.
//
// It owns three pieces of state that live as long as the session:
//   - the Environment, a Lua table that every evaluated chunk uses as its
//     function environment, so top-level assignments become bindings;
//   - the Buffer, which captures everything the evaluated code prints;
//   - the Engine, which compiles transformed units, runs them in protected
//     mode and turns failures into readable diagnostics.
//
// None of the types here are safe for concurrent use. Callers serialize
// access per session (see pkg/console).
package runtime
