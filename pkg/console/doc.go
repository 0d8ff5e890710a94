/*
Package console implements a stateful evaluation session for chat hosts.

A Console receives raw message text, strips code fences, recognizes the
exit tokens, runs everything else through the Lua engine against a
persistent environment and renders the outcome with the active formatter.

	c := console.New(bot, console.WithFormatter(format.NewIPython()))
	defer c.Close()

	r, err := c.Evaluate(ctx, "```lua\nx = 21\n```", inv)
	r, err = c.Evaluate(ctx, "x * 2", inv) // Out[2]: 42

Invocations on one Console are serialized: overlapping calls wait for each
other instead of racing on the environment and the output buffer.

# Seed bindings

Every session starts, and restarts after an exit token, with:

  - bot: the host handle passed to New
  - inspect: reflection helpers (type, fields, methods, keys, dump)
  - self: the Session, describing this console
  - platform: the host platform API (sleep, embed, uuid, now)

Each invocation additionally binds message, author, channel, guild, ctx
and me from the domain.Invocation.
*/
package console
