/*
Package evalrepl is a stateful code evaluation console for chat hosts.

A chat bot forwards the text of a message to a Console. The console strips the
markdown decoration, decides whether the text is an expression or a block of
statements, runs it against an environment that persists between messages of
the same session, and hands back a rendering the host can post as a reply:
plain text, a structured embed, or both.

The evaluated language is Lua 5.1 (gopher-lua). Go values given to a session,
such as the bot handle or the author of the message, are visible to evaluated
code through gopher-luar proxies.

# Key Features

  - Persistent sessions: bindings created by one message are visible to the next.
  - Expression results: a single-line expression renders its value and binds it to _.
  - Contained errors: failures render a summary line and a traceback of user frames only.
  - Awaitables: host futures can be awaited inline or resolved automatically.
  - Formatting strategies: simple transcript, embed, or IPython-style numbered cells.
  - Serialized invocations: concurrent messages to one session never interleave.

# Usage

	c := console.New(bot, console.WithFormatter(format.NewIPython()))
	defer c.Close()

	r, err := c.Evaluate(ctx, "```lua\nx = 40\n```", domain.Invocation{Author: author})
	if err != nil {
		log.Fatal(err)
	}
	r, _ = c.Evaluate(ctx, "x + 2", domain.Invocation{Author: author})
	fmt.Println(r.Text)

Typing exit, exit(), quit or quit() resets the session and renders a farewell.

For many sessions keyed by channel or user, see package session. The bundled
hosts (terminal, HTTP, MCP) live under cmd/evalrepl and pkg/adapters.
*/
package evalrepl
