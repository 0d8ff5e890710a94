/*
Package domain contains the core domain models of the evaluation console.

It defines what flows in and out of a session: the invocation context built
from the triggering chat event, the execution result, the rendering handed back
to the host, and the history record kept for each call. This package is kept
pure and free of external dependencies like I/O or persistence, following
Hexagonal Architecture principles.

# Key Entities

  - Invocation: The per-call context (message, author, channel, guild, dispatch context, bot identity).
  - Result: The returned value, the captured output and the error summary of one execution.
  - Rendering: What a formatter produces (text, structured embed, or both).
  - Awaitable: A value evaluated code can suspend on (see Future).
  - Record: The history entry persisted for every invocation.
*/
package domain
