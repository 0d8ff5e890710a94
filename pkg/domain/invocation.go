package domain

import "time"

// Context names exposed to evaluated code for every invocation.
const (
	ContextMessage  = "message"
	ContextAuthor   = "author"
	ContextChannel  = "channel"
	ContextGuild    = "guild"
	ContextDispatch = "ctx"
	ContextSelf     = "me"
)

// Invocation is the triggering event of a single evaluation, as seen by the host dispatcher.
// Fields are opaque to the engine; they are exposed to evaluated code under fixed names.
type Invocation struct {
	Message  any
	Author   any
	Channel  any
	Guild    any
	Dispatch any
	Self     any
}

// ContextMap returns the invocation as the name -> value mapping merged into the environment.
func (inv Invocation) ContextMap() map[string]any {
	return map[string]any{
		ContextMessage:  inv.Message,
		ContextAuthor:   inv.Author,
		ContextChannel:  inv.Channel,
		ContextGuild:    inv.Guild,
		ContextDispatch: inv.Dispatch,
		ContextSelf:     inv.Self,
	}
}

// Message is a minimal chat message used by the bundled hosts (terminal, HTTP, MCP).
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// User identifies a chat participant (the author, or the bot itself).
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Bot  bool   `json:"bot,omitempty"`
}

// Channel identifies where a message was posted.
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Guild identifies the group/server a channel belongs to.
// Direct messages have no guild.
type Guild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
