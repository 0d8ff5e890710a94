package console

import (
	"time"

	"github.com/aretw0/evalrepl/internal/runtime"
)

// Session describes a console to the code evaluated in it, where it is
// bound as self. Its methods do not take the console lock: they are meant
// to be called from evaluated code, which already runs under it.
type Session struct {
	id          string
	createdAt   time.Time
	env         *runtime.Environment
	console     *Console
	invocations int
	resets      int
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the console was created.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Invocations counts evaluations, including the one in progress.
func (s *Session) Invocations() int { return s.invocations }

// Resets counts how many times the environment was reset.
func (s *Session) Resets() int { return s.resets }

// Names lists the current bindings.
func (s *Session) Names() []string { return s.env.Names() }

// Formatter names the active formatting strategy.
func (s *Session) Formatter() string { return s.console.formatter.Name() }

func (s *Session) String() string {
	return "<session " + s.id + ">"
}
