package domain

import "time"

// Record is the history entry kept for each invocation of a session.
type Record struct {
	ID        string        `json:"id"`
	SessionID string        `json:"session_id"`
	Input     string        `json:"input"`
	Shape     Shape         `json:"shape,omitempty"`
	Value     string        `json:"value,omitempty"`
	Output    string        `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
	Reset     bool          `json:"reset,omitempty"`
	Bindings  *BindingDiff  `json:"bindings,omitempty"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// Snippet is a named piece of code from a snippet library.
// Autoload snippets run after a session is created and after every reset.
type Snippet struct {
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description,omitempty" mapstructure:"description"`
	Autoload    bool   `json:"autoload,omitempty" mapstructure:"autoload"`
	Order       int    `json:"order,omitempty" mapstructure:"order"`
	Code        string `json:"code"`
}
