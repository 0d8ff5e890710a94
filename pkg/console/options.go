package console

import (
	"log/slog"
	"time"

	"github.com/aretw0/evalrepl/internal/luamod"
	"github.com/aretw0/evalrepl/pkg/domain"
	"github.com/aretw0/evalrepl/pkg/format"
	"github.com/aretw0/evalrepl/pkg/ports"
)

// Option configures a Console.
type Option func(*Console)

// WithID sets the session ID. A random one is generated otherwise.
func WithID(id string) Option {
	return func(c *Console) {
		c.id = id
	}
}

// WithFormatter sets the rendering strategy. Defaults to format.Simple.
func WithFormatter(f format.Formatter) Option {
	return func(c *Console) {
		c.formatter = f
	}
}

// WithLogger sets a structured logger for the console.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Console) {
		c.logger = logger
	}
}

// WithHooks registers lifecycle hooks. Hooks from repeated calls are chained.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Console) {
		c.hooks = c.hooks.Merge(hooks)
	}
}

// WithHistory records every invocation in store.
func WithHistory(store ports.HistoryStore) Option {
	return func(c *Console) {
		c.history = store
	}
}

// WithSnippets runs the autoload snippets of lib after creation and
// after every reset.
func WithSnippets(lib ports.SnippetLibrary) Option {
	return func(c *Console) {
		c.snippets = lib
	}
}

// WithTimeout bounds each invocation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Console) {
		c.timeout = d
	}
}

// WithFenceLanguage sets the language tag accepted on fenced input.
// Defaults to "lua".
func WithFenceLanguage(lang string) Option {
	return func(c *Console) {
		c.lang = lang
	}
}

// WithPlatform names the host exposed through the platform module.
func WithPlatform(name, version string) Option {
	return func(c *Console) {
		c.platform = luamod.Info{Name: name, Version: version}
	}
}

// WithMaxInputSize overrides the input size limit.
func WithMaxInputSize(n int) Option {
	return func(c *Console) {
		c.maxInput = n
	}
}
