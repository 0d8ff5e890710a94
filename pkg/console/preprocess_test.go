package console_test

import (
	"testing"

	"github.com/aretw0/evalrepl/pkg/console"
	"github.com/aretw0/evalrepl/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestPreprocess(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		control bool
		token   string
	}{
		{"Exit", "exit", true, "exit"},
		{"Exit Call", "exit()", true, "exit()"},
		{"Quit", " quit\n", true, "quit"},
		{"Quit Call", "quit()", true, "quit()"},
		{"Uppercase", "Exit", false, ""},
		{"Extra Text", "exit now", false, ""},
		{"Code", "x = 1", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := console.Preprocess(tt.input, domain.Invocation{})
			assert.Equal(t, tt.control, d.Control)
			assert.Equal(t, tt.token, d.Token)
			assert.Equal(t, tt.control, console.IsExitToken(tt.input))
		})
	}
}

func TestPreprocess_Context(t *testing.T) {
	author := &domain.User{ID: "1"}
	d := console.Preprocess("  author  ", domain.Invocation{Author: author})

	assert.False(t, d.Control)
	assert.Equal(t, "author", d.Input)
	assert.Len(t, d.Context, 6)
	assert.Same(t, author, d.Context[domain.ContextAuthor])
	for _, name := range []string{"message", "author", "channel", "guild", "ctx", "me"} {
		assert.Contains(t, d.Context, name)
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Tagged Fence", "```lua\nprint(1)\n```", "print(1)"},
		{"Tagged Fence Inline", "```lua print(1)```", "print(1)"},
		{"Untagged Fence", "```\nx = 1\n```", "x = 1"},
		{"Unterminated Fence", "```lua\nx = 1", "x = 1"},
		{"Other Language", "```python\nx = 1\n```", "```python\nx = 1\n```"},
		{"Backticks", "`2 + 2`", "2 + 2"},
		{"Surrounding Space", "  `2 + 2`  ", "2 + 2"},
		{"Single Backtick", "`", "`"},
		{"Plain", "2 + 2", "2 + 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, console.StripFences(tt.input, "lua"))
		})
	}
}
