package format_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/evalrepl/pkg/domain"
	"github.com/aretw0/evalrepl/pkg/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, name := range format.Names() {
		f, err := format.New(name)
		require.NoError(t, err)
		assert.Equal(t, name, f.Name())
	}

	f, err := format.New(" IPython ")
	require.NoError(t, err)
	assert.Equal(t, format.NameIPython, f.Name())

	_, err = format.New("fancy")
	assert.True(t, errors.Is(err, domain.ErrUnknownFormatter))
}

func TestSimple_Format(t *testing.T) {
	f := format.NewSimple()

	tests := []struct {
		name   string
		input  string
		value  any
		output string
		want   string
	}{
		{"Value", "2 + 2", float64(4), "", ">>> 2 + 2\n4"},
		{"Output Only", `print("hi")`, nil, "hi\n", ">>> print(\"hi\")\nhi"},
		{"Multi Line", "x = 1\nprint(x)", nil, "1\n", ">>> x = 1\n... print(x)\n1"},
		{"Output And Value", "f()", "done", "working\n", ">>> f()\nworking\n\"done\""},
		{"Nothing", "x = 1", nil, "", ">>> x = 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := f.Format(tt.input, tt.value, tt.output)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Text)
			assert.Nil(t, r.Embed)
		})
	}
}

func TestSimple_Exit(t *testing.T) {
	r := format.NewSimple().Exit("quit()")
	assert.Equal(t, ">>> quit()\nenvironment reset", r.Text)
}

func TestEmbed_Format(t *testing.T) {
	f := format.NewEmbed()

	r, err := f.Format("2 + 2", float64(4), "")
	require.NoError(t, err)
	assert.Empty(t, r.Text)
	require.NotNil(t, r.Embed)
	require.Len(t, r.Embed.Fields, 2)
	assert.Equal(t, "Input", r.Embed.Fields[0].Name)
	assert.Equal(t, "```lua\n2 + 2\n```", r.Embed.Fields[0].Value)
	assert.Equal(t, "Result", r.Embed.Fields[1].Name)
	assert.Equal(t, "```lua\n4\n```", r.Embed.Fields[1].Value)
}

func TestEmbed_PassesEmbedValuesThrough(t *testing.T) {
	f := format.NewEmbed()
	value := &domain.Embed{Title: "Stats"}

	r, err := f.Format("platform.embed{}", value, "note\n")
	require.NoError(t, err)
	assert.Equal(t, "Stats", r.Embed.Title)
	require.Len(t, r.Embed.Fields, 1)
	assert.Equal(t, "Output", r.Embed.Fields[0].Name)
	assert.Empty(t, value.Fields, "the value itself is not modified")
}

func TestEmbed_TruncatesLongFields(t *testing.T) {
	r, err := format.NewEmbed().Format("x", strings.Repeat("a", 5000), "")
	require.NoError(t, err)
	for _, field := range r.Embed.Fields {
		assert.LessOrEqual(t, len(field.Value), 1024)
	}
}

func TestEmbed_Exit(t *testing.T) {
	r := format.NewEmbed().Exit("exit")
	require.NotNil(t, r.Embed)
	assert.Contains(t, r.Embed.Description, "`exit`")
	assert.Empty(t, r.Text)
}

func TestIPython_CountsInvocations(t *testing.T) {
	f := format.NewIPython()

	r, err := f.Format("1 + 1", float64(2), "")
	require.NoError(t, err)
	assert.Equal(t, "In [1]: 1 + 1\nOut[1]: 2", r.Text)
	require.NotNil(t, r.Embed)
	assert.Equal(t, "Out[1]", r.Embed.Title)
	assert.Equal(t, "number", r.Embed.Footer)

	r, err = f.Format("x = 1\nx", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "In [2]: x = 1\n   ...: x", r.Text)
	assert.Nil(t, r.Embed)

	r = f.Exit("exit()")
	assert.Equal(t, "In [3]: exit()\nDo you really want to exit ([y]/n)? y", r.Text)

	r, _ = f.Format("1", float64(1), "")
	assert.True(t, strings.HasPrefix(r.Text, "In [1]: "), "numbering restarts after exit")
}

func TestRepr(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"Nil", nil, "nil"},
		{"Integer Number", float64(4), "4"},
		{"Fraction", 0.5, "0.5"},
		{"String", "hi", `"hi"`},
		{"Bool", true, "true"},
		{"Values", domain.Values{float64(1), "a"}, `1, "a"`},
		{"List", []any{float64(1), float64(2)}, "{1, 2}"},
		{"Map", map[string]any{"b": true, "a": float64(1)}, "{a = 1, b = true}"},
		{"Embed", &domain.Embed{Title: "T"}, `<embed "T">`},
		{"Error", errors.New("boom"), "boom"},
		{"Struct", domain.User{ID: "1", Name: "ada"}, "{ID:1 Name:ada Bot:false}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, format.Repr(tt.value))
		})
	}
}

func TestFence(t *testing.T) {
	assert.Equal(t, "```lua\nx\n```", format.Fence("x\n", "lua"))
}
