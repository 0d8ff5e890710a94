package runtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/evalrepl/internal/compiler"
	"github.com/aretw0/evalrepl/internal/runtime"
	"github.com/aretw0/evalrepl/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *runtime.Engine {
	t.Helper()
	e := runtime.NewEngine()
	t.Cleanup(e.Close)
	return e
}

func exec(e *runtime.Engine, src string) domain.Result {
	return e.Execute(context.Background(), compiler.Transform(src), nil)
}

func TestEngine_Expression(t *testing.T) {
	e := newEngine(t)

	res := exec(e, "2 + 2")
	require.False(t, res.Failed(), res.Output)
	assert.Equal(t, domain.ShapeExpression, res.Shape)
	assert.Equal(t, float64(4), res.Value)
	assert.Equal(t, float64(4), e.Environment().Get(runtime.LastValue))
}

func TestEngine_ExpressionValues(t *testing.T) {
	e := newEngine(t)

	res := exec(e, `1, "two", true`)
	require.False(t, res.Failed(), res.Output)
	assert.Equal(t, domain.Values{float64(1), "two", true}, res.Value)
	assert.Equal(t, float64(1), e.Environment().Get(runtime.LastValue))
}

func TestEngine_StatementPersistsBindings(t *testing.T) {
	e := newEngine(t)

	res := exec(e, "x = 5")
	require.False(t, res.Failed(), res.Output)
	assert.Nil(t, res.Value)
	assert.Equal(t, domain.ShapeStatement, res.Shape)
	assert.Equal(t, []string{"x"}, res.Bindings.Added)

	res = exec(e, "x * 2")
	assert.Equal(t, float64(10), res.Value)
}

func TestEngine_LocalsAreFoldedIntoEnvironment(t *testing.T) {
	e := newEngine(t)

	exec(e, "local y = 7\nlocal function double(n) return n * 2 end")
	assert.Equal(t, float64(7), e.Environment().Get("y"))

	res := exec(e, "double(y)")
	assert.Equal(t, float64(14), res.Value)
}

func TestEngine_SeveralLocalsOnOneLine(t *testing.T) {
	e := newEngine(t)

	res := exec(e, "local a = 1; local b = 2")
	require.False(t, res.Failed(), res.Output)
	assert.Equal(t, float64(1), e.Environment().Get("a"))
	assert.Equal(t, float64(2), e.Environment().Get("b"))

	exec(e, "local x = 10 local y = 20")
	assert.Equal(t, float64(30), exec(e, "x + y").Value)
}

func TestEngine_IOWriteIsCaptured(t *testing.T) {
	e := newEngine(t)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"io.write", `io.write("a", 1, "\n")`, "a1\n"},
		{"io.stdout:write", `io.stdout:write("b")`, "b"},
		{"Chained", `io.write("c"):write("d")`, "cd"},
		{"Default Output", `io.output():write("e")`, "e"},
		{"Mixed With Print", "print(\"p\")\nio.write(\"w\")", "p\nw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := exec(e, tt.input)
			require.False(t, res.Failed(), res.Output)
			assert.Equal(t, tt.want, res.Output)
		})
	}
}

func TestEngine_IOFallsBackToStockLibrary(t *testing.T) {
	e := newEngine(t)

	res := exec(e, "type(io.open)")
	require.False(t, res.Failed(), res.Output)
	assert.Equal(t, "function", res.Value)

	res = exec(e, "io.write({})")
	assert.True(t, res.Failed())
	assert.Contains(t, res.Output, "string expected")
}

func TestEngine_PrintIsCaptured(t *testing.T) {
	e := newEngine(t)

	res := exec(e, `print("hello", 42, nil)`)
	require.False(t, res.Failed(), res.Output)
	assert.Equal(t, "hello\t42\tnil\n", res.Output)

	res = exec(e, "1")
	assert.Empty(t, res.Output, "output must not leak between invocations")
}

func TestEngine_SyntaxError(t *testing.T) {
	e := newEngine(t)

	res := exec(e, "if then")
	require.True(t, res.Failed())
	assert.Contains(t, res.Error, runtime.SyntaxError+":")
	assert.Contains(t, res.Output, runtime.SyntaxError)
	assert.Nil(t, res.Value)
}

func TestEngine_RuntimeErrorIsContained(t *testing.T) {
	e := newEngine(t)

	res := exec(e, `print("before")`+"\n"+`error("boom")`)
	require.True(t, res.Failed())
	assert.Nil(t, res.Value)
	assert.Contains(t, res.Error, runtime.RuntimeError+": ")
	assert.Contains(t, res.Error, "boom")
	assert.Contains(t, res.Output, "before\n")
	assert.Contains(t, res.Output, compiler.ChunkName+":2:")
	assert.NotContains(t, res.Output, "[G]")

	// The engine stays usable
	res = exec(e, "1 + 1")
	assert.Equal(t, float64(2), res.Value)
}

func TestEngine_PartialBindingsSurviveFailure(t *testing.T) {
	e := newEngine(t)

	res := exec(e, "a = 1\nerror('stop')\nb = 2")
	require.True(t, res.Failed())
	assert.Equal(t, float64(1), e.Environment().Get("a"))
	assert.False(t, e.Environment().Has("b"))
}

func TestEngine_ScopeIsMerged(t *testing.T) {
	e := newEngine(t)

	user := &domain.User{ID: "42", Name: "ada"}
	res := e.Execute(context.Background(), compiler.Transform("author.Name"), map[string]any{
		domain.ContextAuthor: user,
	})
	require.False(t, res.Failed(), res.Output)
	assert.Equal(t, "ada", res.Value)

	// Context names accumulate across invocations
	res = exec(e, "author.ID")
	assert.Equal(t, "42", res.Value)
}

func TestEngine_AwaitsExpressionResults(t *testing.T) {
	e := newEngine(t)

	f := domain.NewFuture()
	f.Resolve("done", nil)
	e.Environment().Set("job", f)

	res := exec(e, "job")
	require.False(t, res.Failed(), res.Output)
	assert.Equal(t, "done", res.Value)

	res = exec(e, "isawaitable(job)")
	assert.Equal(t, true, res.Value)

	res = exec(e, "r = await(job)")
	require.False(t, res.Failed(), res.Output)
	assert.Equal(t, "done", e.Environment().Get("r"))
}

func TestEngine_AwaitFailure(t *testing.T) {
	e := newEngine(t)

	f := domain.NewFuture()
	f.Resolve(nil, assert.AnError)
	e.Environment().Set("job", f)

	res := exec(e, "job")
	require.True(t, res.Failed())
	assert.Contains(t, res.Error, runtime.RuntimeError)
	assert.Contains(t, res.Error, assert.AnError.Error())
}

func TestEngine_Timeout(t *testing.T) {
	e := newEngine(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res := e.Execute(ctx, compiler.Transform("while true do end"), nil)
	require.True(t, res.Failed())
	assert.Contains(t, res.Error, runtime.TimeoutError)

	// A later invocation without a deadline works again
	res = exec(e, `"alive"`)
	assert.Equal(t, "alive", res.Value)
}

func TestEngine_Cancelled(t *testing.T) {
	e := newEngine(t)

	f := domain.NewFuture()
	e.Environment().Set("never", f)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res := e.Execute(ctx, compiler.Transform("never"), nil)
	require.True(t, res.Failed())
	assert.Contains(t, res.Error, runtime.CancelledError)
}

func TestEngine_StatementExplicitReturn(t *testing.T) {
	e := newEngine(t)

	res := exec(e, `print("hi"); return 2 + 2`)
	require.False(t, res.Failed(), res.Output)
	assert.Equal(t, domain.ShapeStatement, res.Shape)
	assert.Equal(t, "hi\n", res.Output)
	assert.Equal(t, float64(4), res.Value)

	res = exec(e, `print("hi"); x = 2 + 2`)
	assert.Nil(t, res.Value)
	assert.False(t, e.Environment().Has(runtime.LastValue))
}
