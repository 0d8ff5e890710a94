package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/evalrepl/internal/compiler"
	"github.com/aretw0/evalrepl/internal/logging"
	"github.com/aretw0/evalrepl/pkg/domain"
	lua "github.com/yuin/gopher-lua"
)

// Diagnostic kinds prefixed to the summary line of a failed execution.
const (
	SyntaxError    = "SyntaxError"
	RuntimeError   = "RuntimeError"
	CancelledError = "CancelledError"
	TimeoutError   = "TimeoutError"
)

// LastValue is the binding that holds the value of the latest expression.
const LastValue = "_"

// maxTraceFrames caps the number of frames rendered in a traceback.
const maxTraceFrames = 32

// Engine compiles and runs transformed units against a persistent
// Environment, capturing output in a Buffer.
type Engine struct {
	L      *lua.LState
	env    *Environment
	out    *Buffer
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an engine with a fresh Lua state, an empty
// environment and an empty output buffer.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		L:      lua.NewState(),
		out:    &Buffer{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.env = newEnvironment(e.L, e.newBuiltins())
	return e
}

// State exposes the Lua state, for building modules bound as seeds.
func (e *Engine) State() *lua.LState { return e.L }

// Environment returns the session environment.
func (e *Engine) Environment() *Environment { return e.env }

// Buffer returns the output buffer.
func (e *Engine) Buffer() *Buffer { return e.out }

// Close releases the Lua state. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.L.Close()
}

// Execute runs one unit.
//
// The buffer is rewound, scope is merged into the environment and the unit
// is compiled and invoked in protected mode. Failures raised by the code are
// reported through the returned Result, never as a Go error or panic.
func (e *Engine) Execute(ctx context.Context, unit compiler.Unit, scope map[string]any) domain.Result {
	start := time.Now()

	// 1. Fresh capture for this invocation
	e.out.Rewind()

	// 2. Per-call context names
	e.env.Merge(scope)
	before := e.env.Snapshot()

	// 3. Run
	values, diag := e.run(ctx, unit)

	res := domain.Result{Shape: unit.Shape}
	if diag == "" {
		if unit.Shape == domain.ShapeExpression {
			res.Value, diag = e.settle(ctx, values)
		} else {
			// Statements only produce a value through an explicit return
			res.Value = collect(values)
		}
	}

	// 4. Diagnostics go to the same sink as the code's own output
	if diag != "" {
		res.Value = nil
		res.Error = summaryLine(diag)
		_, _ = e.out.WriteString(diag)
		if !strings.HasSuffix(diag, "\n") {
			_, _ = e.out.WriteString("\n")
		}
	}

	res.Output = e.out.String()
	res.Bindings = domain.DiffBindings(before, e.env.Snapshot())
	res.Duration = time.Since(start)

	e.logger.Debug("Unit executed",
		"shape", unit.Shape,
		"failed", res.Failed(),
		"duration", res.Duration,
	)
	return res
}

// run compiles and calls the unit, returning its results or a diagnostic.
func (e *Engine) run(ctx context.Context, unit compiler.Unit) ([]lua.LValue, string) {
	L := e.L
	base := L.GetTop()
	defer L.SetTop(base)

	fn, err := L.Load(strings.NewReader(unit.Source), compiler.ChunkName)
	if err != nil {
		return nil, SyntaxError + ": " + errorMessage(err)
	}
	L.SetFEnv(fn, e.env.Table())

	if ctx != nil {
		L.SetContext(ctx)
		defer L.RemoveContext()
	}

	var frames []string
	handler := L.NewFunction(func(L *lua.LState) int {
		frames = traceback(L)
		L.Push(L.Get(1))
		return 1
	})

	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, handler); err != nil {
		kind := RuntimeError
		if ctx != nil && ctx.Err() != nil {
			kind = contextErrorKind(ctx.Err())
		}
		return nil, formatDiagnostic(kind, errorMessage(err), frames)
	}

	n := L.GetTop() - base
	values := make([]lua.LValue, 0, n)
	for i := base + 1; i <= base+n; i++ {
		values = append(values, L.Get(i))
	}
	return values, ""
}

// settle turns the results of an expression into its Go value, awaiting
// awaitables, and binds the value to LastValue.
func (e *Engine) settle(ctx context.Context, values []lua.LValue) (any, string) {
	switch len(values) {
	case 0:
		e.env.Table().RawSetString(LastValue, lua.LNil)
		return nil, ""
	case 1:
	default:
		e.env.Table().RawSetString(LastValue, values[0])
		return collect(values), ""
	}

	lv := values[0]
	a, ok := awaitableOf(lv)
	if !ok {
		e.env.Table().RawSetString(LastValue, lv)
		return FromLua(lv), ""
	}

	if ctx == nil {
		ctx = context.Background()
	}
	v, err := a.Await(ctx)
	if err != nil {
		kind := RuntimeError
		if ctx.Err() != nil {
			kind = contextErrorKind(ctx.Err())
		}
		return nil, formatDiagnostic(kind, err.Error(), nil)
	}
	e.env.Set(LastValue, v)
	return v, ""
}

// collect converts returned values: nothing, a single value, or Values.
func collect(values []lua.LValue) any {
	switch len(values) {
	case 0:
		return nil
	case 1:
		return FromLua(values[0])
	}
	out := make(domain.Values, len(values))
	for i, v := range values {
		out[i] = FromLua(v)
	}
	return out
}

// traceback collects the Lua frames active when the error was raised.
// Go frames are skipped: they belong to the error handler, to raising
// builtins such as error() or to the host entry point, not to the
// evaluated code.
func traceback(L *lua.LState) []string {
	var frames []string
	for level := 0; len(frames) < maxTraceFrames; level++ {
		dbg, ok := L.GetStack(level)
		if !ok {
			break
		}
		fv, err := L.GetInfo("Slnf", dbg, lua.LNil)
		if err != nil {
			break
		}
		fn, ok := fv.(*lua.LFunction)
		if !ok || fn.IsG {
			continue
		}
		frames = append(frames, fmt.Sprintf("\t%s:%d: in %s", dbg.Source, dbg.CurrentLine, frameName(dbg, fn)))
	}
	return frames
}

func frameName(dbg *lua.Debug, fn *lua.LFunction) string {
	if fn.Proto != nil && fn.Proto.LineDefined == 0 {
		return "main chunk"
	}
	if dbg.Name != "" {
		return fmt.Sprintf("function '%s'", dbg.Name)
	}
	return fmt.Sprintf("function <%s:%d>", dbg.Source, dbg.LineDefined)
}

func formatDiagnostic(kind, msg string, frames []string) string {
	var sb strings.Builder
	sb.WriteString(kind)
	sb.WriteString(": ")
	sb.WriteString(msg)
	if len(frames) > 0 {
		sb.WriteString("\nstack traceback:\n")
		sb.WriteString(strings.Join(frames, "\n"))
	}
	return sb.String()
}

// errorMessage extracts the raised value, without any stack trace the
// interpreter may have attached.
func errorMessage(err error) string {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil {
		return apiErr.Object.String()
	}
	return err.Error()
}

func contextErrorKind(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutError
	}
	return CancelledError
}

func summaryLine(diag string) string {
	if i := strings.IndexByte(diag, '\n'); i >= 0 {
		return diag[:i]
	}
	return diag
}
