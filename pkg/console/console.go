package console

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/evalrepl/internal/compiler"
	"github.com/aretw0/evalrepl/internal/logging"
	"github.com/aretw0/evalrepl/internal/luamod"
	"github.com/aretw0/evalrepl/internal/runtime"
	"github.com/aretw0/evalrepl/pkg/domain"
	"github.com/aretw0/evalrepl/pkg/format"
	"github.com/aretw0/evalrepl/pkg/ports"
	"github.com/google/uuid"
)

// Seed binding names.
const (
	SeedHost     = "bot"
	SeedInspect  = "inspect"
	SeedSelf     = "self"
	SeedPlatform = "platform"
)

// DefaultFenceLanguage is the tag accepted on fenced code blocks.
const DefaultFenceLanguage = "lua"

// Console is one evaluation session: a persistent environment, an output
// buffer, an engine and the active formatter.
type Console struct {
	mu sync.Mutex

	id        string
	host      any
	engine    *runtime.Engine
	session   *Session
	formatter format.Formatter
	logger    *slog.Logger
	hooks     domain.LifecycleHooks
	history   ports.HistoryStore
	snippets  ports.SnippetLibrary
	timeout   time.Duration
	lang      string
	platform  luamod.Info
	maxInput  int
	closed    bool

	// lifetime is cancelled by Close, stopping work that outlives an
	// invocation such as platform.sleep.
	lifetime context.Context
	stop     context.CancelFunc
}

// New creates a console whose bot binding is host.
func New(host any, opts ...Option) *Console {
	c := &Console{
		host:      host,
		formatter: format.NewSimple(),
		logger:    logging.NewNop(),
		lang:      DefaultFenceLanguage,
		platform:  luamod.Info{Name: "evalrepl"},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.id == "" {
		c.id = uuid.NewString()
	}
	c.lifetime, c.stop = context.WithCancel(context.Background())

	c.engine = runtime.NewEngine(runtime.WithLogger(c.logger))
	env := c.engine.Environment()
	c.session = &Session{
		id:        c.id,
		createdAt: time.Now(),
		env:       env,
		console:   c,
	}

	L := c.engine.State()
	env.Seed(SeedHost, host)
	env.Seed(SeedInspect, luamod.NewInspect(L))
	env.Seed(SeedSelf, c.session)
	env.Seed(SeedPlatform, luamod.NewPlatform(c.lifetime, L, c.platform))

	env.Reset()
	c.prelude(c.lifetime)
	return c
}

// ID returns the session ID.
func (c *Console) ID() string { return c.id }

// Evaluate runs one message through the console.
//
// Errors raised by the evaluated code are part of the rendering. The
// returned error is reserved for failures of the console itself: a closed
// session, rejected input or a formatter failure.
func (c *Console) Evaluate(ctx context.Context, raw string, inv domain.Invocation) (domain.Rendering, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.Rendering{}, domain.ErrSessionClosed
	}

	clean, err := SanitizeInput(raw, c.maxInput)
	if err != nil {
		return domain.Rendering{}, err
	}

	// 1. Decoration and control tokens
	d := Preprocess(StripFences(clean, c.lang), inv)
	if d.Control {
		c.reset(ctx, d.Token)
		return c.formatter.Exit(d.Token), nil
	}

	// 2. Execute
	c.session.invocations++
	invocationID := uuid.NewString()
	unit := compiler.Transform(d.Input)

	if c.hooks.OnEvaluate != nil {
		c.hooks.OnEvaluate(ctx, &domain.EvalEvent{
			EventBase:    c.event(domain.EventEvaluate),
			InvocationID: invocationID,
			Input:        d.Input,
			Shape:        unit.Shape,
		})
	}

	runCtx, cancel := c.bounded(ctx)
	defer cancel()
	res := c.engine.Execute(runCtx, unit, d.Context)

	c.logger.Debug("Evaluated",
		"session_id", c.id,
		"invocation_id", invocationID,
		"shape", res.Shape,
		"failed", res.Failed(),
		"duration", res.Duration,
	)

	if c.hooks.OnResult != nil {
		c.hooks.OnResult(ctx, &domain.EvalEvent{
			EventBase:    c.event(domain.EventResult),
			InvocationID: invocationID,
			Input:        d.Input,
			Shape:        res.Shape,
			Result:       &res,
		})
	}
	c.record(ctx, invocationID, d.Input, res)

	// 3. Render
	r, err := c.formatter.Format(d.Input, res.Value, res.Output)
	if err != nil {
		return domain.Rendering{}, fmt.Errorf("failed to format result: %w", err)
	}
	return r, nil
}

// Reset restores the seed bindings, as typing an exit token does, without
// rendering a farewell.
func (c *Console) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrSessionClosed
	}
	c.reset(ctx, "")
	return nil
}

// Names lists the current bindings.
func (c *Console) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Names()
}

// Lookup returns the Go value bound to name.
func (c *Console) Lookup(name string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Environment().Get(name)
}

// Formatter returns the active formatter.
func (c *Console) Formatter() format.Formatter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.formatter
}

// SetFormatter swaps the formatting strategy. The environment is untouched.
func (c *Console) SetFormatter(f format.Formatter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.formatter = f
}

// Close releases the interpreter. Further calls fail with
// domain.ErrSessionClosed.
func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.stop()
	c.engine.Close()
	return nil
}

func (c *Console) reset(ctx context.Context, token string) {
	c.engine.Environment().Reset()
	c.session.resets++
	c.prelude(ctx)

	c.logger.Info("Session reset", "session_id", c.id, "token", token)
	if c.hooks.OnReset != nil {
		c.hooks.OnReset(ctx, &domain.ResetEvent{
			EventBase: c.event(domain.EventReset),
			Token:     token,
		})
	}

	if c.history != nil {
		rec := &domain.Record{
			ID:        uuid.NewString(),
			SessionID: c.id,
			Input:     token,
			Reset:     true,
			CreatedAt: time.Now().UTC(),
		}
		if err := c.history.Append(ctx, rec); err != nil {
			c.logger.Warn("Failed to record reset", "session_id", c.id, "err", err)
		}
	}
}

// prelude runs the autoload snippets. Failures are logged and skipped.
func (c *Console) prelude(ctx context.Context) {
	if c.snippets == nil {
		return
	}
	all, err := c.snippets.Snippets(ctx)
	if err != nil {
		c.logger.Warn("Failed to list snippets", "session_id", c.id, "err", err)
		return
	}
	for _, s := range ports.Autoload(all) {
		runCtx, cancel := c.bounded(ctx)
		res := c.engine.Execute(runCtx, compiler.Statement(s.Code), nil)
		cancel()
		if res.Failed() {
			c.logger.Warn("Snippet failed", "session_id", c.id, "snippet", s.Name, "err", res.Error)
		}
	}
	c.engine.Buffer().Rewind()
}

// bounded applies the configured timeout to one run of the engine.
func (c *Console) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

func (c *Console) record(ctx context.Context, id, input string, res domain.Result) {
	if c.history == nil {
		return
	}

	rec := &domain.Record{
		ID:        id,
		SessionID: c.id,
		Input:     input,
		Shape:     res.Shape,
		Output:    res.Output,
		Error:     res.Error,
		Duration:  res.Duration,
		CreatedAt: time.Now().UTC(),
	}
	if res.Value != nil {
		rec.Value = format.Repr(res.Value)
	}
	if !res.Bindings.IsEmpty() {
		b := res.Bindings
		rec.Bindings = &b
	}

	if err := c.history.Append(ctx, rec); err != nil {
		c.logger.Warn("Failed to record invocation", "session_id", c.id, "err", err)
	}
}

func (c *Console) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: time.Now(),
		Type:      t,
		SessionID: c.id,
	}
}
