package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/evalrepl"
	"github.com/aretw0/evalrepl/internal/config"
	"github.com/aretw0/evalrepl/pkg/adapters/file"
	"github.com/aretw0/evalrepl/pkg/adapters/loam"
	"github.com/aretw0/evalrepl/pkg/adapters/memory"
	"github.com/aretw0/evalrepl/pkg/adapters/redis"
	"github.com/aretw0/evalrepl/pkg/console"
	"github.com/aretw0/evalrepl/pkg/domain"
	"github.com/aretw0/evalrepl/pkg/format"
	"github.com/aretw0/evalrepl/pkg/observability"
	"github.com/aretw0/evalrepl/pkg/persistence/middleware"
	"github.com/aretw0/evalrepl/pkg/ports"
	"github.com/aretw0/evalrepl/pkg/session"
	backend "github.com/redis/go-redis/v9"
)

// Host is bound as bot in every session started by the bundled hosts.
type Host struct {
	Name      string
	Version   string
	Transport string

	sessions *session.Manager
}

// Sessions lists the live session IDs.
func (h *Host) Sessions() []string {
	if h.sessions == nil {
		return nil
	}
	return h.sessions.List()
}

func (h *Host) String() string {
	return fmt.Sprintf("<%s %s via %s>", h.Name, h.Version, h.Transport)
}

// App holds the components built from the configuration.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Host     *Host
	Sessions *session.Manager
	History  ports.HistoryStore
	Snippets ports.SnippetLibrary
	Metrics  *observability.Metrics

	closers []func() error
}

// NewApp wires the session manager and its backends for the given transport.
func NewApp(cfg *config.Config, logger *slog.Logger, transport string) (*App, error) {
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
		Host: &Host{
			Name:      "evalrepl",
			Version:   strings.TrimSpace(evalrepl.Version),
			Transport: transport,
		},
	}

	var redisClient *backend.Client
	if cfg.Redis.URL != "" {
		o, err := backend.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		redisClient = backend.NewClient(o)
		app.closers = append(app.closers, redisClient.Close)
	}

	history, err := OpenHistory(cfg, redisClient)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.History = history

	if cfg.Snippets.Dir != "" {
		lib, err := loam.Open(cfg.Snippets.Dir)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to open snippets: %w", err)
		}
		lib.Lang = cfg.FenceLanguage
		app.Snippets = lib
	}

	managerOpts := []session.Option{session.WithLogger(logger)}
	if cfg.Redis.Lock {
		managerOpts = append(managerOpts, session.WithLocker(redis.NewLocker(redisClient, cfg.Redis.Prefix)))
	}
	app.Sessions = session.NewManager(app.newConsole, managerOpts...)
	app.Host.sessions = app.Sessions
	app.closers = append(app.closers, app.Sessions.Close)

	return app, nil
}

// OpenHistory builds the history store selected by cfg.History.Backend,
// wrapped in the configured redaction and encryption.
// The none backend yields a nil store.
func OpenHistory(cfg *config.Config, client *backend.Client) (ports.HistoryStore, error) {
	var store ports.HistoryStore
	switch cfg.History.Backend {
	case config.BackendNone:
		return nil, nil
	case config.BackendMemory:
		store = memory.NewStore()
	case config.BackendFile:
		store = file.New(cfg.History.Path)
	case config.BackendRedis:
		if client == nil {
			return nil, errors.New("redis history backend requires redis.url")
		}
		store = redis.NewFromClient(client,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.History.TTL),
			redis.WithMaxRecords(cfg.History.MaxRecords),
		)
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.History.Backend)
	}

	var mws []middleware.Middleware
	if len(cfg.History.Redact) > 0 {
		redact, err := middleware.NewRedactMiddleware(cfg.History.Redact)
		if err != nil {
			return nil, fmt.Errorf("invalid history.redact: %w", err)
		}
		mws = append(mws, redact)
	}
	active, fallback, err := cfg.History.Keys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		seal, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		})
		if err != nil {
			return nil, err
		}
		mws = append(mws, seal)
	}
	return middleware.Chain(store, mws...), nil
}

// ConsoleOptions translates the configuration into console options.
func (a *App) ConsoleOptions(id string) []console.Option {
	f, err := format.New(a.Config.Formatter)
	if err != nil {
		f = format.NewSimple()
	}

	hooks := a.Metrics.Hooks()
	if a.Logger.Enabled(context.Background(), slog.LevelDebug) {
		hooks = hooks.Merge(observability.LoggingHooks(a.Logger))
	}

	opts := []console.Option{
		console.WithID(id),
		console.WithFormatter(f),
		console.WithLogger(a.Logger),
		console.WithHooks(hooks),
		console.WithTimeout(a.Config.Timeout),
		console.WithFenceLanguage(a.Config.FenceLanguage),
		console.WithPlatform(a.Host.Name, a.Host.Version),
		console.WithMaxInputSize(a.Config.MaxInputSize),
	}
	if a.History != nil {
		opts = append(opts, console.WithHistory(a.History))
	}
	if a.Snippets != nil {
		opts = append(opts, console.WithSnippets(a.Snippets))
	}
	return opts
}

func (a *App) newConsole(id string) *console.Console {
	return console.New(a.Host, a.ConsoleOptions(id)...)
}

// Invocation builds the context of a message typed by author in the
// transport's channel.
func (a *App) Invocation(content, author string) domain.Invocation {
	return domain.Invocation{
		Message: domain.Message{Content: content},
		Author:  domain.User{ID: author, Name: author},
		Channel: domain.Channel{ID: a.Host.Transport, Name: a.Host.Transport},
		Self:    domain.User{ID: a.Host.Name, Name: a.Host.Name, Bot: true},
	}
}

// Close releases the sessions and backend connections, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
