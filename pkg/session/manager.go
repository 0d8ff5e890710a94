package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/evalrepl/internal/logging"
	"github.com/aretw0/evalrepl/pkg/console"
	"github.com/aretw0/evalrepl/pkg/domain"
	"github.com/aretw0/evalrepl/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// Factory builds the console for a new session ID.
type Factory func(id string) *console.Console

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// pendingConsole is a console under construction.
type pendingConsole struct {
	done    chan struct{}
	console *console.Console
}

// Manager keeps one Console per session ID, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	factory Factory

	mu       sync.Mutex                  // Global lock for the maps
	locks    map[string]*lockEntry       // Map of active locks
	consoles map[string]*console.Console // Live sessions
	pending  map[string]*pendingConsole  // Sessions being built

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Session Manager that builds consoles with factory.
func NewManager(factory Factory, opts ...Option) *Manager {
	m := &Manager{
		factory:  factory,
		locks:    make(map[string]*lockEntry),
		consoles: make(map[string]*console.Console),
		pending:  make(map[string]*pendingConsole),
		lockTTL:  DefaultLockTTL,
		logger:   logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Get returns the live console for sessionID.
func (m *Manager) Get(sessionID string) (*console.Console, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.consoles[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return c, nil
}

// GetOrCreate returns the console for sessionID, creating it on first use.
//
// The factory runs without the map lock held, since a console's prelude
// may call back into the manager through the host binding. Concurrent
// callers for the same ID wait for the one build in progress.
func (m *Manager) GetOrCreate(sessionID string) *console.Console {
	m.mu.Lock()
	if c, ok := m.consoles[sessionID]; ok {
		m.mu.Unlock()
		return c
	}
	if p, ok := m.pending[sessionID]; ok {
		m.mu.Unlock()
		<-p.done
		return p.console
	}
	p := &pendingConsole{done: make(chan struct{})}
	m.pending[sessionID] = p
	m.mu.Unlock()

	p.console = m.factory(sessionID)

	m.mu.Lock()
	m.consoles[sessionID] = p.console
	delete(m.pending, sessionID)
	m.mu.Unlock()
	close(p.done)

	m.logger.Debug("Session created", "session_id", sessionID)
	return p.console
}

// Evaluate runs raw in the session, creating the session if needed.
func (m *Manager) Evaluate(ctx context.Context, sessionID, raw string, inv domain.Invocation) (domain.Rendering, error) {
	var r domain.Rendering
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		r, err = m.GetOrCreate(sessionID).Evaluate(ctx, raw, inv)
		return err
	})
	return r, err
}

// Reset restores the seed bindings of an existing session.
func (m *Manager) Reset(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		c, err := m.Get(sessionID)
		if err != nil {
			return err
		}
		return c.Reset(ctx)
	})
}

// Delete closes and forgets the session. Unknown sessions are ignored.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m.mu.Lock()
		c, ok := m.consoles[sessionID]
		delete(m.consoles, sessionID)
		m.mu.Unlock()

		if !ok {
			return nil
		}
		return c.Close()
	})
}

// List returns the live session IDs in lexical order.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.consoles))
	for id := range m.consoles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close closes every session.
func (m *Manager) Close() error {
	m.mu.Lock()
	consoles := m.consoles
	m.consoles = make(map[string]*console.Console)
	m.mu.Unlock()

	for _, c := range consoles {
		_ = c.Close()
	}
	return nil
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	// Distributed Locking
	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
