package session_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/evalrepl/pkg/adapters/memory"
	"github.com/aretw0/evalrepl/pkg/console"
	"github.com/aretw0/evalrepl/pkg/domain"
	"github.com/aretw0/evalrepl/pkg/ports"
	"github.com/aretw0/evalrepl/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func factory(id string) *console.Console {
	return console.New(nil, console.WithID(id))
}

func TestManager_EvaluatePersistsPerSession(t *testing.T) {
	m := session.NewManager(factory)
	defer m.Close()
	ctx := context.Background()

	_, err := m.Evaluate(ctx, "a", "x = 1", domain.Invocation{})
	require.NoError(t, err)
	_, err = m.Evaluate(ctx, "b", "x = 2", domain.Invocation{})
	require.NoError(t, err)

	r, err := m.Evaluate(ctx, "a", "x", domain.Invocation{})
	require.NoError(t, err)
	assert.Equal(t, ">>> x\n1", r.Text)

	assert.Equal(t, []string{"a", "b"}, m.List())
}

func TestManager_Locking(t *testing.T) {
	m := session.NewManager(factory)
	defer m.Close()
	ctx := context.Background()
	id := "race-test"

	_, err := m.Evaluate(ctx, id, "n = 0", domain.Invocation{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	concurrentWrites := 20
	for i := 0; i < concurrentWrites; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Evaluate(ctx, id, "n = n + 1", domain.Invocation{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, float64(concurrentWrites), c.Lookup("n"))
}

func TestManager_GetOrCreateIsAtomic(t *testing.T) {
	var created atomic.Int32
	m := session.NewManager(func(id string) *console.Console {
		created.Add(1)
		return factory(id)
	})
	defer m.Close()

	var wg sync.WaitGroup
	results := make([]*console.Console, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.GetOrCreate("atomic-init")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	for _, c := range results {
		assert.Same(t, results[0], c)
	}
}

type managedHost struct {
	m *session.Manager
}

func (h *managedHost) Sessions() []string { return h.m.List() }

func TestManager_PreludeCallingHostDoesNotDeadlock(t *testing.T) {
	lib := memory.NewLibrary(domain.Snippet{
		Name:     "known",
		Autoload: true,
		Code:     "known = #bot:Sessions()",
	})
	host := &managedHost{}
	m := session.NewManager(func(id string) *console.Console {
		return console.New(host, console.WithID(id), console.WithSnippets(lib), console.WithTimeout(time.Second))
	})
	host.m = m
	defer m.Close()

	done := make(chan domain.Rendering, 1)
	go func() {
		_, err := m.Evaluate(context.Background(), "first", "1", domain.Invocation{})
		assert.NoError(t, err)
		r, err := m.Evaluate(context.Background(), "second", "known", domain.Invocation{})
		assert.NoError(t, err)
		done <- r
	}()

	select {
	case r := <-done:
		assert.Equal(t, ">>> known\n1", r.Text)
	case <-time.After(5 * time.Second):
		t.Fatal("session creation blocked on the manager")
	}
}

func TestManager_ResetAndDelete(t *testing.T) {
	m := session.NewManager(factory)
	defer m.Close()
	ctx := context.Background()

	assert.ErrorIs(t, m.Reset(ctx, "missing"), domain.ErrSessionNotFound)

	_, err := m.Evaluate(ctx, "s", "tmp = 1", domain.Invocation{})
	require.NoError(t, err)
	require.NoError(t, m.Reset(ctx, "s"))

	c, err := m.Get("s")
	require.NoError(t, err)
	assert.NotContains(t, c.Names(), "tmp")

	require.NoError(t, m.Delete(ctx, "s"))
	_, err = m.Get("s")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.NoError(t, m.Delete(ctx, "s"))

	_, err = c.Evaluate(ctx, "1", domain.Invocation{})
	assert.ErrorIs(t, err, domain.ErrSessionClosed, "deleted sessions are closed")
}

type countingLocker struct {
	mu      sync.Mutex
	held    map[string]bool
	locks   int
	unlocks int
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	if l.held[key] {
		return nil, assert.AnError
	}
	l.held[key] = true
	l.locks++
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		l.unlocks++
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &countingLocker{}
	m := session.NewManager(factory, session.WithLocker(locker), session.WithLockTTL(time.Second))
	defer m.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := m.Evaluate(ctx, "s", "1", domain.Invocation{})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, locker.locks)
	assert.Equal(t, 3, locker.unlocks)

	// A lock held elsewhere fails the call
	locker.held["s"] = true
	_, err := m.Evaluate(ctx, "s", "1", domain.Invocation{})
	assert.ErrorIs(t, err, assert.AnError)
}
