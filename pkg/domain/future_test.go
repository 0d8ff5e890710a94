package domain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/evalrepl/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_ResolveOnce(t *testing.T) {
	f := domain.NewFuture()
	assert.False(t, f.Done())
	assert.Equal(t, "<future pending>", f.String())

	f.Resolve(42, nil)
	f.Resolve(7, errors.New("ignored"))

	val, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.True(t, f.Done())
	assert.Equal(t, "<future resolved>", f.String())
}

func TestFuture_AwaitHonorsContext(t *testing.T) {
	f := domain.NewFuture()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGo_RecoversPanics(t *testing.T) {
	f := domain.Go(context.Background(), func(context.Context) (any, error) {
		panic("boom")
	})
	_, err := f.Await(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{
		OnEvaluate: func(context.Context, *domain.EvalEvent) { calls = append(calls, "a") },
	}
	b := domain.LifecycleHooks{
		OnEvaluate: func(context.Context, *domain.EvalEvent) { calls = append(calls, "b") },
		OnReset:    func(context.Context, *domain.ResetEvent) { calls = append(calls, "reset") },
	}

	merged := a.Merge(b)
	merged.OnEvaluate(context.Background(), &domain.EvalEvent{})
	merged.OnReset(context.Background(), &domain.ResetEvent{})
	assert.Nil(t, merged.OnResult)
	assert.Equal(t, []string{"a", "b", "reset"}, calls)
}

func TestInvocation_ContextMap(t *testing.T) {
	inv := domain.Invocation{
		Message: domain.Message{ID: "m1", Content: "hi"},
		Author:  domain.User{ID: "u1", Name: "ada"},
		Self:    domain.User{ID: "bot", Bot: true},
	}
	m := inv.ContextMap()
	assert.Len(t, m, 6)
	assert.Equal(t, domain.User{ID: "u1", Name: "ada"}, m["author"])
	assert.Contains(t, m, "guild")
	assert.Nil(t, m["guild"])
	assert.Equal(t, domain.User{ID: "bot", Bot: true}, m["me"])
}
