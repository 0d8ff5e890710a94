package ports

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/aretw0/evalrepl/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunHistoryStoreContract runs a suite of tests to verify that a HistoryStore
// implementation adheres to the defined interface contract.
func RunHistoryStoreContract(t *testing.T, store HistoryStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	record := func(sid string, n int) *domain.Record {
		return &domain.Record{
			ID:        fmt.Sprintf("%s-rec-%d", sid, n),
			SessionID: sid,
			Input:     fmt.Sprintf("x = %d", n),
			Shape:     domain.ShapeStatement,
			Bindings:  &domain.BindingDiff{Added: []string{"x"}},
			Duration:  time.Millisecond,
			CreatedAt: time.Now().UTC().Add(time.Duration(n) * time.Second),
		}
	}

	t.Run("Append and List", func(t *testing.T) {
		for i := 1; i <= 3; i++ {
			require.NoError(t, store.Append(ctx, record(sessionID, i)))
		}

		records, err := store.List(ctx, sessionID)
		require.NoError(t, err)
		require.Len(t, records, 3)
		for i, rec := range records {
			assert.Equal(t, fmt.Sprintf("x = %d", i+1), rec.Input, "records are kept oldest first")
		}
		assert.Equal(t, []string{"x"}, records[0].Bindings.Added)
	})

	t.Run("Get", func(t *testing.T) {
		rec, err := store.Get(ctx, sessionID, sessionID+"-rec-2")
		require.NoError(t, err)
		assert.Equal(t, "x = 2", rec.Input)
		assert.Equal(t, domain.ShapeStatement, rec.Shape)
		assert.Equal(t, time.Millisecond, rec.Duration)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, sessionID, "missing")
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})

	t.Run("List Unknown Session", func(t *testing.T) {
		records, err := store.List(ctx, "non-existent-"+sessionID)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("Sessions", func(t *testing.T) {
		other := sessionID + "-other"
		require.NoError(t, store.Append(ctx, record(other, 1)))
		defer func() { _ = store.Delete(ctx, other) }()

		sessions, err := store.Sessions(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, sessionID)
		assert.Contains(t, sessions, other)
		assert.True(t, sort.StringsAreSorted(sessions))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, sessionID))

		records, err := store.List(ctx, sessionID)
		require.NoError(t, err)
		assert.Empty(t, records)

		_, err = store.Get(ctx, sessionID, sessionID+"-rec-1")
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)

		sessions, err := store.Sessions(ctx)
		require.NoError(t, err)
		assert.NotContains(t, sessions, sessionID)

		// Idempotent
		assert.NoError(t, store.Delete(ctx, sessionID))
	})
}
