package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/evalrepl/pkg/console"
	"github.com/aretw0/evalrepl/pkg/domain"
	"github.com/aretw0/evalrepl/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordsEvaluations(t *testing.T) {
	m := observability.NewMetrics()
	c := console.New(nil, console.WithHooks(m.Hooks()))
	defer c.Close()
	ctx := context.Background()

	for _, in := range []string{"1 + 1", "x = 1", "error('boom')", "exit"} {
		_, err := c.Evaluate(ctx, in, domain.Invocation{})
		require.NoError(t, err)
	}

	n, err := testutil.GatherAndCount(m.Registry(), "evalrepl_evaluations_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n, "one series per shape and outcome seen")

	body := scrape(t, m.Handler())
	assert.Contains(t, body, `evalrepl_evaluations_total{outcome="ok",shape="expression"} 1`)
	assert.Contains(t, body, `evalrepl_evaluations_total{outcome="ok",shape="statement"} 1`)
	assert.Contains(t, body, `evalrepl_evaluations_total{outcome="error",shape="expression"} 1`)
	assert.Contains(t, body, "evalrepl_resets_total 1")
	assert.Contains(t, body, "evalrepl_evaluations_in_flight 0")
	assert.Contains(t, body, `evalrepl_evaluation_duration_seconds_count{shape="expression"} 2`)
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	hooks := observability.LoggingHooks(logger).Merge(observability.NewMetrics().Hooks())
	c := console.New(nil, console.WithID("s1"), console.WithHooks(hooks))
	defer c.Close()
	ctx := context.Background()

	_, err := c.Evaluate(ctx, "error('boom')", domain.Invocation{})
	require.NoError(t, err)
	_, err = c.Evaluate(ctx, "quit", domain.Invocation{})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "msg=evaluation")
	assert.Contains(t, out, "session_id=s1")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "msg=reset")
	assert.Contains(t, out, "token=quit")
}

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}
