package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/evalrepl/pkg/adapters/memory"
	"github.com/aretw0/evalrepl/pkg/console"
	"github.com/aretw0/evalrepl/pkg/domain"
	"github.com/aretw0/evalrepl/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, opts ...console.Option) (http.Handler, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	m := session.NewManager(func(id string) *console.Console {
		return console.New(nil, append([]console.Option{
			console.WithID(id),
			console.WithHistory(store),
		}, opts...)...)
	})
	t.Cleanup(func() { m.Close() })
	return NewHandler(m, WithHistory(store)), store
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(http.MethodPost, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decodeRendering(t *testing.T, w *httptest.ResponseRecorder) domain.Rendering {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var r domain.Rendering
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	return r
}

func TestHealthAndInfo(t *testing.T) {
	h, _ := newTestHandler(t)

	w := get(h, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = get(h, "/info")
	require.Equal(t, http.StatusOK, w.Code)
	var info map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "evalrepl-http", info["app"])
	assert.Equal(t, "1.0.0", info["api_version"])
	assert.NotEmpty(t, info["version"])
}

func TestOpenAPIDocument(t *testing.T) {
	h, _ := newTestHandler(t)

	w := get(h, "/openapi.yaml")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/sessions/{sessionId}/eval")

	w = get(h, "/swagger")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "swagger-ui")
}

func TestEvaluate_PersistsBindings(t *testing.T) {
	h, _ := newTestHandler(t)

	decodeRendering(t, post(t, h, "/sessions/s1/eval", EvalRequest{Input: "x = 41"}))
	r := decodeRendering(t, post(t, h, "/sessions/s1/eval", EvalRequest{Input: "x + 1"}))
	assert.Equal(t, ">>> x + 1\n42", r.Text)

	// Another session does not see x.
	r = decodeRendering(t, post(t, h, "/sessions/s2/eval", EvalRequest{Input: "x"}))
	assert.Equal(t, ">>> x", r.Text)
}

func TestEvaluate_InvocationContext(t *testing.T) {
	h, _ := newTestHandler(t)
	author := "ada"

	r := decodeRendering(t, post(t, h, "/sessions/s1/eval", EvalRequest{Input: "author.Name", Author: &author}))
	assert.Contains(t, r.Text, "ada")

	r = decodeRendering(t, post(t, h, "/sessions/s1/eval", EvalRequest{Input: "message.Content"}))
	assert.Contains(t, r.Text, "message.Content")
	assert.True(t, strings.Count(r.Text, "message.Content") == 2, r.Text)
}

func TestEvaluate_FencedInput(t *testing.T) {
	h, _ := newTestHandler(t)

	r := decodeRendering(t, post(t, h, "/sessions/s1/eval", EvalRequest{Input: "```lua\nprint('hi')\n```"}))
	assert.Equal(t, ">>> print('hi')\nhi", r.Text)
}

func TestEvaluate_RuntimeErrorIsRendered(t *testing.T) {
	h, _ := newTestHandler(t)

	r := decodeRendering(t, post(t, h, "/sessions/s1/eval", EvalRequest{Input: "error('boom')"}))
	assert.Contains(t, r.Text, "RuntimeError")
	assert.Contains(t, r.Text, "boom")
}

func TestEvaluate_Rejections(t *testing.T) {
	h, _ := newTestHandler(t, console.WithMaxInputSize(8))

	t.Run("Missing input", func(t *testing.T) {
		w := post(t, h, "/sessions/s1/eval", map[string]any{"author": "ada"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/sessions/s1/eval", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Oversized input", func(t *testing.T) {
		w := post(t, h, "/sessions/s1/eval", EvalRequest{Input: "x = 1234567890"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "maximum allowed size")
	})
}

func TestExitTokenResetsSession(t *testing.T) {
	h, _ := newTestHandler(t)

	decodeRendering(t, post(t, h, "/sessions/s1/eval", EvalRequest{Input: "x = 1"}))
	r := decodeRendering(t, post(t, h, "/sessions/s1/eval", EvalRequest{Input: "exit()"}))
	assert.Equal(t, ">>> exit()\nenvironment reset", r.Text)

	r = decodeRendering(t, post(t, h, "/sessions/s1/eval", EvalRequest{Input: "x"}))
	assert.Equal(t, ">>> x", r.Text)
}

func TestResetAndDelete(t *testing.T) {
	h, _ := newTestHandler(t)

	w := post(t, h, "/sessions/ghost/reset", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	decodeRendering(t, post(t, h, "/sessions/s1/eval", EvalRequest{Input: "x = 1"}))
	w = post(t, h, "/sessions/s1/reset", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	r := decodeRendering(t, post(t, h, "/sessions/s1/eval", EvalRequest{Input: "x"}))
	assert.Equal(t, ">>> x", r.Text)

	w = get(h, "/sessions")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sessions":["s1"]}`, w.Body.String())

	req := httptest.NewRequest(http.MethodDelete, "/sessions/s1", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = get(h, "/sessions")
	assert.JSONEq(t, `{"sessions":[]}`, w.Body.String())
}

func TestGetHistory(t *testing.T) {
	h, _ := newTestHandler(t)

	for _, in := range []string{"a = 1", "b = 2", "a + b"} {
		decodeRendering(t, post(t, h, "/sessions/s1/eval", EvalRequest{Input: in}))
	}

	w := get(h, "/sessions/s1/history")
	require.Equal(t, http.StatusOK, w.Code)
	var records []domain.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 3)
	assert.Equal(t, "a = 1", records[0].Input)
	assert.Equal(t, "3", records[2].Value)

	w = get(h, "/sessions/s1/history?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "a + b", records[0].Input)

	w = get(h, "/sessions/s1/history?limit=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(h, "/sessions/unknown/history")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodOptions, "/sessions/s1/eval", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSubscribeEvents_Session(t *testing.T) {
	h, _ := newTestHandler(t)

	// 1. Subscribe
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wSub := httptest.NewRecorder()
	reqSub := httptest.NewRequest(http.MethodGet, "/events?sessionId=sess-1", nil).WithContext(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(wSub, reqSub)
	}()

	time.Sleep(100 * time.Millisecond) // Wait for subscription to register

	// 2. Evaluate in the watched session
	decodeRendering(t, post(t, h, "/sessions/sess-1/eval", EvalRequest{Input: "6 * 7"}))

	// 3. Stop subscription to flush
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	output := wSub.Body.String()
	assert.Contains(t, output, "event: ping")
	assert.Contains(t, output, "event: rendering")
	assert.Contains(t, output, `6 * 7\n42`)
}

func TestSubscribeEvents_RequiresSession(t *testing.T) {
	h, _ := newTestHandler(t)

	w := get(h, "/events")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStreamManager_DropsWhenFull(t *testing.T) {
	sm := NewStreamManager()
	ch, unsubscribe := sm.Subscribe("s")

	for i := 0; i < 20; i++ {
		sm.Broadcast("s", "msg")
	}
	assert.Len(t, ch, 10)

	unsubscribe()
	assert.NotPanics(t, func() { sm.Broadcast("s", "after") })
}
