package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/auro-chat/backend/internal/sched"
	"github.com/zhouzirui/auro-chat/backend/internal/service/engine"
	"github.com/zhouzirui/auro-chat/backend/internal/storage"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.New(context.Background(), engine.Options{
		Backend:   storage.NewMemoryBackend(),
		Scheduler: sched.NewManual(time.Unix(0, 0)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	return e
}

func TestRouterMountsAPI(t *testing.T) {
	router := NewRouter(newTestEngine(t))

	for _, path := range []string{"/healthz", "/api/state", "/api/messages", "/api/theme", "/api/presence", "/api/commands"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"), path)
	}
}

func TestRouterExposesMetrics(t *testing.T) {
	e := newTestEngine(t)
	router := NewRouter(e)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{"content":"hi"}`)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "chat_messages_sent_total")
}

func TestRouterUnknownRoute(t *testing.T) {
	router := NewRouter(newTestEngine(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/personas", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
