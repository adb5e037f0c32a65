package presence

import (
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/auro-chat/backend/internal/model/chat"
	"github.com/zhouzirui/auro-chat/backend/internal/sched"
	"github.com/zhouzirui/auro-chat/backend/internal/service/presence"
)

func TestListPresenceTracksSimulator(t *testing.T) {
	clock := sched.NewManual(time.Unix(0, 0))
	sim := presence.NewSimulator(chat.SeedRoster(), clock, rand.New(rand.NewPCG(3, 4)), 5*time.Second)
	r := chi.NewRouter()
	New(sim).RegisterRoutes(r)

	get := func() []chat.User {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/presence", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var users []chat.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
		return users
	}

	require.Equal(t, chat.SeedRoster(), get())

	sim.Start()
	defer sim.Stop()
	clock.Advance(5 * time.Second)

	users := get()
	require.Len(t, users, 4)
	require.Equal(t, chat.AssistantID, users[0].ID)
	require.Equal(t, chat.SeedRoster()[:2], users[:2])
	require.NotEqual(t, chat.SeedRoster()[2:], users[2:])
}
