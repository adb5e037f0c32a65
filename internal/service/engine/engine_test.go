package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zhouzirui/auro-chat/backend/internal/model/chat"
	"github.com/zhouzirui/auro-chat/backend/internal/sched"
	chatservice "github.com/zhouzirui/auro-chat/backend/internal/service/chat"
	"github.com/zhouzirui/auro-chat/backend/internal/service/store"
	"github.com/zhouzirui/auro-chat/backend/internal/storage"
)

func newManualEngine(t *testing.T, backend storage.Backend) (*Engine, *sched.Manual) {
	t.Helper()
	clock := sched.NewManual(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	seed := uint64(7)
	e, err := New(context.Background(), Options{Backend: backend, Scheduler: clock, Seed: &seed})
	require.NoError(t, err)
	return e, clock
}

func TestEngineRoundTripAcrossRestart(t *testing.T) {
	backend := storage.NewMemoryBackend()

	e, clock := newManualEngine(t, backend)
	e.Start()
	e.Chat.Send("explain goroutines")
	e.Store.ToggleTheme()
	clock.Advance(5 * time.Second)
	clock.Advance(5 * time.Second) // presence ticks too
	want := e.Store.State()
	require.Len(t, want.Messages, 3)
	require.NoError(t, e.Close(context.Background()))

	raw, ok, err := backend.Load(context.Background(), store.StorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	var record map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &record))
	require.Len(t, record, 2)
	require.NotContains(t, record, "users")

	restarted, _ := newManualEngine(t, backend)
	defer func() { _ = restarted.Close(context.Background()) }()
	restarted.Start()
	require.Equal(t, want, restarted.Store.State())
	require.Equal(t, chat.ThemeDark, restarted.Snapshot().Theme)
}

func TestEngineStartPostsWelcome(t *testing.T) {
	e, _ := newManualEngine(t, storage.NewMemoryBackend())
	defer func() { _ = e.Close(context.Background()) }()

	e.Start()
	snap := e.Snapshot()
	require.Len(t, snap.Messages, 1)
	require.Equal(t, chatservice.WelcomeText, snap.Messages[0].Content)
	require.Len(t, snap.Users, 4)
	require.False(t, snap.Typing)
}

func TestWatchSeesEveryKindOfChange(t *testing.T) {
	e, clock := newManualEngine(t, storage.NewMemoryBackend())
	defer func() { _ = e.Close(context.Background()) }()

	var snaps []Snapshot
	unwatch := e.Watch(func(s Snapshot) { snaps = append(snaps, s) })
	e.Start()
	require.Len(t, snaps, 1) // welcome

	e.Chat.Send("hi")
	// user message appended, then typing flips on
	require.Len(t, snaps, 3)
	require.True(t, snaps[2].Typing)

	clock.Advance(5 * time.Second)
	last := snaps[len(snaps)-1]
	require.False(t, last.Typing)
	require.Len(t, last.Messages, 3)
	require.NotEqual(t, chat.SeedRoster(), last.Users)

	unwatch()
	n := len(snaps)
	e.Chat.Send("quiet")
	require.Len(t, snaps, n)
}

func TestEngineWithRealSchedulerShutsDownCleanly(t *testing.T) {
	defer goleak.VerifyNone(t)

	e, err := New(context.Background(), Options{
		Backend:  storage.NewMemoryBackend(),
		TimeUnit: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	e.Start()
	e.Chat.Send("hello")

	require.Eventually(t, func() bool {
		return len(e.Store.Messages()) == 3
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return e.Store.Messages()[1].Status == chat.StatusRead
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, e.Close(context.Background()))
}

func TestMessageSendersAreSnapshots(t *testing.T) {
	e, clock := newManualEngine(t, storage.NewMemoryBackend())
	defer func() { _ = e.Close(context.Background()) }()
	e.Start()
	e.Chat.Send("hello")
	clock.Advance(2 * time.Second)

	before := e.Store.Messages()
	require.Len(t, before, 3)

	transitions := 0
	stop := e.Presence.Subscribe(func([]chat.User) { transitions++ })
	defer stop()
	for i := 0; i < 10; i++ {
		clock.Advance(5 * time.Second)
	}
	require.Equal(t, 10, transitions)

	after := e.Store.Messages()
	require.Equal(t, before, after)
	for _, m := range after {
		switch m.Sender.ID {
		case chat.AssistantID:
			require.Equal(t, chat.Assistant(), m.Sender)
		case chat.CurrentUserID:
			require.Equal(t, chat.CurrentUser(), m.Sender)
		default:
			t.Fatalf("unexpected sender %q", m.Sender.ID)
		}
		require.Equal(t, chat.PresenceOnline, m.Sender.Status)
	}
}
