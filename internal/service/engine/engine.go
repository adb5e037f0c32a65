// Package engine assembles the chat state engine: the durable store, the
// message lifecycle coordinator, and the presence simulator, all driven by one
// scheduler.
package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/auro-chat/backend/internal/model/chat"
	"github.com/zhouzirui/auro-chat/backend/internal/sched"
	"github.com/zhouzirui/auro-chat/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/auro-chat/backend/internal/service/chat"
	"github.com/zhouzirui/auro-chat/backend/internal/service/presence"
	"github.com/zhouzirui/auro-chat/backend/internal/service/store"
	"github.com/zhouzirui/auro-chat/backend/internal/storage"
)

// Options configures an Engine. Zero values pick production defaults.
type Options struct {
	Backend        storage.Backend
	Scheduler      sched.Scheduler
	TimeUnit       time.Duration
	PresencePeriod time.Duration
	FlushInterval  time.Duration
	SystemTheme    store.ThemePreference
	Seed           *uint64
}

// Snapshot is everything a UI needs to render the widget.
type Snapshot struct {
	Messages []chat.Message `json:"messages"`
	Theme    chat.Theme     `json:"theme"`
	Typing   bool           `json:"typing"`
	Users    []chat.User    `json:"users"`
}

// Engine owns the engine components for one chat widget.
type Engine struct {
	Store    *store.Store
	Chat     *chatservice.Service
	Presence *presence.Simulator

	loop *sched.Loop
}

// New loads persisted state and builds every component. Nothing runs until
// Start is called.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.TimeUnit <= 0 {
		opts.TimeUnit = time.Second
	}
	if opts.PresencePeriod <= 0 {
		opts.PresencePeriod = 5 * opts.TimeUnit
	}

	var loop *sched.Loop
	scheduler := opts.Scheduler
	if scheduler == nil {
		loop = sched.NewLoop()
		scheduler = sched.NewReal(loop)
	}

	seed := uint64(time.Now().UnixNano())
	if opts.Seed != nil {
		seed = *opts.Seed
	}

	responder, err := ai.NewService(ctx, rand.New(rand.NewPCG(seed, 1)), opts.TimeUnit)
	if err != nil {
		if loop != nil {
			loop.Close()
		}
		return nil, fmt.Errorf("failed to create responder: %w", err)
	}

	st := store.New(ctx, store.Options{
		Backend:       opts.Backend,
		FlushInterval: opts.FlushInterval,
		SystemTheme:   opts.SystemTheme,
	})

	return &Engine{
		Store:    st,
		Chat:     chatservice.NewService(st, responder, scheduler, opts.TimeUnit),
		Presence: presence.NewSimulator(chat.SeedRoster(), scheduler, rand.New(rand.NewPCG(seed, 2)), opts.PresencePeriod),
		loop:     loop,
	}, nil
}

// Start posts the welcome message if needed and starts presence simulation.
func (e *Engine) Start() {
	e.Chat.Activate()
	e.Presence.Start()
	log.Info().Str("component", "engine").Int("messages", len(e.Store.Messages())).Msg("chat engine started")
}

// Snapshot reads the current view.
func (e *Engine) Snapshot() Snapshot {
	return e.snapshot(e.Store.State())
}

func (e *Engine) snapshot(state chat.State) Snapshot {
	return Snapshot{
		Messages: state.Messages,
		Theme:    state.Theme,
		Typing:   e.Chat.Typing(),
		Users:    e.Presence.Roster(),
	}
}

// Watch calls fn with a fresh snapshot whenever the store, the typing
// indicator or the roster changes. fn must not block or call engine mutators.
func (e *Engine) Watch(fn func(Snapshot)) (unwatch func()) {
	stopStore := e.Store.Subscribe(func(state chat.State) { fn(e.snapshot(state)) })
	stopTyping := e.Chat.SubscribeTyping(func(bool) { fn(e.Snapshot()) })
	stopPresence := e.Presence.Subscribe(func([]chat.User) { fn(e.Snapshot()) })
	return func() {
		stopStore()
		stopTyping()
		stopPresence()
	}
}

// Close stops presence, cancels pending replies, and flushes the store.
func (e *Engine) Close(ctx context.Context) error {
	e.Presence.Stop()
	e.Chat.Close()
	if e.loop != nil {
		e.loop.Close()
	}
	if err := e.Store.Close(ctx); err != nil {
		return fmt.Errorf("failed to flush chat state: %w", err)
	}
	return nil
}
