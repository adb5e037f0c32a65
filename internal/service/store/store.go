// Package store is the single source of truth for messages and theme. Every
// mutation is applied atomically, broadcast to subscribers, and written through
// to a storage backend in the background.
package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/zhouzirui/auro-chat/backend/internal/metrics"
	"github.com/zhouzirui/auro-chat/backend/internal/model/chat"
	"github.com/zhouzirui/auro-chat/backend/internal/storage"
)

// StorageKey is the namespace of the persisted record.
const StorageKey = "chat-storage"

// Listener receives a copy of the state after each mutation.
type Listener func(chat.State)

// ThemePreference reports the system colour scheme, if known.
type ThemePreference func() (chat.Theme, bool)

// Options configures a Store.
type Options struct {
	Backend storage.Backend
	// FlushInterval is the minimum spacing between two backend writes. Zero
	// writes as soon as the persister wakes up.
	FlushInterval time.Duration
	// SystemTheme is consulted once, only when no theme was persisted.
	SystemTheme ThemePreference
}

type subscription struct {
	id       uint64
	listener Listener
}

// Store holds the chat state. It is safe for concurrent use. Listeners run
// synchronously on the mutating goroutine and must not mutate the store.
type Store struct {
	writeMu sync.Mutex // serializes mutation + notification

	mu    sync.RWMutex
	state chat.State

	subMu  sync.Mutex
	subs   []subscription
	nextID uint64

	backend   storage.Backend
	persistMu sync.Mutex
	dirty     chan struct{}
	limiter   *rate.Limiter
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// New loads the persisted state (falling back to defaults) and starts the
// background persister. Call Close to flush and stop it.
func New(ctx context.Context, opts Options) *Store {
	backend := opts.Backend
	if backend == nil {
		backend = storage.NewMemoryBackend()
	}

	limit := rate.Inf
	if opts.FlushInterval > 0 {
		limit = rate.Every(opts.FlushInterval)
	}

	persistCtx, cancel := context.WithCancel(context.Background())
	s := &Store{
		state:   load(ctx, backend, opts.SystemTheme),
		backend: backend,
		dirty:   make(chan struct{}, 1),
		limiter: rate.NewLimiter(limit, 1),
		ctx:     persistCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go s.runPersister()
	return s
}

func load(ctx context.Context, backend storage.Backend, systemTheme ThemePreference) chat.State {
	state := chat.DefaultState()
	restoredTheme := false

	raw, ok, err := backend.Load(ctx, StorageKey)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("component", "store").Msg("failed to read persisted state, using defaults")
	case !ok:
		log.Debug().Str("component", "store").Msg("no persisted state found")
	default:
		var record struct {
			Messages []chat.Message `json:"messages"`
			Theme    string         `json:"theme"`
		}
		if err := json.Unmarshal(raw, &record); err != nil {
			log.Warn().Err(err).Str("component", "store").Msg("persisted state is corrupt, using defaults")
			break
		}
		if record.Messages != nil {
			state.Messages = record.Messages
		}
		if theme, ok := chat.ParseTheme(record.Theme); ok {
			state.Theme = theme
			restoredTheme = true
		}
	}

	if !restoredTheme && systemTheme != nil {
		if theme, ok := systemTheme(); ok {
			state.Theme = theme
		}
	}
	return state
}

// State returns a snapshot of the current state.
func (s *Store) State() chat.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Messages returns a snapshot of the message list in display order.
func (s *Store) Messages() []chat.Message {
	return s.State().Messages
}

// Theme returns the current theme.
func (s *Store) Theme() chat.Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Theme
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, listener: l})
	s.subMu.Unlock()
	metrics.Subscribers.Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					break
				}
			}
			s.subMu.Unlock()
			metrics.Subscribers.Dec()
		})
	}
}

// SetMessages replaces the whole message list.
func (s *Store) SetMessages(messages []chat.Message) {
	s.mutate(func(state *chat.State) bool {
		state.Messages = append(make([]chat.Message, 0, len(messages)), messages...)
		return true
	})
}

// AddMessage appends m at the end of the list.
func (s *Store) AddMessage(m chat.Message) {
	s.mutate(func(state *chat.State) bool {
		state.Messages = append(state.Messages, m)
		return true
	})
}

// UpdateMessage merges patch into the message with the given id. Unknown ids
// are ignored.
func (s *Store) UpdateMessage(id string, patch chat.MessagePatch) {
	s.mutate(func(state *chat.State) bool {
		for i := range state.Messages {
			if state.Messages[i].ID == id {
				state.Messages[i] = patch.Apply(state.Messages[i])
				state.Messages[i].ID = id
				return true
			}
		}
		return false
	})
}

// RemoveMessage drops the message with the given id. Unknown ids are ignored.
func (s *Store) RemoveMessage(id string) {
	s.mutate(func(state *chat.State) bool {
		for i := range state.Messages {
			if state.Messages[i].ID == id {
				state.Messages = append(state.Messages[:i], state.Messages[i+1:]...)
				return true
			}
		}
		return false
	})
}

// SetTheme stores the theme preference.
func (s *Store) SetTheme(theme chat.Theme) {
	s.mutate(func(state *chat.State) bool {
		state.Theme = theme
		return true
	})
}

// ToggleTheme flips the theme and returns the new value.
func (s *Store) ToggleTheme() chat.Theme {
	var next chat.Theme
	s.mutate(func(state *chat.State) bool {
		state.Theme = state.Theme.Toggle()
		next = state.Theme
		return true
	})
	return next
}

func (s *Store) mutate(apply func(state *chat.State) bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	next := s.state.Clone()
	if !apply(&next) {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.mu.Unlock()

	s.notify(next)
	s.markDirty()
}

func (s *Store) notify(state chat.State) {
	s.subMu.Lock()
	subs := append([]subscription(nil), s.subs...)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.listener(state.Clone())
	}
}

func (s *Store) markDirty() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (s *Store) runPersister() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.dirty:
		}
		if err := s.limiter.Wait(s.ctx); err != nil {
			return
		}
		_ = s.persist(s.ctx)
	}
}

// persist writes the latest state. Holding persistMu while reading the state
// keeps writes ordered, so the last write always carries the newest state.
func (s *Store) persist(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	payload, err := json.Marshal(s.State())
	if err != nil {
		metrics.PersistWrites.WithLabelValues("error").Inc()
		log.Error().Err(err).Str("component", "store").Msg("failed to encode state")
		return err
	}
	if err := s.backend.Save(ctx, StorageKey, payload); err != nil {
		metrics.PersistWrites.WithLabelValues("error").Inc()
		log.Warn().Err(err).Str("component", "store").Msg("failed to persist state, keeping in-memory copy")
		return err
	}
	metrics.PersistWrites.WithLabelValues("ok").Inc()
	return nil
}

// Flush writes the current state synchronously.
func (s *Store) Flush(ctx context.Context) error {
	return s.persist(ctx)
}

// Close stops the persister and performs a final flush. The backend itself is
// owned by the caller and is not closed.
func (s *Store) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		err = s.persist(ctx)
	})
	return err
}
