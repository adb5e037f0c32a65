// Package presence simulates other participants coming and going.
package presence

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/auro-chat/backend/internal/metrics"
	"github.com/zhouzirui/auro-chat/backend/internal/model/chat"
	"github.com/zhouzirui/auro-chat/backend/internal/sched"
)

// fixedEntries is the number of leading roster entries (assistant, current
// user) that are never simulated.
const fixedEntries = 2

// typingThreshold: an online user starts typing when the draw exceeds it.
const typingThreshold = 0.7

// Rand is the randomness the simulator needs. *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// Listener receives a copy of the roster after every transition.
type Listener func([]chat.User)

// Simulator periodically flips the status of one simulated participant.
type Simulator struct {
	sched  sched.Scheduler
	rnd    Rand
	period time.Duration

	mu      sync.Mutex
	roster  []chat.User
	timer   sched.Timer
	running bool

	subMu     sync.Mutex
	listeners map[int]Listener
	nextID    int
}

// NewSimulator copies roster; callers keep their own slice untouched.
func NewSimulator(roster []chat.User, s sched.Scheduler, rnd Rand, period time.Duration) *Simulator {
	return &Simulator{
		sched:     s,
		rnd:       rnd,
		period:    period,
		roster:    append([]chat.User(nil), roster...),
		listeners: map[int]Listener{},
	}
}

// Next is the transition function: every call changes the status.
func Next(current chat.Presence, rnd Rand) chat.Presence {
	switch current {
	case chat.PresenceOnline:
		if rnd.Float64() > typingThreshold {
			return chat.PresenceTyping
		}
		return chat.PresenceOffline
	case chat.PresenceOffline, chat.PresenceTyping:
		return chat.PresenceOnline
	default:
		return chat.PresenceOnline
	}
}

// Start arms the periodic timer. Starting a running simulator is a no-op.
func (s *Simulator) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.timer = s.sched.AfterFunc(s.period, s.tick)
	log.Debug().Str("component", "presence").Dur("period", s.period).Msg("presence simulation started")
}

// Stop cancels the pending tick. No roster change happens after Stop returns.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	log.Debug().Str("component", "presence").Msg("presence simulation stopped")
}

// Running reports whether the simulator is started.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Roster returns a copy of the current participants.
func (s *Simulator) Roster() []chat.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.User(nil), s.roster...)
}

// Subscribe registers l for roster changes.
func (s *Simulator) Subscribe(l Listener) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.listeners, id)
		s.subMu.Unlock()
	}
}

func (s *Simulator) tick() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	var changed *chat.User
	if n := len(s.roster) - fixedEntries; n > 0 {
		idx := fixedEntries + s.rnd.IntN(n)
		s.roster[idx].Status = Next(s.roster[idx].Status, s.rnd)
		u := s.roster[idx]
		changed = &u
	}
	s.timer = s.sched.AfterFunc(s.period, s.tick)
	roster := append([]chat.User(nil), s.roster...)
	s.mu.Unlock()

	if changed == nil {
		return
	}
	metrics.PresenceTransitions.WithLabelValues(string(changed.Status)).Inc()
	log.Debug().Str("component", "presence").Str("user_id", changed.ID).Str("status", string(changed.Status)).Msg("presence changed")

	s.subMu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.subMu.Unlock()
	for _, l := range listeners {
		l(append([]chat.User(nil), roster...))
	}
}
