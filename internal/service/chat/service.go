// Package chat coordinates the message lifecycle: user sends, deferred
// delivery status, the typing indicator, and assistant replies.
package chat

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/auro-chat/backend/internal/metrics"
	"github.com/zhouzirui/auro-chat/backend/internal/model/chat"
	"github.com/zhouzirui/auro-chat/backend/internal/sched"
	"github.com/zhouzirui/auro-chat/backend/internal/service/ai"
	"github.com/zhouzirui/auro-chat/backend/internal/service/command"
)

// WelcomeText greets the user when the conversation is empty.
const WelcomeText = "👋 Welcome to the Educational Chat! I'm your AI learning assistant. " +
	"Ask me anything about any topic, and I'll do my best to help you understand it. " +
	"You can use **bold**, *italic*, and `code` formatting in your messages."

// MaxContentLength is the longest input, in characters, transports accept.
// The service itself takes content of any length.
const MaxContentLength = 1000

// Store is the state container the service drives.
type Store interface {
	Messages() []chat.Message
	SetMessages(messages []chat.Message)
	AddMessage(m chat.Message)
	UpdateMessage(id string, patch chat.MessagePatch)
	RemoveMessage(id string)
}

// Responder turns user content into reply text.
type Responder interface {
	ThinkDuration(content string) time.Duration
	Respond(ctx context.Context, content string) (string, error)
}

// TypingListener is told whenever the typing indicator flips.
type TypingListener func(typing bool)

// Service runs one round-trip per user message: append, advance delivery
// status, show the typing indicator, then append the assistant's reply.
//
// All state changes happen while holding mu; timer callbacks take it as well,
// so a send never interleaves with a deferred status update. Listeners are
// called with mu held and must not call back into the Service.
type Service struct {
	store     Store
	commands  *command.Interpreter
	responder Responder
	sched     sched.Scheduler
	unit      time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	timers    map[uint64]sched.Timer
	nextTimer uint64
	closed    bool

	pendingReplies atomic.Int32

	subMu     sync.Mutex
	typingSub map[int]TypingListener
	nextSub   int
}

// NewService wires the coordinator. unit is the length of one simulated time
// unit (one second in production).
func NewService(store Store, responder Responder, s sched.Scheduler, unit time.Duration) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		store:     store,
		commands:  command.NewInterpreter(store, s.Now),
		responder: responder,
		sched:     s,
		unit:      unit,
		ctx:       ctx,
		cancel:    cancel,
		timers:    map[uint64]sched.Timer{},
		typingSub: map[int]TypingListener{},
	}
}

// Activate appends the welcome message if the conversation is empty and
// reports whether it did. Calling it again while messages exist is a no-op.
// /clear does not call it, so a cleared conversation stays empty until the
// next Activate.
func (s *Service) Activate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.store.Messages()) > 0 {
		return false
	}
	s.store.AddMessage(s.assistantMessage(WelcomeText))
	log.Info().Str("component", "chat").Msg("conversation empty, posted welcome message")
	return true
}

// Send handles one line of user input. Blank input is ignored and recognized
// slash commands bypass the reply pipeline.
func (s *Service) Send(content string) {
	if strings.TrimSpace(content) == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.commands.Handle(content) {
		return
	}

	message := chat.Message{
		ID:        uuid.NewString(),
		Content:   content,
		Sender:    chat.CurrentUser(),
		Timestamp: chat.FormatTimestamp(s.sched.Now()),
		Status:    chat.StatusSent,
	}
	s.store.AddMessage(message)
	metrics.MessagesSent.Inc()

	id := message.ID
	s.scheduleLocked(s.unit, func() { s.advanceLocked(id, chat.StatusDelivered) })
	s.scheduleLocked(2*s.unit, func() { s.advanceLocked(id, chat.StatusRead) })

	s.adjustTypingLocked(1)
	s.scheduleLocked(s.responder.ThinkDuration(content), func() { s.replyLocked(content) })
}

// Edit replaces the content of a message, keeping its status and timestamp.
func (s *Service) Edit(id, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.UpdateMessage(id, chat.ContentPatch(content))
}

// Delete removes a message. Pending status updates for it become no-ops.
func (s *Service) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.RemoveMessage(id)
}

// Typing reports whether the assistant is composing a reply. With overlapping
// sends it stays set until the last outstanding reply has been appended.
func (s *Service) Typing() bool {
	return s.pendingReplies.Load() > 0
}

// SubscribeTyping registers l for typing indicator changes.
func (s *Service) SubscribeTyping(l TypingListener) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.typingSub[id] = l
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.typingSub, id)
		s.subMu.Unlock()
	}
}

// Close cancels every pending status update and reply. The store is left as is.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.cancel()
	if s.pendingReplies.Swap(0) > 0 {
		s.notifyTyping(false)
	}
}

// scheduleLocked arms a fire-once timer that runs fn with mu held.
func (s *Service) scheduleLocked(d time.Duration, fn func()) {
	s.nextTimer++
	id := s.nextTimer
	s.timers[id] = s.sched.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		delete(s.timers, id)
		fn()
	})
}

// advanceLocked moves a message forward to status. Missing messages and
// backward moves are ignored.
func (s *Service) advanceLocked(id string, status chat.Status) {
	for _, m := range s.store.Messages() {
		if m.ID != id {
			continue
		}
		if m.Status.Rank() >= status.Rank() {
			return
		}
		s.store.UpdateMessage(id, chat.StatusPatch(status))
		metrics.StatusAdvances.WithLabelValues(string(status)).Inc()
		return
	}
}

func (s *Service) replyLocked(content string) {
	s.adjustTypingLocked(-1)

	text, err := s.responder.Respond(s.ctx, content)
	if err != nil {
		log.Warn().Err(err).Str("component", "chat").Msg("reply generation failed, using fallback")
		text = ai.Responses()[0] + ai.ContextClause(content)
	}
	s.store.AddMessage(s.assistantMessage(text))
	metrics.RepliesGenerated.Inc()
}

// adjustTypingLocked counts in-flight replies; listeners only hear about the
// 0 <-> 1 edges.
func (s *Service) adjustTypingLocked(delta int32) {
	next := s.pendingReplies.Add(delta)
	prev := next - delta
	if (prev > 0) == (next > 0) {
		return
	}
	s.notifyTyping(next > 0)
}

func (s *Service) notifyTyping(typing bool) {
	s.subMu.Lock()
	listeners := make([]TypingListener, 0, len(s.typingSub))
	for _, l := range s.typingSub {
		listeners = append(listeners, l)
	}
	s.subMu.Unlock()
	for _, l := range listeners {
		l(typing)
	}
}

func (s *Service) assistantMessage(text string) chat.Message {
	return chat.Message{
		ID:        uuid.NewString(),
		Content:   text,
		Sender:    chat.Assistant(),
		Timestamp: chat.FormatTimestamp(s.sched.Now()),
		Status:    chat.StatusRead,
	}
}
