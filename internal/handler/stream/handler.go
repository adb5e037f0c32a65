// Package stream pushes engine snapshots to UI clients over Server-Sent Events
// and WebSocket.
package stream

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/auro-chat/backend/internal/service/engine"
	"github.com/zhouzirui/auro-chat/backend/pkg/utils"
)

const heartbeatInterval = 15 * time.Second

// Handler serves the snapshot streams.
type Handler struct {
	engine   *engine.Engine
	upgrader websocket.Upgrader
}

// New creates a stream handler bound to e.
func New(e *engine.Engine) *Handler {
	return &Handler{
		engine: e,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册推送相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/events", h.handleEvents)
	r.Get("/ws", h.handleWebSocket)
}

// mailbox holds at most one pending snapshot. A newer snapshot replaces an
// undelivered one, so slow clients skip straight to the latest state.
type mailbox struct {
	ch chan engine.Snapshot
}

func newMailbox() *mailbox {
	return &mailbox{ch: make(chan engine.Snapshot, 1)}
}

func (m *mailbox) offer(s engine.Snapshot) {
	for {
		select {
		case m.ch <- s:
			return
		default:
		}
		select {
		case <-m.ch:
		default:
		}
	}
}

// watch subscribes a mailbox primed with the current snapshot.
func (h *Handler) watch() (*mailbox, func()) {
	box := newMailbox()
	unwatch := h.engine.Watch(box.offer)
	box.offer(h.engine.Snapshot())
	return box, unwatch
}

// handleEvents streams a snapshot event after every change until the client
// disconnects.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	box, stop := h.watch()
	defer stop()

	logger := log.With().Str("component", "sse").Str("remote", r.RemoteAddr).Logger()
	logger.Debug().Msg("event stream opened")

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("event stream closed")
			return
		case snap := <-box.ch:
			if err := utils.SendSSEEvent(w, flusher, "snapshot", snap); err != nil {
				logger.Debug().Err(err).Msg("event stream write failed")
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}
