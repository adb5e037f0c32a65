package stream

import (
	"context"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	chatservice "github.com/zhouzirui/auro-chat/backend/internal/service/chat"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	writeWait  = 10 * time.Second
)

// inboundMessage 客户端发来的指令
type inboundMessage struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Content string `json:"content,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// handleWebSocket 处理WebSocket连接：推送快照并接收send/edit/delete/toggleTheme指令
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("component", "websocket").Msg("upgrade failed")
		return
	}
	defer conn.Close()

	logger := log.With().Str("component", "websocket").Str("remote", r.RemoteAddr).Logger()
	logger.Info().Msg("connection opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	box, stop := h.watch()
	defer stop()

	replies := make(chan outgoingMessage, 8)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, conn, box, replies, logger)
		cancel()
		// unblock the reader
		conn.Close()
	}()
	defer func() { <-writerDone }()
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn().Err(err).Msg("read error")
			}
			logger.Info().Msg("connection closed")
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		if problem := h.handleMessage(&msg); problem != "" {
			select {
			case replies <- outgoingMessage{Type: "error", Data: map[string]string{"message": problem}, Timestamp: time.Now().UnixMilli()}:
			default:
				logger.Debug().Str("problem", problem).Msg("dropped error reply")
			}
		}
	}
}

// handleMessage applies one inbound instruction and returns a problem
// description when the instruction is rejected.
func (h *Handler) handleMessage(msg *inboundMessage) string {
	switch msg.Type {
	case "send":
		if utf8.RuneCountInString(msg.Content) > chatservice.MaxContentLength {
			return "content exceeds 1000 characters"
		}
		h.engine.Chat.Send(msg.Content)
	case "edit":
		if msg.ID == "" {
			return "id is required"
		}
		if utf8.RuneCountInString(msg.Content) > chatservice.MaxContentLength {
			return "content exceeds 1000 characters"
		}
		h.engine.Chat.Edit(msg.ID, msg.Content)
	case "delete":
		if msg.ID == "" {
			return "id is required"
		}
		h.engine.Chat.Delete(msg.ID)
	case "toggleTheme":
		h.engine.Store.ToggleTheme()
	default:
		return "unknown message type: " + msg.Type
	}
	return ""
}

// writeLoop owns every write on conn.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, box *mailbox, replies <-chan outgoingMessage, logger zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	write := func(msg outgoingMessage) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			logger.Debug().Err(err).Str("type", msg.Type).Msg("write failed")
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case snap := <-box.ch:
			if !write(outgoingMessage{Type: "snapshot", Data: snap, Timestamp: time.Now().UnixMilli()}) {
				return
			}
		case reply := <-replies:
			if !write(reply) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
