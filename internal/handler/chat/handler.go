package chat

import (
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/auro-chat/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/auro-chat/backend/internal/service/chat"
	"github.com/zhouzirui/auro-chat/backend/internal/service/command"
	"github.com/zhouzirui/auro-chat/backend/internal/service/engine"
	"github.com/zhouzirui/auro-chat/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	engine *engine.Engine
}

// New 创建聊天处理器
func New(e *engine.Engine) *Handler {
	return &Handler{engine: e}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/state", h.handleGetState)
	r.Get("/messages", h.handleListMessages)
	r.Post("/messages", h.handleSendMessage)
	r.Patch("/messages/{messageID}", h.handleEditMessage)
	r.Delete("/messages/{messageID}", h.handleDeleteMessage)
	r.Get("/commands", h.handleListCommands)
	r.Get("/theme", h.handleGetTheme)
	r.Put("/theme", h.handleSetTheme)
	r.Post("/theme/toggle", h.handleToggleTheme)
}

type contentPayload struct {
	Content string `json:"content"`
}

type themePayload struct {
	Theme string `json:"theme"`
}

// handleGetState 返回完整快照
func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.engine.Snapshot())
}

// handleListMessages 列出所有消息
func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.engine.Store.Messages())
}

// handleSendMessage 发送用户消息，回复异步生成
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload contentPayload
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if utf8.RuneCountInString(payload.Content) > chatservice.MaxContentLength {
		utils.RespondError(w, http.StatusBadRequest, "content exceeds 1000 characters")
		return
	}

	h.engine.Chat.Send(payload.Content)
	utils.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleEditMessage 编辑消息内容
func (h *Handler) handleEditMessage(w http.ResponseWriter, r *http.Request) {
	var payload contentPayload
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if utf8.RuneCountInString(payload.Content) > chatservice.MaxContentLength {
		utils.RespondError(w, http.StatusBadRequest, "content exceeds 1000 characters")
		return
	}

	h.engine.Chat.Edit(chi.URLParam(r, "messageID"), payload.Content)
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteMessage 删除消息
func (h *Handler) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	h.engine.Chat.Delete(chi.URLParam(r, "messageID"))
	w.WriteHeader(http.StatusNoContent)
}

// handleListCommands 列出可用的斜杠命令
func (h *Handler) handleListCommands(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, command.Commands())
}

// handleGetTheme 返回当前主题
func (h *Handler) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, themePayload{Theme: string(h.engine.Store.Theme())})
}

// handleSetTheme 设置主题，仅接受 light 或 dark
func (h *Handler) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var payload themePayload
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	theme, ok := chat.ParseTheme(payload.Theme)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "theme must be light or dark")
		return
	}

	h.engine.Store.SetTheme(theme)
	utils.RespondJSON(w, http.StatusOK, themePayload{Theme: string(theme)})
}

// handleToggleTheme 切换明暗主题并返回新值
func (h *Handler) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	theme := h.engine.Store.ToggleTheme()
	utils.RespondJSON(w, http.StatusOK, themePayload{Theme: string(theme)})
}
