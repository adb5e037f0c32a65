package presence

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/auro-chat/backend/internal/service/presence"
	"github.com/zhouzirui/auro-chat/backend/pkg/utils"
)

// Handler 在线状态的HTTP处理器
type Handler struct {
	simulator *presence.Simulator
}

// New 创建在线状态处理器
func New(simulator *presence.Simulator) *Handler {
	return &Handler{simulator: simulator}
}

// RegisterRoutes 注册在线状态相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/presence", h.handleListPresence)
}

// handleListPresence 返回参与者名单及其当前状态
func (h *Handler) handleListPresence(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.simulator.Roster())
}
