package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/auro-chat/backend/internal/handler/chat"
	"github.com/zhouzirui/auro-chat/backend/internal/handler/presence"
	"github.com/zhouzirui/auro-chat/backend/internal/handler/stream"
	"github.com/zhouzirui/auro-chat/backend/internal/metrics"
	middlewarePkg "github.com/zhouzirui/auro-chat/backend/internal/middleware"
	"github.com/zhouzirui/auro-chat/backend/internal/service/engine"
	"github.com/zhouzirui/auro-chat/backend/pkg/utils"
)

// NewRouter wires HTTP routes to the chat engine.
func NewRouter(e *engine.Engine) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		chat.New(e).RegisterRoutes(api)
		presence.New(e.Presence).RegisterRoutes(api)
		stream.New(e).RegisterRoutes(api)
	})

	return r
}
