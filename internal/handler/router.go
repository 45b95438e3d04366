package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/research-partner/backend/internal/handler/page"
	promptHandler "github.com/zhouzirui/research-partner/backend/internal/handler/prompt"
	sessionHandler "github.com/zhouzirui/research-partner/backend/internal/handler/session"
	"github.com/zhouzirui/research-partner/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/research-partner/backend/internal/middleware"
	"github.com/zhouzirui/research-partner/backend/internal/model/prompt"
	"github.com/zhouzirui/research-partner/backend/internal/service/conversation"
	sessionService "github.com/zhouzirui/research-partner/backend/internal/service/session"
	"github.com/zhouzirui/research-partner/backend/pkg/utils"
)

// Deps 路由依赖的核心服务
type Deps struct {
	Packs         prompt.Store
	Sessions      *sessionService.Service
	Conversation  *conversation.Service
	DefaultLocale string
	SecureCookie  bool
	Logger        *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": deps.Sessions.Len(),
		})
	})

	// Server rendered page
	page.New(deps.Sessions, deps.Conversation, deps.Packs, deps.DefaultLocale, deps.SecureCookie, logger).RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		promptHandler.New(deps.Packs).RegisterRoutes(api)
		sessionHandler.New(deps.Sessions, deps.Conversation, deps.DefaultLocale, logger).RegisterRoutes(api)
		ws.New(deps.Sessions, deps.Conversation, logger).RegisterRoutes(api)
	})

	return r
}
