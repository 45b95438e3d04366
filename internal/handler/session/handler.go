package session

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/research-partner/backend/internal/model/profile"
	"github.com/zhouzirui/research-partner/backend/internal/service/conversation"
	sessionService "github.com/zhouzirui/research-partner/backend/internal/service/session"
	"github.com/zhouzirui/research-partner/backend/pkg/utils"
)

// Handler 会话与对话的 JSON 接口
type Handler struct {
	sessions      *sessionService.Service
	convo         *conversation.Service
	defaultLocale string
	logger        *zap.Logger
}

// New 创建会话处理器
func New(sessions *sessionService.Service, convo *conversation.Service, defaultLocale string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		sessions:      sessions,
		convo:         convo,
		defaultLocale: defaultLocale,
		logger:        logger.Named("session_handler"),
	}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreate)
	r.Route("/session/{sessionID}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Delete("/", h.handleDelete)
		r.Post("/profile", h.handleProfile)
		r.Post("/messages", h.handleMessage)
	})
}

// StatusFor maps service errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, sessionService.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, profile.ErrIncomplete),
		errors.Is(err, sessionService.ErrUnknownLocale),
		errors.Is(err, sessionService.ErrInvalidMessage):
		return http.StatusBadRequest
	case errors.Is(err, sessionService.ErrProfileLocked),
		errors.Is(err, sessionService.ErrProfileRequired),
		errors.Is(err, sessionService.ErrNotInitialized),
		errors.Is(err, sessionService.ErrTurnInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// handleCreate 创建会话
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Locale string `json:"locale"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Locale == "" {
		payload.Locale = h.defaultLocale
	}

	created, err := h.sessions.Create(r.Context(), payload.Locale)
	if err != nil {
		h.fail(w, err)
		return
	}

	view, err := h.convo.View(r.Context(), created.ID, "")
	if err != nil {
		h.fail(w, err)
		return
	}
	h.logger.Info("session created", zap.String("session_id", created.ID), zap.String("locale", created.Locale))
	utils.RespondJSON(w, http.StatusCreated, view)
}

// handleGet 返回会话当前视图
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.convo.View(r.Context(), chi.URLParam(r, "sessionID"), "")
	if err != nil {
		h.fail(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, view)
}

// handleDelete 结束会话
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.sessions.Delete(r.Context(), sessionID); err != nil {
		h.fail(w, err)
		return
	}
	h.logger.Info("session ended", zap.String("session_id", sessionID))
	w.WriteHeader(http.StatusNoContent)
}

// handleProfile 提交研究者信息
func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name  string `json:"name"`
		Field string `json:"field"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if _, err := h.sessions.SubmitProfile(r.Context(), sessionID, payload.Name, payload.Field); err != nil {
		h.fail(w, err)
		return
	}

	view, err := h.convo.View(r.Context(), sessionID, "")
	if err != nil {
		h.fail(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, view)
}

// handleMessage 处理一次用户提交
func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content string `json:"content"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := h.convo.Submit(r.Context(), chi.URLParam(r, "sessionID"), payload.Content)
	if err != nil {
		h.fail(w, err)
		return
	}

	status := http.StatusOK
	if outcome.Kind == conversation.OutcomeFailed {
		status = http.StatusBadGateway
	}
	utils.RespondJSON(w, status, outcome)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
		utils.RespondError(w, status, "internal error")
		return
	}
	utils.RespondError(w, status, err.Error())
}
