package page

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/research-partner/backend/internal/model/chat"
	"github.com/zhouzirui/research-partner/backend/internal/model/profile"
	"github.com/zhouzirui/research-partner/backend/internal/model/prompt"
	"github.com/zhouzirui/research-partner/backend/internal/render"
	"github.com/zhouzirui/research-partner/backend/internal/service/conversation"
	sessionService "github.com/zhouzirui/research-partner/backend/internal/service/session"
)

// CookieName 保存会话ID的 cookie
const CookieName = "rp_session"

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	View  render.View
	Name  string
	Field string
}

// Handler 服务端渲染的单页界面
type Handler struct {
	sessions      *sessionService.Service
	convo         *conversation.Service
	packs         prompt.Store
	defaultLocale string
	secureCookie  bool
	logger        *zap.Logger
}

// New 创建页面处理器
func New(sessions *sessionService.Service, convo *conversation.Service, packs prompt.Store, defaultLocale string, secureCookie bool, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		sessions:      sessions,
		convo:         convo,
		packs:         packs,
		defaultLocale: defaultLocale,
		secureCookie:  secureCookie,
		logger:        logger.Named("page"),
	}
}

// RegisterRoutes 注册页面路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Post("/profile", h.handleProfile)
	r.Post("/chat", h.handleChat)
	r.Post("/reset", h.handleReset)
}

// handleIndex 渲染当前会话
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap, err := h.current(w, r)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.renderSession(r.Context(), w, http.StatusOK, snap.ID, "", pageData{})
}

// handleProfile 处理资料表单；资料不完整时重新显示表单
func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	snap, err := h.current(w, r)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	name := r.PostForm.Get("name")
	field := r.PostForm.Get("field")

	_, err = h.sessions.SubmitProfile(r.Context(), snap.ID, name, field)
	switch {
	case err == nil, errors.Is(err, sessionService.ErrProfileLocked):
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, profile.ErrIncomplete):
		pack, _ := h.packs.Find(snap.Locale)
		h.renderSession(r.Context(), w, http.StatusUnprocessableEntity, snap.ID, pack.IncompleteNotice, pageData{
			Name:  strings.TrimSpace(name),
			Field: strings.TrimSpace(field),
		})
	default:
		h.fail(w, err)
	}
}

// handleChat 执行一轮对话。成功后重定向，失败时直接渲染提示
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	snap, err := h.current(w, r)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	outcome, err := h.convo.Submit(r.Context(), snap.ID, r.PostForm.Get("message"))
	switch {
	case errors.Is(err, sessionService.ErrProfileRequired):
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	case errors.Is(err, sessionService.ErrTurnInProgress):
		h.renderBusy(r.Context(), w, snap)
		return
	case err != nil:
		h.fail(w, err)
		return
	}

	if outcome.Kind == conversation.OutcomeFailed {
		h.write(w, http.StatusOK, pageData{View: outcome.View})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleReset 结束会话并清除 cookie
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(CookieName); err == nil {
		err := h.sessions.Delete(r.Context(), cookie.Value)
		switch {
		case errors.Is(err, sessionService.ErrTurnInProgress):
			snap, getErr := h.sessions.Get(r.Context(), cookie.Value)
			if getErr != nil {
				h.fail(w, getErr)
				return
			}
			h.renderBusy(r.Context(), w, snap)
			return
		case err != nil && !errors.Is(err, sessionService.ErrSessionNotFound):
			h.fail(w, err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// current resolves the session behind the cookie, starting a new one when the
// cookie is missing or the session has been reaped.
func (h *Handler) current(w http.ResponseWriter, r *http.Request) (chat.Session, error) {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		snap, err := h.sessions.Get(r.Context(), cookie.Value)
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, sessionService.ErrSessionNotFound) {
			return chat.Session{}, err
		}
	}

	locale := h.defaultLocale
	if lang := strings.TrimSpace(r.URL.Query().Get("lang")); lang != "" {
		if _, ok := h.packs.Find(lang); ok {
			locale = lang
		}
	}

	snap, err := h.sessions.Create(r.Context(), locale)
	if err != nil {
		return chat.Session{}, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    snap.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	h.logger.Info("session started", zap.String("session_id", snap.ID), zap.String("locale", locale))
	return snap, nil
}

func (h *Handler) renderSession(ctx context.Context, w http.ResponseWriter, status int, sessionID, notice string, data pageData) {
	view, err := h.convo.View(ctx, sessionID, notice)
	if err != nil {
		h.fail(w, err)
		return
	}
	data.View = view
	h.write(w, status, data)
}

// renderBusy shows the localized notice for a session whose reply is still
// being generated.
func (h *Handler) renderBusy(ctx context.Context, w http.ResponseWriter, snap chat.Session) {
	pack, _ := h.packs.Find(snap.Locale)
	h.renderSession(ctx, w, http.StatusConflict, snap.ID, pack.BusyNotice, pageData{})
}

func (h *Handler) write(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		h.logger.Error("render page", zap.Error(err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.logger.Error("page request failed", zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
