package prompt

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/research-partner/backend/internal/model/prompt"
	"github.com/zhouzirui/research-partner/backend/pkg/utils"
)

// Handler 语言包的HTTP处理器
type Handler struct {
	packs prompt.Store
}

// New 创建语言包处理器
func New(packs prompt.Store) *Handler {
	return &Handler{packs: packs}
}

// RegisterRoutes 注册语言包相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/prompts", h.handleList)
}

// handleList 列出可用语言包，不包含系统提示词
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.packs.List())
}
