package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	sessionHandler "github.com/zhouzirui/research-partner/backend/internal/handler/session"
	"github.com/zhouzirui/research-partner/backend/internal/service/conversation"
	sessionService "github.com/zhouzirui/research-partner/backend/internal/service/session"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 25 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler WebSocket 对话处理器。每个连接的读循环就是该客户端的渲染循环。
type Handler struct {
	sessions *sessionService.Service
	convo    *conversation.Service
	upgrader websocket.Upgrader
	logger   *zap.Logger

	readTimeout time.Duration
}

// New 创建WebSocket处理器
func New(sessions *sessionService.Service, convo *conversation.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		sessions: sessions,
		convo:    convo,
		logger:   logger.Named("websocket"),

		readTimeout: readTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

// Inbound types.
const (
	TypeProfile = "profile"
	TypeMessage = "message"
)

// Outbound types.
const (
	TypeRender = "render"
	TypeError  = "error"
)

type inboundMessage struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Name  string `json:"name,omitempty"`
	Field string `json:"field,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Kind      string      `json:"kind,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	view, err := h.convo.View(r.Context(), sessionID, "")
	if err != nil {
		http.Error(w, err.Error(), sessionHandler.StatusFor(err))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	log := h.logger.With(zap.String("session_id", sessionID))
	log.Info("connection opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))
		return nil
	})

	go h.pingLoop(ctx, conn)

	h.send(conn, outgoingMessage{Type: TypeRender, SessionID: sessionID, Data: view})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("read error", zap.Error(err))
			}
			log.Info("connection closed")
			return
		}
		// no read deadline while a turn runs; a reply may outlast readTimeout
		conn.SetReadDeadline(time.Time{})
		h.handleMessage(ctx, conn, sessionID, msg)
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	}
}

// handleMessage runs one inbound message to completion before the next is read.
func (h *Handler) handleMessage(ctx context.Context, conn *websocket.Conn, sessionID string, msg inboundMessage) {
	switch msg.Type {
	case TypeProfile:
		if _, err := h.sessions.SubmitProfile(ctx, sessionID, msg.Name, msg.Field); err != nil {
			h.sendError(conn, sessionID, err)
			return
		}
		view, err := h.convo.View(ctx, sessionID, "")
		if err != nil {
			h.sendError(conn, sessionID, err)
			return
		}
		h.send(conn, outgoingMessage{Type: TypeRender, SessionID: sessionID, Data: view})

	case TypeMessage:
		outcome, err := h.convo.Submit(ctx, sessionID, msg.Text)
		if err != nil {
			h.sendError(conn, sessionID, err)
			return
		}
		h.send(conn, outgoingMessage{
			Type:      TypeRender,
			SessionID: sessionID,
			Kind:      string(outcome.Kind),
			Data:      outcome.View,
		})

	default:
		h.send(conn, outgoingMessage{Type: TypeError, SessionID: sessionID, Error: "unknown message type: " + msg.Type})
	}
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, msg outgoingMessage) {
	msg.Timestamp = time.Now().UnixMilli()
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal outgoing message", zap.Error(err))
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Warn("write failed", zap.Error(err))
	}
}

func (h *Handler) sendError(conn *websocket.Conn, sessionID string, err error) {
	h.send(conn, outgoingMessage{Type: TypeError, SessionID: sessionID, Error: err.Error()})
}
