package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bekarys-dev/championship-system/brackets"
	"github.com/bekarys-dev/championship-system/services"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// В продакшене здесь должна быть проверка Origin.
		return true
	},
}

type WebSocketHandler struct {
	hub            *brackets.Hub
	sessionService services.SessionService
	logger         *slog.Logger
}

func NewWebSocketHandler(hub *brackets.Hub, sessionService services.SessionService, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		sessionService: sessionService,
		logger:         logger,
	}
}

// ServeWs подключает зрителя к комнате сессии.
// Клиент подключается к /ws/sessions/{sessionID}
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getSessionIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	// The session must exist before a room is opened for it; this also
	// gives us the snapshot pushed right after the upgrade.
	session, err := h.sessionService.Get(r.Context(), sessionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader.Upgrade уже ответил клиенту HTTP-ошибкой.
		h.logger.Warn("failed to upgrade spectator connection",
			slog.String("session_id", sessionID), slog.Any("error", err))
		return
	}

	client := h.hub.Subscribe(sessionID, conn)

	raw, err := json.Marshal(brackets.Message{
		Type:      brackets.EventStateUpdated,
		Payload:   session,
		SessionID: sessionID,
	})
	if err != nil {
		h.logger.Error("failed to marshal initial state push",
			slog.String("session_id", sessionID), slog.Any("error", err))
		return
	}
	client.Send(raw)
}
