package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mystudio/chat-relay/adapters/eventstream"
	"github.com/mystudio/chat-relay/domain"
	"github.com/mystudio/chat-relay/usecase"
	"github.com/mystudio/chat-relay/utils/log"
)

const writeWait = 10 * time.Second

// Handler serves chat over a websocket: the client sends one chat request
// as JSON and receives the same token/done/error payloads as the SSE
// endpoint, one text frame per event.
type Handler struct {
	upgrader websocket.Upgrader
	chat     *usecase.ChatService
}

func NewHandler(chat *usecase.ChatService) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		chat:     chat,
	}
}

type chatRequest struct {
	SessionID  string `json:"sessionId"`
	Message    string `json:"message"`
	ProviderID string `json:"providerId"`
	ModelName  string `json:"modelName"`
}

func (h *Handler) Chat(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	var req chatRequest
	if err := conn.ReadJSON(&req); err != nil {
		log.WithCtx(ctx).Debug("unreadable chat request", zap.Error(err))
		return nil
	}

	ctx = context.WithValue(ctx, log.CtxSessionID, req.SessionID)
	ctx = context.WithValue(ctx, log.CtxProvider, req.ProviderID)

	events, err := h.chat.Chat(ctx, domain.ChatRequest{
		SessionID:  req.SessionID,
		Message:    req.Message,
		ProviderID: req.ProviderID,
		ModelName:  req.ModelName,
	})
	if err != nil {
		h.writeFrame(conn, eventstream.Frame{Error: err.Error()})
		return nil
	}

	// A closed or errored connection cancels the backend stream promptly.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	for ev := range events {
		var frame eventstream.Frame
		switch ev.Type {
		case domain.EventToken:
			frame = eventstream.Frame{Token: ev.Token}
		case domain.EventDone:
			frame = eventstream.Frame{Done: true}
		case domain.EventError:
			frame = eventstream.Frame{Error: ev.Err}
		}
		if err := h.writeFrame(conn, frame); err != nil {
			log.WithCtx(ctx).Debug("stopped writing websocket stream", zap.Error(err))
			cancel()
			return nil
		}
	}

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	return nil
}

func (h *Handler) writeFrame(conn *websocket.Conn, frame eventstream.Frame) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(frame)
}
