package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mystudio/chat-relay/adapters/eventstream"
	"github.com/mystudio/chat-relay/adapters/registry"
	"github.com/mystudio/chat-relay/domain"
	"github.com/mystudio/chat-relay/usecase"
	"github.com/mystudio/chat-relay/utils/log"
)

// Handler exposes the chat relay's REST and SSE endpoints.
type Handler struct {
	chat     *usecase.ChatService
	store    domain.SessionStore
	registry *registry.Registry
}

func NewHandler(chat *usecase.ChatService, store domain.SessionStore, reg *registry.Registry) *Handler {
	return &Handler{chat: chat, store: store, registry: reg}
}

// response is the JSON envelope of every non-streaming endpoint.
type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type createSessionRequest struct {
	Title string `json:"title"`
}

type chatRequest struct {
	SessionID  string `json:"sessionId"`
	Message    string `json:"message"`
	ProviderID string `json:"providerId"`
	ModelName  string `json:"modelName"`
}

func (h *Handler) ListModels(c echo.Context) error {
	return c.JSON(http.StatusOK, response{Success: true, Data: h.registry.List()})
}

func (h *Handler) ListAvailableModels(c echo.Context) error {
	return c.JSON(http.StatusOK, response{Success: true, Data: h.registry.ListAvailable()})
}

func (h *Handler) ListSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, response{Success: true, Data: h.store.List()})
}

func (h *Handler) CreateSession(c echo.Context) error {
	var req createSessionRequest
	// An absent or malformed body just means no title.
	c.Bind(&req)
	return c.JSON(http.StatusOK, response{Success: true, Data: h.store.Create(req.Title)})
}

func (h *Handler) DeleteSession(c echo.Context) error {
	ok := h.store.Delete(c.Param("id"))
	msg := "deleted"
	if !ok {
		msg = "session not found"
	}
	return c.JSON(http.StatusOK, response{Success: ok, Message: msg})
}

func (h *Handler) SessionMessages(c echo.Context) error {
	messages, err := h.store.Messages(c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, response{Success: false, Message: "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, response{Success: false, Message: err.Error()})
	}
	return c.JSON(http.StatusOK, response{Success: true, Data: messages})
}

// Chat runs one streamed exchange over SSE. Validation and configuration
// errors are rejected with a JSON envelope before the stream opens;
// everything after that is delivered as event frames, ending with exactly
// one terminal frame. Closing the connection cancels the backend stream.
func (h *Handler) Chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response{Success: false, Message: "malformed request body"})
	}

	ctx := c.Request().Context()
	ctx = context.WithValue(ctx, log.CtxSessionID, req.SessionID)
	ctx = context.WithValue(ctx, log.CtxProvider, req.ProviderID)

	events, err := h.chat.Chat(ctx, domain.ChatRequest{
		SessionID:  req.SessionID,
		Message:    req.Message,
		ProviderID: req.ProviderID,
		ModelName:  req.ModelName,
	})
	if err != nil {
		log.WithCtx(ctx).Warn("chat request rejected", zap.Error(err))
		return c.JSON(http.StatusBadRequest, response{Success: false, Message: err.Error()})
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)

	w := eventstream.NewWriter(res)
	for ev := range events {
		var werr error
		switch ev.Type {
		case domain.EventToken:
			werr = w.Token(ev.Token)
		case domain.EventDone:
			werr = w.Done()
		case domain.EventError:
			werr = w.Error(ev.Err)
		}
		if werr != nil {
			// Consumer is gone; the request context cancellation stops the
			// producer.
			log.WithCtx(ctx).Debug("stopped writing event stream", zap.Error(werr))
			break
		}
	}
	return nil
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UnixMilli(),
	})
}
