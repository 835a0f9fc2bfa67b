package main

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	apphttp "github.com/mystudio/chat-relay/adapters/http"
	"github.com/mystudio/chat-relay/adapters/registry"
	"github.com/mystudio/chat-relay/adapters/sessions"
	"github.com/mystudio/chat-relay/adapters/websocket"
	"github.com/mystudio/chat-relay/config"
	"github.com/mystudio/chat-relay/usecase"
	"github.com/mystudio/chat-relay/utils/log"
)

func main() {
	cfg := config.Load()

	store := sessions.New()
	reg := registry.New(cfg)
	svc := usecase.NewChatService(store, reg)

	handler := apphttp.NewHandler(svc, store, reg)
	wsHandler := websocket.NewHandler(svc)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("1MB"))

	api := e.Group("/api")
	api.GET("/models", handler.ListModels)
	api.GET("/models/available", handler.ListAvailableModels)
	api.GET("/sessions", handler.ListSessions)
	api.POST("/sessions", handler.CreateSession)
	api.DELETE("/sessions/:id", handler.DeleteSession)
	api.GET("/sessions/:id/messages", handler.SessionMessages)
	api.POST("/chat", handler.Chat)
	api.GET("/health", handler.Health)

	e.GET("/ws/chat", wsHandler.Chat)

	available := reg.ListAvailable()
	names := make([]string, 0, len(available))
	for _, p := range available {
		names = append(names, p.Name)
	}
	log.With().Info("starting chat relay",
		zap.String("port", cfg.Port),
		zap.Strings("providers", names))
	if cfg.ProxyURL != "" {
		log.With().Info("outbound proxy configured", zap.String("proxy", cfg.ProxyURL))
	}

	if err := e.Start(":" + cfg.Port); err != nil {
		log.With().Fatal("server stopped", zap.Error(err))
	}
}
