package http

import (
	stdhttp "net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/arhamfareed106/Social-Network-Platform/internal/auth"
	"github.com/arhamfareed106/Social-Network-Platform/internal/config"
	"github.com/arhamfareed106/Social-Network-Platform/internal/core"
	"github.com/arhamfareed106/Social-Network-Platform/internal/presence"
	"github.com/arhamfareed106/Social-Network-Platform/internal/store"
)

// NewServer builds an HTTP server with the websocket endpoint, REST API and media files.
func NewServer(
	hub *core.Hub,
	authService *auth.Service,
	st store.Store,
	tracker *presence.Tracker,
	cfg *config.Config,
	logger *zerolog.Logger,
) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	ws := NewWSHandler(hub, authService, st, tracker, cfg, logger)
	router.GET("/ws/chat/:room_id", ws.Handle)

	// Absolute media URLs point at a CDN or proxy that serves media_root itself.
	if strings.HasPrefix(cfg.MediaURL, "/") {
		router.Static(strings.TrimRight(cfg.MediaURL, "/"), cfg.MediaRoot)
	}

	api := router.Group("/api", AuthMiddleware(authService, logger))

	rooms := NewRoomHandlers(st, cfg, logger)
	api.POST("/rooms", rooms.CreateRoom)
	api.GET("/rooms", rooms.ListRooms)
	api.GET("/rooms/:room_id", rooms.GetRoom)
	api.GET("/rooms/:room_id/messages", rooms.ListMessages)

	presenceHandlers := NewPresenceHandlers(tracker, logger)
	api.GET("/presence/:user_id", presenceHandlers.GetPresence)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
