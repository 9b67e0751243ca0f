// Package http serves the admin API and the WebSocket gateway.
package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat/internal/config"
	"github.com/vovakirdan/linechat/internal/core"
)

// NewServer builds an HTTP server with the admin routes and the /ws gateway.
func NewServer(hub *core.Hub, authenticator core.Authenticator, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	rooms := NewRoomHandlers(hub, logger)
	router.GET("/health", rooms.Health)

	api := router.Group("/api")
	{
		api.GET("/rooms", rooms.ListRooms)
		api.GET("/rooms/:name", rooms.GetRoom)
	}

	router.GET("/ws", gin.WrapH(NewWSHandler(hub, authenticator, cfg, logger)))

	return &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
