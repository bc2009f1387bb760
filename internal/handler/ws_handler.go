package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/katalog-materi-api/internal/notifier"
	"github.com/noah-isme/katalog-materi-api/internal/service"
	appErrors "github.com/noah-isme/katalog-materi-api/pkg/errors"
	"github.com/noah-isme/katalog-materi-api/pkg/response"
)

// WSHandler upgrades authenticated requests into stats push subscriptions.
type WSHandler struct {
	hub      *notifier.Hub
	stats    *service.StatsService
	opts     notifier.ClientOptions
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler constructs WSHandler. Origin checking is delegated to the
// CORS middleware in front of the route.
func NewWSHandler(hub *notifier.Hub, stats *service.StatsService, opts notifier.ClientOptions, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		hub:    hub,
		stats:  stats,
		opts:   opts,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Subscribe godoc
// @Summary Subscribe to live statistics
// @Tags Stats
// @Security BearerAuth
// @Success 101
// @Router /ws/stats [get]
func (h *WSHandler) Subscribe(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	notifier.ServeClient(h.hub, conn, h.stats, claims.UserID, h.opts, h.logger)
}
