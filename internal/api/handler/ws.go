package handler

import (
	"net/http"

	"linkup/backend/internal/chathub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checking is handled by the edge proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket authenticates the bearer credential and upgrades the
// connection. Authentication failure terminates the attempt with a reason and
// no partial state; after the upgrade the hub owns the connection.
// GET /ws
func (h *Handler) ServeWebSocket(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer credential"})
		return
	}

	userID, err := h.Verifier.Verify(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.Log.Warnw("websocket upgrade failed", "user_id", userID, "err", err)
		return
	}

	client := chathub.NewWebSocketClient(userID, conn, h.Hub, h.Log)
	h.Hub.RegisterCh <- client
	client.Run()
}
