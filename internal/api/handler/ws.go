package handler

import (
	"net/http"

	"modcheck/backend/internal/feed"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: restrict to the admin UI origin once it is served from a fixed host.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeFeed upgrades to a websocket that receives moderation queue refresh events.
func (h *Handler) ServeFeed(c *gin.Context) {
	if h.Hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Feed is not available"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}

	client := feed.NewWebSocketClient(h.Hub, conn, c.GetString(ctxUserID))
	select {
	case h.Hub.RegisterCh <- client:
		client.Run()
	case <-h.Hub.Done():
		conn.Close()
	}
}
