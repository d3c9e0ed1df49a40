package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// HTTP upgrade handler to WebSocket connections

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// allow all origins for development purpose; can restrict later
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler: handle upgrade request from HTTP connection to WebSocket
func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		// get user info from JWT middleware
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: user ID not found"})
			return
		}
		userName := c.GetString("username")
		if userName == "" {
			userName = "Unknown"
		}

		// upgrade HTTP connection to WebSocket
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade to WebSocket"})
			return
		}

		// one user may hold several tabs open, so the client ID is its own
		client := NewClient(
			uuid.New().String(),
			userID.(string),
			userName,
			conn,
			hub,
		)

		// register client to hub
		hub.Register <- client

		// start goroutines for read and write pumps
		go client.ReadPump()
		go client.WritePump()
	}
}
